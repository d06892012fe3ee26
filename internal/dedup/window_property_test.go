package dedup

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// The window never exceeds its capacity and always holds the newest distinct ids in insertion order.
func TestProperty_WindowBoundedFIFO(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("size bounded by capacity", prop.ForAll(
		func(capacity, n int) bool {
			w := NewWindow(capacity)
			for i := 0; i < n; i++ {
				w.Add(fmt.Sprintf("<%d@example.com>", i))
			}
			want := n
			if want > capacity {
				want = capacity
			}
			return w.Len() == want
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 200),
	))

	properties.Property("oldest evicted first", prop.ForAll(
		func(capacity, n int) bool {
			w := NewWindow(capacity)
			for i := 0; i < n; i++ {
				w.Add(fmt.Sprintf("id-%d", i))
			}
			start := n - capacity
			if start < 0 {
				start = 0
			}
			ids := w.IDs()
			for i, id := range ids {
				if id != fmt.Sprintf("id-%d", start+i) {
					return false
				}
			}
			for i := 0; i < start; i++ {
				if w.Contains(fmt.Sprintf("id-%d", i)) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 200),
	))

	properties.Property("encode then parse keeps order", prop.ForAll(
		func(ids []string) bool {
			w := NewWindow(Capacity)
			for _, id := range ids {
				w.Add(id)
			}
			data, err := w.Encode()
			if err != nil {
				return false
			}
			back, err := ParseWindow(data, Capacity)
			if err != nil || back.Len() != w.Len() {
				return false
			}
			for i, id := range back.IDs() {
				if w.IDs()[i] != id {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < Capacity+5; i++ {
		w.Add(fmt.Sprintf("m%d", i))
	}
	if w.Len() != Capacity {
		t.Fatalf("Len = %d, want %d", w.Len(), Capacity)
	}
	if w.Contains("m4") || !w.Contains("m5") {
		t.Fatal("expected the five oldest ids to be evicted")
	}
}

func TestParseWindowTrimsOversizedInput(t *testing.T) {
	w, err := ParseWindow(`["a","b","c","d"]`, 2)
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}
	if got := w.IDs(); len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("IDs = %v", got)
	}
}

func TestParseWindowRejectsCorruptData(t *testing.T) {
	w, err := ParseWindow("not json", Capacity)
	if err == nil {
		t.Fatal("expected error")
	}
	if w == nil || w.Len() != 0 {
		t.Fatal("expected an empty window alongside the error")
	}
}

func TestEncodeEmptyWindow(t *testing.T) {
	data, err := NewWindow(Capacity).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if data != "[]" {
		t.Fatalf("Encode = %q", data)
	}
}

func TestEncodeKeepsAngleBrackets(t *testing.T) {
	w := NewWindow(0)
	w.Add("<a&b@x>")
	data, err := w.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if data != `["<a&b@x>"]` {
		t.Fatalf("Encode = %q", data)
	}
}
