package dedup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Capacity is the number of message identifiers remembered per account
const Capacity = 1000

// Window is a bounded FIFO set of recently processed message identifiers.
// When full, the oldest identifier is evicted after each insertion.
type Window struct {
	capacity int
	ids      []string
	set      map[string]struct{}
}

// NewWindow creates an empty window; capacity <= 0 means Capacity
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Window{
		capacity: capacity,
		set:      make(map[string]struct{}),
	}
}

// ParseWindow decodes a persisted JSON array. Empty input yields an empty window.
// Stored arrays longer than capacity keep their newest entries.
func ParseWindow(data string, capacity int) (*Window, error) {
	w := NewWindow(capacity)
	if data == "" {
		return w, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return w, fmt.Errorf("failed to decode processed ids: %w", err)
	}
	for _, id := range ids {
		w.Add(id)
	}
	return w, nil
}

// Contains reports whether id is in the window
func (w *Window) Contains(id string) bool {
	_, ok := w.set[id]
	return ok
}

// Add appends id, evicting the oldest entries beyond capacity.
// Empty and already present identifiers are ignored.
func (w *Window) Add(id string) {
	if id == "" || w.Contains(id) {
		return
	}
	w.ids = append(w.ids, id)
	w.set[id] = struct{}{}

	for len(w.ids) > w.capacity {
		delete(w.set, w.ids[0])
		w.ids = w.ids[1:]
	}
}

// IDs returns a copy of the identifiers, oldest first
func (w *Window) IDs() []string {
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}

// Len returns the number of identifiers held
func (w *Window) Len() int {
	return len(w.ids)
}

// Encode returns the JSON array representation used for persistence
func (w *Window) Encode() (string, error) {
	ids := w.ids
	if ids == nil {
		ids = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // Message-IDs keep their angle brackets
	if err := enc.Encode(ids); err != nil {
		return "", fmt.Errorf("failed to encode processed ids: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
