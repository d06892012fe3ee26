package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingServer struct{ err error }

func (s failingServer) Run(context.Context) error { return s.err }

func TestServeInBackgroundLogsFailureImmediately(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := serveInBackground(ctx, failingServer{err: errors.New("address already in use")}, logger)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server goroutine did not finish while the worker is still running")
	}

	if !strings.Contains(buf.String(), "address already in use") {
		t.Fatalf("log = %q", buf.String())
	}
}
