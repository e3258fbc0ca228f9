package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeInput(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestChangedByContent(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.v4ir"), filepath.Join(dir, "b.v4ir")
	writeInput(t, a, "one")
	writeInput(t, b, "two")

	w, err := New([]string{a, b, a})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := w.Paths(); len(got) != 2 {
		t.Fatalf("paths = %v, want deduplicated pair", got)
	}
	if got := w.Changed(w.Paths()); len(got) != 2 {
		t.Fatalf("first scan = %v, want both inputs", got)
	}
	if got := w.Changed(w.Paths()); len(got) != 0 {
		t.Fatalf("unchanged scan = %v", got)
	}

	writeInput(t, a, "one")
	if got := w.Changed(w.Paths()); len(got) != 0 {
		t.Fatalf("rewrite with same content must not count: %v", got)
	}
	writeInput(t, b, "three")
	if got := w.Changed(w.Paths()); !slices.Equal(got, []string{b}) {
		t.Fatalf("changed = %v, want [%s]", got, b)
	}

	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}
	if got := w.Changed(w.Paths()); !slices.Equal(got, []string{b}) {
		t.Fatalf("removal = %v, want [%s]", got, b)
	}
	if got := w.Changed(w.Paths()); len(got) != 0 {
		t.Fatalf("missing file must be reported once, got %v", got)
	}
	if w.Exists() == nil {
		t.Fatalf("Exists must report the removed input")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunRebuildsOnWrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "m.v4ir")
	writeInput(t, in, "v1")

	w, err := New([]string{in})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		})
	}()

	select {
	case got := <-calls:
		if len(got) != 1 {
			t.Fatalf("initial rebuild = %v", got)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for initial rebuild")
	}

	writeInput(t, in, "v2")
	select {
	case got := <-calls:
		if len(got) != 1 || filepath.Base(got[0]) != "m.v4ir" {
			t.Fatalf("rebuild = %v", got)
		}
	case <-time.After(3 * time.Second):
		t.Skip("no filesystem events delivered")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
