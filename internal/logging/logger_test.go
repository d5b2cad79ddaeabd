package logging

import (
	"fmt"
	"os"
	"testing"
)

func TestTailReturnsLastNLinesInOrder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FLEET_HOME", dir)
	t.Setenv("FLEET_NO_COLOR", "1")

	l, err := New("watch1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 20; i++ {
		l.Info(fmt.Sprintf("line %d", i))
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines, err := Tail("watch1", 5)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 5 {
		t.Fatalf("want 5 lines, got %d: %v", len(lines), lines)
	}
	for i, want := range []string{"line 15", "line 16", "line 17", "line 18", "line 19"} {
		if !containsSubstr(lines[i], want) {
			t.Errorf("line %d = %q, want substring %q", i, lines[i], want)
		}
	}
}

func TestTailHandlesFewerLinesThanRequested(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FLEET_HOME", dir)
	t.Setenv("FLEET_NO_COLOR", "1")

	l, err := New("watch2")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("only line")
	l.Close()

	lines, err := Tail("watch2", 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d: %v", len(lines), lines)
	}
}

func TestRemoveByIDIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FLEET_HOME", dir)

	if err := RemoveByID("nonexistent"); err != nil {
		t.Fatalf("RemoveByID on missing file should be a no-op, got %v", err)
	}

	l, err := New("watch3")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Close()
	if err := RemoveByID("watch3"); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected log file removed")
	}
}

func containsSubstr(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
