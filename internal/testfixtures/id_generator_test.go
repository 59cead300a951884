package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator(0)
	if got := gen.Next(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := gen.Next(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}

	gen.SetCounter(41)
	if got := gen.Next(); got != 42 {
		t.Fatalf("expected 42 after reset, got %d", got)
	}
}
