package common

import (
	"errors"
	"testing"
)

type staticPauses map[string]bool

func (s staticPauses) IsPaused(module string) bool { return s[module] }

func TestGuard(t *testing.T) {
	view := staticPauses{"credit": true}

	if err := Guard(view, "credit"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	if err := Guard(nil, "credit"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	if err := Guard(view, ""); err != nil {
		t.Fatalf("empty module must not block: %v", err)
	}
}
