package util

import "testing"

func TestNewHexID(t *testing.T) {
	a, b := NewHexID(), NewHexID()
	if len(a) != 32 || !IsHexID(a) {
		t.Fatalf("NewHexID() = %q", a)
	}
	if a == b {
		t.Fatal("ids must be unique")
	}
}

func TestIsHexID(t *testing.T) {
	tests := map[string]bool{
		"0123456789abcdef0123456789abcdef":     true,
		"01234567-89ab-cdef-0123-456789abcdef": true,
		"../../etc/passwd":                     false,
		"0123456789abcdef0123456789abcdeZ":     false,
		"":                                     false,
	}
	for in, want := range tests {
		if got := IsHexID(in); got != want {
			t.Errorf("IsHexID(%q) = %v, want %v", in, got, want)
		}
	}
}
