package util

import "testing"

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected string
	}{
		{"none", nil, ""},
		{"first wins", []string{"a", "b"}, "a"},
		{"skips blanks", []string{"", "  ", "nick"}, "nick"},
		{"all blank", []string{"", " "}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FirstNonEmpty(tt.input...); result != tt.expected {
				t.Errorf("FirstNonEmpty(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Red Falcon", "Red_Falcon"},
		{"  jet // mk-2 ", "jet_mk-2"},
		{"a..b", "a_b"},
		{"///", ""},
	}

	for _, tt := range tests {
		if result := SafeName(tt.input); result != tt.expected {
			t.Errorf("SafeName(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("expected nil for empty string")
	}
	p := StringPtr("x")
	if p == nil || *p != "x" || Deref(p) != "x" {
		t.Errorf("unexpected pointer %v", p)
	}
	if Deref(nil) != "" {
		t.Error("expected empty string for nil")
	}
}
