package utils

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"Parser", "parser", 0}, // case-insensitive
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFuzzyWordMatch(t *testing.T) {
	if !FuzzyWordMatch("the journal parser pool", "parsre", 2) {
		t.Error("transposition within distance 2 should match")
	}
	if FuzzyWordMatch("the journal parser pool", "elephant", 2) {
		t.Error("unrelated word matched")
	}
}
