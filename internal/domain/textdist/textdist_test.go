package textdist

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"libary", "library", 1},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := Levenshtein(tt.b, tt.a); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestNearest_TieKeepsFirst(t *testing.T) {
	idx, d := Nearest("cat", []string{"bat", "hat", "cart"})
	if idx != 0 || d != 1 {
		t.Errorf("Nearest = (%d, %d), want (0, 1)", idx, d)
	}
}

func TestNearest_Empty(t *testing.T) {
	idx, _ := Nearest("x", nil)
	if idx != -1 {
		t.Errorf("Nearest on empty list = %d, want -1", idx)
	}
}

func TestTokenCount(t *testing.T) {
	if got := TokenCount("  hostel   fees \n"); got != 2 {
		t.Errorf("TokenCount = %d, want 2", got)
	}
}

func TestHasToken(t *testing.T) {
	tests := []struct {
		text, word string
		want       bool
	}{
		{"is the lab open", "lab", true},
		{"Science LABS?", "lab", true},
		{"are scholarships available", "lab", false},
		{"syllabus for class 9", "lab", false},
		{"where can I get coffee", "fee", false},
		{"feedback form", "fee", false},
		{"hostel fees", "fee", true},
		{"canteen/menu", "canteen", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		if got := HasToken(tt.text, tt.word); got != tt.want {
			t.Errorf("HasToken(%q, %q) = %v, want %v", tt.text, tt.word, got, tt.want)
		}
	}
}
