// Package textdist provides edit distance and token helpers shared by the
// navigation, normalization and retrieval stages.
package textdist

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Levenshtein returns the classic edit distance between a and b with unit
// insert, delete and substitute costs. Runes are compared, not bytes.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Tokens splits s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// HasToken reports whether text contains word as a whole token, allowing a
// trailing plural "s". Case is ignored; punctuation separates tokens.
func HasToken(text, word string) bool {
	word = strings.ToLower(word)
	if word == "" {
		return false
	}
	for _, t := range strings.FieldsFunc(strings.ToLower(text), isWordSep) {
		if t == word || t == word+"s" {
			return true
		}
	}
	return false
}

func isWordSep(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// TokenCount returns the number of whitespace-separated tokens in s.
func TokenCount(s string) int {
	return len(strings.Fields(s))
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Nearest returns the index of the entry with the smallest edit distance to s
// and that distance. Ties keep the first entry. Returns -1 for an empty list.
func Nearest(s string, entries []string) (int, int) {
	best, bestDist := -1, 0
	for i, e := range entries {
		d := Levenshtein(s, e)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
