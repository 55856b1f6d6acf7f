package navigation

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/domain/textdist"
)

const (
	// autoCorrectMaxDist bounds the typo correction applied to the cleaned target.
	autoCorrectMaxDist = 3
	// fuzzyMaxDist bounds the distance accepted by the fuzzy catalog match.
	fuzzyMaxDist = 2
)

var (
	navVerbs = regexp.MustCompile(`(?i)\b(go to|go|goto|open|show|view|take me to|take me|navigate|visit|see|check|look at)\b`)
	fillers  = regexp.MustCompile(`\b(the|a|an|please|pls|kindly|can you|could you)\b`)
	nonWord  = regexp.MustCompile(`[^\w\s]`)
	digits   = regexp.MustCompile(`\d+`)
	spaces   = regexp.MustCompile(`\s+`)
)

// Result is the routing decision for one utterance. Target is set only for navigation intents.
type Result struct {
	Intent domain.Intent
	Target string
}

// Resolve detects "go to X" style requests and matches X against the caller's catalogs.
// Anything that is not a confident navigation request resolves to IntentSchool.
func Resolve(utterance string, panoNames, projectNames []string) Result {
	school := Result{Intent: domain.IntentSchool}

	if !navVerbs.MatchString(utterance) {
		return school
	}

	cleaned := clean(utterance)
	if cleaned == "" {
		return school
	}

	cleaned = autoCorrect(cleaned, append(lowerAll(panoNames), lowerAll(projectNames)...))

	if name, ok := match(cleaned, panoNames); ok {
		return Result{Intent: domain.IntentPano, Target: name}
	}
	if name, ok := match(cleaned, projectNames); ok {
		return Result{Intent: domain.IntentProject, Target: name}
	}
	return school
}

// clean strips verbs, filler words, punctuation and digits.
func clean(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	s = navVerbs.ReplaceAllString(s, "")
	s = fillers.ReplaceAllString(s, "")
	s = nonWord.ReplaceAllString(s, "")
	s = digits.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// autoCorrect replaces cleaned with the nearest catalog entry when it is within
// autoCorrectMaxDist. Ties go to the first entry in catalog order.
func autoCorrect(cleaned string, catalog []string) string {
	idx, dist := textdist.Nearest(cleaned, catalog)
	if idx >= 0 && dist <= autoCorrectMaxDist {
		return catalog[idx]
	}
	return cleaned
}

// match tries an exact case-insensitive match first, then a fuzzy one
// (containment either way or a small edit distance), in catalog order.
func match(cleaned string, names []string) (string, bool) {
	for _, n := range names {
		if n != "" && strings.ToLower(n) == cleaned {
			return n, true
		}
	}
	for _, n := range names {
		t := strings.ToLower(strings.TrimSpace(n))
		if t == "" {
			continue
		}
		if strings.Contains(t, cleaned) || strings.Contains(cleaned, t) ||
			textdist.Levenshtein(t, cleaned) <= fuzzyMaxDist {
			return n, true
		}
	}
	return "", false
}

// lowerAll lowercases names and drops blanks, keeping the caller's order.
func lowerAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		out = append(out, strings.ToLower(n))
	}
	return out
}
