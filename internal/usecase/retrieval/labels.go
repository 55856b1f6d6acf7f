package retrieval

import (
	"regexp"
	"strings"
)

const (
	defaultLabel  = "General Info"
	strippedLabel = "Details"
	maxLabelWords = 3
)

var labelStopwords = map[string]struct{}{
	"what": {}, "is": {}, "the": {}, "are": {}, "info": {}, "about": {}, "for": {},
	"details": {}, "of": {}, "in": {}, "on": {}, "how": {}, "to": {}, "can": {},
	"you": {}, "tell": {}, "me": {}, "enquiry": {}, "check": {}, "where": {},
	"when": {}, "who": {}, "which": {}, "do": {}, "does": {}, "located": {},
}

var labelPunct = regexp.MustCompile(`[^\w\s]`)

// TopicLabel derives a short title from a question: stop words and tokens of
// two characters or fewer are dropped, the first three remaining words are capitalized.
func TopicLabel(question string) string {
	words := strings.Fields(labelPunct.ReplaceAllString(strings.ToLower(question), ""))

	kept := make([]string, 0, maxLabelWords)
	for _, w := range words {
		if len(kept) == maxLabelWords {
			break
		}
		if _, stop := labelStopwords[w]; stop || len(w) <= 2 {
			continue
		}
		kept = append(kept, strings.ToUpper(w[:1])+w[1:])
	}

	if len(kept) == 0 {
		return defaultLabel
	}
	return strings.Join(kept, " ")
}

// labeler applies TopicLabel and then removes brand words that would make
// every label start the same way.
type labeler struct {
	strip []*regexp.Regexp
}

func newLabeler(stripWords []string) labeler {
	var l labeler
	for _, w := range stripWords {
		if w = strings.TrimSpace(w); w != "" {
			l.strip = append(l.strip, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
		}
	}
	return l
}

func (l labeler) label(question string) string {
	label := TopicLabel(question)
	if len(l.strip) == 0 {
		return label
	}
	for _, re := range l.strip {
		label = re.ReplaceAllString(label, "")
	}
	label = strings.Join(strings.Fields(label), " ")
	if len(label) < 2 {
		return strippedLabel
	}
	return label
}
