package conversation

import (
	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/domain/textdist"
)

// Config holds the carry-over settings.
type Config struct {
	Anchors         []string // ordered; first match wins
	FactKeywords    []string
	DefaultDepth    int
	AnchorDepth     int
	FactDepth       int
	AnchorMaxTokens int // follow-ups up to this length inherit the previous anchor
	MergeMaxTokens  int // follow-ups up to this length are merged with the previous turn
}

// Resolution is the query to search for plus how many candidates to fetch.
type Resolution struct {
	MergedQuery string
	Anchor      string // empty when no topic is locked
	FetchDepth  int
}

// Resolver merges the current message with the last history turn.
type Resolver struct {
	cfg Config
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve decides whether the previous turn's topic carries over to message.
// Only the last history turn is consulted.
func (r *Resolver) Resolve(message string, history []domain.Turn) Resolution {
	res := Resolution{MergedQuery: message, FetchDepth: r.cfg.DefaultDepth}
	tokens := textdist.TokenCount(message)

	var prev string
	if len(history) > 0 {
		prev = history[len(history)-1].User
	}

	current := FindAnchor(message, r.cfg.Anchors)
	switch {
	case current != "" || prev == "":
		// Message names its own topic, or there is nothing to carry over.
	case tokens <= r.cfg.AnchorMaxTokens && FindAnchor(prev, r.cfg.Anchors) != "":
		res.Anchor = FindAnchor(prev, r.cfg.Anchors)
		res.MergedQuery = res.Anchor + " " + message
		res.FetchDepth = r.cfg.AnchorDepth
	case tokens <= r.cfg.MergeMaxTokens:
		res.MergedQuery = prev + " " + message
	}

	if containsAny(message, r.cfg.FactKeywords) {
		res.FetchDepth = max(res.FetchDepth, r.cfg.FactDepth)
	}
	return res
}

// FindAnchor returns the first anchor, in enumeration order, that text names as
// a token ("labs" names "lab", "syllabus" does not).
func FindAnchor(text string, anchors []string) string {
	for _, a := range anchors {
		if textdist.HasToken(text, a) {
			return a
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if textdist.HasToken(text, k) {
			return true
		}
	}
	return false
}
