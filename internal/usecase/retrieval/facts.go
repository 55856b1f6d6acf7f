package retrieval

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

// FactCategory is a value-shaped question class whose answer must match a pattern.
type FactCategory struct {
	Name     string // phone, email, website, time, fee
	Display  string // used in the apology when no candidate carries the value
	Keywords []string
	Pattern  *regexp.Regexp
}

// factTable is evaluated in order; the first category whose keywords appear in
// the query wins. Order is part of the behavior: "fee payment timings" is a time question.
// Keywords name the value itself; words like "number" or "link" also show up in
// ordinary questions and would hard-block them. Multi-word keywords match as phrases.
var factTable = []FactCategory{
	{
		Name:     "phone",
		Display:  "phone number",
		Keywords: []string{"phone", "mobile", "whatsapp", "telephone", "landline", "contact number", "phone number"},
		Pattern:  regexp.MustCompile(`(\+?\d[\d -]{7,15}|\d{3,5}\s?\d{3,5})`),
	},
	{
		Name:     "email",
		Display:  "email address",
		Keywords: []string{"email", "mail", "gmail"},
		Pattern:  regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	},
	{
		Name:     "website",
		Display:  "website",
		Keywords: []string{"website", "url", "webpage", "website link"},
		Pattern:  regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\b[a-z0-9-]+\.(com|in|org|net|edu)\b)`),
	},
	{
		Name:     "time",
		Display:  "timings",
		Keywords: []string{"timing", "timings", "hours", "schedule", "opening time", "closing time"},
		Pattern:  regexp.MustCompile(`(?i)(\b\d{1,2}(:\d{2})?\s?(am|pm|a\.m\.|p\.m\.)|\b\d{1,2}[:.]\d{2}\b)`),
	},
	// A bare amount of three or more digits counts; the query already asked about fees.
	{
		Name:     "fee",
		Display:  "fee details",
		Keywords: []string{"fee", "fees", "cost", "price", "charge", "charges"},
		Pattern:  regexp.MustCompile(`(?i)((₹|rs\.?|inr|\$)\s?\d|\d[\d,]*\s?(/-|rupees|rs\b|inr\b|lakh)|\b\d[\d,]{2,}\b)`),
	},
}

// ClassifyFact returns the first fact category whose keyword set intersects the query tokens.
func ClassifyFact(query string) (FactCategory, bool) {
	joined := " " + strings.Join(strings.FieldsFunc(strings.ToLower(query), isTokenSep), " ") + " "

	for _, cat := range factTable {
		for _, k := range cat.Keywords {
			if strings.Contains(joined, " "+k+" ") {
				return cat, true
			}
		}
	}
	return FactCategory{}, false
}

// firstValidated returns the highest-ranked candidate whose answer carries a value of cat's shape.
func firstValidated(cat FactCategory, candidates []domain.Candidate) (domain.Candidate, bool) {
	for _, c := range candidates {
		if cat.Pattern.MatchString(c.AnswerText) {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

func isTokenSep(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}
