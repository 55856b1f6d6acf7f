package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

func TestClassifyFact(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"whatsapp number", "phone"},
		{"school mobile?", "phone"},
		{"Email ID of principal", "email"},
		{"official website link", "website"},
		{"library timings", "time"},
		{"fee payment timings", "time"},
		{"hostel fees", "fee"},
		{"bus cost per month", "fee"},
		{"is there a canteen", ""},
		{"phonebook", ""}, // whole tokens only
		{"school contact number", "phone"},
		{"number of students per class", ""},
		{"what do you call the head teacher", ""},
		{"is there a link between fee and hostel", "fee"},
		{"what time does assembly start", ""},
		{"minimum amount of attendance", ""},
	}
	for _, tt := range tests {
		cat, ok := ClassifyFact(tt.query)
		if tt.want == "" {
			assert.False(t, ok, tt.query)
			continue
		}
		require.True(t, ok, tt.query)
		assert.Equal(t, tt.want, cat.Name, tt.query)
	}
}

func TestFactPatterns(t *testing.T) {
	byName := map[string]FactCategory{}
	for _, c := range factTable {
		byName[c.Name] = c
	}

	tests := []struct {
		category string
		text     string
		want     bool
	}{
		{"phone", "Phone: +91 999 888 7777", true},
		{"phone", "Call 0821 2345678 during office hours", true},
		{"phone", "Contact us for phone info", false},
		{"email", "Write to office@school.edu.in", true},
		{"email", "Send us an email", false},
		{"website", "Visit https://example.org/admissions", true},
		{"website", "See www.example.in for details", true},
		{"website", "Check our website", false},
		{"time", "Open from 8:30 am to 4 pm", true},
		{"time", "Office works 09.00 to 17.00", true},
		{"time", "Open on weekdays", false},
		{"fee", "The fee is ₹45,000 per year", true},
		{"fee", "Rs. 1200 per term", true},
		{"fee", "Pay 5000/- at the counter", true},
		{"fee", "Fees are payable quarterly", false},
		{"fee", "Hostel fee is 45000 per year.", true},
		{"fee", "Tuition is 12,500 per term", true},
		{"fee", "Pay in 2 instalments", false},
	}
	for _, tt := range tests {
		got := byName[tt.category].Pattern.MatchString(tt.text)
		assert.Equal(t, tt.want, got, "%s: %q", tt.category, tt.text)
	}
}

func TestFirstValidated_RankOrder(t *testing.T) {
	cat, _ := ClassifyFact("phone")
	cands := []domain.Candidate{
		{ID: "1", AnswerText: "Call the office"},
		{ID: "2", AnswerText: "Phone 98450 12345"},
		{ID: "3", AnswerText: "Phone 99999 00000"},
	}
	got, ok := firstValidated(cat, cands)
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)

	_, ok = firstValidated(cat, cands[:1])
	assert.False(t, ok)
}
