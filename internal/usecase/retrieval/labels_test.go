package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicLabel(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"What is the fee for hostel?", "Fee Hostel"},
		{"Where is the school located?", "School"},
		{"canteen menu price list today", "Canteen Menu Price"},
		{"Is it?", "General Info"},
		{"", "General Info"},
		{"Tell me about Wi-Fi access", "Wifi Access"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopicLabel(tt.question), tt.question)
	}
}

func TestLabeler_StripWords(t *testing.T) {
	l := newLabeler([]string{"School", " montfort ", ""})

	assert.Equal(t, "Area", l.label("School Area"))
	assert.Equal(t, "Details", l.label("School"))
	assert.Equal(t, "Bus Routes", l.label("Montfort bus routes"))

	plain := newLabeler(nil)
	assert.Equal(t, "School Area", plain.label("School Area"))
}
