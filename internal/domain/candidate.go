package domain

// Candidate is one retrieved question/answer pair. Similarity is in [0,1].
type Candidate struct {
	ID           string
	QuestionText string
	AnswerText   string
	GroupID      string
	Similarity   float64
}

// Answer is an Answer Store row.
type Answer struct {
	GroupID  string
	Text     string
	IsActive bool
}
