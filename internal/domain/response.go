package domain

// Branch names the terminal state that produced a response.
type Branch string

const (
	BranchNavigate   Branch = "navigate"
	BranchDirect     Branch = "direct"
	BranchList       Branch = "list"
	BranchSynthesize Branch = "synthesize"
	BranchClarify    Branch = "clarify"
	BranchFallback   Branch = "fallback"
	BranchFactBlock  Branch = "fact_block"
	BranchError      Branch = "error"
)

// Response is the outbound chat payload.
type Response struct {
	Answer             string  `json:"answer"`
	MatchedQuestion    string  `json:"matched_question,omitempty"`
	NormalizedQuestion string  `json:"normalizedQuestion,omitempty"`
	Confidence         float64 `json:"confidence"`
	Intent             Intent  `json:"intent,omitempty"`
	Target             string  `json:"target,omitempty"`
	Action             string  `json:"action,omitempty"`
	Branch             Branch  `json:"branch,omitempty"`
}
