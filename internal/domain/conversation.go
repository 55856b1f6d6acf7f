package domain

// Turn is one earlier user message supplied by the caller.
type Turn struct {
	User string `json:"user"`
}

// Intent classifies an utterance for routing.
type Intent string

const (
	// IntentSchool is an informational question answered from the knowledge base.
	IntentSchool Intent = "school"
	// IntentPano navigates to a panorama.
	IntentPano Intent = "pano"
	// IntentProject navigates to a project.
	IntentProject Intent = "project"
)

// IsNavigation reports whether the intent opens a target instead of answering.
func (i Intent) IsNavigation() bool {
	return i == IntentPano || i == IntentProject
}

// Request is the consumed part of an inbound chat request.
type Request struct {
	Question     string
	History      []Turn
	PanoNames    []string
	ProjectNames []string
}
