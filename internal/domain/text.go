package domain

import "context"

// Completion is the text returned by a single completion call plus its token cost.
type Completion struct {
	Text        string
	TotalTokens int
}

// Completer produces free text for a prompt under an instruction.
// Implementations return ErrRateLimited when the credential is throttled.
type Completer interface {
	Complete(ctx context.Context, prompt, instruction string) (Completion, error)
}

// TextProvider is one credential-bound connection to the Text Service.
type TextProvider interface {
	Completer
	Embedder
	HealthChecker
}

// TextService is the credential-agnostic Text Service used by the pipeline.
type TextService interface {
	Complete(ctx context.Context, prompt, instruction string) (string, error)
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
