package chat

import (
	"context"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/conversation"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/retrieval"
)

// ContextResolver carries topic context over from the previous turn.
type ContextResolver interface {
	Resolve(message string, history []domain.Turn) conversation.Resolution
}

// Answerer selects the knowledge-base response for a resolved query.
type Answerer interface {
	Answer(ctx context.Context, q retrieval.Query) domain.Response
}
