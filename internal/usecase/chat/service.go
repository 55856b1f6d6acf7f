package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/domain/textdist"
	"github.com/kailas-cloud/campus-assistant/internal/logger"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/navigation"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/retrieval"
)

// Service answers one chat request: validation, navigation short-circuit,
// context carry-over and retrieval.
type Service struct {
	context        ContextResolver
	answers        Answerer
	maxQuestionLen int
}

// New creates a chat service. maxQuestionLen <= 0 disables the length guard.
func New(resolver ContextResolver, answers Answerer, maxQuestionLen int) *Service {
	return &Service{context: resolver, answers: answers, maxQuestionLen: maxQuestionLen}
}

// Ask resolves req into a response. Only input errors are returned;
// downstream failures are already folded into the response.
func (s *Service) Ask(ctx context.Context, req domain.Request) (domain.Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.Response{}, domain.ErrInputEmpty
	}
	if s.maxQuestionLen > 0 && textdist.RuneLen(question) > s.maxQuestionLen {
		return domain.Response{}, fmt.Errorf("%w: %d characters, limit %d",
			domain.ErrInputTooLong, textdist.RuneLen(question), s.maxQuestionLen)
	}

	log := logger.FromContext(ctx)

	nav := navigation.Resolve(question, req.PanoNames, req.ProjectNames)
	if nav.Intent.IsNavigation() {
		metrics.BranchTotal.WithLabelValues(string(domain.BranchNavigate)).Inc()
		log.Debug("Navigation intent", zap.String("intent", string(nav.Intent)), zap.String("target", nav.Target))
		return domain.Response{
			Answer:     "Opening " + nav.Target + "...",
			Confidence: 1,
			Intent:     nav.Intent,
			Target:     nav.Target,
			Action:     string(nav.Intent),
			Branch:     domain.BranchNavigate,
		}, nil
	}

	res := s.context.Resolve(question, req.History)
	if res.MergedQuery != question {
		log.Debug("Context carried over",
			zap.String("question", question),
			zap.String("merged", res.MergedQuery),
			zap.String("anchor", res.Anchor),
		)
	}

	resp := s.answers.Answer(ctx, retrieval.Query{
		Text:       res.MergedQuery,
		Anchor:     res.Anchor,
		FetchDepth: res.FetchDepth,
	})
	resp.Intent = domain.IntentSchool
	return resp, nil
}
