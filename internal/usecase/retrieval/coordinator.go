package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/domain/textdist"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

// Fallback modes.
const (
	FallbackStatic  = "static"
	FallbackGeneral = "general"
)

// embedder is the consumer interface for query vectorization.
type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// completer is the consumer interface for free-text generation.
type completer interface {
	Complete(ctx context.Context, prompt, instruction string) (string, error)
}

// searcher is the Vector Search Service. Results are sorted by descending similarity.
type searcher interface {
	Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Candidate, error)
}

// answerStore is the Answer Store.
type answerStore interface {
	AnswersForGroups(ctx context.Context, groupIDs []string) ([]domain.Answer, error)
}

// normalizer is the two-stage query corrector.
type normalizer interface {
	Quick(ctx context.Context, text string) string
	Slow(ctx context.Context, text string) (string, bool)
}

// Config holds the selection thresholds.
type Config struct {
	SearchThreshold     float64
	FastPathThreshold   float64
	ConfidenceFloor     float64
	AmbiguityGap        float64
	StrongMatch         float64
	ListCeiling         float64
	ListSize            int
	ShortQueryTokens    int
	SynthesizeMinTokens int
	FallbackMode        string
	InfoURL             string
	LabelStripWords     []string
	StoreTimeout        time.Duration // bounds each search and answer-store call
}

// Query is a context-resolved question.
type Query struct {
	Text       string
	Anchor     string // locked topic, empty when none
	FetchDepth int
}

// Coordinator selects the response for a question: search, enrichment,
// filtering, fact validation, confidence gating and branch selection.
type Coordinator struct {
	cfg     Config
	embed   embedder
	text    completer
	search  searcher
	answers answerStore
	norm    normalizer
	labels  labeler
	logger  *zap.Logger
}

// New creates a Coordinator.
func New(
	cfg Config, embed embedder, text completer,
	search searcher, answers answerStore, norm normalizer, logger *zap.Logger,
) *Coordinator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &Coordinator{
		cfg:     cfg,
		embed:   embed,
		text:    text,
		search:  search,
		answers: answers,
		norm:    norm,
		labels:  newLabeler(cfg.LabelStripWords),
		logger:  logger,
	}
}

// Answer runs the retrieval pipeline. It never returns an error: external
// failures degrade to a fixed apology with confidence 0.
func (c *Coordinator) Answer(ctx context.Context, q Query) domain.Response {
	resp := c.answer(ctx, q)
	metrics.BranchTotal.WithLabelValues(string(resp.Branch)).Inc()
	c.logger.Debug("Retrieval branch selected",
		zap.String("branch", string(resp.Branch)),
		zap.Float64("confidence", resp.Confidence),
		zap.String("normalized", resp.NormalizedQuestion),
		zap.String("anchor", q.Anchor),
	)
	return resp
}

func (c *Coordinator) answer(ctx context.Context, q Query) domain.Response {
	query := c.norm.Quick(ctx, q.Text)

	candidates, err := c.searchText(ctx, query, q.FetchDepth)
	if err != nil {
		return c.errorResponse(query, err)
	}

	if topSimilarity(candidates) < c.cfg.FastPathThreshold {
		query, candidates = c.slowPath(ctx, query, candidates, q.FetchDepth)
	}

	candidates, err = c.enrich(ctx, candidates)
	if err != nil {
		return c.errorResponse(query, err)
	}
	candidates = dedup(candidates)
	candidates = anchorFilter(candidates, q.Anchor)

	// A fact question with no candidates is still blocked by category.
	if cat, ok := ClassifyFact(query); ok {
		validated, found := firstValidated(cat, candidates)
		if !found {
			return domain.Response{
				Answer:             factBlockMessage(cat),
				NormalizedQuestion: query,
				Branch:             domain.BranchFactBlock,
			}
		}
		return domain.Response{
			Answer:             validated.AnswerText,
			MatchedQuestion:    validated.QuestionText,
			NormalizedQuestion: query,
			Confidence:         validated.Similarity,
			Branch:             domain.BranchDirect,
		}
	}

	if len(candidates) == 0 {
		return c.fallback(ctx, query)
	}

	survivors := aboveFloor(candidates, c.cfg.ConfidenceFloor)
	if len(survivors) == 0 {
		return c.fallback(ctx, query)
	}
	best := survivors[0]

	if len(survivors) > 1 {
		second := survivors[1]
		if best.Similarity-second.Similarity < c.cfg.AmbiguityGap {
			a, b := c.labels.label(best.QuestionText), c.labels.label(second.QuestionText)
			if a != b {
				return domain.Response{
					Answer:             clarifyMessage(a, b),
					NormalizedQuestion: query,
					Confidence:         best.Similarity,
					Branch:             domain.BranchClarify,
				}
			}
		}
	}

	resp := domain.Response{
		MatchedQuestion:    best.QuestionText,
		NormalizedQuestion: query,
		Confidence:         best.Similarity,
	}

	tokens := textdist.TokenCount(query)
	strong := best.Similarity > c.cfg.StrongMatch
	broad := tokens <= c.cfg.ShortQueryTokens && len(survivors) > 2

	switch {
	case !strong && (best.Similarity <= c.cfg.ListCeiling || broad):
		resp.Answer = renderList(c.labels, survivors[:min(len(survivors), c.cfg.ListSize)])
		resp.Branch = domain.BranchList
	case tokens > c.cfg.SynthesizeMinTokens:
		resp.Answer, resp.Branch = c.synthesize(ctx, query, best)
	default:
		resp.Answer = best.AnswerText
		resp.Branch = domain.BranchDirect
	}
	return resp
}

// searchText embeds text and runs one bounded search.
func (c *Coordinator) searchText(ctx context.Context, text string, depth int) ([]domain.Candidate, error) {
	emb, err := c.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()

	candidates, err := c.search.Search(ctx, emb.Embedding, c.cfg.SearchThreshold, depth)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return candidates, nil
}

// slowPath retries the search once with an externally corrected query.
// The retry is kept only when it is non-empty and at least as confident.
func (c *Coordinator) slowPath(
	ctx context.Context, query string, fast []domain.Candidate, depth int,
) (string, []domain.Candidate) {
	corrected, ok := c.norm.Slow(ctx, query)
	if !ok {
		metrics.SlowPathTotal.WithLabelValues("rejected").Inc()
		return query, fast
	}
	if strings.EqualFold(corrected, query) {
		metrics.SlowPathTotal.WithLabelValues("unchanged").Inc()
		return query, fast
	}

	retry, err := c.searchText(ctx, corrected, depth)
	if err != nil {
		c.logger.Warn("Slow-path search failed, keeping fast results", zap.Error(err))
		metrics.SlowPathTotal.WithLabelValues("kept_fast").Inc()
		return query, fast
	}
	if len(retry) == 0 || topSimilarity(retry) < topSimilarity(fast) {
		metrics.SlowPathTotal.WithLabelValues("kept_fast").Inc()
		return query, fast
	}

	c.logger.Debug("Slow path improved query",
		zap.String("fast", query),
		zap.String("slow", corrected),
		zap.Float64("fast_top", topSimilarity(fast)),
		zap.Float64("slow_top", topSimilarity(retry)),
	)
	metrics.SlowPathTotal.WithLabelValues("improved").Inc()
	return corrected, retry
}

// enrich attaches active answer text; candidates without one are dropped.
func (c *Coordinator) enrich(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.GroupID
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout)
	defer cancel()

	rows, err := c.answers.AnswersForGroups(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	byGroup := make(map[string]string, len(rows))
	for _, a := range rows {
		if a.IsActive && strings.TrimSpace(a.Text) != "" {
			byGroup[a.GroupID] = a.Text
		}
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if text, ok := byGroup[cand.GroupID]; ok {
			cand.AnswerText = text
			out = append(out, cand)
		}
	}
	return out, nil
}

// synthesize rewrites one fact into a conversational sentence, falling back to the raw answer.
func (c *Coordinator) synthesize(ctx context.Context, query string, best domain.Candidate) (string, domain.Branch) {
	out, err := c.text.Complete(ctx, query, synthesisInstruction(query, best))
	if err != nil {
		c.logger.Warn("Synthesis failed, returning stored answer", zap.Error(err))
		return best.AnswerText, domain.BranchDirect
	}
	if out = stripMarkdown(out); out == "" {
		return best.AnswerText, domain.BranchDirect
	}
	return out, domain.BranchSynthesize
}

func (c *Coordinator) fallback(ctx context.Context, query string) domain.Response {
	resp := domain.Response{
		Answer:             MsgFallback,
		NormalizedQuestion: query,
		Branch:             domain.BranchFallback,
	}
	if c.cfg.FallbackMode != FallbackGeneral {
		return resp
	}

	out, err := c.text.Complete(ctx, query, generalInstruction(c.cfg.InfoURL))
	if err != nil {
		c.logger.Warn("General fallback failed", zap.Error(err))
		return resp
	}
	if out = stripMarkdown(out); out != "" {
		resp.Answer = out
	}
	return resp
}

func (c *Coordinator) errorResponse(query string, err error) domain.Response {
	c.logger.Warn("Retrieval degraded to apology", zap.String("query", query), zap.Error(err))
	return domain.Response{
		Answer:             MsgError,
		NormalizedQuestion: query,
		Branch:             domain.BranchError,
	}
}

// dedup drops candidates whose answer text repeats a higher-ranked one.
func dedup(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.AnswerText]; dup {
			continue
		}
		seen[c.AnswerText] = struct{}{}
		out = append(out, c)
	}
	return out
}

// anchorFilter keeps candidates whose question or answer names the anchor as a
// token. An empty result reverts to the unfiltered list: filtering never
// removes every candidate.
func anchorFilter(candidates []domain.Candidate, anchor string) []domain.Candidate {
	if anchor == "" {
		return candidates
	}

	var kept []domain.Candidate
	for _, c := range candidates {
		if textdist.HasToken(c.QuestionText+" "+c.AnswerText, anchor) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

func aboveFloor(candidates []domain.Candidate, floor float64) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range candidates {
		if c.Similarity >= floor {
			out = append(out, c)
		}
	}
	return out
}

func topSimilarity(candidates []domain.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	return candidates[0].Similarity
}
