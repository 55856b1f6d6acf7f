package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

const (
	providerName = "genai"
	// taskRetrievalQuery marks embeddings as search queries against a question corpus.
	taskRetrievalQuery = "RETRIEVAL_QUERY"
)

// Compile-time check: Provider implements domain.TextProvider.
var _ domain.TextProvider = (*Provider)(nil)

// Provider is a Text Service connection bound to one Gemini API key.
type Provider struct {
	client      *genai.Client
	chatModel   string
	embedModel  string
	dimensions  int32
	temperature float32
	maxTokens   int32
	logger      *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Dimensions  int
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// New creates a Gemini provider. Client construction does no network I/O.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrNoCredentials
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Provider{
		client:      client,
		chatModel:   cfg.ChatModel,
		embedModel:  cfg.EmbedModel,
		dimensions:  int32(cfg.Dimensions), //nolint:gosec // dimensions are validated config values
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens), //nolint:gosec // bounded config value
		logger:      cfg.Logger,
	}, nil
}

// Complete implements domain.Completer via GenerateContent.
func (p *Provider) Complete(ctx context.Context, prompt, instruction string) (domain.Completion, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.chatModel, genai.Text(prompt), config)
	metrics.TextRequestDuration.WithLabelValues(providerName, "complete").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "error").Inc()
		return domain.Completion{}, parseAPIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "empty").Inc()
		return domain.Completion{}, domain.ErrEmptyCompletion
	}

	var tokens int
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "success").Inc()
	if tokens > 0 {
		metrics.TextTokensTotal.WithLabelValues(providerName, "complete").Add(float64(tokens))
	}

	return domain.Completion{Text: text, TotalTokens: tokens}, nil
}

// Embed implements domain.Embedder. The Gemini API does not report embedding
// token usage, so the result carries a whitespace token estimate.
func (p *Provider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	config := &genai.EmbedContentConfig{TaskType: taskRetrievalQuery}
	if p.dimensions > 0 {
		config.OutputDimensionality = genai.Ptr(p.dimensions)
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	start := time.Now()
	resp, err := p.client.Models.EmbedContent(ctx, p.embedModel, contents, config)
	metrics.TextRequestDuration.WithLabelValues(providerName, "embed").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "empty").Inc()
		return domain.EmbeddingResult{}, domain.ErrEmptyEmbedding
	}

	tokens := len(strings.Fields(text))
	metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "success").Inc()
	metrics.TextTokensTotal.WithLabelValues(providerName, "embed").Add(float64(tokens))

	return domain.EmbeddingResult{
		Embedding:    resp.Embeddings[0].Values,
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

// HealthCheck verifies the chat model is reachable with this key.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.chatModel, nil); err != nil {
		return fmt.Errorf("get model %s: %w", p.chatModel, err)
	}
	return nil
}

// parseAPIError maps 429 to domain.ErrRateLimited and everything else to domain.ErrTextServiceFailure.
func parseAPIError(err error) error {
	code, msg, ok := apiErrorCode(err)
	if !ok {
		return fmt.Errorf("text request: %v: %w", err, domain.ErrTextServiceFailure)
	}
	if code == http.StatusTooManyRequests {
		return fmt.Errorf("text API error %d: %s: %w", code, msg, domain.ErrRateLimited)
	}
	return fmt.Errorf("text API error %d: %s: %w", code, msg, domain.ErrTextServiceFailure)
}

func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
