package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

const providerName = "openai"

// Compile-time check: Provider implements domain.TextProvider.
var _ domain.TextProvider = (*Provider)(nil)

// Provider is a Text Service connection bound to one credential over an OpenAI-compatible API.
type Provider struct {
	client      *openai.Client
	chatModel   string
	embedModel  openai.EmbeddingModel
	dimensions  int
	temperature float32
	maxTokens   int
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

// New creates an OpenAI-compatible provider.
func New(cfg *Config) *Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:      openai.NewClientWithConfig(clientCfg),
		chatModel:   cfg.ChatModel,
		embedModel:  openai.EmbeddingModel(cfg.EmbedModel),
		dimensions:  cfg.Dimensions,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.Completer via the chat completions endpoint.
func (p *Provider) Complete(ctx context.Context, prompt, instruction string) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	metrics.TextRequestDuration.WithLabelValues(providerName, "complete").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "error").Inc()
		return domain.Completion{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "empty").Inc()
		return domain.Completion{}, domain.ErrEmptyCompletion
	}

	metrics.TextRequestsTotal.WithLabelValues(providerName, "complete", "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.TextTokensTotal.WithLabelValues(providerName, "complete").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.Completion{
		Text:        strings.TrimSpace(resp.Choices[0].Message.Content),
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (p *Provider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          p.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	start := time.Now()
	resp, err := p.client.CreateEmbeddings(ctx, req)
	metrics.TextRequestDuration.WithLabelValues(providerName, "embed").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "empty").Inc()
		return domain.EmbeddingResult{}, domain.ErrEmptyEmbedding
	}

	metrics.TextRequestsTotal.WithLabelValues(providerName, "embed", "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.TextTokensTotal.WithLabelValues(providerName, "embed").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps HTTP 429 to domain.ErrRateLimited and everything else to
// domain.ErrTextServiceFailure, keeping the provider's message for logs.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("text API error %d: %s: %w", reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("text API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode))
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("text request: %w: %w", err, domain.ErrTextServiceFailure)
	}
	return fmt.Errorf("text request failed: %w", domain.ErrTextServiceFailure)
}

func classify(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return domain.ErrTextServiceFailure
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
