package textservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/keyring"
)

// Compile-time check: Client implements domain.TextService.
var _ domain.TextService = (*Client)(nil)

// ProviderFactory builds a provider bound to one credential.
type ProviderFactory func(ctx context.Context, key string) (domain.TextProvider, error)

// credentials is the consumer interface over the key ring.
type credentials interface {
	Len() int
	Active() (string, bool)
	Rotate() bool
}

// budgetChecker is the local interface for budget enforcement.
type budgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// Client is the credential-agnostic Text Service. Each call runs against the
// active credential; on ErrRateLimited it rotates and retries, at most once per
// credential in the pool.
type Client struct {
	ring        credentials
	factory     ProviderFactory
	budget      budgetChecker
	callTimeout time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	providers map[string]domain.TextProvider
}

// Option configures a Client.
type Option func(*Client)

// WithBudget enables token budget enforcement.
func WithBudget(b budgetChecker) Option {
	return func(c *Client) { c.budget = b }
}

// WithCallTimeout bounds every provider call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// New creates a Text Service client.
func New(ring credentials, factory ProviderFactory, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		ring:        ring,
		factory:     factory,
		callTimeout: 15 * time.Second,
		logger:      logger,
		providers:   make(map[string]domain.TextProvider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete returns the completion text for prompt under instruction.
func (c *Client) Complete(ctx context.Context, prompt, instruction string) (string, error) {
	out, err := call(ctx, c, "complete", func(ctx context.Context, p domain.TextProvider) (domain.Completion, int, error) {
		res, err := p.Complete(ctx, prompt, instruction)
		return res, res.TotalTokens, err
	})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return call(ctx, c, "embed", func(ctx context.Context, p domain.TextProvider) (domain.EmbeddingResult, int, error) {
		res, err := p.Embed(ctx, text)
		return res, res.TotalTokens, err
	})
}

// HealthCheck checks the provider bound to the active credential.
func (c *Client) HealthCheck(ctx context.Context) error {
	key, ok := c.ring.Active()
	if !ok {
		return domain.ErrNoCredentials
	}
	p, err := c.providerFor(ctx, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	if err := p.HealthCheck(ctx); err != nil {
		return fmt.Errorf("text service health: %w", err)
	}
	return nil
}

// call runs fn against the active credential with bounded rotation on rate limiting.
func call[T any](
	ctx context.Context, c *Client, op string,
	fn func(context.Context, domain.TextProvider) (T, int, error),
) (T, error) {
	var zero T

	attempts := c.ring.Len()
	if attempts == 0 {
		return zero, domain.ErrNoCredentials
	}

	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			c.logger.Error("Budget exceeded", zap.String("op", op), zap.Error(err))
			return zero, fmt.Errorf("budget check: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		key, ok := c.ring.Active()
		if !ok {
			return zero, domain.ErrNoCredentials
		}

		p, err := c.providerFor(ctx, key)
		if err != nil {
			return zero, err
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		out, tokens, err := fn(callCtx, p)
		cancel()

		if err == nil {
			c.record(ctx, tokens)
			c.logger.Debug("Text Service call completed",
				zap.String("op", op),
				zap.Duration("duration", time.Since(start)),
				zap.Int("tokens", tokens),
			)
			return out, nil
		}

		if !errors.Is(err, domain.ErrRateLimited) {
			c.logger.Warn("Text Service call failed",
				zap.String("op", op),
				zap.String("key", keyring.Mask(key)),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return zero, fmt.Errorf("%s: %w", op, err)
		}

		c.logger.Warn("Text Service rate limited",
			zap.String("op", op),
			zap.String("key", keyring.Mask(key)),
			zap.Int("attempt", attempt),
			zap.Int("pool_size", attempts),
		)
		if attempt >= attempts || !c.ring.Rotate() {
			return zero, fmt.Errorf("%s: %d credential(s) exhausted: %w", op, attempt, domain.ErrRateLimited)
		}
	}
}

func (c *Client) record(ctx context.Context, tokens int) {
	domain.UsageFromContext(ctx).Record(tokens)
	if c.budget != nil {
		c.budget.Record(int64(tokens))
	}
}

// providerFor returns the cached provider for key, building it on first use.
func (c *Client) providerFor(ctx context.Context, key string) (domain.TextProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.providers[key]; ok {
		return p, nil
	}
	p, err := c.factory(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("build provider for key %s: %w", keyring.Mask(key), err)
	}
	c.providers[key] = p
	return p, nil
}
