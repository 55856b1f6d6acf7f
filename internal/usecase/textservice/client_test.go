package textservice

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
	"github.com/kailas-cloud/campus-assistant/internal/usecase/keyring"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// fakeProvider answers per key: keys listed in limited return ErrRateLimited.
type fakeProvider struct {
	key      string
	limited  bool
	err      error
	tokens   int
	calls    *callLog
	deadline bool
}

type callLog struct {
	mu   sync.Mutex
	keys []string
}

func (l *callLog) add(k string) {
	l.mu.Lock()
	l.keys = append(l.keys, k)
	l.mu.Unlock()
}

func (p *fakeProvider) result(ctx context.Context) error {
	p.calls.add(p.key)
	if _, ok := ctx.Deadline(); ok {
		p.deadline = true
	}
	if p.limited {
		return domain.ErrRateLimited
	}
	return p.err
}

func (p *fakeProvider) Complete(ctx context.Context, _, _ string) (domain.Completion, error) {
	if err := p.result(ctx); err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Text: "answer from " + p.key, TotalTokens: p.tokens}, nil
}

func (p *fakeProvider) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if err := p.result(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: p.tokens}, nil
}

func (p *fakeProvider) HealthCheck(ctx context.Context) error { return p.result(ctx) }

type fixture struct {
	client    *Client
	ring      *keyring.Ring
	log       *callLog
	providers map[string]*fakeProvider
	built     int
}

func newFixture(t *testing.T, keys []string, limited map[string]bool, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ring:      keyring.New(keys...),
		log:       &callLog{},
		providers: make(map[string]*fakeProvider),
	}
	for _, k := range keys {
		f.providers[k] = &fakeProvider{key: k, limited: limited[k], tokens: 10, calls: f.log}
	}
	factory := func(_ context.Context, key string) (domain.TextProvider, error) {
		f.built++
		return f.providers[key], nil
	}
	f.client = New(f.ring, factory, zap.NewNop(), opts...)
	return f
}

func TestComplete_FirstKey(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, nil)

	got, err := f.client.Complete(context.Background(), "p", "i")
	require.NoError(t, err)
	assert.Equal(t, "answer from k1", got)
	assert.Equal(t, []string{"k1"}, f.log.keys)
	assert.True(t, f.providers["k1"].deadline, "call must run under a timeout")
}

func TestComplete_RotatesOnRateLimit(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2", "k3"}, map[string]bool{"k1": true, "k2": true})

	got, err := f.client.Complete(context.Background(), "p", "i")
	require.NoError(t, err)
	assert.Equal(t, "answer from k3", got)
	assert.Equal(t, []string{"k1", "k2", "k3"}, f.log.keys)
	assert.Equal(t, 2, f.ring.ActiveIndex())
}

func TestComplete_AllKeysExhausted(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2", "k3"}, map[string]bool{"k1": true, "k2": true, "k3": true})

	_, err := f.client.Complete(context.Background(), "p", "i")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Len(t, f.log.keys, 3, "attempts are bounded by pool size")
}

func TestComplete_SingleKeyRateLimited(t *testing.T) {
	f := newFixture(t, []string{"k1"}, map[string]bool{"k1": true})

	_, err := f.client.Complete(context.Background(), "p", "i")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Len(t, f.log.keys, 1)
}

func TestComplete_NoCredentials(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.client.Complete(context.Background(), "p", "i")
	require.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestComplete_OtherErrorNoRotation(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, nil)
	f.providers["k1"].err = domain.ErrTextServiceFailure

	_, err := f.client.Complete(context.Background(), "p", "i")
	require.ErrorIs(t, err, domain.ErrTextServiceFailure)
	assert.Equal(t, []string{"k1"}, f.log.keys)
	assert.Equal(t, 0, f.ring.ActiveIndex())
}

func TestEmbed_RecordsUsage(t *testing.T) {
	budget := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())
	f := newFixture(t, []string{"k1"}, nil, WithBudget(budget), WithCallTimeout(time.Second))

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := f.client.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, res.Embedding, 2)
	assert.Equal(t, 10, usage.TotalTokens())
	assert.Equal(t, 1, usage.Calls())
	assert.Equal(t, int64(10), budget.Snapshot().DailyUsed)
}

func TestComplete_BudgetReject(t *testing.T) {
	budget := NewBudgetTracker("test", 5, 0, BudgetActionReject, zap.NewNop())
	budget.Record(5)
	f := newFixture(t, []string{"k1"}, nil, WithBudget(budget))

	_, err := f.client.Complete(context.Background(), "p", "i")
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.Empty(t, f.log.keys)
}

func TestProviderCachedPerKey(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, nil)

	for range 3 {
		_, err := f.client.Complete(context.Background(), "p", "i")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.built)
}

func TestFactoryError(t *testing.T) {
	ring := keyring.New("secret-key-value")
	c := New(ring, func(context.Context, string) (domain.TextProvider, error) {
		return nil, errors.New("bad key")
	}, zap.NewNop())

	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key-value", "credentials must be masked")
	assert.Contains(t, err.Error(), "secre...")
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	require.NoError(t, f.client.HealthCheck(context.Background()))

	empty := newFixture(t, nil, nil)
	require.ErrorIs(t, empty.client.HealthCheck(context.Background()), domain.ErrNoCredentials)
}
