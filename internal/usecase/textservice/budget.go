package textservice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
	"github.com/kailas-cloud/campus-assistant/internal/metrics"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// budgetStore is the persistence interface for budget counters.
type budgetStore interface {
	AddTokens(ctx context.Context, provider string, at time.Time, tokens int64) error
	Usage(ctx context.Context, provider string, at time.Time) (daily, monthly int64, err error)
}

// BudgetSnapshot is a point-in-time view of the counters.
type BudgetSnapshot struct {
	Provider         string `json:"provider"`
	Action           string `json:"action"`
	DailyUsed        int64  `json:"daily_used"`
	DailyLimit       int64  `json:"daily_limit"`
	DailyRemaining   int64  `json:"daily_remaining"`
	MonthlyUsed      int64  `json:"monthly_used"`
	MonthlyLimit     int64  `json:"monthly_limit"`
	MonthlyRemaining int64  `json:"monthly_remaining"`
}

// BudgetTracker is an in-memory token budget tracker with optional persistence.
// Hot path (Check) is in-memory only, no round-trip.
// Record updates in-memory first, then write-behind to store.
type BudgetTracker struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyLimit     int64
	monthlyLimit   int64
	action         BudgetAction
	provider       string
	lastDayReset   time.Time
	lastMonthReset time.Time
	store          budgetStore
	now            func() time.Time
	logger         *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits. Zero limits are unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	now := b.now()
	b.lastDayReset = truncateToDay(now)
	b.lastMonthReset = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store budgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	daily, monthly, err := b.store.Usage(ctx, b.provider, b.now())
	if err != nil {
		b.logger.Warn("Failed to load budget from store", zap.String("provider", b.provider), zap.Error(err))
		return
	}
	b.dailyUsed = daily
	b.monthlyUsed = monthly

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
}

// Check verifies the budget allows a new request. In-memory only (hot path).
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.dailyLimit > 0 && b.dailyUsed >= b.dailyLimit
	monthlyExceeded := b.monthlyLimit > 0 && b.monthlyUsed >= b.monthlyLimit

	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrBudgetExceeded
	}

	// action=warn: log but allow the request through
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record registers consumed tokens after a request.
// Updates in-memory counters and the remaining gauges, then write-behind to store (if attached).
func (b *BudgetTracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	b.mu.Lock()
	b.resetIfNeeded()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	daily, monthly := b.remainingLocked()
	store := b.store
	now := b.now()
	b.mu.Unlock()

	metrics.BudgetTokensRemaining.WithLabelValues("daily").Set(float64(daily))
	metrics.BudgetTokensRemaining.WithLabelValues("monthly").Set(float64(monthly))

	if store == nil {
		return
	}

	// Uses background context so store writes don't inherit the caller's deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.AddTokens(ctx, b.provider, now, tokens); err != nil {
		b.logger.Warn("Failed to persist budget", zap.String("provider", b.provider), zap.Error(err))
	}
}

// Snapshot returns the current counters. Remaining is -1 for unlimited periods.
func (b *BudgetTracker) Snapshot() BudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()
	daily, monthly := b.remainingLocked()
	return BudgetSnapshot{
		Provider:         b.provider,
		Action:           string(b.action),
		DailyUsed:        b.dailyUsed,
		DailyLimit:       b.dailyLimit,
		DailyRemaining:   daily,
		MonthlyUsed:      b.monthlyUsed,
		MonthlyLimit:     b.monthlyLimit,
		MonthlyRemaining: monthly,
	}
}

func (b *BudgetTracker) remainingLocked() (daily, monthly int64) {
	return remaining(b.dailyLimit, b.dailyUsed), remaining(b.monthlyLimit, b.monthlyUsed)
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1 // unlimited
	}
	return max(limit-used, 0)
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *BudgetTracker) resetIfNeeded() {
	now := b.now()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(b.lastDayReset) {
		b.dailyUsed = 0
		b.lastDayReset = today
	}
	if thisMonth.After(b.lastMonthReset) {
		b.monthlyUsed = 0
		b.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
