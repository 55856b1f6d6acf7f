package textservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	err := bt.Check(context.Background())
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected domain.ErrBudgetExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
}

func TestBudgetTracker_Snapshot(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	s := bt.Snapshot()
	if s.DailyRemaining != 700 {
		t.Errorf("expected daily remaining 700, got %d", s.DailyRemaining)
	}
	if s.MonthlyRemaining != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", s.MonthlyRemaining)
	}
	if s.DailyUsed != 300 || s.Provider != "test" || s.Action != "warn" {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestBudgetTracker_SnapshotUnlimited(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())

	s := bt.Snapshot()
	if s.DailyRemaining != -1 || s.MonthlyRemaining != -1 {
		t.Errorf("expected -1 for unlimited, got %+v", s)
	}
}

func TestBudgetTracker_RemainingNeverNegative(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 100, BudgetActionWarn, zap.NewNop())

	bt.Record(250)

	s := bt.Snapshot()
	if s.DailyRemaining != 0 || s.MonthlyRemaining != 0 {
		t.Errorf("expected 0 remaining, got %+v", s)
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop())
	bt.now = func() time.Time { return now }
	bt.lastDayReset = truncateToDay(now)
	bt.lastMonthReset = truncateToMonth(now)

	bt.Record(100)
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected budget exceeded before rollover, got %v", err)
	}

	now = now.Add(2 * time.Hour) // April 1st
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected reset after rollover, got %v", err)
	}
	s := bt.Snapshot()
	if s.DailyUsed != 0 || s.MonthlyUsed != 0 {
		t.Errorf("expected both counters reset on month change, got %+v", s)
	}
}

// --- Mock budgetStore ---

type mockBudgetStore struct {
	mu      sync.Mutex
	daily   int64
	monthly int64
	added   []int64
	getErr  error
	addErr  error
}

func (m *mockBudgetStore) AddTokens(_ context.Context, _ string, _ time.Time, tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.daily += tokens
	m.monthly += tokens
	m.added = append(m.added, tokens)
	return nil
}

func (m *mockBudgetStore) Usage(_ context.Context, _ string, _ time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, 0, m.getErr
	}
	return m.daily, m.monthly, nil
}

// --- Persistence tests ---

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := &mockBudgetStore{daily: 300, monthly: 5000}

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	bt.WithStore(context.Background(), store)

	s := bt.Snapshot()
	if s.DailyUsed != 300 {
		t.Errorf("expected daily_used=300, got %d", s.DailyUsed)
	}
	if s.MonthlyUsed != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", s.MonthlyUsed)
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := &mockBudgetStore{}
	bt := NewBudgetTracker("prov", 10000, 100000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(0)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.daily != 300 {
		t.Errorf("expected store daily=300, got %d", store.daily)
	}
	if len(store.added) != 2 {
		t.Errorf("expected 2 writes (zero skipped), got %d", len(store.added))
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := &mockBudgetStore{getErr: errors.New("connection refused")}

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop())
	bt.WithStore(context.Background(), store)

	s := bt.Snapshot()
	if s.DailyUsed != 0 || s.MonthlyUsed != 0 {
		t.Errorf("expected zero counters on load error, got %+v", s)
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := &mockBudgetStore{}
	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionWarn, zap.NewNop())
	bt.WithStore(context.Background(), store)

	store.mu.Lock()
	store.addErr = errors.New("write timeout")
	store.mu.Unlock()

	// In-memory still updates; store error is logged.
	bt.Record(50)

	if got := bt.Snapshot().DailyUsed; got != 50 {
		t.Errorf("expected daily_used=50 even with store error, got %d", got)
	}
}
