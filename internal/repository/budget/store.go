package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/campus-assistant/internal/db"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists Text Service token counters, one key per provider and period:
// <prefix>budget:{provider}:daily:{YYYY-MM-DD} and <prefix>budget:{provider}:monthly:{YYYY-MM}.
type Store struct {
	store    store
	prefix   string
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, prefix string, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		prefix:   prefix,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// AddTokens adds tokens to both the daily and monthly counters for at.
func (s *Store) AddTokens(ctx context.Context, provider string, at time.Time, tokens int64) error {
	if err := s.incr(ctx, s.dailyKey(provider, at), tokens, s.dailyTTL); err != nil {
		return err
	}
	return s.incr(ctx, s.monthlyKey(provider, at), tokens, s.monthTTL)
}

// Usage returns the daily and monthly counters for at. Missing keys count as 0.
func (s *Store) Usage(ctx context.Context, provider string, at time.Time) (daily, monthly int64, err error) {
	daily, err = s.get(ctx, s.dailyKey(provider, at))
	if err != nil {
		return 0, 0, err
	}
	monthly, err = s.get(ctx, s.monthlyKey(provider, at))
	if err != nil {
		return 0, 0, err
	}
	return daily, monthly, nil
}

func (s *Store) incr(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// NX: the first write of a period fixes its expiry.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) dailyKey(provider string, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", s.prefix, provider, t.UTC().Format("2006-01-02"))
}

func (s *Store) monthlyKey(provider string, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", s.prefix, provider, t.UTC().Format("2006-01"))
}
