package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// RequestUsage collects Text Service usage for a single request.
// The handler puts a pointer into the context; the text service client writes after each call.
type RequestUsage struct {
	mu          sync.Mutex
	totalTokens int
	calls       int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(usageKey{}).(*RequestUsage)
	return u
}

// Record adds one Text Service call and its token cost.
func (u *RequestUsage) Record(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.totalTokens += tokens
	u.calls++
	u.mu.Unlock()
}

// TotalTokens returns the tokens consumed so far.
func (u *RequestUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens
}

// Calls returns the number of Text Service calls made so far.
func (u *RequestUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
