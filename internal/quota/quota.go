// Package quota budgets the Domain Analyser's calls to external,
// rate-limited APIs (WHOIS, TLS probes, threat-verdict lookups) so the
// per-submission best-effort trigger and the nightly batch refresh cannot
// jointly exceed a daily allowance.
package quota

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Budget is a token bucket refilled at perDay/24h, holding up to perDay
// tokens so a quiet period lets the full daily allowance burst through.
type Budget struct {
	limiter *rate.Limiter
}

// NewDailyBudget creates a budget that allows perDay calls per 24h,
// bursting up to perDay.
func NewDailyBudget(perDay int) *Budget {
	if perDay <= 0 {
		perDay = 1
	}
	interval := 24 * time.Hour / time.Duration(perDay)
	return &Budget{limiter: rate.NewLimiter(rate.Every(interval), perDay)}
}

// Allow reports whether a call may proceed right now without blocking,
// consuming one token if so.
func (b *Budget) Allow() bool {
	return b.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (b *Budget) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
