// Package ratelimit throttles requests with a sliding window per
// (action class, client IP), backed by Redis sorted sets. A limiter
// without a backing store is an explicit state, not a nil check at call
// sites: it allows everything. Store errors also allow the request —
// operability over strict throttling in degraded mode.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Class groups requests that share a quota.
type Class string

const (
	ClassLogin         Class = "login"
	ClassPasswordReset Class = "password_reset"
	ClassAPI           Class = "api"
	ClassTracking      Class = "tracking"
)

// Quota is the capacity of a class within its trailing window.
type Quota struct {
	Capacity int
	Window   time.Duration
}

// DefaultQuotas returns the per-class quotas applied when the config
// does not override them. Password resets are throttled harder than
// logins.
func DefaultQuotas() map[Class]Quota {
	return map[Class]Quota{
		ClassLogin:         {Capacity: 5, Window: time.Minute},
		ClassPasswordReset: {Capacity: 3, Window: time.Hour},
		ClassAPI:           {Capacity: 100, Window: time.Minute},
		ClassTracking:      {Capacity: 300, Window: time.Minute},
	}
}

// Result is the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	rdb    *redis.Client // nil means disabled
	quotas map[Class]Quota
	log    logging.Logger

	now func() time.Time
}

// New builds a limiter over the given Redis client. A nil client yields
// a disabled limiter that allows every request.
func New(rdb *redis.Client, quotas map[Class]Quota, log logging.Logger) *Limiter {
	if quotas == nil {
		quotas = DefaultQuotas()
	}
	return &Limiter{
		rdb:    rdb,
		quotas: quotas,
		log:    log.With("module", "ratelimit"),
		now:    time.Now,
	}
}

// Disabled builds a limiter with no backing store.
func Disabled(log logging.Logger) *Limiter {
	return New(nil, nil, log)
}

func (l *Limiter) Enabled() bool {
	return l.rdb != nil
}

// Check records a request for (class, ip) and reports whether it fits
// the class quota. Unknown classes and limiters without a store allow
// the request, as does any store error after logging it.
func (l *Limiter) Check(ctx context.Context, class Class, ip string) Result {
	quota, ok := l.quotas[class]
	if l.rdb == nil || !ok {
		return Result{Allowed: true, Remaining: -1}
	}

	now := l.now()
	key := fmt.Sprintf("ratelimit:%s:%s", class, ip)
	windowStart := now.Add(-quota.Window)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn(ctx, "rate limit store unavailable, failing open", "error", err)
		return Result{Allowed: true, Remaining: -1}
	}

	count := int(card.Val())
	if count >= quota.Capacity {
		return Result{Allowed: false, ResetAt: l.resetAt(ctx, key, quota, now)}
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	add := l.rdb.TxPipeline()
	add.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	add.Expire(ctx, key, quota.Window)
	if _, err := add.Exec(ctx); err != nil {
		l.log.Warn(ctx, "rate limit store unavailable, failing open", "error", err)
		return Result{Allowed: true, Remaining: -1}
	}

	return Result{
		Allowed:   true,
		Remaining: quota.Capacity - count - 1,
		ResetAt:   now.Add(quota.Window),
	}
}

// resetAt estimates when the oldest request in the window falls out.
func (l *Limiter) resetAt(ctx context.Context, key string, quota Quota, now time.Time) time.Time {
	oldest, err := l.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return now.Add(quota.Window)
	}
	return time.Unix(0, int64(oldest[0].Score)).Add(quota.Window)
}

// ClientIP derives a client address from an X-Forwarded-For header
// value, taking the first hop. Absence defaults to loopback. This is
// best-effort attribution for throttling, not an identity.
func ClientIP(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}
	return "127.0.0.1"
}
