// Package ratelimit throttles dashboard API calls with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/megacloud/megacloud-cli/internal/logging"
)

// Wait durations above slowWait are logged, at most once per warnEvery.
const (
	slowWait  = 2 * time.Second
	warnEvery = 10 * time.Second
)

// Limiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type Limiter struct {
	mu           sync.Mutex
	tokens       float64
	maxTokens    float64
	refillRate   float64
	lastRefill   time.Time
	pausedUntil  time.Time
	lastWarnTime time.Time
	logger       *logging.Logger
}

// New creates a limiter that starts with a full bucket.
func New(perSecond, burst float64, logger *logging.Logger) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Limiter{
		tokens:     burst,
		maxTokens:  burst,
		refillRate: perSecond,
		lastRefill: time.Now(),
		logger:     logger,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	for {
		wait, ok := l.reserve(time.Now())
		if ok {
			if waited := time.Since(start); waited > slowWait {
				l.logger.Debug().Dur("waited", waited).Msg("rate limit wait completed")
			}
			return nil
		}
		l.warn(wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pause empties the bucket and holds every caller for at least d.
// The client calls it when the server answers 429 with Retry-After.
func (l *Limiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
	l.tokens = 0
	l.lastRefill = l.pausedUntil
}

// Tokens returns the tokens currently available.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(time.Now())
	return l.tokens
}

// reserve takes a token, or reports how long until one could be taken.
func (l *Limiter) reserve(now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Before(l.pausedUntil) {
		return l.pausedUntil.Sub(now), false
	}
	l.refill(now)
	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}
	if l.refillRate <= 0 {
		return warnEvery, false
	}
	return time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second)), false
}

func (l *Limiter) refill(now time.Time) {
	if now.Before(l.lastRefill) {
		return
	}
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

func (l *Limiter) warn(wait time.Duration) {
	if wait <= slowWait {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastWarnTime) > warnEvery {
		l.logger.Warn().Dur("wait", wait).Msg("rate limited, waiting for API capacity")
		l.lastWarnTime = time.Now()
	}
}
