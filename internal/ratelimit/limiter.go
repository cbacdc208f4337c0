// Package ratelimit implements the in-process, per-credential sliding-window
// admission control that gates every forwarded request: two windows
// (per-minute, per-hour) keyed by tier, backed by an ordered timestamp deque
// per user under a single exclusive lock.
package ratelimit

import (
	"sync"
	"time"

	"github.com/2moomoo/llmgateway/internal/telemetry"
)

// TierLimits resolves a tier to its (per-minute, per-hour) request caps.
type TierLimits func(tier string) (perMinute, perHour int)

// Limiter is an in-process sliding-window rate limiter. The zero value is not
// usable; construct with New. A process restart resets all counters, which
// is documented behavior, not a defect: the limiter carries no persistent state.
type Limiter struct {
	mu      sync.Mutex
	history map[string][]float64
	limits  TierLimits
	now     func() float64
}

// New creates a Limiter that resolves tier caps via limits.
func New(limits TierLimits) *Limiter {
	return &Limiter{
		history: make(map[string][]float64),
		limits:  limits,
		now:     monotonicSeconds,
	}
}

var processStart = time.Now()

func monotonicSeconds() float64 {
	return time.Since(processStart).Seconds()
}

// Status is the post-check admissibility snapshot used for response headers.
type Status struct {
	MinuteLimit     int
	MinuteRemaining int
	HourLimit       int
	HourRemaining   int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Admitted   bool
	RetryAfter int // seconds, only meaningful when !Admitted
	Status     Status
}

// Check runs the four-step admission algorithm for userID at its tier:
// evict hour-stale entries, reject on hourly cap, reject on minute cap,
// otherwise record the request and admit. Rejection never mutates history.
func (l *Limiter) Check(userID, tier string) Decision {
	perMinute, perHour := l.limits(tier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	history := l.history[userID]

	oneHourAgo := now - 3600
	evictBefore := 0
	for evictBefore < len(history) && history[evictBefore] < oneHourAgo {
		evictBefore++
	}
	if evictBefore > 0 {
		history = history[evictBefore:]
	}

	if len(history) >= perHour {
		l.history[userID] = history
		telemetry.RateLimitRejectionsTotal.WithLabelValues(tier, "hour").Inc()
		retryAfter := int(3600 - (now - history[0]))
		return Decision{
			Admitted:   false,
			RetryAfter: retryAfter,
			Status:     Status{MinuteLimit: perMinute, MinuteRemaining: 0, HourLimit: perHour, HourRemaining: 0},
		}
	}

	oneMinuteAgo := now - 60
	recentCount := 0
	oldestInWindow := -1
	for i, ts := range history {
		if ts >= oneMinuteAgo {
			if oldestInWindow == -1 {
				oldestInWindow = i
			}
			recentCount++
		}
	}

	if recentCount >= perMinute {
		l.history[userID] = history
		telemetry.RateLimitRejectionsTotal.WithLabelValues(tier, "minute").Inc()
		retryAfter := int(60-(now-history[oldestInWindow])) + 1
		return Decision{
			Admitted:   false,
			RetryAfter: retryAfter,
			Status: Status{
				MinuteLimit: perMinute, MinuteRemaining: 0,
				HourLimit: perHour, HourRemaining: maxInt(0, perHour-len(history)),
			},
		}
	}

	history = append(history, now)
	l.history[userID] = history

	return Decision{
		Admitted: true,
		Status: Status{
			MinuteLimit:     perMinute,
			MinuteRemaining: maxInt(0, perMinute-(recentCount+1)),
			HourLimit:       perHour,
			HourRemaining:   maxInt(0, perHour-len(history)),
		},
	}
}

// Peek returns the current admissibility snapshot without mutating history.
func (l *Limiter) Peek(userID, tier string) Status {
	perMinute, perHour := l.limits(tier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	history := l.history[userID]

	oneMinuteAgo := now - 60
	oneHourAgo := now - 3600
	recentCount, hourlyCount := 0, 0
	for _, ts := range history {
		if ts >= oneMinuteAgo {
			recentCount++
		}
		if ts >= oneHourAgo {
			hourlyCount++
		}
	}

	return Status{
		MinuteLimit:     perMinute,
		MinuteRemaining: maxInt(0, perMinute-recentCount),
		HourLimit:       perHour,
		HourRemaining:   maxInt(0, perHour-hourlyCount),
	}
}

// Janitor drops history entries for users with no requests in the last hour.
// Opportunistic; not required for correctness, since per-user slices are
// already bounded by perHour.
func (l *Limiter) Janitor() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	oneHourAgo := now - 3600
	for userID, history := range l.history {
		if len(history) == 0 || history[len(history)-1] < oneHourAgo {
			delete(l.history, userID)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
