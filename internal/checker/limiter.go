package checker

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing requests per host.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// HostLimiter keeps one token bucket per host.
// A zero or negative rate disables limiting.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows perSecond requests per second to each host with
// bursts of up to burst requests. burst is raised to 1 when lower.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	return &HostLimiter{
		limit:    rate.Limit(perSecond),
		burst:    max(burst, 1),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	return l.get(host).Wait(ctx)
}

func (l *HostLimiter) get(host string) *rate.Limiter {
	host = strings.ToLower(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = lim
	}
	return lim
}
