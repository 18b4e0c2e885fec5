// Package ratelimit provides per-IP rate limiting for mutating routes.
//
// It is a single-instance, in-memory limiter: one token bucket per client IP,
// evicted in the background once the IP has been idle for the configured TTL.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/platform/web"
	"golang.org/x/time/rate"
)

// ErrTooManyRequests is returned for requests over the limit.
var ErrTooManyRequests = apperrors.New("Too many requests, please try again later", apperrors.KindTooManyRequests)

// visitor tracks a single IPs limiter and last activity
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged tracks whether the first denial was reported; it resets on eviction
	logged bool
}

// IPLimiter holds per-IP rate limiters with background eviction
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time

	// OnFirstDenied is called once per visitor when they first get rate limited
	OnFirstDenied func(ip string)
	// OnDenied is called on every denied request
	OnDenied func(ip string)
}

type Option func(*IPLimiter)

// WithRate sets the bucket size and the refill rate.
// WithRate(10, 50) allows 50 requests at once, then refills at 10 requests per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle IP stays in the map before cleanup
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		l.ttl = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *IPLimiter) {
		l.now = now
	}
}

// WithOnFirstDenied sets a callback for the first denial per visitor, used for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnFirstDenied = fn
	}
}

// WithOnDenied sets a callback for every denied request, used for counting.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnDenied = fn
	}
}

// New creates an IPLimiter and starts the background cleanup goroutine, which stops with ctx.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: 5,
		burst:     20,
		ttl:       5 * time.Minute,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow reports whether ip is within its limit, creating its visitor on first sight.
func (l *IPLimiter) allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(l.perSecond, l.burst),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	// hooks run outside the lock
	l.mu.Unlock()

	if first && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if !allowed && l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return allowed
}

// minCleanupInterval bounds how often idle visitors are swept.
const minCleanupInterval = time.Second

// cleanup evicts visitors idle for longer than the TTL, checking every TTL/2.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cleanupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

func (l *IPLimiter) cleanupInterval() time.Duration {
	return max(l.ttl/2, minCleanupInterval)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429, rendered by the responder.
func (l *IPLimiter) Middleware(responder *web.ErrorResponder) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(l.retryAfterSeconds())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(ClientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				responder.Respond(w, r, ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *IPLimiter) retryAfterSeconds() int {
	if l.perSecond <= 0 {
		return 60
	}
	secs := int(1 / float64(l.perSecond))
	if secs < 1 {
		return 1
	}
	return secs
}

// ClientIP returns the host part of the connection's remote address.
// Forwarding headers are not trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
