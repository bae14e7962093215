// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is a fixed-window counter per key. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration and
// starts a sweeper that drops expired keys. Call Stop to end the sweeper.
func New(limit int, duration time.Duration) *Limiter {
	return newWithClock(limit, duration, time.Now)
}

func newWithClock(limit int, duration time.Duration, now func() time.Time) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      now,
		stopCh:   make(chan struct{}),
	}
	go l.sweep(duration * 2)
	return l
}

// Allow counts a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// RetryAfter returns how long until key's window resets (0 if not limited).
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.count < l.limit {
		return 0
	}
	return max(w.expiresAt.Sub(l.now()), 0)
}

// Reset clears key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are not
// read here; chi's RealIP middleware rewrites RemoteAddr when the service
// runs behind a proxy.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

/*─────────────────────────────────────────────────────────────────────────────*
| Public feedback                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// FeedbackLimiter guards unauthenticated feedback submission with one budget
// per feedback token and one per client IP.
type FeedbackLimiter struct {
	perToken *Limiter
	perIP    *Limiter
}

// Default public feedback budgets.
const (
	DefaultFeedbackPerToken = 5
	DefaultFeedbackPerIP    = 20
	DefaultFeedbackWindow   = time.Hour
)

// NewFeedbackLimiter builds a limiter with the given per-window budgets.
func NewFeedbackLimiter(perToken, perIP int, window time.Duration) *FeedbackLimiter {
	return &FeedbackLimiter{
		perToken: New(perToken, window),
		perIP:    New(perIP, window),
	}
}

// Check counts one submission. When denied, it returns how long the caller
// should wait. The IP budget is checked first so a flood from one address
// does not exhaust a victim's token budget.
func (fl *FeedbackLimiter) Check(r *http.Request, token string) (bool, time.Duration) {
	ip := ClientIP(r)
	if !fl.perIP.Allow(ip) {
		return false, fl.perIP.RetryAfter(ip)
	}
	if !fl.perToken.Allow(token) {
		return false, fl.perToken.RetryAfter(token)
	}
	return true, 0
}

// Stop ends both sweepers.
func (fl *FeedbackLimiter) Stop() {
	fl.perToken.Stop()
	fl.perIP.Stop()
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-in                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginLimiter throttles sign-in attempts per IP and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{ip: New(10, time.Minute), email: New(5, 5*time.Minute)}
}

// Check counts one attempt.
func (ll *LoginLimiter) Check(r *http.Request, email string) bool {
	if !ll.ip.Allow(ClientIP(r)) {
		return false
	}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		return ll.email.Allow(email)
	}
	return true
}

// Stop ends both sweepers.
func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.email.Stop()
}
