package ratelimit

import (
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, limit int, d time.Duration) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newWithClock(limit, d, c.now)
	t.Cleanup(l.Stop)
	return l, c
}

func TestLimiter_AllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th request should be denied")
	}
	if l.Remaining("k") != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining("k"))
	}
	if !l.Allow("other") {
		t.Error("other keys have their own budget")
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	l, c := newTestLimiter(t, 1, time.Minute)

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second request should be denied")
	}
	if ra := l.RetryAfter("k"); ra <= 0 || ra > time.Minute {
		t.Errorf("RetryAfter = %v, want (0, 1m]", ra)
	}

	c.advance(time.Minute + time.Second)
	if !l.Allow("k") {
		t.Error("request after window should be allowed")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, 50, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestFeedbackLimiter_PerToken(t *testing.T) {
	fl := NewFeedbackLimiter(2, 100, time.Hour)
	t.Cleanup(fl.Stop)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "10.0.0." + string(rune('1'+i)) + ":1234"
		if ok, _ := fl.Check(req, "tok"); !ok {
			t.Fatalf("submission %d should be allowed", i+1)
		}
	}

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	ok, wait := fl.Check(req, "tok")
	if ok {
		t.Error("third submission for the same token should be denied")
	}
	if wait <= 0 {
		t.Error("expected a positive retry-after")
	}
}

func TestFeedbackLimiter_PerIP(t *testing.T) {
	fl := NewFeedbackLimiter(100, 2, time.Hour)
	t.Cleanup(fl.Stop)

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	fl.Check(req, "a")
	fl.Check(req, "b")
	if ok, _ := fl.Check(req, "c"); ok {
		t.Error("third submission from the same IP should be denied")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "203.0.113.5:443", "203.0.113.5"},
		{"x-forwarded-for ignored", "198.51.100.7, 10.0.0.1", "", "10.0.0.1:80", "10.0.0.1"},
		{"x-real-ip ignored", "", "198.51.100.8", "10.0.0.1:80", "10.0.0.1"},
		{"no port", "", "", "203.0.113.9", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFeedbackLimiter_PerIPIgnoresForwardedFor(t *testing.T) {
	fl := NewFeedbackLimiter(1000, 20, time.Hour)
	t.Cleanup(fl.Stop)

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "192.0.2.50:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		if ok, _ := fl.Check(req, fmt.Sprintf("tok-%d", i)); ok {
			allowed++
		}
	}
	if allowed != 20 {
		t.Errorf("allowed = %d, want 20 for one socket peer", allowed)
	}
}
