// Package timeouts holds the process-wide deadlines used with
// context.WithTimeout around database and provider calls.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries and multi-step reads
//   - Long: writes that touch several collections
//   - Provider: outbound LLM and SMTP calls
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing     = 2 * time.Second
	DefaultShort    = 5 * time.Second
	DefaultMedium   = 10 * time.Second
	DefaultLong     = 30 * time.Second
	DefaultProvider = 20 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping     time.Duration
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	Provider time.Duration
}

var defaults = Config{
	Ping:     DefaultPing,
	Short:    DefaultShort,
	Medium:   DefaultMedium,
	Long:     DefaultLong,
	Provider: DefaultProvider,
}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(f func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return f(cur)
}

func Ping() time.Duration     { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration    { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration   { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration     { return get(func(c Config) time.Duration { return c.Long }) }
func Provider() time.Duration { return get(func(c Config) time.Duration { return c.Provider }) }

// Configure overrides the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&cur.Ping, cfg.Ping)
	set(&cur.Short, cfg.Short)
	set(&cur.Medium, cfg.Medium)
	set(&cur.Long, cfg.Long)
	set(&cur.Provider, cfg.Provider)
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults
}

// Current returns a snapshot for logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Provider(), log, "insights analyze")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
