package timeouts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()
	if timeouts.Short() != timeouts.DefaultShort {
		t.Errorf("Short() = %v, want %v", timeouts.Short(), timeouts.DefaultShort)
	}
	if timeouts.Provider() != timeouts.DefaultProvider {
		t.Errorf("Provider() = %v, want %v", timeouts.Provider(), timeouts.DefaultProvider)
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	timeouts.Reset()
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Provider: 3 * time.Second})

	if timeouts.Provider() != 3*time.Second {
		t.Errorf("Provider() = %v, want 3s", timeouts.Provider())
	}
	if timeouts.Long() != timeouts.DefaultLong {
		t.Errorf("Long() changed to %v", timeouts.Long())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", ctx.Err())
	}
}
