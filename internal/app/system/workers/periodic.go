// internal/app/system/workers/periodic.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one pass of a background task.
type Job func(ctx context.Context) error

// Periodic runs a job on a fixed interval until stopped.
type Periodic struct {
	name     string
	job      Job
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPeriodic creates a worker. Each run is bounded by timeout.
func NewPeriodic(name string, job Job, logger *zap.Logger, interval, timeout time.Duration) *Periodic {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Periodic{
		name:     name,
		job:      job,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Periodic) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started",
		zap.String("worker", w.name),
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Periodic) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("worker stopped", zap.String("worker", w.name))
}

// RunOnce executes the job immediately on the caller's goroutine.
func (w *Periodic) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	err := w.job(ctx)
	if err != nil {
		w.log.Error("worker run failed", zap.String("worker", w.name), zap.Error(err))
	}
	return err
}

func (w *Periodic) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			_ = w.RunOnce()
		}
	}
}
