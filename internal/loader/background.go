// Package loader composes the local cache and the TMDB API into the read
// and write paths used by the service layer.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/marquee/internal/metrics"
)

// Background runs detached fire-and-forget tasks. Tasks do not inherit the
// caller's cancellation, and their errors are logged rather than returned.
// After Shutdown new tasks are dropped.
type Background struct {
	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBackground creates a task runner
func NewBackground(logger *slog.Logger, m *metrics.Metrics) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	return &Background{logger: logger, metrics: m}
}

// Go runs fn on its own goroutine. attrs are added to the failure log line.
func (b *Background) Go(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...any) {
	ctx = context.WithoutCancel(ctx)

	// Add under mu so it never races the Wait in Shutdown
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug("background task dropped after shutdown", append([]any{"task", name}, attrs...)...)
		b.metrics.RecordBackgroundTask(name, metrics.StatusDropped)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		err := b.run(ctx, fn)
		if err != nil {
			b.logger.Warn("background task failed", append([]any{"task", name, "error", err}, attrs...)...)
			b.metrics.RecordBackgroundTask(name, metrics.StatusError)
			return
		}
		b.metrics.RecordBackgroundTask(name, metrics.StatusSuccess)
	}()
}

func (b *Background) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every task started so far has finished
func (b *Background) Wait() {
	b.wg.Wait()
}

// Shutdown stops accepting tasks and waits for the running ones. Call it
// before closing the store the tasks write to.
func (b *Background) Shutdown() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.Wait()
}
