package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is the period of the remote-changes check.
const DefaultPollInterval = 30 * time.Second

// Poller periodically drives the engine's remote-changes check. It uses a
// timer and not a ticker so firings never queue up behind a slow check;
// a firing that lands while the worker is draining is skipped.
type Poller struct {
	interval time.Duration
	fn       func(context.Context) error
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller invoking fn every interval.
func NewPoller(interval time.Duration, fn func(context.Context) error) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		fn:       fn,
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-timer.C:
			err := p.fn(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrSyncBusy):
				slog.Debug("poll skipped, sync busy")
			case errors.Is(err, context.Canceled):
				return
			default:
				slog.Error("remote check failed", "error", err)
			}
			timer.Reset(p.interval)
		}
	}
}
