package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts time so runner behavior is testable without real tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realClock struct{}

func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) Chan() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()                  { t.ticker.Stop() }

// Task is one periodic unit of work. Errors are logged, never fatal.
type Task func(ctx context.Context) error

// Runner invokes a task on a fixed interval until the context is cancelled.
// The first run happens immediately, not one interval in.
type Runner struct {
	name     string
	interval time.Duration
	task     Task
	clock    Clock
	logger   *slog.Logger
}

func NewRunner(name string, interval time.Duration, task Task, clock Clock, logger *slog.Logger) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clock,
		logger:   logger,
	}
}

func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("scheduler runner started", "name", r.name, "interval", r.interval)

	r.invoke(ctx)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler runner stopped", "name", r.name)
			return
		case <-ticker.Chan():
			r.invoke(ctx)
		}
	}
}

func (r *Runner) invoke(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scheduler task panicked", "name", r.name, "panic", p)
		}
	}()

	start := r.clock.Now()
	if err := r.task(ctx); err != nil {
		r.logger.Error("scheduler task failed",
			"name", r.name,
			"duration", r.clock.Now().Sub(start),
			"error", err)
		return
	}
	r.logger.Debug("scheduler task completed",
		"name", r.name,
		"duration", r.clock.Now().Sub(start))
}
