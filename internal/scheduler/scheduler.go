package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs a named job on a fixed interval. The job fires once
// immediately on Start and then on every tick until Stop. A panicking
// job is recovered and the loop keeps ticking.
type Loop struct {
	name     string
	interval time.Duration
	job      func(context.Context)
	log      *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lastRun atomic.Int64
}

func New(name string, interval time.Duration, job func(context.Context), log *slog.Logger) (*Loop, error) {
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		name:     name,
		interval: interval,
		job:      job,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the loop. It reports false when already running.
func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running.Store(true)

	go func() {
		defer close(l.done)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.log.Info("loop started", "name", l.name, "interval", l.interval.String())

		l.runJob(ctx)

		for {
			select {
			case <-ctx.Done():
				l.log.Info("loop stopping", "name", l.name)
				return
			case <-ticker.C:
				l.runJob(ctx)
			}
		}
	}()

	return true
}

// Stop cancels the loop and waits for the goroutine to exit. It
// reports false when not running.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return false
	}

	l.cancel()
	<-l.done
	l.running.Store(false)

	l.log.Info("loop stopped", "name", l.name)
	return true
}

func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Status is a point-in-time snapshot of the loop, suitable for a
// health or control endpoint.
type Status struct {
	Name     string     `json:"name"`
	Running  bool       `json:"running"`
	Interval string     `json:"interval"`
	LastRun  *time.Time `json:"lastRun,omitempty"`
}

func (l *Loop) Status() Status {
	s := Status{
		Name:     l.name,
		Running:  l.running.Load(),
		Interval: l.interval.String(),
	}
	if ns := l.lastRun.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		s.LastRun = &t
	}
	return s
}

func (l *Loop) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop job panic recovered", "name", l.name, "panic", r)
		}
	}()

	start := time.Now()
	l.lastRun.Store(start.UnixNano())
	l.job(ctx)
	l.log.Debug("loop job completed", "name", l.name, "duration_ms", time.Since(start).Milliseconds())
}
