package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultShutdownTimeout bounds all hooks together.
const DefaultShutdownTimeout = 30 * time.Second

// Hook priorities. Lower runs first.
const (
	PriorityHealth  = 5
	PriorityWorker  = 20
	PriorityTracing = 80
	PriorityStore   = 90
)

// Hook is one step of the shutdown sequence.
type Hook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Shutdown runs registered hooks in priority order, once.
type Shutdown struct {
	mu      sync.Mutex
	hooks   []Hook
	timeout time.Duration
	logger  *slog.Logger

	once sync.Once
	done chan struct{}
	err  error
}

// NewShutdown returns a Shutdown. timeout <= 0 means DefaultShutdownTimeout;
// a nil logger means slog.Default().
func NewShutdown(timeout time.Duration, logger *slog.Logger) *Shutdown {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shutdown{timeout: timeout, logger: logger, done: make(chan struct{})}
}

// Register adds a hook. Hooks with equal priority keep registration order.
func (s *Shutdown) Register(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// RunOnDone starts the sequence once ctx is done, typically a
// signal.NotifyContext.
func (s *Shutdown) RunOnDone(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Run()
	}()
}

// Run executes every hook even when earlier ones fail and returns their
// joined errors. Later calls wait for the first and return its result.
func (s *Shutdown) Run() error {
	s.once.Do(func() {
		defer close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.mu.Lock()
		hooks := append([]Hook(nil), s.hooks...)
		s.mu.Unlock()

		var errs []error
		for _, h := range hooks {
			start := time.Now()
			if err := h.Fn(ctx); err != nil {
				s.logger.Warn("shutdown hook failed", "hook", h.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				continue
			}
			s.logger.Debug("shutdown hook done", "hook", h.Name, "elapsed", time.Since(start))
		}
		s.err = errors.Join(errs...)
	})
	<-s.done
	return s.err
}

// Done closes after the sequence has finished.
func (s *Shutdown) Done() <-chan struct{} { return s.done }

// WorkerHook stops a Temporal worker. Stop blocks until in-flight
// activities return or the worker stop timeout expires.
func WorkerHook(stop func()) Hook {
	return Hook{Name: "temporal-worker", Priority: PriorityWorker, Fn: func(context.Context) error {
		stop()
		return nil
	}}
}

// HealthHook marks the worker unready and stops the health server.
func HealthHook(h *Health, cancel context.CancelFunc) Hook {
	return Hook{Name: "health", Priority: PriorityHealth, Fn: func(context.Context) error {
		h.SetReady(false)
		cancel()
		return nil
	}}
}

// TracingHook flushes and stops the tracer provider.
func TracingHook(shutdown func(ctx context.Context) error) Hook {
	return Hook{Name: "tracing", Priority: PriorityTracing, Fn: shutdown}
}

// CloserHook closes a resource such as a store connection.
func CloserHook(name string, closeFn func() error) Hook {
	return Hook{Name: name, Priority: PriorityStore, Fn: func(context.Context) error {
		return closeFn()
	}}
}
