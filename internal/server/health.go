// Package server serves the worker's health endpoints and runs its ordered
// shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.temporal.io/sdk/client"
)

// Status is the health of one component or of the whole worker.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the outcome of one registered checker.
type Check struct {
	Name    string            `json:"name"`
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Report is the body of every health response.
type Report struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Checks    []Check   `json:"checks,omitempty"`
}

// Checker inspects one dependency.
type Checker func(ctx context.Context) Check

// checkTimeout bounds a full /healthz round.
const checkTimeout = 5 * time.Second

// Health answers liveness, readiness and dependency checks.
type Health struct {
	mu      sync.RWMutex
	checks  map[string]Checker
	version string
	ready   bool
	live    bool
}

// NewHealth returns a live but not yet ready Health.
func NewHealth(version string) *Health {
	return &Health{
		checks:  make(map[string]Checker),
		version: version,
		live:    true,
	}
}

// Register adds or replaces the checker called name.
func (h *Health) Register(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Health) SetLive(live bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = live
}

// Handler routes /healthz, /readyz and /livez, plus their short aliases.
func (h *Health) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, p := range []string{"/health", "/healthz"} {
		mux.HandleFunc(p, h.handleHealth)
	}
	for _, p := range []string{"/ready", "/readyz"} {
		mux.HandleFunc(p, h.flag(func() bool { return h.ready }))
	}
	for _, p := range []string{"/live", "/livez"} {
		mux.HandleFunc(p, h.flag(func() bool { return h.live }))
	}
	return mux
}

// Serve listens on addr until ctx is done.
func (h *Health) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      checkTimeout + time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run executes every checker. Checks come back sorted by name.
func (h *Health) Run(ctx context.Context) Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	version := h.version
	h.mu.RUnlock()
	sort.Strings(names)

	rep := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]Check, 0, len(names)),
	}
	for _, name := range names {
		c := checks[name](ctx)
		c.Name = name
		rep.Checks = append(rep.Checks, c)
		switch {
		case c.Status == StatusUnhealthy:
			rep.Status = StatusUnhealthy
		case c.Status == StatusDegraded && rep.Status == StatusHealthy:
			rep.Status = StatusDegraded
		}
	}
	return rep
}

func (h *Health) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	rep := h.Run(ctx)
	code := http.StatusOK
	if rep.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

func (h *Health) flag(get func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		ok := get()
		h.mu.RUnlock()

		rep := Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}
		code := http.StatusOK
		if !ok {
			rep.Status = StatusUnhealthy
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, rep)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing health response", "error", err)
	}
}

// PingChecker turns a ping function into a Checker. A failing ping marks
// the component unhealthy, or degraded when the worker can limp on
// without it.
func PingChecker(component string, degradeOnly bool, ping func(ctx context.Context) error) Checker {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			st := StatusUnhealthy
			if degradeOnly {
				st = StatusDegraded
			}
			return Check{Status: st, Message: component + " unreachable: " + err.Error()}
		}
		return Check{Status: StatusHealthy, Message: component + " OK"}
	}
}

// TemporalChecker asks the frontend service whether it is serving.
func TemporalChecker(c client.Client) Checker {
	return PingChecker("temporal", false, func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	})
}

// StaticChecker reports fixed details, e.g. the configured backends.
func StaticChecker(details map[string]string) Checker {
	return func(context.Context) Check {
		return Check{Status: StatusHealthy, Details: details}
	}
}
