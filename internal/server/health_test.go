package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, Report) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var rep Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	return w.Code, rep
}

func TestHealthAllHealthy(t *testing.T) {
	h := NewHealth("1.2.0")
	h.Register("store", StaticChecker(map[string]string{"backend": "qdrant"}))
	h.Register("temporal", func(context.Context) Check { return Check{Status: StatusHealthy} })

	code, rep := get(t, h.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.Equal(t, "1.2.0", rep.Version)
	require.Len(t, rep.Checks, 2)
	assert.Equal(t, "store", rep.Checks[0].Name)
	assert.Equal(t, "qdrant", rep.Checks[0].Details["backend"])
	assert.Equal(t, "temporal", rep.Checks[1].Name)
}

func TestHealthDegradedAndUnhealthy(t *testing.T) {
	h := NewHealth("")
	h.Register("slow", PingChecker("ollama", true, func(context.Context) error { return errors.New("timeout") }))

	code, rep := get(t, h.Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, rep.Status)
	assert.Contains(t, rep.Checks[0].Message, "ollama unreachable")

	h.Register("temporal", PingChecker("temporal", false, func(context.Context) error { return errors.New("refused") }))
	code, rep = get(t, h.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, rep.Status)
}

func TestReadiness(t *testing.T) {
	h := NewHealth("")
	code, rep := get(t, h.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, rep.Status)

	h.SetReady(true)
	code, _ = get(t, h.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, code)
}

func TestLiveness(t *testing.T) {
	h := NewHealth("")
	code, _ := get(t, h.Handler(), "/livez")
	assert.Equal(t, http.StatusOK, code)

	h.SetLive(false)
	code, _ = get(t, h.Handler(), "/live")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestServeStopsWithContext(t *testing.T) {
	h := NewHealth("")
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Serve(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-errc)
}
