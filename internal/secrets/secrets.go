// Package secrets resolves credential references found in configuration.
//
// A value such as "env:OPENAI_API_KEY" or "file:/run/secrets/qdrant" is
// replaced by what it points at; any other value is returned unchanged, so
// literal keys keep working.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when a reference points at nothing.
var ErrNotFound = errors.New("secret not found")

// Provider looks up the part of a reference after its scheme.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Resolver dispatches references to providers by scheme and caches hits.
type Resolver struct {
	providers map[string]Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver returns a Resolver with the env and file providers.
func NewResolver(extra ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		cache:     make(map[string]string),
	}
	for _, p := range append([]Provider{EnvProvider{}, FileProvider{}}, extra...) {
		r.providers[p.Name()] = p
	}
	return r
}

// Resolve returns the secret value references. Empty values and values
// without a known scheme are returned as is.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	scheme, key, ok := strings.Cut(value, ":")
	if !ok {
		return value, nil
	}
	p, known := r.providers[scheme]
	if !known {
		return value, nil
	}

	r.mu.RLock()
	cached, hit := r.cache[value]
	r.mu.RUnlock()
	if hit {
		return cached, nil
	}

	secret, err := p.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolving %s secret %q: %w", scheme, key, err)
	}
	r.mu.Lock()
	r.cache[value] = secret
	r.mu.Unlock()
	return secret, nil
}

// EnvProvider reads environment variables: "env:NAME".
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Get(_ context.Context, key string) (string, error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: $%s is unset", ErrNotFound, key)
}
