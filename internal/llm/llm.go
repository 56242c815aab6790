// Package llm sends prompts to model backends and returns the raw text they
// generate.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/logging"
	"blogflow/backend/pkg/models"
)

// DefaultTimeout bounds a model call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Request is one synchronous generation call.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Backend is a model-serving endpoint of one provider type.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderSource looks up providers registered in the database.
type ProviderSource interface {
	GetLLMProviderByName(ctx context.Context, name string) (*models.LLMProvider, error)
}

// Observer is notified of every finished model call.
type Observer interface {
	LLMRequest(provider string, d time.Duration, err error)
}

// Invoker resolves a provider name to a backend and runs the call under a
// timeout that is independent of the caller's context.
type Invoker struct {
	timeout  time.Duration
	client   *http.Client
	source   ProviderSource
	observer Observer
	logger   *logging.Logger

	mu       sync.RWMutex
	backends map[string]Backend
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithProviderSource enables lookup of providers that are not configured
// statically.
func WithProviderSource(s ProviderSource) Option {
	return func(i *Invoker) { i.source = s }
}

// WithObserver reports call latency and outcome, typically to metrics.
func WithObserver(o Observer) Option {
	return func(i *Invoker) { i.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// WithHTTPClient replaces the HTTP client shared by all backends.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) { i.client = c }
}

// NewInvoker builds an Invoker with the statically configured providers.
func NewInvoker(cfg config.LLMConfig, opts ...Option) (*Invoker, error) {
	inv := &Invoker{
		timeout:  cfg.Timeout,
		client:   &http.Client{},
		logger:   logging.Nop(),
		backends: make(map[string]Backend),
	}
	if inv.timeout <= 0 {
		inv.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(inv)
	}
	for name, p := range cfg.Providers {
		b, err := NewBackend(p.Type, name, p.URL, p.APIKey, inv.client)
		if err != nil {
			return nil, err
		}
		inv.backends[name] = b
	}
	return inv, nil
}

// NewBackend builds a backend for a provider type.
func NewBackend(providerType, name, url, token string, client *http.Client) (Backend, error) {
	switch providerType {
	case models.ProviderTypeOllama:
		return NewOllamaBackend(name, url, client), nil
	case models.ProviderTypeOpenAI:
		return NewOpenAIBackend(name, url, token, client), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q for provider %q", providerType, name)
	}
}

// Register adds or replaces a backend under name.
func (i *Invoker) Register(name string, b Backend) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.backends[name] = b
}

// Providers returns the names of the statically known backends.
func (i *Invoker) Providers() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.backends))
	for name := range i.backends {
		names = append(names, name)
	}
	return names
}

func (i *Invoker) backend(ctx context.Context, provider string) (Backend, error) {
	i.mu.RLock()
	b, ok := i.backends[provider]
	i.mu.RUnlock()
	if ok {
		return b, nil
	}
	if i.source == nil {
		return nil, &models.LLMRequestError{Provider: provider, Message: "unknown provider"}
	}
	p, err := i.source.GetLLMProviderByName(ctx, provider)
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			return nil, &models.LLMRequestError{Provider: provider, Message: "unknown provider", Err: err}
		}
		return nil, fmt.Errorf("failed to look up provider %s: %w", provider, err)
	}
	return NewBackend(p.Type, p.Name, p.APIURL, p.AuthToken, i.client)
}

// Generate runs req against the named provider. Cancelling ctx does not abort
// a call in flight; only the configured timeout does.
func (i *Invoker) Generate(ctx context.Context, provider string, req Request) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", &models.LLMRequestError{Provider: provider, Message: "no model selected"}
	}
	b, err := i.backend(ctx, provider)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	start := time.Now()
	text, err := b.Generate(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &models.LLMRequestError{
			Provider: provider,
			Message:  fmt.Sprintf("timed out after %s", i.timeout),
			Err:      err,
		}
	}
	elapsed := time.Since(start)
	if i.observer != nil {
		i.observer.LLMRequest(provider, elapsed, err)
	}
	if err != nil {
		i.logger.Warn("llm request failed", "provider", provider, "model", req.Model, "elapsed", elapsed, "error", err)
		return "", err
	}
	i.logger.Debug("llm request completed", "provider", provider, "model", req.Model, "elapsed", elapsed, "chars", len(text))
	return text, nil
}
