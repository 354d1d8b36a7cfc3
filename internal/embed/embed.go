// Package embed provides the text embedding providers used for semantic relevance.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUnavailable means no embedding can be produced; callers fall back to lexical scoring.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder turns text into a dense vector. Implementations are safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
	ProviderNone   = "none"
)

// Config selects and tunes an embedding provider.
type Config struct {
	Provider   string
	OllamaURL  string
	Model      string
	Dims       int
	Timeout    time.Duration // per call
	MaxRetries int
	RetryBase  time.Duration
}

// New builds the configured provider wrapped with latency stats and retries.
// The returned Embedder is meant to be created once and shared.
func New(cfg Config, stats *Stats, log *slog.Logger) (*Instrumented, error) {
	var inner Embedder
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		o, err := NewOllama(cfg.OllamaURL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("ollama embedder: %w", err)
		}
		inner = o
	case ProviderHash, "":
		inner = NewHash(cfg.Dims)
	case ProviderNone:
		inner = None{}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	return NewInstrumented(inner, stats, cfg, log), nil
}

// None never produces an embedding. It forces lexical-only scoring.
type None struct{}

func (None) Embed(context.Context, string) ([]float32, error) { return nil, ErrUnavailable }

func (None) Name() string { return ProviderNone }
