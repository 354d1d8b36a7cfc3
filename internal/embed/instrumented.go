package embed

import (
	"context"
	"log/slog"
	"time"
)

// Instrumented wraps an Embedder with per-call timeouts, retries and latency stats.
type Instrumented struct {
	inner      Embedder
	stats      *Stats
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
	log        *slog.Logger
}

// NewInstrumented wraps inner. A nil stats or logger is replaced with a fresh one.
func NewInstrumented(inner Embedder, stats *Stats, cfg Config, log *slog.Logger) *Instrumented {
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Instrumented{
		inner:      inner,
		stats:      stats,
		timeout:    cfg.Timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		retryBase:  cfg.RetryBase,
		log:        log.With("embedder", inner.Name()),
	}
}

func (e *Instrumented) Name() string { return e.inner.Name() }

// Stats returns the shared latency tracker.
func (e *Instrumented) Stats() *Stats { return e.stats }

func (e *Instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt-1, e.retryBase)
			e.log.Debug("retrying embedding", "attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				e.stats.RecordFailure()
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		vec, err := e.call(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	e.stats.RecordFailure()
	return nil, lastErr
}

func (e *Instrumented) call(ctx context.Context, text string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.stats.Record(time.Since(start).Milliseconds())
	return vec, nil
}
