package embed

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder calls a local Ollama server through langchaingo.
type OllamaEmbedder struct {
	embedder *embeddings.EmbedderImpl
	model    string
}

// NewOllama connects to serverURL using model. No request is made until Embed.
func NewOllama(serverURL, model string) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &OllamaEmbedder{embedder: embedder, model: model}, nil
}

func (o *OllamaEmbedder) Name() string { return ProviderOllama + ":" + o.model }

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := o.embedder.EmbedQuery(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			// Nothing is listening; retrying will not help.
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, &RetryableError{Err: err}
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector from %s", ErrUnavailable, o.model)
	}
	return vec, nil
}
