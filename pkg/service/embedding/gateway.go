package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/interfaces"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/utils/retry"
)

// Gateway converts text into fixed-length vectors through a pluggable
// provider. Callers must not assume a fixed dimensionality across providers;
// use Dimensions to learn the configured size.
type Gateway interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) []BatchItem
	Model() string
	Dimensions() int
}

// BatchItem is the per-text outcome of EmbedBatch. A failed item carries its
// error; other items are unaffected.
type BatchItem struct {
	Text   string
	Vector []float32
	Err    error
}

type Client struct {
	provider    interfaces.EmbeddingProvider
	model       string
	dimensions  int
	retryPolicy retry.Policy
}

var _ Gateway = &Client{}

type Option func(*Client)

// WithDimensions overrides the vector size requested from the provider
func WithDimensions(d int) Option {
	return func(c *Client) {
		c.dimensions = d
	}
}

// WithRetryPolicy enables retries around provider calls. Default is no
// retries.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.retryPolicy = p
	}
}

func New(provider interfaces.EmbeddingProvider, modelName string, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		model:       modelName,
		dimensions:  model.DefaultEmbeddingDimension,
		retryPolicy: retry.None(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Dimensions() int {
	return c.dimensions
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, goerr.Wrap(model.ErrValidation, "text is required for embedding")
	}

	var vectors [][]float64
	err := c.retryPolicy.Do(ctx, func() error {
		var genErr error
		vectors, genErr = c.provider.GenerateEmbedding(ctx, c.dimensions, []string{text})
		return genErr
	})
	if err != nil {
		return nil, goerr.Wrap(model.ErrProvider, "failed to generate embedding",
			goerr.V("model", c.model), goerr.V("cause", err.Error()))
	}
	if len(vectors) != 1 {
		return nil, goerr.Wrap(model.ErrProvider, "unexpected embedding count",
			goerr.V("model", c.model), goerr.V("count", len(vectors)))
	}

	return toFloat32(vectors[0]), nil
}

// EmbedBatch embeds each text independently. One item's failure is recorded
// in its BatchItem and does not abort the rest.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) []BatchItem {
	items := make([]BatchItem, 0, len(texts))
	for _, text := range texts {
		vector, err := c.Embed(ctx, text)
		items = append(items, BatchItem{
			Text:   text,
			Vector: vector,
			Err:    err,
		})
	}
	return items
}

func toFloat32(v []float64) []float32 {
	result := make([]float32, len(v))
	for i, f := range v {
		result[i] = float32(f)
	}
	return result
}
