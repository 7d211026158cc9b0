package embedding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/utils/retry"
)

type fakeProvider struct {
	vectors map[string][]float64
	failOn  map[string]error
	calls   int
}

func (p *fakeProvider) GenerateEmbedding(_ context.Context, dimension int, input []string) ([][]float64, error) {
	p.calls++
	result := make([][]float64, 0, len(input))
	for _, text := range input {
		if err, ok := p.failOn[text]; ok {
			return nil, err
		}
		if v, ok := p.vectors[text]; ok {
			result = append(result, v)
			continue
		}
		result = append(result, make([]float64, dimension))
	}
	return result, nil
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("returns provider vector as float32", func(t *testing.T) {
		provider := &fakeProvider{vectors: map[string][]float64{
			"hello": {0.25, 0.5, 0.75},
		}}
		gw := embedding.New(provider, "text-embedding-004", embedding.WithDimensions(3))

		v, err := gw.Embed(ctx, "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal([]float32{0.25, 0.5, 0.75})
		gt.Number(t, gw.Dimensions()).Equal(3)
		gt.String(t, gw.Model()).Equal("text-embedding-004")
	})

	t.Run("rejects empty text before calling the provider", func(t *testing.T) {
		provider := &fakeProvider{}
		gw := embedding.New(provider, "text-embedding-004")

		_, err := gw.Embed(ctx, "")
		gt.Bool(t, errors.Is(err, model.ErrValidation)).True()
		gt.Number(t, provider.calls).Equal(0)
	})

	t.Run("provider failure surfaces as provider error", func(t *testing.T) {
		provider := &fakeProvider{failOn: map[string]error{
			"bad": errors.New("backend unreachable"),
		}}
		gw := embedding.New(provider, "text-embedding-004")

		_, err := gw.Embed(ctx, "bad")
		gt.Bool(t, errors.Is(err, model.ErrProvider)).True()
	})

	t.Run("retry policy retries provider failures", func(t *testing.T) {
		provider := &flakyProvider{failures: 2}
		gw := embedding.New(provider, "text-embedding-004",
			embedding.WithRetryPolicy(retry.Policy{MaxRetries: 3, InitialDelay: time.Millisecond}))

		_, err := gw.Embed(ctx, "hello")
		gt.NoError(t, err)
		gt.Number(t, provider.calls).Equal(3)
	})
}

type flakyProvider struct {
	failures int
	calls    int
}

func (p *flakyProvider) GenerateEmbedding(_ context.Context, dimension int, input []string) ([][]float64, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("transient failure")
	}
	result := make([][]float64, len(input))
	for i := range input {
		result[i] = make([]float64, dimension)
	}
	return result, nil
}

func TestEmbedBatch(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{
		vectors: map[string][]float64{
			"ok-1": {1, 0},
			"ok-2": {0, 1},
		},
		failOn: map[string]error{
			"broken": errors.New("backend rejected"),
		},
	}
	gw := embedding.New(provider, "text-embedding-004", embedding.WithDimensions(2))

	items := gw.EmbedBatch(ctx, []string{"ok-1", "broken", "ok-2"})
	gt.Array(t, items).Length(3)

	gt.NoError(t, items[0].Err)
	gt.Value(t, items[0].Vector).Equal([]float32{1, 0})

	gt.Error(t, items[1].Err)
	gt.Bool(t, errors.Is(items[1].Err, model.ErrProvider)).True()

	gt.NoError(t, items[2].Err)
	gt.Value(t, items[2].Vector).Equal([]float32{0, 1})
}
