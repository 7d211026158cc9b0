package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/support-lab/kotae/pkg/usecase"
)

func TestSearchKnowledge(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked published matches", func(t *testing.T) {
		f := newFixture()
		f.gateway.vectors["refund"] = []float32{1, 0, 0}
		f.seedKnowledge(ctx, "Refund policy", []float32{1, 0, 0}, true)
		f.seedKnowledge(ctx, "Draft about refunds", []float32{0.95, 0.05, 0}, false)
		f.seedKnowledge(ctx, "Privacy policy", []float32{0, 1, 0}, true)

		matches, err := f.uc.Search.Search(ctx, usecase.SearchInput{Query: "refund"})
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1)
		gt.String(t, matches[0].Item.Title).Equal("Refund policy")
		gt.Number(t, matches[0].Similarity).Greater(0.99)
	})

	t.Run("category filter narrows results", func(t *testing.T) {
		f := newFixture()
		f.gateway.vectors["policy"] = []float32{1, 0, 0}
		f.seedKnowledge(ctx, "Refund policy", []float32{1, 0, 0}, true)
		item := f.seedKnowledge(ctx, "Privacy policy", []float32{0.9, 0.1, 0}, true)
		item.Category = "legal"
		_, err := f.repo.Knowledge().Update(ctx, item)
		gt.NoError(t, err).Required()

		matches, err := f.uc.Search.Search(ctx, usecase.SearchInput{
			Query:      "policy",
			Categories: []string{"legal"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1)
		gt.String(t, matches[0].Item.Title).Equal("Privacy policy")
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Search.Search(ctx, usecase.SearchInput{})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})
}
