package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	controller "github.com/support-lab/kotae/pkg/controller/http"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/repository/memory"
	"github.com/support-lab/kotae/pkg/service/embedding"
	"github.com/support-lab/kotae/pkg/service/generation"
	"github.com/support-lab/kotae/pkg/service/retrieval"
	"github.com/support-lab/kotae/pkg/usecase"
)

type fakeGateway struct{}

func (g *fakeGateway) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (g *fakeGateway) EmbedBatch(ctx context.Context, texts []string) []embedding.BatchItem {
	items := make([]embedding.BatchItem, 0, len(texts))
	for _, text := range texts {
		v, err := g.Embed(ctx, text)
		items = append(items, embedding.BatchItem{Text: text, Vector: v, Err: err})
	}
	return items
}

func (g *fakeGateway) Model() string   { return "fake-embedding" }
func (g *fakeGateway) Dimensions() int { return 3 }

type fakeGenerator struct{}

func (p *fakeGenerator) Generate(_ context.Context, _ string, _ model.GenerationParams) (string, error) {
	return "Refunds take 5 business days.", nil
}

func (p *fakeGenerator) Model() string { return "fake-model" }

type fakeExtractor struct{}

func (e *fakeExtractor) FromConversation(_ context.Context, _ *model.Conversation) ([]*model.ExtractionResult, error) {
	return nil, nil
}

func (e *fakeExtractor) FromCorrection(_ context.Context, _, _, _ string, _ model.ConversationID) ([]*model.ExtractionResult, error) {
	return []*model.ExtractionResult{
		{Title: "Refund window", Content: "Refunds are available within 14 days.", Confidence: 0.9},
	}, nil
}

type fakeOrganizer struct{}

func (o *fakeOrganizer) Organize(_ context.Context, item *model.KnowledgeItem) (*model.OrganizationResult, error) {
	return &model.OrganizationResult{
		KnowledgeID: item.ID,
		Categories:  []model.Suggestion{{Value: "billing", Confidence: 0.9}},
	}, nil
}

func newTestServer(t *testing.T) (*controller.Server, *memory.Memory) {
	t.Helper()

	repo := memory.New()
	gateway := &fakeGateway{}
	gen := &fakeGenerator{}

	providers := generation.Providers{
		types.TierPremium:  gen,
		types.TierAdvanced: gen,
		types.TierStandard: gen,
		types.TierEconomy:  gen,
	}

	uc := usecase.New(repo,
		usecase.WithEmbeddingGateway(gateway),
		usecase.WithRetrievalEngine(retrieval.New(repo, gateway)),
		usecase.WithProviders(providers),
		usecase.WithExtractionService(&fakeExtractor{}),
		usecase.WithOrganizationService(&fakeOrganizer{}),
	)

	return controller.New(uc), repo
}

func seedKnowledge(t *testing.T, repo *memory.Memory, title string) *model.KnowledgeItem {
	t.Helper()
	ctx := context.Background()

	item, err := repo.Knowledge().Create(ctx, &model.KnowledgeItem{
		Title:       title,
		Content:     "content of " + title,
		Category:    "general",
		Source:      "manual",
		IsPublished: true,
	})
	gt.NoError(t, err).Required()

	_, err = repo.Embedding().Upsert(ctx, &model.EmbeddingRecord{
		SourceID:   item.ID.String(),
		SourceType: types.SourceTypeKnowledgeItem,
		Vector:     []float32{1, 0, 0},
		Model:      "fake-embedding",
	})
	gt.NoError(t, err).Required()

	return item
}

func postJSON(t *testing.T, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	gt.NoError(t, err).Required()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Number(t, rec.Code).Equal(http.StatusOK)
}

func TestGenerateReply(t *testing.T) {
	t.Run("returns a grounded reply", func(t *testing.T) {
		srv, repo := newTestServer(t)
		seedKnowledge(t, repo, "Refund policy")

		rec := postJSON(t, srv, "/api/v1/replies", map[string]any{
			"customer_id": "cust-1",
			"query":       "How do refunds work?",
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Reply      string              `json:"reply"`
			Confidence float64             `json:"confidence"`
			Sources    []model.ReplySource `json:"sources"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.String(t, resp.Reply).NotEqual("")
		gt.Number(t, resp.Confidence).Greater(0)
		gt.Array(t, resp.Sources).Length(1)
		gt.String(t, resp.Sources[0].Title).Equal("Refund policy")
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/replies", map[string]any{
			"customer_id": "cust-1",
		})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/replies", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestSearchKnowledge(t *testing.T) {
	t.Run("returns matches", func(t *testing.T) {
		srv, repo := newTestServer(t)
		seedKnowledge(t, repo, "Refund policy")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/knowledge/search?q=refund", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			Matches []usecase.SearchMatch `json:"matches"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Matches).Length(1)
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/knowledge/search", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("invalid limit is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/knowledge/search?q=refund&limit=abc", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestExtraction(t *testing.T) {
	t.Run("unknown conversation is not found", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/extractions/conversation", map[string]any{
			"conversation_id": string(model.NewConversationID()),
		})
		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("correction promotes knowledge", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/extractions/correction", map[string]any{
			"original":  "Refunds are available within 30 days.",
			"corrected": "Refunds are available within 14 days.",
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp struct {
			SavedIDs []string `json:"saved_ids"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.SavedIDs).Length(1)
	})

	t.Run("correction without both replies is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/extractions/correction", map[string]any{
			"original": "only the original",
		})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestOrganize(t *testing.T) {
	t.Run("returns suggestions for a known item", func(t *testing.T) {
		srv, repo := newTestServer(t)
		item := seedKnowledge(t, repo, "Refund policy")

		rec := postJSON(t, srv, "/api/v1/knowledge/"+item.ID.String()+"/organize", map[string]any{})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp model.OrganizationResult
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.KnowledgeID).Equal(item.ID)
		gt.Array(t, resp.Categories).Length(1)
	})

	t.Run("unknown item is not found", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/knowledge/"+model.NewKnowledgeID().String()+"/organize", map[string]any{})
		gt.Number(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("apply writes the selected parts", func(t *testing.T) {
		srv, repo := newTestServer(t)
		item := seedKnowledge(t, repo, "Refund policy")

		rec := postJSON(t, srv, "/api/v1/knowledge/organize/apply", map[string]any{
			"result": map[string]any{
				"knowledge_id": item.ID.String(),
				"categories":   []map[string]any{{"value": "billing", "confidence": 0.9}},
			},
			"apply_categories": true,
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		got, err := repo.Knowledge().Get(context.Background(), item.ID)
		gt.NoError(t, err).Required()
		gt.String(t, got.Category).Equal("billing")
	})

	t.Run("apply without a result is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/knowledge/organize/apply", map[string]any{})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("batch reports per-item outcomes", func(t *testing.T) {
		srv, repo := newTestServer(t)
		item := seedKnowledge(t, repo, "Refund policy")

		rec := postJSON(t, srv, "/api/v1/knowledge/batch/organize", map[string]any{
			"knowledge_ids": []string{item.ID.String(), model.NewKnowledgeID().String()},
		})
		gt.Number(t, rec.Code).Equal(http.StatusOK)

		var resp usecase.BatchResult
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Number(t, resp.Processed).Equal(2)
		gt.Number(t, resp.Success).Equal(1)
		gt.Number(t, resp.Failed).Equal(1)
	})

	t.Run("batch without IDs is a bad request", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := postJSON(t, srv, "/api/v1/knowledge/batch/organize", map[string]any{})
		gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
	})
}
