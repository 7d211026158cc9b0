package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/usecase"
	"github.com/support-lab/kotae/pkg/utils/errutil"
	"github.com/support-lab/kotae/pkg/utils/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(ctx).Error("failed to encode response", "error", err)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrProvider), errors.Is(err, usecase.ErrMalformedOutput):
		status = http.StatusBadGateway
	}
	errutil.HandleHTTP(ctx, w, err, status)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return goerr.Wrap(model.ErrValidation, "invalid request body", goerr.V("cause", err.Error()))
	}
	return nil
}

type generateReplyRequest struct {
	CustomerID  string  `json:"customer_id"`
	MessageID   string  `json:"message_id"`
	Query       string  `json:"query"`
	MaxResults  int     `json:"max_results"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateReplyResponse struct {
	Reply      string                   `json:"reply"`
	Confidence float64                  `json:"confidence"`
	Sources    []model.ReplySource      `json:"sources"`
	Metadata   model.GenerationMetadata `json:"metadata"`
}

func generateReplyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req generateReplyRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}

		result, err := uc.Reply.Generate(ctx, &model.GenerationRequest{
			CustomerID: req.CustomerID,
			MessageID:  model.MessageID(req.MessageID),
			Query:      req.Query,
			MaxResults: req.MaxResults,
			Params: model.GenerationParams{
				Temperature: req.Temperature,
				MaxTokens:   req.MaxTokens,
			},
		})
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, generateReplyResponse{
			Reply:      result.Reply,
			Confidence: result.Confidence,
			Sources:    result.Sources,
			Metadata:   result.Metadata,
		})
	}
}

func searchKnowledgeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		input := usecase.SearchInput{
			Query:      q.Get("q"),
			Categories: q["category"],
			Tags:       q["tag"],
		}
		if limit := q.Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n <= 0 {
				respondError(ctx, w, goerr.Wrap(model.ErrValidation, "limit must be a positive integer",
					goerr.V("value", limit)))
				return
			}
			input.MaxResults = n
		}

		matches, err := uc.Search.Search(ctx, input)
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, map[string]any{
			"matches": matches,
		})
	}
}

type extractConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

func extractConversationHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req extractConversationRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}

		outcome, err := uc.Extract.FromConversation(ctx, model.ConversationID(req.ConversationID))
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, outcome)
	}
}

type extractCorrectionRequest struct {
	Original       string `json:"original"`
	Corrected      string `json:"corrected"`
	Background     string `json:"background"`
	ConversationID string `json:"conversation_id"`
}

func extractCorrectionHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req extractCorrectionRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}

		outcome, err := uc.Extract.FromCorrection(ctx,
			req.Original, req.Corrected, req.Background,
			model.ConversationID(req.ConversationID))
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, outcome)
	}
}

func organizeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := model.KnowledgeID(chi.URLParam(r, "id"))
		result, err := uc.Organize.Organize(ctx, id)
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, result)
	}
}

type applyOrganizationRequest struct {
	Result          *model.OrganizationResult `json:"result"`
	ApplyCategories bool                      `json:"apply_categories"`
	ApplyTags       bool                      `json:"apply_tags"`
	ApplyRelations  bool                      `json:"apply_relations"`
}

func applyOrganizationHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req applyOrganizationRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}

		applied, err := uc.Organize.Apply(ctx, usecase.ApplyInput{
			Result:          req.Result,
			ApplyCategories: req.ApplyCategories,
			ApplyTags:       req.ApplyTags,
			ApplyRelations:  req.ApplyRelations,
		})
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, map[string]bool{"applied": applied})
	}
}

type batchOrganizeRequest struct {
	KnowledgeIDs []string `json:"knowledge_ids"`
}

func batchOrganizeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req batchOrganizeRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		if len(req.KnowledgeIDs) == 0 {
			respondError(ctx, w, goerr.Wrap(model.ErrValidation, "knowledge_ids is required"))
			return
		}

		ids := make([]model.KnowledgeID, 0, len(req.KnowledgeIDs))
		for _, id := range req.KnowledgeIDs {
			ids = append(ids, model.KnowledgeID(id))
		}

		result := uc.Organize.Batch(ctx, ids)
		respondJSON(ctx, w, http.StatusOK, result)
	}
}
