package model

import (
	"github.com/support-lab/kotae/pkg/domain/types"
)

// GenerationParams are the per-request generation knobs passed to a backend
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

// GenerationRequest is the input of the reply pipeline
type GenerationRequest struct {
	CustomerID string
	MessageID  MessageID
	Query      string
	History    []*Message
	MaxResults int
	Params     GenerationParams
}

// ReplySource describes one knowledge item a reply was grounded on
type ReplySource struct {
	KnowledgeID KnowledgeID `json:"knowledge_id"`
	Title       string      `json:"title"`
	Similarity  float64     `json:"similarity"`
}

// GenerationMetadata records which backend produced a reply and how
type GenerationMetadata struct {
	Tier       types.ProviderTier `json:"tier"`
	Model      string             `json:"model"`
	Complexity float64            `json:"complexity"`
	Params     GenerationParams   `json:"-"`
}

// GenerationResult is the output of the reply pipeline
type GenerationResult struct {
	Reply      string
	Confidence float64
	Sources    []ReplySource
	Metadata   GenerationMetadata
}
