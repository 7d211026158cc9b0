package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/support-lab/kotae/pkg/domain/types"
)

// KnowledgeID is a UUID-based identifier for KnowledgeItem
type KnowledgeID string

// NewKnowledgeID generates a new UUID v4 KnowledgeID
func NewKnowledgeID() KnowledgeID {
	return KnowledgeID(uuid.New().String())
}

// String returns the string representation of KnowledgeID
func (k KnowledgeID) String() string {
	return string(k)
}

// Relation is a directed edge from one knowledge item to another.
// Strength is recomputed by the organization engine; it is never edited by
// hand so that it stays consistent with retrieval ranking.
type Relation struct {
	SourceID KnowledgeID        `json:"source_id"`
	TargetID KnowledgeID        `json:"target_id"`
	Type     types.RelationType `json:"type"`
	Strength float64            `json:"strength"`
	Reason   string             `json:"reason,omitempty"`
}

// ExtractionOrigin records where an auto-extracted knowledge item came from
type ExtractionOrigin struct {
	ConversationID ConversationID `json:"conversation_id"`
	MessageIDs     []MessageID    `json:"message_ids,omitempty"`
}

// KnowledgeMetadata holds the denormalized extras of a knowledge item.
// Relations are stored inside the owning item (adjacency list keyed by the
// source item), replaced wholesale when organization results are applied.
type KnowledgeMetadata struct {
	Relations     []Relation        `json:"relations,omitempty"`
	ExtractedFrom *ExtractionOrigin `json:"extracted_from,omitempty"`
}

// KnowledgeItem is a stored, reusable unit of support content
type KnowledgeItem struct {
	ID          KnowledgeID
	Title       string
	Content     string
	Category    string
	Tags        []string
	Source      string
	IsPublished bool
	Metadata    KnowledgeMetadata
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasTag reports whether the item carries the given tag
func (k *KnowledgeItem) HasTag(tag string) bool {
	for _, t := range k.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags removes duplicates from Tags, keeping first-seen order
func (k *KnowledgeItem) NormalizeTags() {
	seen := make(map[string]bool, len(k.Tags))
	out := k.Tags[:0]
	for _, t := range k.Tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	k.Tags = out
}

// Suggestion is a scored proposal produced by the organization engine
type Suggestion struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}
