package model

// ExtractionResult is an ephemeral knowledge candidate mined from a
// conversation or a human correction. It becomes a KnowledgeItem only when
// its confidence passes the promotion threshold; sub-threshold results are
// discarded, not queued.
type ExtractionResult struct {
	Title         string
	Content       string
	Category      string
	Tags          []string
	Source        string
	Confidence    float64
	ExtractedFrom ExtractionOrigin
}

// ToKnowledgeItem converts an extraction result into an unpublished
// knowledge item. Auto-extracted knowledge always starts unpublished so a
// human can review it before it feeds back into retrieval.
func (r *ExtractionResult) ToKnowledgeItem() *KnowledgeItem {
	origin := r.ExtractedFrom
	return &KnowledgeItem{
		Title:       r.Title,
		Content:     r.Content,
		Category:    r.Category,
		Tags:        r.Tags,
		Source:      r.Source,
		IsPublished: false,
		Metadata: KnowledgeMetadata{
			ExtractedFrom: &origin,
		},
	}
}
