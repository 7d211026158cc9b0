package model

// OrganizationResult holds the taxonomy suggestions for one knowledge item.
// Suggestions are sorted non-increasing by confidence (relations by
// strength); how many of them get applied is the caller's policy.
type OrganizationResult struct {
	KnowledgeID KnowledgeID  `json:"knowledge_id"`
	Categories  []Suggestion `json:"categories"`
	Tags        []Suggestion `json:"tags"`
	Relations   []Relation   `json:"relations"`
}
