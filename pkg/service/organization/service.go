package organization

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/domain/types"
	"github.com/support-lab/kotae/pkg/service/retrieval"
)

// DefaultNeighborLimit bounds how many neighboring items the LLM sees
const DefaultNeighborLimit = 10

// Service assigns categories, tags, and relations to a knowledge item based
// on the existing taxonomy and its nearest neighbors
type Service interface {
	Organize(ctx context.Context, item *model.KnowledgeItem) (*model.OrganizationResult, error)
}

// client implements Service interface
type client struct {
	llmClient     gollem.LLMClient
	engine        retrieval.Engine
	categories    []string
	neighborLimit int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithCategories sets the taxonomy the LLM must prefer over inventing
// categories
func WithCategories(categories []string) Option {
	return func(c *client) {
		c.categories = categories
	}
}

// WithNeighborLimit overrides how many neighbors are fetched for context
func WithNeighborLimit(limit int) Option {
	return func(c *client) {
		c.neighborLimit = limit
	}
}

// New creates an organization service. The retrieval engine is used for
// text-based neighbor lookup, not vector search.
func New(llmClient gollem.LLMClient, engine retrieval.Engine, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if engine == nil {
		return nil, goerr.New("retrieval engine is required")
	}

	c := &client{
		llmClient:     llmClient,
		engine:        engine,
		neighborLimit: DefaultNeighborLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Organize(ctx context.Context, item *model.KnowledgeItem) (*model.OrganizationResult, error) {
	if item == nil || item.ID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "knowledge item with ID is required")
	}

	neighbors, err := c.findNeighbors(ctx, item)
	if err != nil {
		return nil, err
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(c.buildSystemPrompt(neighbors)),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrProvider, "failed to create LLM session",
			goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildItemPrompt(item)))
	if err != nil {
		return nil, goerr.Wrap(model.ErrProvider, "failed to generate organization",
			goerr.V("knowledgeID", item.ID), goerr.V("cause", err.Error()))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.Wrap(model.ErrMalformedOutput, "organization returned no text",
			goerr.V("knowledgeID", item.ID))
	}

	return parseResult(resp.Texts[0], item, neighbors)
}

// findNeighbors looks up related items by the item's own text. The item
// itself is excluded from the neighbor list.
func (c *client) findNeighbors(ctx context.Context, item *model.KnowledgeItem) ([]*model.KnowledgeItem, error) {
	query := item.Title
	if query == "" {
		query = item.Content
	}

	found, err := c.engine.SearchText(ctx, query, c.neighborLimit+1)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find neighbor knowledge items",
			goerr.V("knowledgeID", item.ID))
	}

	neighbors := make([]*model.KnowledgeItem, 0, len(found))
	for _, n := range found {
		if n.ID == item.ID {
			continue
		}
		neighbors = append(neighbors, n)
		if len(neighbors) >= c.neighborLimit {
			break
		}
	}

	return neighbors, nil
}

type llmResponse struct {
	Categories []llmSuggestion `json:"categories"`
	Tags       []llmSuggestion `json:"tags"`
	Relations  []llmRelation   `json:"relations"`
}

type llmSuggestion struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

type llmRelation struct {
	TargetID string  `json:"target_id"`
	Type     string  `json:"type"`
	Strength float64 `json:"strength"`
	Reason   string  `json:"reason"`
}

// parseResult validates the structured output. Relations pointing at unknown
// targets or carrying an unknown type are rejected as malformed rather than
// silently dropped or coerced.
func parseResult(text string, item *model.KnowledgeItem, neighbors []*model.KnowledgeItem) (*model.OrganizationResult, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, goerr.Wrap(model.ErrMalformedOutput, "failed to parse organization response",
			goerr.V("knowledgeID", item.ID), goerr.V("response", text), goerr.V("cause", err.Error()))
	}

	known := make(map[model.KnowledgeID]bool, len(neighbors))
	for _, n := range neighbors {
		known[n.ID] = true
	}

	result := &model.OrganizationResult{
		KnowledgeID: item.ID,
	}

	for _, s := range resp.Categories {
		if s.Value == "" {
			continue
		}
		result.Categories = append(result.Categories, model.Suggestion{
			Value:      s.Value,
			Confidence: clampUnit(s.Confidence),
			Reason:     s.Reason,
		})
	}

	for _, s := range resp.Tags {
		if s.Value == "" {
			continue
		}
		result.Tags = append(result.Tags, model.Suggestion{
			Value:      strings.ToLower(s.Value),
			Confidence: clampUnit(s.Confidence),
			Reason:     s.Reason,
		})
	}

	for _, r := range resp.Relations {
		relType := types.RelationType(r.Type)
		if err := relType.Validate(); err != nil {
			return nil, goerr.Wrap(model.ErrMalformedOutput, "organization proposed an unknown relation type",
				goerr.V("knowledgeID", item.ID), goerr.V("type", r.Type))
		}
		targetID := model.KnowledgeID(r.TargetID)
		if !known[targetID] {
			// The model referenced an item outside the provided neighbor
			// set. Skip it instead of storing a dangling edge.
			continue
		}
		result.Relations = append(result.Relations, model.Relation{
			SourceID: item.ID,
			TargetID: targetID,
			Type:     relType,
			Strength: clampUnit(r.Strength),
			Reason:   r.Reason,
		})
	}

	sort.SliceStable(result.Categories, func(i, j int) bool {
		return result.Categories[i].Confidence > result.Categories[j].Confidence
	})
	sort.SliceStable(result.Tags, func(i, j int) bool {
		return result.Tags[i].Confidence > result.Tags[j].Confidence
	})
	sort.SliceStable(result.Relations, func(i, j int) bool {
		return result.Relations[i].Strength > result.Relations[j].Strength
	})

	return result, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (c *client) buildSystemPrompt(neighbors []*model.KnowledgeItem) string {
	var sb strings.Builder

	sb.WriteString("You are a knowledge organization assistant for a customer support team. ")
	sb.WriteString("Given one knowledge item, propose its category, tags, and relations to neighboring items.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Prefer existing categories and tags over inventing new ones.\n")
	sb.WriteString("2. Suggest between 3 and 5 tags, each with a confidence between 0 and 1.\n")
	sb.WriteString("3. For each genuinely related neighbor, classify the relation as one of: ")
	relationNames := make([]string, 0, len(types.RelationTypes()))
	for _, rt := range types.RelationTypes() {
		relationNames = append(relationNames, rt.String())
	}
	sb.WriteString(strings.Join(relationNames, ", "))
	sb.WriteString(", with a strength between 0 and 1.\n")
	sb.WriteString("4. Only reference neighbor IDs from the list below.\n")

	if len(c.categories) > 0 {
		sb.WriteString("\n## Existing categories:\n")
		for _, cat := range c.categories {
			fmt.Fprintf(&sb, "- %s\n", cat)
		}
	}

	if len(neighbors) > 0 {
		sb.WriteString("\n## Neighboring knowledge items:\n\n")
		for _, n := range neighbors {
			fmt.Fprintf(&sb, "### ID: %s\n", n.ID)
			fmt.Fprintf(&sb, "**Title:** %s\n", n.Title)
			fmt.Fprintf(&sb, "**Category:** %s\n", n.Category)
			if len(n.Tags) > 0 {
				fmt.Fprintf(&sb, "**Tags:** %s\n", strings.Join(n.Tags, ", "))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("\nNo neighboring items were found; return an empty relations array.\n")
	}

	return sb.String()
}

func buildItemPrompt(item *model.KnowledgeItem) string {
	var sb strings.Builder

	sb.WriteString("Organize this knowledge item.\n\n")
	fmt.Fprintf(&sb, "**Title:** %s\n", item.Title)
	if item.Category != "" {
		fmt.Fprintf(&sb, "**Current category:** %s\n", item.Category)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(&sb, "**Current tags:** %s\n", strings.Join(item.Tags, ", "))
	}
	sb.WriteString("\n**Content:**\n")
	sb.WriteString(item.Content)
	sb.WriteString("\n")

	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output
func buildResponseSchema() *gollem.Parameter {
	suggestion := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{
			Type:        gollem.TypeArray,
			Description: desc,
			Required:    true,
			Items: &gollem.Parameter{
				Type: gollem.TypeObject,
				Properties: map[string]*gollem.Parameter{
					"value": {
						Type:        gollem.TypeString,
						Description: "The suggested value",
						Required:    true,
					},
					"confidence": {
						Type:        gollem.TypeNumber,
						Description: "Confidence in the suggestion, 0 to 1",
						Required:    true,
					},
					"reason": {
						Type:        gollem.TypeString,
						Description: "Short justification",
					},
				},
			},
		}
	}

	return &gollem.Parameter{
		Title:       "KnowledgeOrganizationResponse",
		Description: "Category, tag, and relation proposals for a knowledge item",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"categories": suggestion("Category suggestions, best first"),
			"tags":       suggestion("Tag suggestions, 3 to 5 entries"),
			"relations": {
				Type:        gollem.TypeArray,
				Description: "Typed relations to neighboring items",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"target_id": {
							Type:        gollem.TypeString,
							Description: "ID of the neighboring item",
							Required:    true,
						},
						"type": {
							Type:        gollem.TypeString,
							Description: "Relation type: related, parent, child, similar, or contradicts",
							Required:    true,
						},
						"strength": {
							Type:        gollem.TypeNumber,
							Description: "Relation strength, 0 to 1",
							Required:    true,
						},
						"reason": {
							Type:        gollem.TypeString,
							Description: "Short justification",
						},
					},
				},
			},
		},
	}
}
