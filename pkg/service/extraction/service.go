package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/support-lab/kotae/pkg/domain/model"
)

// Service mines reusable knowledge out of conversations and human
// corrections. Results are ephemeral candidates; the caller decides which
// ones get persisted.
type Service interface {
	FromConversation(ctx context.Context, conv *model.Conversation) ([]*model.ExtractionResult, error)
	FromCorrection(ctx context.Context, original, corrected, background string, conversationID model.ConversationID) ([]*model.ExtractionResult, error)
}

// client implements Service interface
type client struct {
	llmClient  gollem.LLMClient
	categories []string
}

// Option is a functional option for client configuration
type Option func(*client)

// WithCategories steers extracted items toward the existing taxonomy
func WithCategories(categories []string) Option {
	return func(c *client) {
		c.categories = categories
	}
}

// New creates an extraction service backed by the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) FromConversation(ctx context.Context, conv *model.Conversation) ([]*model.ExtractionResult, error) {
	if conv == nil || len(conv.Messages) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "conversation with messages is required")
	}

	results, err := c.extract(ctx, buildConversationPrompt(conv))
	if err != nil {
		return nil, err
	}

	messageIDs := make([]model.MessageID, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		messageIDs = append(messageIDs, msg.ID)
	}
	for _, r := range results {
		r.ExtractedFrom = model.ExtractionOrigin{
			ConversationID: conv.ID,
			MessageIDs:     messageIDs,
		}
	}

	return results, nil
}

func (c *client) FromCorrection(ctx context.Context, original, corrected, background string, conversationID model.ConversationID) ([]*model.ExtractionResult, error) {
	if original == "" || corrected == "" {
		return nil, goerr.Wrap(model.ErrValidation, "original and corrected replies are required")
	}

	results, err := c.extract(ctx, buildCorrectionPrompt(original, corrected, background))
	if err != nil {
		return nil, err
	}

	if conversationID != "" {
		for _, r := range results {
			r.ExtractedFrom = model.ExtractionOrigin{
				ConversationID: conversationID,
			}
		}
	}

	return results, nil
}

func (c *client) extract(ctx context.Context, userPrompt string) ([]*model.ExtractionResult, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(c.buildSystemPrompt()),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrProvider, "failed to create LLM session",
			goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return nil, goerr.Wrap(model.ErrProvider, "failed to generate extraction",
			goerr.V("cause", err.Error()))
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.Wrap(model.ErrMalformedOutput, "extraction returned no text")
	}

	return parseResults(resp.Texts[0])
}

type llmResponse struct {
	Items []llmItem `json:"items"`
}

type llmItem struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source"`
	Confidence float64  `json:"confidence"`
}

// parseResults validates the structured output strictly. Malformed JSON is
// reported as such, never coerced into partial results.
func parseResults(text string) ([]*model.ExtractionResult, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, goerr.Wrap(model.ErrMalformedOutput, "failed to parse extraction response",
			goerr.V("response", text), goerr.V("cause", err.Error()))
	}

	results := make([]*model.ExtractionResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Title == "" || item.Content == "" {
			return nil, goerr.Wrap(model.ErrMalformedOutput, "extraction item is missing required fields",
				goerr.V("item", item))
		}
		results = append(results, &model.ExtractionResult{
			Title:      item.Title,
			Content:    item.Content,
			Category:   item.Category,
			Tags:       item.Tags,
			Source:     item.Source,
			Confidence: clampConfidence(item.Confidence),
		})
	}

	return results, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (c *client) buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a knowledge extraction assistant for a customer support team. ")
	sb.WriteString("Your task is to mine reusable support knowledge from the given material.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Extract only information that would help answer future customer questions.\n")
	sb.WriteString("2. For each knowledge candidate, provide:\n")
	sb.WriteString("   - title: a concise title (in the same language as the material)\n")
	sb.WriteString("   - content: a self-contained statement of the fact or procedure\n")
	sb.WriteString("   - category: the best matching category\n")
	sb.WriteString("   - tags: a few short lowercase keywords\n")
	sb.WriteString("   - source: where the knowledge came from (e.g. \"conversation\", \"correction\")\n")
	sb.WriteString("   - confidence: how certain you are the knowledge is correct and reusable, 0 to 1\n")
	sb.WriteString("3. Do not extract greetings, pleasantries, or customer-specific details.\n")
	sb.WriteString("4. If nothing is worth extracting, return an empty array.\n")

	if len(c.categories) > 0 {
		sb.WriteString("\n## Known categories (prefer these):\n")
		for _, cat := range c.categories {
			fmt.Fprintf(&sb, "- %s\n", cat)
		}
	}

	return sb.String()
}

func buildConversationPrompt(conv *model.Conversation) string {
	var sb strings.Builder

	sb.WriteString("Extract reusable knowledge from this support conversation.\n\n")
	sb.WriteString("## Conversation:\n\n")
	for _, msg := range conv.Messages {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Direction.Role(), msg.Content)
	}

	return sb.String()
}

func buildCorrectionPrompt(original, corrected, background string) string {
	var sb strings.Builder

	sb.WriteString("A human agent corrected an AI-generated reply. ")
	sb.WriteString("Extract the knowledge the correction added or changed. ")
	sb.WriteString("Focus on substantive differences, not rephrasing.\n\n")
	sb.WriteString("## Original reply:\n\n")
	sb.WriteString(original)
	sb.WriteString("\n\n## Corrected reply:\n\n")
	sb.WriteString(corrected)
	if background != "" {
		sb.WriteString("\n\n## Context:\n\n")
		sb.WriteString(background)
	}
	sb.WriteString("\n")

	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output
func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "KnowledgeExtractionResponse",
		Description: "Knowledge candidates mined from the material",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"items": {
				Type:        gollem.TypeArray,
				Description: "Extracted knowledge candidates, empty when nothing is reusable",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"title": {
							Type:        gollem.TypeString,
							Description: "A concise title for the knowledge",
							Required:    true,
						},
						"content": {
							Type:        gollem.TypeString,
							Description: "A self-contained statement of the fact or procedure",
							Required:    true,
						},
						"category": {
							Type:        gollem.TypeString,
							Description: "The best matching category",
						},
						"tags": {
							Type:        gollem.TypeArray,
							Description: "Short lowercase keywords",
							Items:       &gollem.Parameter{Type: gollem.TypeString},
						},
						"source": {
							Type:        gollem.TypeString,
							Description: "Where the knowledge came from",
						},
						"confidence": {
							Type:        gollem.TypeNumber,
							Description: "Certainty that the knowledge is correct and reusable, 0 to 1",
							Required:    true,
						},
					},
				},
			},
		},
	}
}
