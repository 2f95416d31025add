// Package openai implements the nlp.Client adapter against any
// OpenAI-compatible chat and embedding API.
package openai

import (
	"context"
	"fmt"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/nlp"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const structuredQueryPrompt = `Convert the following request into a structured knowledge graph query filter.
Node types include LearningObjective, Competency, Procedure, Regulation, Entity and Document.
Only populate predicates that the request clearly implies.
Language: %s
Context: %s
Request: %s`

const extractEntitiesPrompt = `Extract the named entities from the following text.
For each entity return its label (the entity category, e.g. Regulation, Procedure, Competency) and its value (the surface form).
Text: %s`

// Client implements nlp.Client using separate OpenAI-compatible clients for
// chat and embedding endpoints, mirroring deployments where the two run on
// different hosts.
type Client struct {
	chatModel      string
	embeddingModel string

	chat      *openai.Client
	embedding *openai.Client
}

// Params configures a new Client. Empty URLs fall back to the public
// OpenAI endpoint.
type Params struct {
	ChatModel      string
	EmbeddingModel string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string
}

// New creates a Client from the given parameters.
func New(params Params) *Client {
	chatOpts := []option.RequestOption{option.WithAPIKey(params.ChatKey)}
	if params.ChatURL != "" {
		chatOpts = append(chatOpts, option.WithBaseURL(params.ChatURL))
	}
	embedOpts := []option.RequestOption{option.WithAPIKey(params.EmbeddingKey)}
	if params.EmbeddingURL != "" {
		embedOpts = append(embedOpts, option.WithBaseURL(params.EmbeddingURL))
	}

	chat := openai.NewClient(chatOpts...)
	embedding := openai.NewClient(embedOpts...)
	return &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		chat:           &chat,
		embedding:      &embedding,
	}
}

func (c *Client) structured(ctx context.Context, name, description, prompt string, out any) error {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      nlp.SchemaFor(out),
		Strict:      openai.Bool(true),
	}

	response, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return err
	}
	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	return nlp.UnmarshalModelJSON(message, out)
}

// ConvertToStructuredQuery turns free text into a query filter via
// schema-constrained chat completion.
func (c *Client) ConvertToStructuredQuery(ctx context.Context, text, contextHint, language string) (*common.QueryFilter, error) {
	filter := new(common.QueryFilter)
	prompt := fmt.Sprintf(structuredQueryPrompt, language, contextHint, text)
	if err := c.structured(ctx, "structured_query", "A structured knowledge graph query filter", prompt, filter); err != nil {
		return nil, fmt.Errorf("structured query conversion failed: %w", err)
	}
	return filter, nil
}

// ExtractEntities recognizes labeled entities in free text.
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]nlp.Entity, error) {
	out := struct {
		Entities []nlp.Entity `json:"entities"`
	}{}
	prompt := fmt.Sprintf(extractEntitiesPrompt, text)
	if err := c.structured(ctx, "entities", "Named entities recognized in the text", prompt, &out); err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}
	return out.Entities, nil
}

// CalculateSimilarity embeds both texts and returns their cosine similarity.
func (c *Client) CalculateSimilarity(ctx context.Context, a, b string) (float64, error) {
	response, err := c.embedding.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{a, b},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(response.Data) != 2 {
		return 0, fmt.Errorf("unexpected embedding result size: got %d want 2", len(response.Data))
	}

	va := make([]float32, len(response.Data[0].Embedding))
	for i, f := range response.Data[0].Embedding {
		va[i] = float32(f)
	}
	vb := make([]float32, len(response.Data[1].Embedding))
	for i, f := range response.Data[1].Embedding {
		vb[i] = float32(f)
	}
	return nlp.CosineSimilarity(va, vb), nil
}
