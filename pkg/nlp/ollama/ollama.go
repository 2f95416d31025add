// Package ollama implements the nlp.Client adapter against a locally-hosted
// Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/nlp"

	"github.com/ollama/ollama/api"
)

const structuredQueryPrompt = `Convert the following request into a structured knowledge graph query filter.
Node types include LearningObjective, Competency, Procedure, Regulation, Entity and Document.
Only populate predicates that the request clearly implies. Respond with JSON only.
Language: %s
Context: %s
Request: %s`

const extractEntitiesPrompt = `Extract the named entities from the following text.
Respond with JSON only: {"entities": [{"label": "...", "value": "..."}]}.
Text: %s`

// Client implements nlp.Client against an Ollama server.
type Client struct {
	chatModel      string
	embeddingModel string

	client *api.Client
}

// Params configures a new Client. An empty BaseURL falls back to the
// local default Ollama endpoint.
type Params struct {
	ChatModel      string
	EmbeddingModel string
	BaseURL        string
}

// New creates a Client from the given parameters.
func New(params Params) (*Client, error) {
	var client *api.Client
	if params.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base URL: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}

	return &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,
		client:         client,
	}, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.chatModel,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Format:  []byte(`"json"`),
		Options: map[string]any{"temperature": 0.1},
	}

	var content string
	err := c.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// ConvertToStructuredQuery turns free text into a query filter.
func (c *Client) ConvertToStructuredQuery(ctx context.Context, text, contextHint, language string) (*common.QueryFilter, error) {
	content, err := c.complete(ctx, fmt.Sprintf(structuredQueryPrompt, language, contextHint, text))
	if err != nil {
		return nil, fmt.Errorf("structured query conversion failed: %w", err)
	}
	filter := new(common.QueryFilter)
	if err := nlp.UnmarshalModelJSON(content, filter); err != nil {
		return nil, fmt.Errorf("structured query conversion failed: %w", err)
	}
	return filter, nil
}

// ExtractEntities recognizes labeled entities in free text.
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]nlp.Entity, error) {
	content, err := c.complete(ctx, fmt.Sprintf(extractEntitiesPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}
	out := struct {
		Entities []nlp.Entity `json:"entities"`
	}{}
	if err := nlp.UnmarshalModelJSON(content, &out); err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}
	return out.Entities, nil
}

// CalculateSimilarity embeds both texts and returns their cosine similarity.
func (c *Client) CalculateSimilarity(ctx context.Context, a, b string) (float64, error) {
	res, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: []string{a, b},
	})
	if err != nil {
		return 0, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(res.Embeddings) != 2 {
		return 0, fmt.Errorf("unexpected embedding result size: got %d want 2", len(res.Embeddings))
	}
	return nlp.CosineSimilarity(res.Embeddings[0], res.Embeddings[1]), nil
}
