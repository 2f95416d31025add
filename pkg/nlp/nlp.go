// Package nlp defines the natural-language adapter consumed by the engine
// for entity extraction, structured-query conversion, and text similarity.
package nlp

import (
	"context"

	"github.com/atlasops/traingraph/pkg/common"
)

// Entity is a labeled value recognized in free text, e.g.
// {Label: "Regulation", Value: "REG-14"}.
type Entity struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Client is the NLP adapter. All calls are blocking and should be assumed
// network-bound.
type Client interface {
	// ConvertToStructuredQuery turns free text in the given language into a
	// structured query filter. contextHint carries optional caller context
	// (e.g. the active syllabus) that the implementation may use to
	// disambiguate.
	ConvertToStructuredQuery(ctx context.Context, text, contextHint, language string) (*common.QueryFilter, error)

	// ExtractEntities recognizes labeled entities in free text.
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)

	// CalculateSimilarity scores the semantic similarity of two texts in [0, 1].
	CalculateSimilarity(ctx context.Context, a, b string) (float64, error)
}
