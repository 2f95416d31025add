package nlp

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// SchemaFor builds a JSON Schema for the given Go type, suitable for
// structured-output requests to a language model.
func SchemaFor(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// UnmarshalModelJSON parses model-generated JSON into out, tolerating the
// usual failure modes: code fences, double-encoded strings, and malformed
// JSON that jsonrepair can fix.
func UnmarshalModelJSON(input string, out any) error {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var doubleEncoded string
	if err := json.Unmarshal([]byte(input), &doubleEncoded); err == nil {
		if err := json.Unmarshal([]byte(doubleEncoded), out); err == nil {
			return nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("failed to repair model JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to parse repaired model JSON: %w", err)
	}
	return nil
}

// CosineSimilarity computes the cosine similarity of two embedding vectors,
// clamped to [0, 1]. Zero-magnitude inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	score := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return math.Min(1, math.Max(0, score))
}
