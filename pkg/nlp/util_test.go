package nlp

import (
	"math"
	"reflect"
	"testing"
)

type modelReply struct {
	Intent string   `json:"intent"`
	Terms  []string `json:"terms"`
}

func TestUnmarshalModelJSON(t *testing.T) {
	want := modelReply{Intent: "search", Terms: []string{"forklift"}}

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "clean json",
			input: `{"intent": "search", "terms": ["forklift"]}`,
		},
		{
			name:  "fenced json",
			input: "```json\n{\"intent\": \"search\", \"terms\": [\"forklift\"]}\n```",
		},
		{
			name:  "double encoded",
			input: `"{\"intent\": \"search\", \"terms\": [\"forklift\"]}"`,
		},
		{
			name:  "trailing comma repaired",
			input: `{"intent": "search", "terms": ["forklift",],}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got modelReply
			if err := UnmarshalModelJSON(tt.input, &got); err != nil {
				t.Fatalf("UnmarshalModelJSON() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("UnmarshalModelJSON() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestUnmarshalModelJSONUnrecoverable(t *testing.T) {
	var got modelReply
	if err := UnmarshalModelJSON("not json at all {{{", &got); err == nil {
		t.Error("expected error for unrecoverable input")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite clamps to zero", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 2}, want: 0},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
