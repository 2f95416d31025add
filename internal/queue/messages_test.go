package queue

import (
	"encoding/json"
	"testing"
)

func TestIngestDocumentID(t *testing.T) {
	msg := IngestDocumentMsg{
		Message:       "Process uploaded document",
		CorrelationID: "abc123",
		DocumentID:    "forklift-manual-2024",
		PayloadKey:    "extractions/forklift-manual-2024.json",
	}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if got := IngestDocumentID(string(body)); got != "forklift-manual-2024" {
		t.Errorf("IngestDocumentID() = %q, want forklift-manual-2024", got)
	}
	if got := IngestDocumentID("not json"); got != "" {
		t.Errorf("IngestDocumentID(garbage) = %q, want empty", got)
	}
}
