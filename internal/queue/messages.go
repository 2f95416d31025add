package queue

import (
	"encoding/json"

	"github.com/atlasops/traingraph/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"
)

// IngestDocumentMsg asks the worker to load an extraction result payload
// from object storage and ingest it into the graph.
type IngestDocumentMsg struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
	DocumentID    string `json:"document_id"`
	PayloadKey    string `json:"payload_key"`
}

// ExportGraphMsg asks the worker to export the graph selection to object
// storage under the given key.
type ExportGraphMsg struct {
	Message       string              `json:"message"`
	CorrelationID string              `json:"correlation_id"`
	Format        string              `json:"format"`
	Key           string              `json:"key"`
	Filter        *common.QueryFilter `json:"filter,omitempty"`
}

// IngestDocumentID peeks at a raw ingest message body and returns its
// document id, or "" when the body cannot be decoded.
func IngestDocumentID(msgBody string) string {
	var msg IngestDocumentMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return ""
	}
	return msg.DocumentID
}

// PublishIngestDocument enqueues an ingestion job, assigning a correlation
// id when the message carries none.
func PublishIngestDocument(ch *amqp091.Channel, msg IngestDocumentMsg) (string, error) {
	if msg.CorrelationID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", err
		}
		msg.CorrelationID = id
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	if err := PublishFIFO(ch, IngestQueue, data); err != nil {
		return "", err
	}
	return msg.CorrelationID, nil
}

// PublishExportGraph enqueues an export job, assigning a correlation id when
// the message carries none.
func PublishExportGraph(ch *amqp091.Channel, msg ExportGraphMsg) (string, error) {
	if msg.CorrelationID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", err
		}
		msg.CorrelationID = id
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	if err := PublishFIFO(ch, ExportQueue, data); err != nil {
		return "", err
	}
	return msg.CorrelationID, nil
}
