package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atlasops/traingraph/internal/storage"
	"github.com/atlasops/traingraph/pkg/extract"
	"github.com/atlasops/traingraph/pkg/kg"
	"github.com/atlasops/traingraph/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProcessIngestMessage handles one ingest_queue delivery: fetch the
// extraction payload from object storage, decode it, and run it through the
// engine. A returned error sends the delivery to the retry path.
func ProcessIngestMessage(ctx context.Context, s3Client *s3.Client, engine *kg.Engine, msgBody string) error {
	var msg IngestDocumentMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal ingest message: %w", err)
	}
	logger.Info("[Queue] Ingesting document", "correlation_id", msg.CorrelationID,
		"document_id", msg.DocumentID, "payload_key", msg.PayloadKey)

	payload, err := storage.GetFile(ctx, s3Client, msg.PayloadKey)
	if err != nil {
		return fmt.Errorf("failed to fetch extraction payload %s: %w", msg.PayloadKey, err)
	}

	var result extract.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("failed to unmarshal extraction payload %s: %w", msg.PayloadKey, err)
	}
	if result.DocumentID == "" {
		result.DocumentID = msg.DocumentID
	}

	nodes, rels, err := engine.ProcessDocument(ctx, &result)
	if err != nil {
		return fmt.Errorf("failed to ingest document %s: %w", result.DocumentID, err)
	}

	logger.Info("[Queue] Document ingested", "correlation_id", msg.CorrelationID,
		"document_id", result.DocumentID, "nodes", nodes, "relationships", rels)
	return nil
}

// ProcessExportMessage handles one export_queue delivery: export the graph
// selection to a temporary file, then upload it to object storage.
func ProcessExportMessage(ctx context.Context, s3Client *s3.Client, engine *kg.Engine, msgBody string) error {
	var msg ExportGraphMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal export message: %w", err)
	}
	logger.Info("[Queue] Exporting graph", "correlation_id", msg.CorrelationID,
		"format", msg.Format, "key", msg.Key)

	tmp, err := os.CreateTemp("", "graph-export-*"+filepath.Ext(msg.Key))
	if err != nil {
		return fmt.Errorf("failed to create export scratch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	nodes, rels, err := engine.ExportGraph(ctx, msg.Format, tmp.Name(), msg.Filter)
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	file, err := os.Open(tmp.Name())
	if err != nil {
		return fmt.Errorf("failed to reopen export scratch file: %w", err)
	}
	defer file.Close()

	if _, err := storage.PutFile(ctx, s3Client, msg.Key, exportContentType(msg.Format), file); err != nil {
		return fmt.Errorf("failed to upload export %s: %w", msg.Key, err)
	}

	logger.Info("[Queue] Graph exported", "correlation_id", msg.CorrelationID,
		"key", msg.Key, "nodes", nodes, "relationships", rels)
	return nil
}

func exportContentType(format string) string {
	switch format {
	case kg.FormatJSON:
		return "application/json"
	case kg.FormatGraphML:
		return "application/xml"
	default:
		return "text/plain"
	}
}
