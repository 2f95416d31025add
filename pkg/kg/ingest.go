package kg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/extract"
	"github.com/atlasops/traingraph/pkg/logger"
)

// Confidence assigned to each node category produced by ingestion.
const (
	objectiveConfidence  = 0.9
	competencyConfidence = 0.85
	procedureConfidence  = 0.9
	regulationConfidence = 0.95
	entityConfidence     = 0.8
	documentConfidence   = 1.0
)

const listDelimiter = "|"

// IngestResult is the outcome of an asynchronous document ingestion.
type IngestResult struct {
	NodesCreated         int
	RelationshipsCreated int
	Err                  error
}

// ProcessDocument ingests a document's structured extraction result into
// the graph and returns the number of nodes and relationships created.
//
// Ingestion is idempotent per document id: a document already recorded in
// the processed registry returns (0, 0) without touching the graph. Batch
// semantics are best-effort: each node or relationship creation failure is
// logged and skipped, and the final partial counts are still reported as
// success.
func (e *Engine) ProcessDocument(ctx context.Context, result *extract.Result) (int, int, error) {
	if result == nil {
		return 0, 0, fmt.Errorf("nil extraction result: %w", ErrInvalidInput)
	}
	if err := result.Validate(); err != nil {
		return 0, 0, fmt.Errorf("invalid extraction result: %v: %w", err, ErrDocumentProcessing)
	}

	seen, err := e.processed.Contains(ctx, result.DocumentID)
	if err != nil {
		return 0, 0, fmt.Errorf("processed-document lookup for %s: %v: %w", result.DocumentID, err, ErrDocumentProcessing)
	}
	if seen {
		logger.Info("[Ingest] Document already processed, skipping", "document_id", result.DocumentID)
		return 0, 0, nil
	}

	logger.Info("[Ingest] Processing document", "document_id", result.DocumentID,
		"objectives", len(result.LearningObjectives),
		"competencies", len(result.Competencies),
		"procedures", len(result.Procedures))

	nodesCreated := 0
	relsCreated := 0

	objectiveIDs := make(map[string]string, len(result.LearningObjectives))
	for _, objective := range result.LearningObjectives {
		id, ok := e.ingestNode(ctx, common.KnowledgeNode{
			Label:          objective.Description,
			Type:           common.NodeTypeLearningObjective,
			Confidence:     objectiveConfidence,
			SourceDocument: result.DocumentID,
			Tags:           objectiveTags(objective.Category),
			Properties: map[string]string{
				"objective_id": objective.ID,
				"category":     objective.Category,
				"importance":   strconv.FormatFloat(objective.Importance, 'f', -1, 64),
			},
		}, &nodesCreated)
		if ok {
			objectiveIDs[objective.ID] = id
		}
	}

	competencyIDs := make(map[string]string, len(result.Competencies))
	for _, competency := range result.Competencies {
		id, ok := e.ingestNode(ctx, common.KnowledgeNode{
			Label:          competency.Name,
			Type:           common.NodeTypeCompetency,
			Confidence:     competencyConfidence,
			SourceDocument: result.DocumentID,
			Summary:        competency.Description,
			Properties: map[string]string{
				"competency_id":       competency.ID,
				"assessment_criteria": strings.Join(competency.AssessmentCriteria, listDelimiter),
			},
		}, &nodesCreated)
		if ok {
			competencyIDs[competency.ID] = id
		}
	}

	procedureIDs := make(map[string]string, len(result.Procedures))
	for _, procedure := range result.Procedures {
		id, ok := e.ingestNode(ctx, common.KnowledgeNode{
			Label:          procedure.Name,
			Type:           common.NodeTypeProcedure,
			Confidence:     procedureConfidence,
			SourceDocument: result.DocumentID,
			Summary:        procedure.Description,
			Properties: map[string]string{
				"procedure_id":          procedure.ID,
				"steps":                 strings.Join(procedure.Steps, listDelimiter),
				"safety_considerations": strings.Join(procedure.SafetyConsiderations, listDelimiter),
			},
		}, &nodesCreated)
		if ok {
			procedureIDs[procedure.ID] = id
		}
	}

	// One Regulation node per distinct regulation name, whether referenced
	// through the citation mapping or an objective's related regulations.
	regulationIDs := make(map[string]string)
	ingestRegulation := func(name, citation string) {
		if name == "" {
			return
		}
		if _, ok := regulationIDs[name]; ok {
			return
		}
		props := map[string]string{}
		if citation != "" {
			props["citation"] = citation
		}
		id, ok := e.ingestNode(ctx, common.KnowledgeNode{
			Label:          name,
			Type:           common.NodeTypeRegulation,
			Confidence:     regulationConfidence,
			SourceDocument: result.DocumentID,
			Properties:     props,
		}, &nodesCreated)
		if ok {
			regulationIDs[name] = id
		}
	}
	for name, citation := range result.RegulatoryMappings {
		ingestRegulation(name, citation)
	}
	for _, objective := range result.LearningObjectives {
		for _, name := range objective.RelatedRegulations {
			ingestRegulation(name, result.RegulatoryMappings[name])
		}
	}

	for entityType, values := range result.Entities {
		for _, value := range values {
			e.ingestNode(ctx, common.KnowledgeNode{
				Label:          value,
				Type:           common.NodeTypeEntity,
				Confidence:     entityConfidence,
				SourceDocument: result.DocumentID,
				Properties:     map[string]string{"entity_type": entityType},
			}, &nodesCreated)
		}
	}

	documentID, documentOK := e.ingestNode(ctx, common.KnowledgeNode{
		Label:          result.DocumentID,
		Type:           common.NodeTypeDocument,
		Confidence:     documentConfidence,
		SourceDocument: result.DocumentID,
		Summary:        result.Summary,
		Tags:           result.Tags,
	}, &nodesCreated)

	// Relationships are only drawn between nodes created in this batch.
	for _, objective := range result.LearningObjectives {
		sourceID, ok := objectiveIDs[objective.ID]
		if !ok {
			continue
		}
		for _, name := range objective.RelatedRegulations {
			if regID, ok := regulationIDs[name]; ok {
				e.ingestRelationship(ctx, sourceID, regID, common.TypeRegulatory, "COMPLIES_WITH", 0.9, result.DocumentID, &relsCreated)
			}
		}
		for _, prereq := range objective.Prerequisites {
			if prereqID, ok := objectiveIDs[prereq]; ok {
				e.ingestRelationship(ctx, prereqID, sourceID, common.TypeSequential, "PREREQUISITE_FOR", 0.85, result.DocumentID, &relsCreated)
			}
		}
	}

	if documentOK {
		for _, id := range objectiveIDs {
			e.ingestRelationship(ctx, documentID, id, common.TypeHierarchical, "CONTAINS", 1.0, result.DocumentID, &relsCreated)
		}
		for _, id := range competencyIDs {
			e.ingestRelationship(ctx, documentID, id, common.TypeHierarchical, "CONTAINS", 1.0, result.DocumentID, &relsCreated)
		}
		for _, id := range procedureIDs {
			e.ingestRelationship(ctx, documentID, id, common.TypeHierarchical, "CONTAINS", 1.0, result.DocumentID, &relsCreated)
		}
	}

	for _, competency := range result.Competencies {
		sourceID, ok := competencyIDs[competency.ID]
		if !ok {
			continue
		}
		for _, objective := range competency.RelatedObjectives {
			if targetID, ok := objectiveIDs[objective]; ok {
				e.ingestRelationship(ctx, sourceID, targetID, common.TypeTraining, "ASSESSES", 0.8, result.DocumentID, &relsCreated)
			}
		}
	}

	for _, procedure := range result.Procedures {
		sourceID, ok := procedureIDs[procedure.ID]
		if !ok {
			continue
		}
		for _, competency := range procedure.RelatedCompetencies {
			if targetID, ok := competencyIDs[competency]; ok {
				e.ingestRelationship(ctx, sourceID, targetID, common.TypeTraining, "DEMONSTRATES", 0.85, result.DocumentID, &relsCreated)
			}
		}
	}

	if err := e.processed.Add(ctx, result.DocumentID); err != nil {
		logger.Error("[Ingest] Failed to record processed document", "document_id", result.DocumentID, "err", err)
	}

	logger.Info("[Ingest] Document processed", "document_id", result.DocumentID,
		"nodes_created", nodesCreated, "relationships_created", relsCreated)
	return nodesCreated, relsCreated, nil
}

// ProcessDocumentAsync runs ProcessDocument on a worker goroutine and
// returns a handle for the result. In-flight ingestion cannot be canceled:
// discarding the handle does not stop the work.
func (e *Engine) ProcessDocumentAsync(ctx context.Context, result *extract.Result) <-chan IngestResult {
	out := make(chan IngestResult, 1)
	go func() {
		defer close(out)
		nodes, rels, err := e.ProcessDocument(context.WithoutCancel(ctx), result)
		out <- IngestResult{NodesCreated: nodes, RelationshipsCreated: rels, Err: err}
	}()
	return out
}

func (e *Engine) ingestNode(ctx context.Context, node common.KnowledgeNode, created *int) (string, bool) {
	id, err := e.CreateNode(ctx, node)
	if err != nil {
		logger.Error("[Ingest] Failed to create node, skipping", "label", node.Label, "type", node.Type, "err", err)
		return "", false
	}
	*created++
	return id, true
}

func (e *Engine) ingestRelationship(ctx context.Context, sourceID, targetID string, relType common.RelationshipType, label string, strength float64, documentID string, created *int) {
	_, err := e.CreateRelationship(ctx, common.KnowledgeRelationship{
		SourceID:       sourceID,
		TargetID:       targetID,
		Type:           relType,
		Label:          label,
		Strength:       strength,
		Confidence:     strength,
		SourceDocument: documentID,
	})
	if err != nil {
		logger.Error("[Ingest] Failed to create relationship, skipping",
			"source", sourceID, "target", targetID, "label", label, "err", err)
		return
	}
	*created++
}

func objectiveTags(category string) []string {
	tags := []string{"learning_objective"}
	if category != "" {
		tags = append(tags, category)
	}
	return tags
}
