package kg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/store"
)

// Well-known property keys used to round-trip typed fields through the
// store's generic property mapping.
const (
	propSourceDocument  = "source_document"
	propSourceLocation  = "source_location"
	propConfidence      = "confidence"
	propTags            = "tags"
	propSummary         = "summary"
	propCreatedBy       = "created_by"
	propModifiedBy      = "modified_by"
	propCreatedAt       = "created_at"
	propModifiedAt      = "modified_at"
	propStrength        = "strength"
	propBidirectional   = "bidirectional"
	propTemporalContext = "temporal_context"
)

// propTypeOverride is where stores that cannot retype an edge in place
// record type changes. The underscore prefix keeps it out of the user
// property namespace.
const propTypeOverride = "__type"

const tagDelimiter = ","

// CreateNode persists a node, assigning an id when none is set, and
// populates the node cache on success. Confidence below the configured
// minimum is logged, not rejected. Returns the resolved id.
func (e *Engine) CreateNode(ctx context.Context, node common.KnowledgeNode) (string, error) {
	if node.ID == "" {
		id, err := e.generateNodeID(ctx, &node)
		if err != nil {
			return "", err
		}
		node.ID = id
	}
	if node.Confidence < e.minConfidence {
		logger.Warn("[Engine] Node confidence below threshold",
			"node_id", node.ID, "confidence", node.Confidence, "threshold", e.minConfidence)
	}
	if node.CreatedAt == "" {
		node.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := e.store.CreateNode(ctx, node.ID, node.Label, node.Type, nodeProperties(&node)); err != nil {
		return "", fmt.Errorf("create node %s: %v: %w", node.ID, err, ErrGraphOperation)
	}
	e.nodeCache.Put(node.ID, node)
	return node.ID, nil
}

// GetNode returns the node with the given id, cache-first with store
// fallback. A successful fallback read repopulates the cache.
func (e *Engine) GetNode(ctx context.Context, id string) (*common.KnowledgeNode, error) {
	if node, ok := e.nodeCache.Get(id); ok {
		return &node, nil
	}

	record, err := e.store.GetNode(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
		}
		return nil, fmt.Errorf("get node %s: %v: %w", id, err, ErrGraphOperation)
	}

	node := nodeFromRecord(id, record)
	e.nodeCache.Put(id, node)
	return &node, nil
}

// UpdateNode overwrites an existing node in the store and refreshes its
// cache entry. The node must already exist.
func (e *Engine) UpdateNode(ctx context.Context, node common.KnowledgeNode) error {
	if node.ID == "" {
		return fmt.Errorf("update node: missing id: %w", ErrInvalidInput)
	}
	if _, err := e.GetNode(ctx, node.ID); err != nil {
		return err
	}
	if node.Confidence < e.minConfidence {
		logger.Warn("[Engine] Node confidence below threshold",
			"node_id", node.ID, "confidence", node.Confidence, "threshold", e.minConfidence)
	}
	node.ModifiedAt = time.Now().UTC().Format(time.RFC3339)

	if err := e.store.UpdateNode(ctx, node.ID, node.Label, node.Type, nodeProperties(&node)); err != nil {
		return fmt.Errorf("update node %s: %v: %w", node.ID, err, ErrGraphOperation)
	}
	e.nodeCache.Invalidate(node.ID)
	e.nodeCache.Put(node.ID, node)
	return nil
}

// DeleteNode removes an existing node from the store and purges its cache
// entry.
func (e *Engine) DeleteNode(ctx context.Context, id string) error {
	if _, err := e.GetNode(ctx, id); err != nil {
		return err
	}
	if err := e.store.DeleteNode(ctx, id); err != nil {
		return fmt.Errorf("delete node %s: %v: %w", id, err, ErrGraphOperation)
	}
	e.nodeCache.Invalidate(id)
	return nil
}

// CreateRelationship persists a relationship after resolving both endpoints
// through the node-read path. Fails with ErrNodeNotFound when either
// endpoint is missing. Returns the resolved id.
func (e *Engine) CreateRelationship(ctx context.Context, rel common.KnowledgeRelationship) (string, error) {
	if _, err := e.GetNode(ctx, rel.SourceID); err != nil {
		return "", fmt.Errorf("relationship source: %w", err)
	}
	if _, err := e.GetNode(ctx, rel.TargetID); err != nil {
		return "", fmt.Errorf("relationship target: %w", err)
	}

	if rel.ID == "" {
		id, err := e.generateRelationshipID(ctx, &rel)
		if err != nil {
			return "", err
		}
		rel.ID = id
	}
	if rel.Confidence < e.minConfidence {
		logger.Warn("[Engine] Relationship confidence below threshold",
			"relationship_id", rel.ID, "confidence", rel.Confidence, "threshold", e.minConfidence)
	}
	if rel.CreatedAt == "" {
		rel.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	err := e.store.CreateRelationship(ctx, rel.ID, rel.SourceID, rel.TargetID, rel.Type.String(), rel.Label, relationshipProperties(&rel))
	if err != nil {
		return "", fmt.Errorf("create relationship %s: %v: %w", rel.ID, err, ErrGraphOperation)
	}
	e.relCache.Put(rel.ID, rel)
	return rel.ID, nil
}

// GetRelationship returns the relationship with the given id, cache-first
// with store fallback.
func (e *Engine) GetRelationship(ctx context.Context, id string) (*common.KnowledgeRelationship, error) {
	if rel, ok := e.relCache.Get(id); ok {
		return &rel, nil
	}

	record, err := e.store.GetRelationship(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("relationship %s: %w", id, ErrRelationshipNotFound)
		}
		return nil, fmt.Errorf("get relationship %s: %v: %w", id, err, ErrGraphOperation)
	}

	rel := relationshipFromRecord(id, record)
	e.relCache.Put(id, rel)
	return &rel, nil
}

// UpdateRelationship overwrites an existing relationship and refreshes its
// cache entry. Endpoints are immutable; only type, label, scores and
// properties are written.
func (e *Engine) UpdateRelationship(ctx context.Context, rel common.KnowledgeRelationship) error {
	if rel.ID == "" {
		return fmt.Errorf("update relationship: missing id: %w", ErrInvalidInput)
	}
	existing, err := e.GetRelationship(ctx, rel.ID)
	if err != nil {
		return err
	}
	rel.SourceID = existing.SourceID
	rel.TargetID = existing.TargetID
	rel.ModifiedAt = time.Now().UTC().Format(time.RFC3339)

	if err := e.store.UpdateRelationship(ctx, rel.ID, rel.Type.String(), rel.Label, relationshipProperties(&rel)); err != nil {
		return fmt.Errorf("update relationship %s: %v: %w", rel.ID, err, ErrGraphOperation)
	}
	e.relCache.Invalidate(rel.ID)
	e.relCache.Put(rel.ID, rel)
	return nil
}

// DeleteRelationship removes an existing relationship and purges its cache
// entry.
func (e *Engine) DeleteRelationship(ctx context.Context, id string) error {
	if _, err := e.GetRelationship(ctx, id); err != nil {
		return err
	}
	if err := e.store.DeleteRelationship(ctx, id); err != nil {
		return fmt.Errorf("delete relationship %s: %v: %w", id, err, ErrGraphOperation)
	}
	e.relCache.Invalidate(id)
	return nil
}

// nodeProperties flattens a node's typed optional fields into the store's
// generic property mapping, alongside the free-form properties.
func nodeProperties(node *common.KnowledgeNode) map[string]string {
	props := make(map[string]string, len(node.Properties)+8)
	for k, v := range node.Properties {
		props[k] = v
	}
	props[propConfidence] = strconv.FormatFloat(node.Confidence, 'f', -1, 64)
	if node.SourceDocument != "" {
		props[propSourceDocument] = node.SourceDocument
	}
	if node.SourceLocation != "" {
		props[propSourceLocation] = node.SourceLocation
	}
	if node.Summary != "" {
		props[propSummary] = node.Summary
	}
	if len(node.Tags) > 0 {
		props[propTags] = strings.Join(node.Tags, tagDelimiter)
	}
	if node.CreatedBy != "" {
		props[propCreatedBy] = node.CreatedBy
	}
	if node.ModifiedBy != "" {
		props[propModifiedBy] = node.ModifiedBy
	}
	if node.CreatedAt != "" {
		props[propCreatedAt] = node.CreatedAt
	}
	if node.ModifiedAt != "" {
		props[propModifiedAt] = node.ModifiedAt
	}
	return props
}

// nodeFromRecord parses the well-known optional properties out of a store
// record into typed fields; everything else stays in the property mapping.
func nodeFromRecord(id string, record *store.NodeRecord) common.KnowledgeNode {
	props := make(map[string]string, len(record.Properties))
	for k, v := range record.Properties {
		props[k] = v
	}

	node := common.KnowledgeNode{
		ID:         id,
		Label:      record.Label,
		Type:       record.Type,
		Confidence: takeFloat(props, propConfidence),
	}
	node.SourceDocument = takeString(props, propSourceDocument)
	node.SourceLocation = takeString(props, propSourceLocation)
	node.Summary = takeString(props, propSummary)
	if tags := takeString(props, propTags); tags != "" {
		node.Tags = strings.Split(tags, tagDelimiter)
	}
	node.CreatedBy = takeString(props, propCreatedBy)
	node.ModifiedBy = takeString(props, propModifiedBy)
	node.CreatedAt = takeString(props, propCreatedAt)
	node.ModifiedAt = takeString(props, propModifiedAt)
	node.Properties = props
	return node
}

func relationshipProperties(rel *common.KnowledgeRelationship) map[string]string {
	props := make(map[string]string, len(rel.Properties)+8)
	for k, v := range rel.Properties {
		props[k] = v
	}
	props[propStrength] = strconv.FormatFloat(rel.Strength, 'f', -1, 64)
	props[propConfidence] = strconv.FormatFloat(rel.Confidence, 'f', -1, 64)
	if rel.SourceDocument != "" {
		props[propSourceDocument] = rel.SourceDocument
	}
	if rel.Bidirectional != "" {
		props[propBidirectional] = rel.Bidirectional
	}
	if rel.TemporalContext != "" {
		props[propTemporalContext] = rel.TemporalContext
	}
	if rel.CreatedBy != "" {
		props[propCreatedBy] = rel.CreatedBy
	}
	if rel.ModifiedBy != "" {
		props[propModifiedBy] = rel.ModifiedBy
	}
	if rel.CreatedAt != "" {
		props[propCreatedAt] = rel.CreatedAt
	}
	if rel.ModifiedAt != "" {
		props[propModifiedAt] = rel.ModifiedAt
	}
	return props
}

func relationshipFromRecord(id string, record *store.RelationshipRecord) common.KnowledgeRelationship {
	props := make(map[string]string, len(record.Properties))
	for k, v := range record.Properties {
		props[k] = v
	}

	// A recorded type change wins over the structural type when present.
	typeName := record.Type
	if override := takeString(props, propTypeOverride); override != "" {
		typeName = override
	}

	rel := common.KnowledgeRelationship{
		ID:         id,
		SourceID:   record.SourceID,
		TargetID:   record.TargetID,
		Type:       common.ParseRelationshipType(typeName),
		Label:      record.Label,
		Strength:   takeFloat(props, propStrength),
		Confidence: takeFloat(props, propConfidence),
	}
	rel.SourceDocument = takeString(props, propSourceDocument)
	rel.Bidirectional = takeString(props, propBidirectional)
	rel.TemporalContext = takeString(props, propTemporalContext)
	rel.CreatedBy = takeString(props, propCreatedBy)
	rel.ModifiedBy = takeString(props, propModifiedBy)
	rel.CreatedAt = takeString(props, propCreatedAt)
	rel.ModifiedAt = takeString(props, propModifiedAt)
	rel.Properties = props
	return rel
}

func takeString(props map[string]string, key string) string {
	value := props[key]
	delete(props, key)
	return value
}

func takeFloat(props map[string]string, key string) float64 {
	raw := takeString(props, key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
