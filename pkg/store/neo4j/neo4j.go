// Package neo4j implements the store.GraphStore adapter on top of the
// official Neo4j Bolt driver.
package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/atlasops/traingraph/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Nodes are stored with a single shared label; the domain type lives in the
// `type` property so it can be filtered with parameters.
const nodeLabel = "KnowledgeNode"

// Relationship types cannot be parameterized in Cypher. They are produced by
// the engine's closed enum, but are sanitized anyway before interpolation.
var relTypePattern = regexp.MustCompile(`[^A-Z0-9_]`)

// Store is a GraphStore backed by a Neo4j (or Bolt-compatible) server.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// Params configures a new Store.
type Params struct {
	URI      string
	Username string
	Password string
	Database string
}

// New connects to the configured Bolt endpoint and verifies connectivity.
func New(ctx context.Context, params Params) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", params.URI, err)
	}
	return &Store{driver: driver, database: params.Database}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) run(ctx context.Context, text string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, text, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// CreateNode inserts a node with the given id, label, type and properties.
func (s *Store) CreateNode(ctx context.Context, id, label, nodeType string, properties map[string]string) error {
	_, err := s.run(ctx,
		"CREATE (n:"+nodeLabel+" {id: $id, label: $label, type: $type}) SET n += $props",
		map[string]any{"id": id, "label": label, "type": nodeType, "props": toAnyMap(properties)},
	)
	if err != nil {
		return fmt.Errorf("failed to create node %s: %w", id, err)
	}
	return nil
}

// GetNode fetches a node by id. Returns store.ErrNotFound when absent.
func (s *Store) GetNode(ctx context.Context, id string) (*store.NodeRecord, error) {
	records, err := s.run(ctx,
		"MATCH (n:"+nodeLabel+" {id: $id}) RETURN n.label AS label, n.type AS type, properties(n) AS props",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, store.ErrNotFound)
	}
	rec := records[0]
	node := &store.NodeRecord{
		Label:      stringValue(rec, "label"),
		Type:       stringValue(rec, "type"),
		Properties: propsValue(rec, "props"),
	}
	// id/label/type are stored alongside the free-form properties; strip
	// them so the engine sees only the property mapping.
	delete(node.Properties, "id")
	delete(node.Properties, "label")
	delete(node.Properties, "type")
	return node, nil
}

// UpdateNode overwrites a node's label, type and properties.
func (s *Store) UpdateNode(ctx context.Context, id, label, nodeType string, properties map[string]string) error {
	records, err := s.run(ctx,
		"MATCH (n:"+nodeLabel+" {id: $id}) SET n = {id: $id, label: $label, type: $type} SET n += $props RETURN n.id AS id",
		map[string]any{"id": id, "label": label, "type": nodeType, "props": toAnyMap(properties)},
	)
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", id, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("node %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteNode removes a node and any relationships attached to it.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.run(ctx,
		"MATCH (n:"+nodeLabel+" {id: $id}) DETACH DELETE n",
		map[string]any{"id": id},
	)
	if err != nil {
		return fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	return nil
}

// CreateRelationship inserts a typed relationship between two existing nodes.
func (s *Store) CreateRelationship(ctx context.Context, id, sourceID, targetID, relType, label string, properties map[string]string) error {
	text := fmt.Sprintf(
		"MATCH (a:%s {id: $sourceId}), (b:%s {id: $targetId}) CREATE (a)-[r:%s {id: $id, label: $label}]->(b) SET r += $props",
		nodeLabel, nodeLabel, sanitizeRelType(relType),
	)
	_, err := s.run(ctx, text, map[string]any{
		"id": id, "sourceId": sourceID, "targetId": targetID,
		"label": label, "props": toAnyMap(properties),
	})
	if err != nil {
		return fmt.Errorf("failed to create relationship %s: %w", id, err)
	}
	return nil
}

// GetRelationship fetches a relationship by id. Returns store.ErrNotFound
// when absent.
func (s *Store) GetRelationship(ctx context.Context, id string) (*store.RelationshipRecord, error) {
	records, err := s.run(ctx,
		"MATCH (a)-[r {id: $id}]->(b) RETURN a.id AS sourceId, b.id AS targetId, type(r) AS type, r.label AS label, properties(r) AS props",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("relationship %s: %w", id, store.ErrNotFound)
	}
	rec := records[0]
	rel := &store.RelationshipRecord{
		SourceID:   stringValue(rec, "sourceId"),
		TargetID:   stringValue(rec, "targetId"),
		Type:       stringValue(rec, "type"),
		Label:      stringValue(rec, "label"),
		Properties: propsValue(rec, "props"),
	}
	delete(rel.Properties, "id")
	delete(rel.Properties, "label")
	return rel, nil
}

// UpdateRelationship overwrites a relationship's label and properties. The
// stored relationship type is immutable in Cypher; the engine records type
// changes in the reserved `__type` property instead, keeping user properties
// named `type` untouched.
func (s *Store) UpdateRelationship(ctx context.Context, id, relType, label string, properties map[string]string) error {
	records, err := s.run(ctx,
		"MATCH ()-[r {id: $id}]->() SET r = {id: $id, label: $label, __type: $type} SET r += $props RETURN r.id AS id",
		map[string]any{"id": id, "label": label, "type": relType, "props": toAnyMap(properties)},
	)
	if err != nil {
		return fmt.Errorf("failed to update relationship %s: %w", id, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("relationship %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteRelationship removes a relationship by id.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	_, err := s.run(ctx,
		"MATCH ()-[r {id: $id}]->() DELETE r",
		map[string]any{"id": id},
	)
	if err != nil {
		return fmt.Errorf("failed to delete relationship %s: %w", id, err)
	}
	return nil
}

// ExecuteQuery runs a raw parameterized query and stringifies every returned
// value into row mappings.
func (s *Store) ExecuteQuery(ctx context.Context, q store.Query) ([]store.Row, error) {
	records, err := s.run(ctx, q.Text, q.Params)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		row := make(store.Row, len(rec.Keys))
		for _, key := range rec.Keys {
			value, ok := rec.Get(key)
			if !ok || value == nil {
				continue
			}
			row[key] = stringify(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sanitizeRelType(relType string) string {
	cleaned := relTypePattern.ReplaceAllString(relType, "")
	if cleaned == "" {
		return "ASSOCIATIVE"
	}
	return cleaned
}

func toAnyMap(properties map[string]string) map[string]any {
	out := make(map[string]any, len(properties))
	for k, v := range properties {
		out[k] = v
	}
	return out
}

func stringValue(rec *neo4j.Record, key string) string {
	value, ok := rec.Get(key)
	if !ok || value == nil {
		return ""
	}
	return stringify(value)
}

func propsValue(rec *neo4j.Record, key string) map[string]string {
	value, ok := rec.Get(key)
	if !ok || value == nil {
		return map[string]string{}
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	return out
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
