package kg

import (
	"context"
	"fmt"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/nlp"
	"github.com/atlasops/traingraph/pkg/store"
)

// fakeStore is an in-memory GraphStore for engine tests.
type fakeStore struct {
	nodes map[string]store.NodeRecord
	rels  map[string]store.RelationshipRecord

	queries []store.Query
	queryFn func(q store.Query) ([]store.Row, error)

	failNextCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes: make(map[string]store.NodeRecord),
		rels:  make(map[string]store.RelationshipRecord),
	}
}

func (f *fakeStore) CreateNode(_ context.Context, id, label, nodeType string, properties map[string]string) error {
	if f.failNextCreate {
		f.failNextCreate = false
		return fmt.Errorf("store unavailable")
	}
	f.nodes[id] = store.NodeRecord{Label: label, Type: nodeType, Properties: copyProps(properties)}
	return nil
}

func (f *fakeStore) GetNode(_ context.Context, id string) (*store.NodeRecord, error) {
	record, ok := f.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	record.Properties = copyProps(record.Properties)
	return &record, nil
}

func (f *fakeStore) UpdateNode(_ context.Context, id, label, nodeType string, properties map[string]string) error {
	if _, ok := f.nodes[id]; !ok {
		return store.ErrNotFound
	}
	f.nodes[id] = store.NodeRecord{Label: label, Type: nodeType, Properties: copyProps(properties)}
	return nil
}

func (f *fakeStore) DeleteNode(_ context.Context, id string) error {
	delete(f.nodes, id)
	return nil
}

func (f *fakeStore) CreateRelationship(_ context.Context, id, sourceID, targetID, relType, label string, properties map[string]string) error {
	f.rels[id] = store.RelationshipRecord{
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       relType,
		Label:      label,
		Properties: copyProps(properties),
	}
	return nil
}

func (f *fakeStore) GetRelationship(_ context.Context, id string) (*store.RelationshipRecord, error) {
	record, ok := f.rels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	record.Properties = copyProps(record.Properties)
	return &record, nil
}

func (f *fakeStore) UpdateRelationship(_ context.Context, id, relType, label string, properties map[string]string) error {
	record, ok := f.rels[id]
	if !ok {
		return store.ErrNotFound
	}
	record.Type = relType
	record.Label = label
	record.Properties = copyProps(properties)
	f.rels[id] = record
	return nil
}

func (f *fakeStore) DeleteRelationship(_ context.Context, id string) error {
	delete(f.rels, id)
	return nil
}

func (f *fakeStore) ExecuteQuery(_ context.Context, q store.Query) ([]store.Row, error) {
	f.queries = append(f.queries, q)
	if f.queryFn != nil {
		return f.queryFn(q)
	}
	return nil, nil
}

func copyProps(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// collidingStore reports every node and relationship id as taken, so id
// allocation can never succeed.
type collidingStore struct {
	*fakeStore
}

func (c *collidingStore) GetNode(_ context.Context, id string) (*store.NodeRecord, error) {
	return &store.NodeRecord{Label: "taken", Type: "taken"}, nil
}

func (c *collidingStore) GetRelationship(_ context.Context, id string) (*store.RelationshipRecord, error) {
	return &store.RelationshipRecord{Type: "ASSOCIATIVE"}, nil
}

// fakeNLP is a canned nlp.Client for query and similarity tests.
type fakeNLP struct {
	filter     *common.QueryFilter
	filterErr  error
	entities   []nlp.Entity
	similarity float64
}

func (f *fakeNLP) ConvertToStructuredQuery(_ context.Context, text, contextHint, language string) (*common.QueryFilter, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	if f.filter == nil {
		return &common.QueryFilter{}, nil
	}
	return f.filter, nil
}

func (f *fakeNLP) ExtractEntities(_ context.Context, text string) ([]nlp.Entity, error) {
	return f.entities, nil
}

func (f *fakeNLP) CalculateSimilarity(_ context.Context, a, b string) (float64, error) {
	return f.similarity, nil
}
