package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get operations when no record exists for the
// requested id.
var ErrNotFound = errors.New("record not found")

// Query is a parameterized graph-store query. User-controlled values are
// always carried in Params, never interpolated into Text.
type Query struct {
	Text   string
	Params map[string]any
}

// Row is a single result row keyed by return-clause alias. Values are
// stringified by the adapter.
type Row map[string]string

// NodeRecord is the store-level view of a node.
type NodeRecord struct {
	Label      string
	Type       string
	Properties map[string]string
}

// RelationshipRecord is the store-level view of a relationship.
type RelationshipRecord struct {
	SourceID   string
	TargetID   string
	Type       string
	Label      string
	Properties map[string]string
}

// GraphStore is the persistence adapter the engine sits on top of. It
// executes CRUD operations and raw parameterized queries against the actual
// graph backend.
//
// Implementations must return ErrNotFound (possibly wrapped) from GetNode
// and GetRelationship when the id does not resolve.
type GraphStore interface {
	CreateNode(ctx context.Context, id, label, nodeType string, properties map[string]string) error
	GetNode(ctx context.Context, id string) (*NodeRecord, error)
	UpdateNode(ctx context.Context, id, label, nodeType string, properties map[string]string) error
	DeleteNode(ctx context.Context, id string) error

	CreateRelationship(ctx context.Context, id, sourceID, targetID, relType, label string, properties map[string]string) error
	GetRelationship(ctx context.Context, id string) (*RelationshipRecord, error)
	UpdateRelationship(ctx context.Context, id, relType, label string, properties map[string]string) error
	DeleteRelationship(ctx context.Context, id string) error

	ExecuteQuery(ctx context.Context, q Query) ([]Row, error)
}
