package common

// NodeFilter describes node predicates for a structured query. All populated
// predicates are ANDed together, except Tags, which is an OR-group: a node
// matches when it carries any of the listed tags.
type NodeFilter struct {
	Type            string            `json:"type,omitempty"`
	Labels          []string          `json:"labels,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	SourceDocuments []string          `json:"source_documents,omitempty"`
	MinConfidence   float64           `json:"min_confidence,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
}

// RelationshipFilter describes relationship predicates for a structured
// query. All populated predicates are ANDed together.
type RelationshipFilter struct {
	Types         []RelationshipType `json:"types,omitempty"`
	Labels        []string           `json:"labels,omitempty"`
	MinStrength   float64            `json:"min_strength,omitempty"`
	MinConfidence float64            `json:"min_confidence,omitempty"`
	Properties    map[string]string  `json:"properties,omitempty"`
}

// QueryFilter is a structured filter description translated by the engine
// into a single parameterized graph-store query. Node and relationship
// predicate groups are ANDed together when both are present.
type QueryFilter struct {
	Node         *NodeFilter         `json:"node,omitempty"`
	Relationship *RelationshipFilter `json:"relationship,omitempty"`
	StartNodeID  string              `json:"start_node_id,omitempty"`
	Limit        int                 `json:"limit,omitempty"`
}

// IsEmpty reports whether the filter carries no predicates at all.
func (f *QueryFilter) IsEmpty() bool {
	return f == nil || (f.Node == nil && f.Relationship == nil && f.StartNodeID == "" && f.Limit == 0)
}
