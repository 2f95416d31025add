package common

// KnowledgeSubgraph is a bundle of nodes and relationships plus free-form
// metadata. A subgraph is not guaranteed to be node/edge consistent: it may
// contain relationships whose endpoints are not in its node list, e.g.
// path-finding results.
type KnowledgeSubgraph struct {
	Nodes         []KnowledgeNode         `json:"nodes"`
	Relationships []KnowledgeRelationship `json:"relationships"`
	Metadata      map[string]string       `json:"metadata,omitempty"`
}

// MergeStrategy names the policy used to resolve conflicts between two
// subgraphs' overlapping entities.
type MergeStrategy string

const (
	MergePreferFirst      MergeStrategy = "prefer_subgraph1"
	MergePreferSecond     MergeStrategy = "prefer_subgraph2"
	MergeHigherConfidence MergeStrategy = "prefer_higher_confidence"
	MergeProperties       MergeStrategy = "merge_properties"
)

// NodeByID returns the node with the given id, or nil if absent.
func (s *KnowledgeSubgraph) NodeByID(id string) *KnowledgeNode {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// RelationshipByID returns the relationship with the given id, or nil if absent.
func (s *KnowledgeSubgraph) RelationshipByID(id string) *KnowledgeRelationship {
	for i := range s.Relationships {
		if s.Relationships[i].ID == id {
			return &s.Relationships[i]
		}
	}
	return nil
}
