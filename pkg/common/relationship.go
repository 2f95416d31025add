package common

// RelationshipType is the closed set of relationship categories supported by
// the graph. Unknown serialized values parse to TypeAssociative.
type RelationshipType int

const (
	TypeHierarchical RelationshipType = iota
	TypeSequential
	TypeCausal
	TypeTemporal
	TypeAssociative
	TypeRegulatory
	TypeTraining
	TypeCustom
)

var relationshipTypeNames = map[RelationshipType]string{
	TypeHierarchical: "HIERARCHICAL",
	TypeSequential:   "SEQUENTIAL",
	TypeCausal:       "CAUSAL",
	TypeTemporal:     "TEMPORAL",
	TypeAssociative:  "ASSOCIATIVE",
	TypeRegulatory:   "REGULATORY",
	TypeTraining:     "TRAINING",
	TypeCustom:       "CUSTOM",
}

var relationshipTypeValues = func() map[string]RelationshipType {
	m := make(map[string]RelationshipType, len(relationshipTypeNames))
	for t, name := range relationshipTypeNames {
		m[name] = t
	}
	return m
}()

// String returns the canonical serialized form of the relationship type.
func (t RelationshipType) String() string {
	if name, ok := relationshipTypeNames[t]; ok {
		return name
	}
	return relationshipTypeNames[TypeAssociative]
}

// ParseRelationshipType converts a serialized relationship type back to its
// enum value. Unrecognized input maps to TypeAssociative.
func ParseRelationshipType(s string) RelationshipType {
	if t, ok := relationshipTypeValues[s]; ok {
		return t
	}
	return TypeAssociative
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationshipType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RelationshipType) UnmarshalText(text []byte) error {
	*t = ParseRelationshipType(string(text))
	return nil
}

// KnowledgeRelationship represents a directed edge between two nodes.
// Relationships carry a strength score describing how tightly the endpoints
// are connected and a confidence score for the assertion itself.
//
// Multiple relationships between the same endpoints with distinct IDs are
// permitted; relationship existence does not imply edge uniqueness.
type KnowledgeRelationship struct {
	ID              string            `json:"id"`
	SourceID        string            `json:"source_id"`
	TargetID        string            `json:"target_id"`
	Type            RelationshipType  `json:"type"`
	Label           string            `json:"label"`
	Strength        float64           `json:"strength"`
	Confidence      float64           `json:"confidence"`
	Properties      map[string]string `json:"properties,omitempty"`
	SourceDocument  string            `json:"source_document,omitempty"`
	Bidirectional   string            `json:"bidirectional,omitempty"`
	TemporalContext string            `json:"temporal_context,omitempty"`
	CreatedBy       string            `json:"created_by,omitempty"`
	ModifiedBy      string            `json:"modified_by,omitempty"`
	CreatedAt       string            `json:"created_at,omitempty"`
	ModifiedAt      string            `json:"modified_at,omitempty"`
}
