package common

// KnowledgeNode represents a node in the knowledge graph. A node can be a
// learning objective, competency, procedure, regulation, document, or any
// other relevant domain concept.
//
// The ID is immutable once assigned by the engine. Confidence expresses
// extraction or assertion certainty in [0, 1] and is advisory: values below
// the configured minimum are logged, not rejected.
type KnowledgeNode struct {
	ID             string            `json:"id"`
	Label          string            `json:"label"`
	Type           string            `json:"type"`
	Properties     map[string]string `json:"properties,omitempty"`
	Confidence     float64           `json:"confidence"`
	SourceDocument string            `json:"source_document,omitempty"`
	SourceLocation string            `json:"source_location,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	CreatedBy      string            `json:"created_by,omitempty"`
	ModifiedBy     string            `json:"modified_by,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
	ModifiedAt     string            `json:"modified_at,omitempty"`
}

// Well-known node types produced by document ingestion.
const (
	NodeTypeLearningObjective = "LearningObjective"
	NodeTypeCompetency        = "Competency"
	NodeTypeProcedure         = "Procedure"
	NodeTypeRegulation        = "Regulation"
	NodeTypeEntity            = "Entity"
	NodeTypeDocument          = "Document"
)
