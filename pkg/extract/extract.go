// Package extract defines the structured result produced by the document
// processing pipeline and consumed by graph ingestion. The extraction
// heuristics themselves live upstream; this package only carries the
// contract.
package extract

import "github.com/go-playground/validator/v10"

// LearningObjective is a single objective extracted from a document.
type LearningObjective struct {
	ID                 string   `json:"id" validate:"required"`
	Description        string   `json:"description" validate:"required"`
	Category           string   `json:"category"`
	Importance         float64  `json:"importance" validate:"gte=0,lte=1"`
	RelatedRegulations []string `json:"related_regulations"`
	Prerequisites      []string `json:"prerequisites"`
}

// Competency is a skill or ability a learner should demonstrate.
type Competency struct {
	ID                 string   `json:"id" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Description        string   `json:"description"`
	AssessmentCriteria []string `json:"assessment_criteria"`
	RelatedObjectives  []string `json:"related_objectives"`
}

// Procedure is an operational procedure with ordered steps.
type Procedure struct {
	ID                   string   `json:"id" validate:"required"`
	Name                 string   `json:"name" validate:"required"`
	Description          string   `json:"description"`
	Steps                []string `json:"steps"`
	SafetyConsiderations []string `json:"safety_considerations"`
	RelatedCompetencies  []string `json:"related_competencies"`
}

// Result is the full structured extraction result for one document.
// RegulatoryMappings maps regulation names to their citation text; Entities
// maps an entity type to the values recognized under it.
type Result struct {
	DocumentID         string              `json:"document_id" validate:"required"`
	LearningObjectives []LearningObjective `json:"learning_objectives" validate:"dive"`
	Competencies       []Competency        `json:"competencies" validate:"dive"`
	Procedures         []Procedure         `json:"procedures" validate:"dive"`
	RegulatoryMappings map[string]string   `json:"regulatory_mappings"`
	Entities           map[string][]string `json:"entities"`
	Summary            string              `json:"summary"`
	Tags               []string            `json:"tags"`
}

var validate = validator.New()

// Validate checks the result against the contract's field constraints.
func (r *Result) Validate() error {
	return validate.Struct(r)
}
