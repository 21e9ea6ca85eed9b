package dictionary

import (
	"time"

	"github.com/google/uuid"
)

// CustomConcept is a user-defined concept absent from the reference
// vocabulary. Resolved sets include it verbatim, never expanded.
type CustomConcept struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	GeneralConceptID uuid.UUID `gorm:"type:uuid;not null;index" json:"general_concept_id"`

	VocabularyID string `gorm:"type:text;not null" json:"vocabulary_id"`
	ConceptCode  string `gorm:"type:text;not null" json:"concept_code"`
	ConceptName  string `gorm:"type:text;not null" json:"concept_name"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CustomConcept) TableName() string { return "custom_concept" }
