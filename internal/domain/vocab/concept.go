package vocab

// Concept is one row of the read-only reference vocabulary. The table is
// loaded by the vocabulary ETL, never written by this service.
type Concept struct {
	ConceptID       int64  `gorm:"column:concept_id;primaryKey" json:"concept_id"`
	ConceptName     string `gorm:"column:concept_name;type:text;not null;index" json:"concept_name"`
	DomainID        string `gorm:"column:domain_id;type:text;not null;index" json:"domain_id"`
	VocabularyID    string `gorm:"column:vocabulary_id;type:text;not null;index" json:"vocabulary_id"`
	ConceptClassID  string `gorm:"column:concept_class_id;type:text;not null;index" json:"concept_class_id"`
	StandardConcept string `gorm:"column:standard_concept;type:text" json:"standard_concept"`
	ConceptCode     string `gorm:"column:concept_code;type:text;not null;index" json:"concept_code"`
	InvalidReason   string `gorm:"column:invalid_reason;type:text" json:"invalid_reason"`
}

func (Concept) TableName() string { return "concept" }

// StandardRank orders concepts standard < classification < non-standard.
func (c Concept) StandardRank() int {
	switch c.StandardConcept {
	case "S":
		return 0
	case "C":
		return 1
	default:
		return 2
	}
}

// Validity resolves the display label from the invalidation flag.
func (c Concept) Validity() string {
	if c.InvalidReason == "" {
		return "Valid"
	}
	return "Invalid"
}
