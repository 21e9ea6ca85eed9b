package alignment

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SourceConceptRow is one row of the uploaded source table. RowID is the
// stable 1-based position inside the alignment; rows are immutable after
// upload.
type SourceConceptRow struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	AlignmentID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_source_row_position,unique,priority:1" json:"alignment_id"`
	RowID       int       `gorm:"not null;index:idx_source_row_position,unique,priority:2" json:"row_id"`

	SourceCode         string `gorm:"type:text;not null;default:'';index" json:"source_code"`
	SourceVocabularyID string `gorm:"type:text;not null;default:''" json:"source_vocabulary_id"`
	SourceName         string `gorm:"type:text;not null;default:''" json:"source_name"`

	// Fields carries the full uploaded row keyed by column name.
	Fields datatypes.JSON `gorm:"type:jsonb" json:"fields"`
}

func (SourceConceptRow) TableName() string { return "source_concept_row" }
