package alignment

import (
	"time"

	"github.com/google/uuid"
)

// Mapping associates one source row with one target: a general concept, a
// vocabulary concept, a custom concept, or a general concept together with
// the concrete concept that resolves it. Unused target columns hold their
// zero sentinel (uuid.Nil / 0) rather than NULL so the uniqueness index
// enforces the no-duplicate-target rule on every driver.
type Mapping struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	AlignmentID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_mapping_identity,unique,priority:1" json:"alignment_id"`
	RowID       int       `gorm:"not null;index:idx_mapping_identity,unique,priority:2" json:"row_id"`

	GeneralConceptID uuid.UUID `gorm:"type:uuid;not null;default:'00000000-0000-0000-0000-000000000000';index:idx_mapping_identity,unique,priority:3" json:"general_concept_id"`
	ConceptID        int64     `gorm:"not null;default:0;index:idx_mapping_identity,unique,priority:4" json:"concept_id"`
	CustomConceptID  uuid.UUID `gorm:"type:uuid;not null;default:'00000000-0000-0000-0000-000000000000';index:idx_mapping_identity,unique,priority:5" json:"custom_concept_id"`

	// Provenance: the resolved author when the imported name matched a
	// registry user, and the imported spelling, kept even when resolved so
	// the original attribution survives account changes.
	MappedByUserID   *uuid.UUID `gorm:"type:uuid;index" json:"mapped_by_user_id,omitempty"`
	ImportedUserName string     `gorm:"type:text;not null;default:''" json:"imported_user_name,omitempty"`

	// ImportID links back to the batch that created this mapping; nil for
	// manually created mappings. Deleting the import cascades here.
	ImportID *uuid.UUID `gorm:"type:uuid;index" json:"import_id,omitempty"`
	Import   *Import    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ImportID;references:ID" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Mapping) TableName() string { return "mapping" }

// AuthorDisplay is the imported attribution label; empty for mappings
// created in-app, whose author comes from the user table instead.
func (m Mapping) AuthorDisplay() string {
	return m.ImportedUserName
}
