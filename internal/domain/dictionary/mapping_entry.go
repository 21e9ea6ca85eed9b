package dictionary

import (
	"time"

	"github.com/google/uuid"
)

// MappingEntry seeds a general concept with one vocabulary concept and the
// hierarchy-expansion toggles the resolver honors.
type MappingEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	GeneralConceptID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_dict_entry_seed,unique,priority:1" json:"general_concept_id"`
	ConceptID        int64     `gorm:"not null;index:idx_dict_entry_seed,unique,priority:2" json:"concept_id"`

	IncludeDescendants bool `gorm:"not null;default:false" json:"include_descendants"`
	IncludeAncestors   bool `gorm:"not null;default:false" json:"include_ancestors"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (MappingEntry) TableName() string { return "dictionary_mapping_entry" }
