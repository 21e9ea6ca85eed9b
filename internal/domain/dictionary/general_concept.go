package dictionary

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GeneralConcept is an entry of the curated cross-institution dictionary.
// Owned by the dictionary curation process; read-only for this service.
type GeneralConcept struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name        string `gorm:"type:text;not null;index" json:"name"`
	Category    string `gorm:"type:text;not null;default:'';index" json:"category"`
	Subcategory string `gorm:"type:text;not null;default:''" json:"subcategory"`
	Guidance    string `gorm:"type:text;not null;default:''" json:"guidance"`

	StatsSummary datatypes.JSON `gorm:"type:jsonb" json:"stats_summary,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GeneralConcept) TableName() string { return "general_concept" }
