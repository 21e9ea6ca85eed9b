package alignment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Import formats recognized by the merge engine.
const (
	FormatGeneric            = "generic"
	FormatSourceToConceptMap = "source_to_concept_map"
	FormatUsagi              = "usagi"
	FormatArchive            = "archive"
)

// Import is one merge batch. It owns the mappings it created; deleting it
// cascades to them (and through them to re-attached evaluations/comments).
type Import struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	AlignmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"alignment_id"`

	FileName string `gorm:"type:text;not null" json:"file_name"`
	Format   string `gorm:"type:text;not null;index" json:"format"`

	AcceptedCount         int `gorm:"not null;default:0" json:"accepted_count"`
	SkippedDuplicateCount int `gorm:"not null;default:0" json:"skipped_duplicate_count"`
	SkippedNoMatchCount   int `gorm:"not null;default:0" json:"skipped_no_match_count"`

	// UnresolvedIdentities is the warning list of imported names with no
	// registry match, stored as a JSON string array.
	UnresolvedIdentities datatypes.JSON `gorm:"type:jsonb" json:"unresolved_identities"`

	ImportedByUserID *uuid.UUID `gorm:"type:uuid;index" json:"imported_by_user_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Import) TableName() string { return "import" }
