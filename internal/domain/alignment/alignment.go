package alignment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Alignment is one mapping project: an uploaded source dataset plus every
// mapping, import batch, evaluation, and comment built against it. The row
// set is fixed at upload; only the mapping edges change afterwards.
type Alignment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name        string `gorm:"type:text;not null;index" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	SourceFileName string `gorm:"type:text;not null;default:''" json:"source_file_name"`
	// ColumnSchema records the uploaded header and the caller-declared type
	// of each column, stored as [{"name": ..., "type": ...}, ...].
	ColumnSchema datatypes.JSON `gorm:"type:jsonb" json:"column_schema"`

	CreatedByUserID *uuid.UUID `gorm:"type:uuid;index" json:"created_by_user_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Alignment) TableName() string { return "alignment" }
