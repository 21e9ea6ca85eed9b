package alignment

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a free-text note on a mapping. StatusAtCreation freezes the
// consensus status in effect when the comment was written; it is an audit
// label and is never re-derived.
type Comment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	MappingID uuid.UUID `gorm:"type:uuid;not null;index" json:"mapping_id"`
	Mapping   *Mapping  `gorm:"constraint:OnDelete:CASCADE;foreignKey:MappingID;references:ID" json:"-"`

	AuthorUserID uuid.UUID `gorm:"type:uuid;not null;default:'00000000-0000-0000-0000-000000000000';index" json:"author_user_id"`
	AuthorName   string    `gorm:"type:text;not null;default:''" json:"author_name"`

	Text             string `gorm:"type:text;not null" json:"text"`
	StatusAtCreation string `gorm:"type:text;not null;default:''" json:"status_at_creation"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Comment) TableName() string { return "comment" }
