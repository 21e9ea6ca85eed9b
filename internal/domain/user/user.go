package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User doubles as the login account and the identity registry the import
// engine resolves (first_name, last_name) pairs against.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Email     string `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Password  string `gorm:"type:text;not null" json:"-"`
	FirstName string `gorm:"type:text;not null;index" json:"first_name"`
	LastName  string `gorm:"type:text;not null;index" json:"last_name"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

// FullName renders the display form used for provenance fallbacks.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
