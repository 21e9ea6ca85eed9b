package alignment

import (
	"time"

	"github.com/google/uuid"
)

// Votes an evaluator may cast on a mapping.
const (
	VoteApprove   = "approve"
	VoteReject    = "reject"
	VoteUncertain = "uncertain"
)

// Evaluation is one reviewer's vote on one mapping. Evaluator identity is a
// resolved user id or, for imported votes, a display name; exactly one of
// the two is set and the pair forms the uniqueness key together with the
// mapping (uuid.Nil / "" as zero sentinels).
type Evaluation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	MappingID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_evaluation_identity,unique,priority:1" json:"mapping_id"`
	Mapping   *Mapping  `gorm:"constraint:OnDelete:CASCADE;foreignKey:MappingID;references:ID" json:"-"`

	EvaluatorUserID uuid.UUID `gorm:"type:uuid;not null;default:'00000000-0000-0000-0000-000000000000';index:idx_evaluation_identity,unique,priority:2" json:"evaluator_user_id"`
	EvaluatorName   string    `gorm:"type:text;not null;default:'';index:idx_evaluation_identity,unique,priority:3" json:"evaluator_name"`

	Vote string `gorm:"type:text;not null" json:"vote"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Evaluation) TableName() string { return "evaluation" }

// ValidVote reports whether v is one of the recognized vote values.
func ValidVote(v string) bool {
	switch v {
	case VoteApprove, VoteReject, VoteUncertain:
		return true
	}
	return false
}
