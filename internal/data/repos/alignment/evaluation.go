package alignment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// VoteCounts aggregates one mapping's evaluations per vote value.
type VoteCounts struct {
	MappingID uuid.UUID `gorm:"column:mapping_id"`
	Approves  int       `gorm:"column:approves"`
	Rejects   int       `gorm:"column:rejects"`
	Uncertain int       `gorm:"column:uncertain"`
}

type EvaluationRepo interface {
	Create(dbc dbctx.Context, evaluations []*types.Evaluation) ([]*types.Evaluation, error)
	// Upsert replaces the vote when the (mapping, evaluator) pair already
	// has one; the unique identity index drives the conflict target.
	Upsert(dbc dbctx.Context, evaluation *types.Evaluation) error
	GetByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]*types.Evaluation, error)
	CountByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]VoteCounts, error)
	DeleteByEvaluator(dbc dbctx.Context, mappingID, evaluatorUserID uuid.UUID, evaluatorName string) error
	FullDeleteByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) error
}

type evaluationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationRepo {
	repoLog := baseLog.With("repo", "EvaluationRepo")
	return &evaluationRepo{db: db, log: repoLog}
}

func (r *evaluationRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *evaluationRepo) Create(dbc dbctx.Context, evaluations []*types.Evaluation) ([]*types.Evaluation, error) {
	if len(evaluations) == 0 {
		return []*types.Evaluation{}, nil
	}
	if err := r.handle(dbc).CreateInBatches(&evaluations, 500).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}

func (r *evaluationRepo) Upsert(dbc dbctx.Context, evaluation *types.Evaluation) error {
	return r.handle(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "mapping_id"},
			{Name: "evaluator_user_id"},
			{Name: "evaluator_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
	}).Create(evaluation).Error
}

func (r *evaluationRepo) GetByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]*types.Evaluation, error) {
	var results []*types.Evaluation
	if len(mappingIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("mapping_id IN ?", mappingIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *evaluationRepo) CountByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]VoteCounts, error) {
	var results []VoteCounts
	if len(mappingIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).Model(&types.Evaluation{}).
		Select(
			"mapping_id, "+
				"SUM(CASE WHEN vote = ? THEN 1 ELSE 0 END) AS approves, "+
				"SUM(CASE WHEN vote = ? THEN 1 ELSE 0 END) AS rejects, "+
				"SUM(CASE WHEN vote = ? THEN 1 ELSE 0 END) AS uncertain",
			types.VoteApprove, types.VoteReject, types.VoteUncertain,
		).
		Where("mapping_id IN ?", mappingIDs).
		Group("mapping_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *evaluationRepo) DeleteByEvaluator(dbc dbctx.Context, mappingID, evaluatorUserID uuid.UUID, evaluatorName string) error {
	return r.handle(dbc).
		Where("mapping_id = ? AND evaluator_user_id = ? AND evaluator_name = ?", mappingID, evaluatorUserID, evaluatorName).
		Delete(&types.Evaluation{}).Error
}

func (r *evaluationRepo) FullDeleteByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) error {
	if len(mappingIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("mapping_id IN ?", mappingIDs).
		Delete(&types.Evaluation{}).Error
}
