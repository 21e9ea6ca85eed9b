package alignment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type SourceRowRepo interface {
	Create(dbc dbctx.Context, rows []*types.SourceConceptRow) ([]*types.SourceConceptRow, error)
	GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.SourceConceptRow, error)
	CountByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) (int64, error)
	FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error
}

type sourceRowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRowRepo(db *gorm.DB, baseLog *logger.Logger) SourceRowRepo {
	repoLog := baseLog.With("repo", "SourceRowRepo")
	return &sourceRowRepo{db: db, log: repoLog}
}

func (r *sourceRowRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *sourceRowRepo) Create(dbc dbctx.Context, rows []*types.SourceConceptRow) ([]*types.SourceConceptRow, error) {
	if len(rows) == 0 {
		return []*types.SourceConceptRow{}, nil
	}
	if err := r.handle(dbc).CreateInBatches(&rows, 500).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sourceRowRepo) GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.SourceConceptRow, error) {
	var results []*types.SourceConceptRow
	if err := r.handle(dbc).
		Where("alignment_id = ?", alignmentID).
		Order("row_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sourceRowRepo) CountByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) (int64, error) {
	var count int64
	if err := r.handle(dbc).Model(&types.SourceConceptRow{}).
		Where("alignment_id = ?", alignmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sourceRowRepo) FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error {
	if len(alignmentIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("alignment_id IN ?", alignmentIDs).
		Delete(&types.SourceConceptRow{}).Error
}
