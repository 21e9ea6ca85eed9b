package alignment

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type AlignmentRepo interface {
	Create(dbc dbctx.Context, alignments []*types.Alignment) ([]*types.Alignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Alignment, error)
	List(dbc dbctx.Context) ([]*types.Alignment, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type alignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlignmentRepo(db *gorm.DB, baseLog *logger.Logger) AlignmentRepo {
	repoLog := baseLog.With("repo", "AlignmentRepo")
	return &alignmentRepo{db: db, log: repoLog}
}

func (r *alignmentRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *alignmentRepo) Create(dbc dbctx.Context, alignments []*types.Alignment) ([]*types.Alignment, error) {
	if len(alignments) == 0 {
		return []*types.Alignment{}, nil
	}
	if err := r.handle(dbc).Create(&alignments).Error; err != nil {
		return nil, err
	}
	return alignments, nil
}

func (r *alignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Alignment, error) {
	var result types.Alignment
	if err := r.handle(dbc).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (r *alignmentRepo) List(dbc dbctx.Context) ([]*types.Alignment, error) {
	var results []*types.Alignment
	if err := r.handle(dbc).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *alignmentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("id IN ?", ids).
		Delete(&types.Alignment{}).Error
}
