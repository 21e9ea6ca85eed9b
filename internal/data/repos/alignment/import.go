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

type ImportRepo interface {
	Create(dbc dbctx.Context, imports []*types.Import) ([]*types.Import, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Import, error)
	GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.Import, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error
}

type importRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImportRepo(db *gorm.DB, baseLog *logger.Logger) ImportRepo {
	repoLog := baseLog.With("repo", "ImportRepo")
	return &importRepo{db: db, log: repoLog}
}

func (r *importRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *importRepo) Create(dbc dbctx.Context, imports []*types.Import) ([]*types.Import, error) {
	if len(imports) == 0 {
		return []*types.Import{}, nil
	}
	if err := r.handle(dbc).Create(&imports).Error; err != nil {
		return nil, err
	}
	return imports, nil
}

func (r *importRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Import, error) {
	var result types.Import
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

func (r *importRepo) GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.Import, error) {
	var results []*types.Import
	if err := r.handle(dbc).
		Where("alignment_id = ?", alignmentID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *importRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("id IN ?", ids).
		Delete(&types.Import{}).Error
}

func (r *importRepo) FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error {
	if len(alignmentIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("alignment_id IN ?", alignmentIDs).
		Delete(&types.Import{}).Error
}
