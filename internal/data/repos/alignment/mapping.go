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

type MappingRepo interface {
	Create(dbc dbctx.Context, mappings []*types.Mapping) ([]*types.Mapping, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Mapping, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Mapping, error)
	GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.Mapping, error)
	CountByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) (int64, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByImportIDs(dbc dbctx.Context, importIDs []uuid.UUID) error
	FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error
}

type mappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingRepo(db *gorm.DB, baseLog *logger.Logger) MappingRepo {
	repoLog := baseLog.With("repo", "MappingRepo")
	return &mappingRepo{db: db, log: repoLog}
}

func (r *mappingRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *mappingRepo) Create(dbc dbctx.Context, mappings []*types.Mapping) ([]*types.Mapping, error) {
	if len(mappings) == 0 {
		return []*types.Mapping{}, nil
	}
	if err := r.handle(dbc).CreateInBatches(&mappings, 500).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *mappingRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Mapping, error) {
	var result types.Mapping
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

func (r *mappingRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Mapping, error) {
	var results []*types.Mapping
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mappingRepo) GetByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) ([]*types.Mapping, error) {
	var results []*types.Mapping
	if err := r.handle(dbc).
		Where("alignment_id = ?", alignmentID).
		Order("row_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mappingRepo) CountByAlignmentID(dbc dbctx.Context, alignmentID uuid.UUID) (int64, error) {
	var count int64
	if err := r.handle(dbc).Model(&types.Mapping{}).
		Where("alignment_id = ?", alignmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *mappingRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("id IN ?", ids).
		Delete(&types.Mapping{}).Error
}

func (r *mappingRepo) FullDeleteByImportIDs(dbc dbctx.Context, importIDs []uuid.UUID) error {
	if len(importIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("import_id IN ?", importIDs).
		Delete(&types.Mapping{}).Error
}

func (r *mappingRepo) FullDeleteByAlignmentIDs(dbc dbctx.Context, alignmentIDs []uuid.UUID) error {
	if len(alignmentIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("alignment_id IN ?", alignmentIDs).
		Delete(&types.Mapping{}).Error
}
