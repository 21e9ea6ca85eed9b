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

type CommentRepo interface {
	Create(dbc dbctx.Context, comments []*types.Comment) ([]*types.Comment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comment, error)
	GetByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]*types.Comment, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) error
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	repoLog := baseLog.With("repo", "CommentRepo")
	return &commentRepo{db: db, log: repoLog}
}

func (r *commentRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *commentRepo) Create(dbc dbctx.Context, comments []*types.Comment) ([]*types.Comment, error) {
	if len(comments) == 0 {
		return []*types.Comment{}, nil
	}
	if err := r.handle(dbc).CreateInBatches(&comments, 500).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comment, error) {
	var result types.Comment
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

func (r *commentRepo) GetByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) ([]*types.Comment, error) {
	var results []*types.Comment
	if len(mappingIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("mapping_id IN ?", mappingIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("id IN ?", ids).
		Delete(&types.Comment{}).Error
}

func (r *commentRepo) FullDeleteByMappingIDs(dbc dbctx.Context, mappingIDs []uuid.UUID) error {
	if len(mappingIDs) == 0 {
		return nil
	}
	return r.handle(dbc).
		Where("mapping_id IN ?", mappingIDs).
		Delete(&types.Comment{}).Error
}
