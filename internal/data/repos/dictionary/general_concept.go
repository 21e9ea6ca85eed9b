package dictionary

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

type GeneralConceptRepo interface {
	Create(dbc dbctx.Context, concepts []*types.GeneralConcept) ([]*types.GeneralConcept, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GeneralConcept, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GeneralConcept, error)
	List(dbc dbctx.Context, category string) ([]*types.GeneralConcept, error)
}

type generalConceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneralConceptRepo(db *gorm.DB, baseLog *logger.Logger) GeneralConceptRepo {
	repoLog := baseLog.With("repo", "GeneralConceptRepo")
	return &generalConceptRepo{db: db, log: repoLog}
}

func (r *generalConceptRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *generalConceptRepo) Create(dbc dbctx.Context, concepts []*types.GeneralConcept) ([]*types.GeneralConcept, error) {
	if len(concepts) == 0 {
		return []*types.GeneralConcept{}, nil
	}
	if err := r.handle(dbc).Create(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (r *generalConceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GeneralConcept, error) {
	var result types.GeneralConcept
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

func (r *generalConceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GeneralConcept, error) {
	var results []*types.GeneralConcept
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

func (r *generalConceptRepo) List(dbc dbctx.Context, category string) ([]*types.GeneralConcept, error) {
	q := r.handle(dbc).Order("name ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var results []*types.GeneralConcept
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
