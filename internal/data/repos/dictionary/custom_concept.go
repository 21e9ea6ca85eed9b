package dictionary

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type CustomConceptRepo interface {
	Create(dbc dbctx.Context, concepts []*types.CustomConcept) ([]*types.CustomConcept, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.CustomConcept, error)
	GetByGeneralConceptIDs(dbc dbctx.Context, generalConceptIDs []uuid.UUID) ([]*types.CustomConcept, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type customConceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomConceptRepo(db *gorm.DB, baseLog *logger.Logger) CustomConceptRepo {
	repoLog := baseLog.With("repo", "CustomConceptRepo")
	return &customConceptRepo{db: db, log: repoLog}
}

func (r *customConceptRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *customConceptRepo) Create(dbc dbctx.Context, concepts []*types.CustomConcept) ([]*types.CustomConcept, error) {
	if len(concepts) == 0 {
		return []*types.CustomConcept{}, nil
	}
	if err := r.handle(dbc).Create(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (r *customConceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.CustomConcept, error) {
	var results []*types.CustomConcept
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

func (r *customConceptRepo) GetByGeneralConceptIDs(dbc dbctx.Context, generalConceptIDs []uuid.UUID) ([]*types.CustomConcept, error) {
	var results []*types.CustomConcept
	if len(generalConceptIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("general_concept_id IN ?", generalConceptIDs).
		Order("concept_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *customConceptRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.CustomConcept{}).Error
}
