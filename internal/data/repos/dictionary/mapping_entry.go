package dictionary

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type MappingEntryRepo interface {
	Create(dbc dbctx.Context, entries []*types.DictionaryMappingEntry) ([]*types.DictionaryMappingEntry, error)
	GetByGeneralConceptIDs(dbc dbctx.Context, generalConceptIDs []uuid.UUID) ([]*types.DictionaryMappingEntry, error)
}

type mappingEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingEntryRepo(db *gorm.DB, baseLog *logger.Logger) MappingEntryRepo {
	repoLog := baseLog.With("repo", "MappingEntryRepo")
	return &mappingEntryRepo{db: db, log: repoLog}
}

func (r *mappingEntryRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *mappingEntryRepo) Create(dbc dbctx.Context, entries []*types.DictionaryMappingEntry) ([]*types.DictionaryMappingEntry, error) {
	if len(entries) == 0 {
		return []*types.DictionaryMappingEntry{}, nil
	}
	if err := r.handle(dbc).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mappingEntryRepo) GetByGeneralConceptIDs(dbc dbctx.Context, generalConceptIDs []uuid.UUID) ([]*types.DictionaryMappingEntry, error) {
	var results []*types.DictionaryMappingEntry
	if len(generalConceptIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("general_concept_id IN ?", generalConceptIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
