package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// AddEntryRequest seeds a general concept with one vocabulary concept.
type AddEntryRequest struct {
	GeneralConceptID   uuid.UUID `json:"general_concept_id"`
	ConceptID          int64     `json:"concept_id"`
	IncludeDescendants bool      `json:"include_descendants"`
	IncludeAncestors   bool      `json:"include_ancestors"`
}

// AddCustomConceptRequest records a concept missing from the vocabulary.
type AddCustomConceptRequest struct {
	GeneralConceptID uuid.UUID `json:"general_concept_id"`
	VocabularyID     string    `json:"vocabulary_id"`
	ConceptCode      string    `json:"concept_code"`
	ConceptName      string    `json:"concept_name"`
}

type DictionaryService interface {
	List(ctx context.Context, category string) ([]*types.GeneralConcept, error)
	Get(ctx context.Context, id uuid.UUID) (*types.GeneralConcept, error)
	AddEntry(ctx context.Context, req AddEntryRequest) (*types.DictionaryMappingEntry, error)
	AddCustomConcept(ctx context.Context, req AddCustomConceptRequest) (*types.CustomConcept, error)
}

type dictionaryService struct {
	db                 *gorm.DB
	generalConceptRepo repos.GeneralConceptRepo
	mappingEntryRepo   repos.MappingEntryRepo
	customConceptRepo  repos.CustomConceptRepo
	conceptRepo        repos.ConceptRepo
	log                *logger.Logger
}

func NewDictionaryService(
	db *gorm.DB,
	generalConceptRepo repos.GeneralConceptRepo,
	mappingEntryRepo repos.MappingEntryRepo,
	customConceptRepo repos.CustomConceptRepo,
	conceptRepo repos.ConceptRepo,
	baseLog *logger.Logger,
) DictionaryService {
	return &dictionaryService{
		db:                 db,
		generalConceptRepo: generalConceptRepo,
		mappingEntryRepo:   mappingEntryRepo,
		customConceptRepo:  customConceptRepo,
		conceptRepo:        conceptRepo,
		log:                baseLog.With("service", "DictionaryService"),
	}
}

func (s *dictionaryService) List(ctx context.Context, category string) ([]*types.GeneralConcept, error) {
	return s.generalConceptRepo.List(dbctx.Context{Ctx: ctx}, category)
}

func (s *dictionaryService) Get(ctx context.Context, id uuid.UUID) (*types.GeneralConcept, error) {
	return s.generalConceptRepo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *dictionaryService) AddEntry(ctx context.Context, req AddEntryRequest) (*types.DictionaryMappingEntry, error) {
	var entry *types.DictionaryMappingEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.generalConceptRepo.GetByID(dbc, req.GeneralConceptID); err != nil {
			return err
		}
		concepts, err := s.conceptRepo.GetByIDs(dbc, []int64{req.ConceptID})
		if err != nil {
			return err
		}
		if len(concepts) == 0 {
			return fmt.Errorf("%w: concept %d not in vocabulary", pkgerrors.ErrNotFound, req.ConceptID)
		}
		entry = &types.DictionaryMappingEntry{
			ID:                 uuid.New(),
			GeneralConceptID:   req.GeneralConceptID,
			ConceptID:          req.ConceptID,
			IncludeDescendants: req.IncludeDescendants,
			IncludeAncestors:   req.IncludeAncestors,
			CreatedAt:          time.Now().UTC(),
		}
		_, err = s.mappingEntryRepo.Create(dbc, []*types.DictionaryMappingEntry{entry})
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *dictionaryService) AddCustomConcept(ctx context.Context, req AddCustomConceptRequest) (*types.CustomConcept, error) {
	if req.ConceptName == "" {
		return nil, fmt.Errorf("%w: concept name is empty", pkgerrors.ErrInvalidArgument)
	}
	var custom *types.CustomConcept
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.generalConceptRepo.GetByID(dbc, req.GeneralConceptID); err != nil {
			return err
		}
		custom = &types.CustomConcept{
			ID:               uuid.New(),
			GeneralConceptID: req.GeneralConceptID,
			VocabularyID:     req.VocabularyID,
			ConceptCode:      req.ConceptCode,
			ConceptName:      req.ConceptName,
			CreatedAt:        time.Now().UTC(),
		}
		_, err := s.customConceptRepo.Create(dbc, []*types.CustomConcept{custom})
		return err
	})
	if err != nil {
		return nil, err
	}
	return custom, nil
}
