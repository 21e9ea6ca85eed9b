package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// ResolvedConcept is one member of an expanded concept set. Custom concepts
// carry no vocabulary concept id and are appended after the sorted
// vocabulary members, never expanded.
type ResolvedConcept struct {
	ConceptID       int64      `json:"concept_id,omitempty"`
	ConceptName     string     `json:"concept_name"`
	DomainID        string     `json:"domain_id,omitempty"`
	VocabularyID    string     `json:"vocabulary_id"`
	ConceptClassID  string     `json:"concept_class_id,omitempty"`
	StandardConcept string     `json:"standard_concept,omitempty"`
	ConceptCode     string     `json:"concept_code"`
	Validity        string     `json:"validity,omitempty"`
	IsCustom        bool       `json:"is_custom"`
	CustomConceptID *uuid.UUID `json:"custom_concept_id,omitempty"`
}

type ResolverService interface {
	// Resolve expands one general concept into its full concept set. A
	// general concept with no seed entries and no custom concepts
	// resolves to an empty set.
	Resolve(ctx context.Context, generalConceptID uuid.UUID) ([]ResolvedConcept, error)
}

type resolverService struct {
	db                 *gorm.DB
	generalConceptRepo repos.GeneralConceptRepo
	mappingEntryRepo   repos.MappingEntryRepo
	customConceptRepo  repos.CustomConceptRepo
	conceptRepo        repos.ConceptRepo
	log                *logger.Logger
}

func NewResolverService(
	db *gorm.DB,
	generalConceptRepo repos.GeneralConceptRepo,
	mappingEntryRepo repos.MappingEntryRepo,
	customConceptRepo repos.CustomConceptRepo,
	conceptRepo repos.ConceptRepo,
	baseLog *logger.Logger,
) ResolverService {
	return &resolverService{
		db:                 db,
		generalConceptRepo: generalConceptRepo,
		mappingEntryRepo:   mappingEntryRepo,
		customConceptRepo:  customConceptRepo,
		conceptRepo:        conceptRepo,
		log:                baseLog.With("service", "ResolverService"),
	}
}

func (s *resolverService) Resolve(ctx context.Context, generalConceptID uuid.UUID) ([]ResolvedConcept, error) {
	dbc := dbctx.Context{Ctx: ctx}

	if _, err := s.generalConceptRepo.GetByID(dbc, generalConceptID); err != nil {
		return nil, err
	}

	entries, err := s.mappingEntryRepo.GetByGeneralConceptIDs(dbc, []uuid.UUID{generalConceptID})
	if err != nil {
		return nil, err
	}
	customs, err := s.customConceptRepo.GetByGeneralConceptIDs(dbc, []uuid.UUID{generalConceptID})
	if err != nil {
		return nil, err
	}

	seedIDs := make([]int64, 0, len(entries))
	for _, e := range entries {
		seedIDs = append(seedIDs, e.ConceptID)
	}
	seeds, err := s.conceptRepo.GetByIDs(dbc, seedIDs)
	if err != nil {
		return nil, err
	}
	seedByID := make(map[int64]*types.Concept, len(seeds))
	for _, c := range seeds {
		seedByID[c.ConceptID] = c
	}

	// Collect the union across entries, collapsing overlaps between seed
	// expansions to one row per concept id.
	seen := make(map[int64]bool)
	var members []*types.Concept
	add := func(c *types.Concept) {
		if c == nil || seen[c.ConceptID] {
			return
		}
		seen[c.ConceptID] = true
		members = append(members, c)
	}

	for _, e := range entries {
		add(seedByID[e.ConceptID])
		if e.IncludeDescendants {
			descendants, err := s.conceptRepo.DescendantsOf(dbc, e.ConceptID)
			if err != nil {
				return nil, err
			}
			for _, c := range descendants {
				add(c)
			}
		}
		if e.IncludeAncestors {
			ancestors, err := s.conceptRepo.AncestorsOf(dbc, e.ConceptID)
			if err != nil {
				return nil, err
			}
			for _, c := range ancestors {
				add(c)
			}
		}
	}

	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if ra, rb := a.StandardRank(), b.StandardRank(); ra != rb {
			return ra < rb
		}
		return a.ConceptName < b.ConceptName
	})

	resolved := make([]ResolvedConcept, 0, len(members)+len(customs))
	for _, c := range members {
		resolved = append(resolved, ResolvedConcept{
			ConceptID:       c.ConceptID,
			ConceptName:     c.ConceptName,
			DomainID:        c.DomainID,
			VocabularyID:    c.VocabularyID,
			ConceptClassID:  c.ConceptClassID,
			StandardConcept: c.StandardConcept,
			ConceptCode:     c.ConceptCode,
			Validity:        c.Validity(),
		})
	}
	for _, cc := range customs {
		id := cc.ID
		resolved = append(resolved, ResolvedConcept{
			ConceptName:     cc.ConceptName,
			VocabularyID:    cc.VocabularyID,
			ConceptCode:     cc.ConceptCode,
			IsCustom:        true,
			CustomConceptID: &id,
		})
	}
	return resolved, nil
}
