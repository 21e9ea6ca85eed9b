package services

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/cache"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	vocabrepo "github.com/conceptbridge/conceptbridge-backend/internal/data/repos/vocab"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// DefaultSearchLimit caps a vocabulary search unless the caller asks for
// the full result set.
const DefaultSearchLimit = 10000

// SearchRequest is the handler-facing shape of a vocabulary search.
// NoLimit disables the result cap; the scored ordering is unaffected.
type SearchRequest struct {
	Query   string            `json:"query"`
	Filters vocabrepo.Filters `json:"filters"`
	NoLimit bool              `json:"no_limit"`
}

// Facets are the distinct filterable values of the vocabulary.
type Facets struct {
	VocabularyIDs   []string `json:"vocabulary_ids"`
	DomainIDs       []string `json:"domain_ids"`
	ConceptClassIDs []string `json:"concept_class_ids"`
}

type MatcherService interface {
	Search(ctx context.Context, req SearchRequest) ([]vocabrepo.ConceptHit, error)
	Facets(ctx context.Context) (*Facets, error)
}

type matcherService struct {
	db          *gorm.DB
	conceptRepo repos.ConceptRepo
	cache       *cache.Client
	log         *logger.Logger
}

// NewMatcherService builds the vocabulary search service. cacheClient may
// be nil; facets then hit the database every time.
func NewMatcherService(db *gorm.DB, conceptRepo repos.ConceptRepo, cacheClient *cache.Client, baseLog *logger.Logger) MatcherService {
	return &matcherService{
		db:          db,
		conceptRepo: conceptRepo,
		cache:       cacheClient,
		log:         baseLog.With("service", "MatcherService"),
	}
}

func (s *matcherService) Search(ctx context.Context, req SearchRequest) ([]vocabrepo.ConceptHit, error) {
	spec := vocabrepo.SearchSpec{
		Query:   req.Query,
		Filters: req.Filters,
		Limit:   DefaultSearchLimit,
	}
	if req.NoLimit {
		spec.Limit = 0
	}
	hits, err := s.conceptRepo.Search(dbctx.Context{Ctx: ctx}, spec)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []vocabrepo.ConceptHit{}
	}
	return hits, nil
}

const (
	facetKeyVocabularies   = "facets:vocabulary_ids"
	facetKeyDomains        = "facets:domain_ids"
	facetKeyConceptClasses = "facets:concept_class_ids"
)

func (s *matcherService) Facets(ctx context.Context) (*Facets, error) {
	var facets Facets
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		facets.VocabularyIDs, err = s.facet(gctx, facetKeyVocabularies, s.conceptRepo.DistinctVocabularyIDs)
		return err
	})
	g.Go(func() (err error) {
		facets.DomainIDs, err = s.facet(gctx, facetKeyDomains, s.conceptRepo.DistinctDomainIDs)
		return err
	})
	g.Go(func() (err error) {
		facets.ConceptClassIDs, err = s.facet(gctx, facetKeyConceptClasses, s.conceptRepo.DistinctConceptClassIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &facets, nil
}

func (s *matcherService) facet(ctx context.Context, key string, load func(dbctx.Context) ([]string, error)) ([]string, error) {
	if s.cache != nil {
		if values, ok := s.cache.GetStrings(ctx, key); ok {
			return values, nil
		}
	}
	values, err := load(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	if s.cache != nil {
		s.cache.SetStrings(ctx, key, values)
	}
	return values, nil
}
