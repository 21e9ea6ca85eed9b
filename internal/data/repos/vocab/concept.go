package vocab

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/ctxutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// SimilarityThreshold is the minimum score a scored search row must exceed.
const SimilarityThreshold = 0.75

// Filters are the categorical predicates of a vocabulary scan. Empty slices
// mean "no restriction". StandardConcept and Validity take the display
// labels, not the raw column values.
type Filters struct {
	VocabularyIDs   []string
	DomainIDs       []string
	ConceptClassIDs []string
	StandardConcept []string // Standard | Classification | Non-standard
	Validity        []string // Valid | Invalid
}

// SearchSpec is one vocabulary search. Limit <= 0 disables the cap.
type SearchSpec struct {
	Query   string
	Filters Filters
	Limit   int
}

// ConceptHit is one search result row. Score is nil when the search carried
// no query.
type ConceptHit struct {
	ConceptID       int64    `gorm:"column:concept_id" json:"concept_id"`
	ConceptName     string   `gorm:"column:concept_name" json:"concept_name"`
	DomainID        string   `gorm:"column:domain_id" json:"domain_id"`
	VocabularyID    string   `gorm:"column:vocabulary_id" json:"vocabulary_id"`
	ConceptClassID  string   `gorm:"column:concept_class_id" json:"concept_class_id"`
	StandardConcept string   `gorm:"column:standard_concept" json:"standard_concept"`
	ConceptCode     string   `gorm:"column:concept_code" json:"concept_code"`
	InvalidReason   string   `gorm:"column:invalid_reason" json:"-"`
	Score           *float64 `gorm:"column:score" json:"score"`
}

// Validity resolves the display label for the hit.
func (h ConceptHit) Validity() string {
	if h.InvalidReason == "" {
		return "Valid"
	}
	return "Invalid"
}

type ConceptRepo interface {
	GetByIDs(dbc dbctx.Context, conceptIDs []int64) ([]*types.Concept, error)
	DescendantsOf(dbc dbctx.Context, conceptID int64) ([]*types.Concept, error)
	AncestorsOf(dbc dbctx.Context, conceptID int64) ([]*types.Concept, error)
	Search(dbc dbctx.Context, spec SearchSpec) ([]ConceptHit, error)
	DistinctVocabularyIDs(dbc dbctx.Context) ([]string, error)
	DistinctDomainIDs(dbc dbctx.Context) ([]string, error)
	DistinctConceptClassIDs(dbc dbctx.Context) ([]string, error)
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	repoLog := baseLog.With("repo", "ConceptRepo")
	return &conceptRepo{db: db, log: repoLog}
}

func (r *conceptRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *conceptRepo) GetByIDs(dbc dbctx.Context, conceptIDs []int64) ([]*types.Concept, error) {
	var results []*types.Concept
	if len(conceptIDs) == 0 {
		return results, nil
	}
	if err := r.handle(dbc).
		Where("concept_id IN ?", conceptIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *conceptRepo) DescendantsOf(dbc dbctx.Context, conceptID int64) ([]*types.Concept, error) {
	var results []*types.Concept
	if err := r.handle(dbc).
		Joins("JOIN concept_ancestor ca ON ca.descendant_concept_id = concept.concept_id").
		Where("ca.ancestor_concept_id = ?", conceptID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *conceptRepo) AncestorsOf(dbc dbctx.Context, conceptID int64) ([]*types.Concept, error) {
	var results []*types.Concept
	if err := r.handle(dbc).
		Joins("JOIN concept_ancestor ca ON ca.ancestor_concept_id = concept.concept_id").
		Where("ca.descendant_concept_id = ?", conceptID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// standardRankExpr orders standard before classification before non-standard.
const standardRankExpr = "CASE standard_concept WHEN 'S' THEN 0 WHEN 'C' THEN 1 ELSE 2 END"

// Search runs the filtered scan, scoring concept names inside the query
// engine when a query is present. The similarity function never runs
// row-by-row in application memory; against a multi-million-row vocabulary
// only the database can keep this tractable.
func (r *conceptRepo) Search(dbc dbctx.Context, spec SearchSpec) ([]ConceptHit, error) {
	q := r.handle(dbc).Model(&types.Concept{})
	q = applyFilters(q, spec.Filters)

	query := strings.TrimSpace(spec.Query)
	if query == "" {
		q = q.Select("concept.*, NULL AS score").
			Order(standardRankExpr).
			Order("concept_name ASC")
	} else {
		q = q.Select("concept.*, jarowinkler(lower(concept_name), lower(?)) AS score", query).
			Where("jarowinkler(lower(concept_name), lower(?)) > ?", query, SimilarityThreshold).
			Order("score DESC").
			Order(standardRankExpr).
			Order("concept_name ASC")
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}

	var hits []ConceptHit
	if err := q.Scan(&hits).Error; err != nil {
		return nil, err
	}
	return hits, nil
}

func applyFilters(q *gorm.DB, f Filters) *gorm.DB {
	if len(f.VocabularyIDs) > 0 {
		q = q.Where("vocabulary_id IN ?", f.VocabularyIDs)
	}
	if len(f.DomainIDs) > 0 {
		q = q.Where("domain_id IN ?", f.DomainIDs)
	}
	if len(f.ConceptClassIDs) > 0 {
		q = q.Where("concept_class_id IN ?", f.ConceptClassIDs)
	}
	if len(f.StandardConcept) > 0 {
		var values []string
		nonStandard := false
		for _, label := range f.StandardConcept {
			switch label {
			case "Standard":
				values = append(values, "S")
			case "Classification":
				values = append(values, "C")
			case "Non-standard":
				nonStandard = true
			}
		}
		switch {
		case nonStandard && len(values) > 0:
			q = q.Where("standard_concept IN ? OR standard_concept IS NULL OR standard_concept = ''", values)
		case nonStandard:
			q = q.Where("standard_concept IS NULL OR standard_concept = ''")
		case len(values) > 0:
			q = q.Where("standard_concept IN ?", values)
		}
	}
	if len(f.Validity) > 0 {
		valid := contains(f.Validity, "Valid")
		invalid := contains(f.Validity, "Invalid")
		switch {
		case valid && !invalid:
			q = q.Where("invalid_reason IS NULL OR invalid_reason = ''")
		case invalid && !valid:
			q = q.Where("invalid_reason IS NOT NULL AND invalid_reason <> ''")
		}
	}
	return q
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func (r *conceptRepo) DistinctVocabularyIDs(dbc dbctx.Context) ([]string, error) {
	return r.distinctColumn(dbc, "vocabulary_id")
}

func (r *conceptRepo) DistinctDomainIDs(dbc dbctx.Context) ([]string, error) {
	return r.distinctColumn(dbc, "domain_id")
}

func (r *conceptRepo) DistinctConceptClassIDs(dbc dbctx.Context) ([]string, error) {
	return r.distinctColumn(dbc, "concept_class_id")
}

func (r *conceptRepo) distinctColumn(dbc dbctx.Context, column string) ([]string, error) {
	var values []string
	if err := r.handle(dbc).Model(&types.Concept{}).
		Distinct(column).
		Order(column + " ASC").
		Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}
