package vocab

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
)

func seedVocabulary(tb testing.TB, db *gorm.DB) {
	tb.Helper()
	ctx := context.Background()
	testutil.SeedConcept(tb, ctx, db, 201826, "Type 2 diabetes mellitus", "SNOMED", "44054006", "S")
	testutil.SeedConcept(tb, ctx, db, 201820, "Diabetes mellitus", "SNOMED", "73211009", "C")
	testutil.SeedConcept(tb, ctx, db, 45000001, "Diabetes NOS", "ICD10", "E14", "")
	testutil.SeedAncestor(tb, ctx, db, 201820, 201826, 1)
}

func TestSearchWithoutQueryOrdersByStandardRank(t *testing.T) {
	db := testutil.DB(t)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))

	hits, err := repo.Search(dbctx.Context{Ctx: context.Background()}, SearchSpec{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].StandardConcept != "S" || hits[1].StandardConcept != "C" || hits[2].StandardConcept != "" {
		t.Fatalf("rank order broken: %q %q %q",
			hits[0].StandardConcept, hits[1].StandardConcept, hits[2].StandardConcept)
	}
	if hits[0].Score != nil {
		t.Fatal("score must be nil without a query")
	}
}

func TestSearchStandardConceptLabels(t *testing.T) {
	db := testutil.DB(t)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	hits, err := repo.Search(dbc, SearchSpec{Filters: Filters{StandardConcept: []string{"Standard"}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ConceptID != 201826 {
		t.Fatalf("Standard filter: %+v", hits)
	}

	hits, err = repo.Search(dbc, SearchSpec{Filters: Filters{StandardConcept: []string{"Non-standard"}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ConceptID != 45000001 {
		t.Fatalf("Non-standard filter: %+v", hits)
	}

	hits, err = repo.Search(dbc, SearchSpec{Filters: Filters{StandardConcept: []string{"Standard", "Classification"}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("combined filter: %+v", hits)
	}
}

func TestSearchVocabularyFilterAndLimit(t *testing.T) {
	db := testutil.DB(t)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	hits, err := repo.Search(dbc, SearchSpec{Filters: Filters{VocabularyIDs: []string{"SNOMED"}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("vocabulary filter: %+v", hits)
	}

	hits, err = repo.Search(dbc, SearchSpec{Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("limit ignored: %d hits", len(hits))
	}
}

func TestHierarchyTraversal(t *testing.T) {
	db := testutil.DB(t)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	descendants, err := repo.DescendantsOf(dbc, 201820)
	if err != nil {
		t.Fatalf("DescendantsOf: %v", err)
	}
	if len(descendants) != 1 || descendants[0].ConceptID != 201826 {
		t.Fatalf("descendants = %+v", descendants)
	}

	ancestors, err := repo.AncestorsOf(dbc, 201826)
	if err != nil {
		t.Fatalf("AncestorsOf: %v", err)
	}
	if len(ancestors) != 1 || ancestors[0].ConceptID != 201820 {
		t.Fatalf("ancestors = %+v", ancestors)
	}
}

func TestConceptHitValidity(t *testing.T) {
	if (ConceptHit{}).Validity() != "Valid" {
		t.Fatal("empty invalid_reason must read Valid")
	}
	if (ConceptHit{InvalidReason: "D"}).Validity() != "Invalid" {
		t.Fatal("set invalid_reason must read Invalid")
	}
}

// requireSimilarity skips unless the similarity extension backing the
// scored search is present.
func requireSimilarity(tb testing.TB, db *gorm.DB) {
	tb.Helper()
	testutil.RequirePostgres(tb)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_similarity;`).Error; err != nil {
		tb.Skipf("pg_similarity unavailable: %v", err)
	}
}

func TestScoredSearch(t *testing.T) {
	db := testutil.DB(t)
	requireSimilarity(t, db)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	hits, err := repo.Search(dbc, SearchSpec{Query: "Type 2 diabetes mellitus"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("exact query found nothing")
	}
	if hits[0].ConceptID != 201826 {
		t.Fatalf("exact match not first: %+v", hits[0])
	}
	if hits[0].Score == nil || *hits[0].Score != 1.0 {
		t.Fatalf("exact match score = %v, want 1.0", hits[0].Score)
	}
	for _, h := range hits {
		if h.Score == nil || *h.Score <= SimilarityThreshold {
			t.Fatalf("hit under threshold leaked through: %+v", h)
		}
	}
}

func TestScoredSearchThresholdDropsDissimilar(t *testing.T) {
	db := testutil.DB(t)
	requireSimilarity(t, db)
	seedVocabulary(t, db)
	repo := NewConceptRepo(db, testutil.Logger(t))

	hits, err := repo.Search(dbctx.Context{Ctx: context.Background()}, SearchSpec{Query: "myocardial infarction"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("dissimilar query matched: %+v", hits)
	}
}
