package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
)

func newResolver(tb testing.TB, db *gorm.DB) ResolverService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewResolverService(
		db,
		repos.NewGeneralConceptRepo(db, log),
		repos.NewMappingEntryRepo(db, log),
		repos.NewCustomConceptRepo(db, log),
		repos.NewConceptRepo(db, log),
		log,
	)
}

func TestResolveEmptyConceptSet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	gc := testutil.SeedGeneralConcept(t, ctx, db, "sodium")

	resolved, err := newResolver(t, db).Resolve(ctx, gc.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("got %d concepts, want empty set", len(resolved))
	}
}

func TestResolveExpandsDescendantsAndDedupes(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	parent := testutil.SeedConcept(t, ctx, db, 100, "Diabetes mellitus", "SNOMED", "73211009", "S")
	child := testutil.SeedConcept(t, ctx, db, 101, "Type 2 diabetes", "SNOMED", "44054006", "S")
	testutil.SeedAncestor(t, ctx, db, parent.ConceptID, child.ConceptID, 1)

	gc := testutil.SeedGeneralConcept(t, ctx, db, "diabetes")
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, parent.ConceptID, true, false)
	// A second seed already covered by the first entry's expansion.
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, child.ConceptID, false, false)

	resolved, err := newResolver(t, db).Resolve(ctx, gc.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("got %d concepts, want 2 (deduplicated)", len(resolved))
	}
	seen := map[int64]bool{}
	for _, rc := range resolved {
		if seen[rc.ConceptID] {
			t.Fatalf("concept %d duplicated", rc.ConceptID)
		}
		seen[rc.ConceptID] = true
	}
}

func TestResolveHonorsExpansionFlags(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	parent := testutil.SeedConcept(t, ctx, db, 100, "Diabetes mellitus", "SNOMED", "73211009", "S")
	child := testutil.SeedConcept(t, ctx, db, 101, "Type 2 diabetes", "SNOMED", "44054006", "S")
	grand := testutil.SeedConcept(t, ctx, db, 102, "Endocrine disorder", "SNOMED", "362969004", "S")
	testutil.SeedAncestor(t, ctx, db, parent.ConceptID, child.ConceptID, 1)
	testutil.SeedAncestor(t, ctx, db, grand.ConceptID, parent.ConceptID, 1)

	gc := testutil.SeedGeneralConcept(t, ctx, db, "diabetes")
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, parent.ConceptID, false, false)

	resolved, err := newResolver(t, db).Resolve(ctx, gc.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 1 || resolved[0].ConceptID != parent.ConceptID {
		t.Fatalf("expansion flags off should yield the seed only, got %+v", resolved)
	}

	// include_ancestors picks up the grandparent, not the child.
	gc2 := testutil.SeedGeneralConcept(t, ctx, db, "diabetes ancestors")
	testutil.SeedMappingEntry(t, ctx, db, gc2.ID, parent.ConceptID, false, true)
	resolved, err = newResolver(t, db).Resolve(ctx, gc2.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("got %d concepts, want seed+ancestor", len(resolved))
	}
	for _, rc := range resolved {
		if rc.ConceptID == child.ConceptID {
			t.Fatalf("descendant included despite include_descendants=false")
		}
	}
}

func TestResolveSortsStandardFirstAndAppendsCustoms(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	nonStd := testutil.SeedConcept(t, ctx, db, 200, "Aspirin product", "RxNorm", "1191", "")
	std := testutil.SeedConcept(t, ctx, db, 201, "Zinc", "RxNorm", "11416", "S")
	classification := testutil.SeedConcept(t, ctx, db, 202, "Analgesic", "RxNorm", "777", "C")

	gc := testutil.SeedGeneralConcept(t, ctx, db, "meds")
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, nonStd.ConceptID, false, false)
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, std.ConceptID, false, false)
	testutil.SeedMappingEntry(t, ctx, db, gc.ID, classification.ConceptID, false, false)

	custom := &types.CustomConcept{
		ID:               uuid.New(),
		GeneralConceptID: gc.ID,
		VocabularyID:     "LOCAL",
		ConceptCode:      "X1",
		ConceptName:      "house blend",
	}
	if err := db.WithContext(ctx).Create(custom).Error; err != nil {
		t.Fatalf("seed custom concept: %v", err)
	}

	resolved, err := newResolver(t, db).Resolve(ctx, gc.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 4 {
		t.Fatalf("got %d members, want 4", len(resolved))
	}
	wantOrder := []int64{std.ConceptID, classification.ConceptID, nonStd.ConceptID}
	for i, want := range wantOrder {
		if resolved[i].ConceptID != want {
			t.Fatalf("position %d = concept %d, want %d", i, resolved[i].ConceptID, want)
		}
	}
	last := resolved[3]
	if !last.IsCustom || last.ConceptName != "house blend" || last.CustomConceptID == nil {
		t.Fatalf("custom concept not appended last: %+v", last)
	}
}

func TestResolveUnknownGeneralConcept(t *testing.T) {
	db := testutil.DB(t)
	if _, err := newResolver(t, db).Resolve(context.Background(), uuid.New()); err == nil {
		t.Fatal("want error for unknown general concept")
	}
}
