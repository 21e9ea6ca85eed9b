package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, firstName, lastName string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedConcept(tb testing.TB, ctx context.Context, tx *gorm.DB, id int64, name, vocabularyID, code, standard string) *types.Concept {
	tb.Helper()
	c := &types.Concept{
		ConceptID:       id,
		ConceptName:     name,
		DomainID:        "Condition",
		VocabularyID:    vocabularyID,
		ConceptClassID:  "Clinical Finding",
		StandardConcept: standard,
		ConceptCode:     code,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed concept: %v", err)
	}
	return c
}

func SeedAncestor(tb testing.TB, ctx context.Context, tx *gorm.DB, ancestorID, descendantID int64, levels int) {
	tb.Helper()
	ca := &types.ConceptAncestor{
		AncestorConceptID:     ancestorID,
		DescendantConceptID:   descendantID,
		MinLevelsOfSeparation: levels,
		MaxLevelsOfSeparation: levels,
	}
	if err := tx.WithContext(ctx).Create(ca).Error; err != nil {
		tb.Fatalf("seed concept ancestor: %v", err)
	}
}

func SeedGeneralConcept(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.GeneralConcept {
	tb.Helper()
	gc := &types.GeneralConcept{
		ID:       uuid.New(),
		Name:     name,
		Category: "laboratory",
	}
	if err := tx.WithContext(ctx).Create(gc).Error; err != nil {
		tb.Fatalf("seed general concept: %v", err)
	}
	return gc
}

func SeedMappingEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, generalConceptID uuid.UUID, conceptID int64, descendants, ancestors bool) *types.DictionaryMappingEntry {
	tb.Helper()
	e := &types.DictionaryMappingEntry{
		ID:                 uuid.New(),
		GeneralConceptID:   generalConceptID,
		ConceptID:          conceptID,
		IncludeDescendants: descendants,
		IncludeAncestors:   ancestors,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed dictionary mapping entry: %v", err)
	}
	return e
}

func SeedAlignment(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Alignment {
	tb.Helper()
	a := &types.Alignment{
		ID:           uuid.New(),
		Name:         name,
		ColumnSchema: datatypes.JSON([]byte(`[]`)),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed alignment: %v", err)
	}
	return a
}

func SeedSourceRow(tb testing.TB, ctx context.Context, tx *gorm.DB, alignmentID uuid.UUID, rowID int, code, vocabularyID, name string) *types.SourceConceptRow {
	tb.Helper()
	row := &types.SourceConceptRow{
		ID:                 uuid.New(),
		AlignmentID:        alignmentID,
		RowID:              rowID,
		SourceCode:         code,
		SourceVocabularyID: vocabularyID,
		SourceName:         name,
		Fields:             datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed source row: %v", err)
	}
	return row
}

func SeedMapping(tb testing.TB, ctx context.Context, tx *gorm.DB, alignmentID uuid.UUID, rowID int, conceptID int64) *types.Mapping {
	tb.Helper()
	m := &types.Mapping{
		ID:          uuid.New(),
		AlignmentID: alignmentID,
		RowID:       rowID,
		ConceptID:   conceptID,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed mapping: %v", err)
	}
	return m
}
