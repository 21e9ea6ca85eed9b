package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
)

func newImporter(tb testing.TB, db *gorm.DB, mappingRepo repos.MappingRepo) ImporterService {
	tb.Helper()
	log := testutil.Logger(tb)
	if mappingRepo == nil {
		mappingRepo = repos.NewMappingRepo(db, log)
	}
	return NewImporterService(
		db,
		repos.NewAlignmentRepo(db, log),
		repos.NewSourceRowRepo(db, log),
		mappingRepo,
		repos.NewImportRepo(db, log),
		repos.NewEvaluationRepo(db, log),
		repos.NewCommentRepo(db, log),
		repos.NewConceptRepo(db, log),
		repos.NewGeneralConceptRepo(db, log),
		repos.NewUserRepo(db, log),
		log,
	)
}

func seedImportFixture(tb testing.TB, db *gorm.DB) *types.Alignment {
	tb.Helper()
	ctx := context.Background()
	testutil.SeedConcept(tb, ctx, db, 201826, "Type 2 diabetes mellitus", "SNOMED", "44054006", "S")
	testutil.SeedConcept(tb, ctx, db, 316866, "Hypertensive disorder", "SNOMED", "38341003", "S")
	a := testutil.SeedAlignment(tb, ctx, db, "labs")
	testutil.SeedSourceRow(tb, ctx, db, a.ID, 1, "E11", "ICD10", "Type 2 diabetes")
	testutil.SeedSourceRow(tb, ctx, db, a.ID, 2, "I10", "ICD10", "Hypertension")
	return a
}

func TestMergeCountsAcceptedDuplicateAndNoMatch(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)
	// Pre-existing mapping: E11 → 201826 is already in the alignment.
	testutil.SeedMapping(t, ctx, db, a.ID, 1, 201826)

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n" + // duplicate of the persisted mapping
		"I10,ICD10,Hypertension,316866\n" + // accepted
		"Z99,ICD10,No such row,316866\n" // no matching source row

	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 1 || summary.SkippedDuplicate != 1 || summary.SkippedNoMatch != 1 {
		t.Fatalf("summary = %+v, want 1/1/1", summary)
	}

	var batch types.Import
	if err := db.First(&batch, "id = ?", summary.ImportID).Error; err != nil {
		t.Fatalf("import row not persisted: %v", err)
	}
	if batch.AcceptedCount != 1 || batch.SkippedDuplicateCount != 1 || batch.SkippedNoMatchCount != 1 {
		t.Fatalf("import counters = %+v", batch)
	}
}

func TestMergeUnknownTargetConceptCountsNoMatch(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,999999\n"
	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 0 || summary.SkippedNoMatch != 1 {
		t.Fatalf("summary = %+v, want unknown target counted as no-match", summary)
	}
}

func TestMergeFallsBackToCodeWhenVocabularyDiffers(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	testutil.SeedConcept(t, ctx, db, 201826, "Type 2 diabetes mellitus", "SNOMED", "44054006", "S")
	a := testutil.SeedAlignment(t, ctx, db, "labs")
	// The alignment labels the vocabulary ICD10CM; the file says ICD10.
	testutil.SeedSourceRow(t, ctx, db, a.ID, 1, "E11", "ICD10CM", "Type 2 diabetes")

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n"
	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 1 || summary.SkippedNoMatch != 0 {
		t.Fatalf("code-only fallback did not match: %+v", summary)
	}

	var m types.Mapping
	if err := db.First(&m, "alignment_id = ?", a.ID).Error; err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if m.RowID != 1 {
		t.Fatalf("mapping attached to row %d, want 1", m.RowID)
	}
}

func TestMergeArchiveMatchesCodeBeforePosition(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)

	// Row order shifted since the archive was written: the position says
	// row 2 but (ICD10, E11) identifies row 1.
	export := mappingfile.ArchiveExport{
		Metadata: mappingfile.ArchiveMetadata{AlignmentName: "labs"},
		Mappings: []mappingfile.MappingRow{
			{OldMappingID: "m-1", RowPosition: 2, SourceCode: "E11", SourceVocabularyID: "ICD10",
				TargetConceptID: 201826},
		},
	}
	var buf bytes.Buffer
	if err := mappingfile.WriteArchive(&buf, export); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "labs.zip", buf.Bytes(), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 1 {
		t.Fatalf("summary = %+v, want 1 accepted", summary)
	}
	var m types.Mapping
	if err := db.First(&m, "alignment_id = ?", a.ID).Error; err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if m.RowID != 1 {
		t.Fatalf("mapping attached to row %d, want row 1 via the code match", m.RowID)
	}
}

func TestMergeArchiveFallsBackToPosition(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)

	// No source code carried, so only the original position can place it.
	export := mappingfile.ArchiveExport{
		Metadata: mappingfile.ArchiveMetadata{AlignmentName: "labs"},
		Mappings: []mappingfile.MappingRow{
			{OldMappingID: "m-1", RowPosition: 2, TargetConceptID: 316866},
		},
	}
	var buf bytes.Buffer
	if err := mappingfile.WriteArchive(&buf, export); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "labs.zip", buf.Bytes(), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 1 {
		t.Fatalf("summary = %+v, want 1 accepted", summary)
	}
	var m types.Mapping
	if err := db.First(&m, "alignment_id = ?", a.ID).Error; err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if m.RowID != 2 {
		t.Fatalf("mapping attached to row %d, want row 2 via position", m.RowID)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)
	importer := newImporter(t, db, nil)

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n" +
		"I10,ICD10,Hypertension,316866\n"

	first, err := importer.Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	if first.Accepted != 2 {
		t.Fatalf("first merge accepted %d, want 2", first.Accepted)
	}

	second, err := importer.Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if second.Accepted != 0 || second.SkippedDuplicate != 2 {
		t.Fatalf("second merge = %+v, want all duplicates", second)
	}

	var count int64
	if err := db.Model(&types.Mapping{}).Where("alignment_id = ?", a.ID).Count(&count).Error; err != nil {
		t.Fatalf("count mappings: %v", err)
	}
	if count != 2 {
		t.Fatalf("mapping count = %d after re-import, want 2", count)
	}
}

func TestMergeValidationErrorWritesNothing(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n" +
		"I10,ICD10,Hypertension,not-a-number\n"
	_, err := newImporter(t, db, nil).Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	var ve *mappingfile.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}

	var count int64
	_ = db.Model(&types.Mapping{}).Where("alignment_id = ?", a.ID).Count(&count).Error
	if count != 0 {
		t.Fatalf("mappings written despite validation failure: %d", count)
	}
	_ = db.Model(&types.Import{}).Where("alignment_id = ?", a.ID).Count(&count).Error
	if count != 0 {
		t.Fatalf("import row written despite validation failure: %d", count)
	}
}

// failingMappingRepo breaks on the batch insert to exercise rollback.
type failingMappingRepo struct {
	repos.MappingRepo
}

func (f *failingMappingRepo) Create(dbc dbctx.Context, mappings []*types.Mapping) ([]*types.Mapping, error) {
	return nil, errors.New("storage failure")
}

func TestMergeRollsBackOnStorageFailure(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)
	log := testutil.Logger(t)

	importer := newImporter(t, db, &failingMappingRepo{repos.NewMappingRepo(db, log)})
	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n"
	if _, err := importer.Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil); err == nil {
		t.Fatal("want storage failure to surface")
	}

	var count int64
	_ = db.Model(&types.Import{}).Where("alignment_id = ?", a.ID).Count(&count).Error
	if count != 0 {
		t.Fatalf("import row survived rollback: %d", count)
	}
	_ = db.Model(&types.Mapping{}).Where("alignment_id = ?", a.ID).Count(&count).Error
	if count != 0 {
		t.Fatalf("mappings survived rollback: %d", count)
	}
}

func TestMergeArchiveEndToEnd(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)
	alice := testutil.SeedUser(t, ctx, db, "alice@example.org", "Alice", "Smith")

	export := mappingfile.ArchiveExport{
		Metadata: mappingfile.ArchiveMetadata{AlignmentName: "labs"},
		Mappings: []mappingfile.MappingRow{
			{OldMappingID: "m-1", RowPosition: 1, SourceCode: "E11", SourceVocabularyID: "ICD10",
				TargetConceptID: 201826, FirstName: "Alice", LastName: "Smith"},
			{OldMappingID: "m-2", RowPosition: 2, SourceCode: "I10", SourceVocabularyID: "ICD10",
				TargetConceptID: 316866, FirstName: "Bob", LastName: "Unknown"},
		},
		Evaluations: []mappingfile.EvaluationRow{
			{OldMappingID: "m-1", Vote: "approve", FirstName: "Bob", LastName: "Unknown"},
			{OldMappingID: "m-2", Vote: "reject", FirstName: "Alice", LastName: "Smith"},
		},
		Comments: []mappingfile.CommentRow{
			{OldMappingID: "m-1", Text: "double-checked", StatusAtCreation: "approved", FirstName: "Bob", LastName: "Unknown"},
		},
	}
	var buf bytes.Buffer
	if err := mappingfile.WriteArchive(&buf, export); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	summary, err := newImporter(t, db, nil).Merge(ctx, a.ID, "labs.zip", buf.Bytes(), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 2 {
		t.Fatalf("accepted = %d, want 2", summary.Accepted)
	}
	if len(summary.UnresolvedIdentities) != 1 || summary.UnresolvedIdentities[0] != "Bob Unknown" {
		t.Fatalf("unresolved = %v, want [Bob Unknown]", summary.UnresolvedIdentities)
	}

	var mappings []types.Mapping
	if err := db.Where("alignment_id = ?", a.ID).Order("row_id").Find(&mappings).Error; err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(mappings))
	}
	if mappings[0].MappedByUserID == nil || *mappings[0].MappedByUserID != alice.ID {
		t.Fatalf("Alice's mapping not resolved to her account: %+v", mappings[0])
	}
	if mappings[0].AuthorDisplay() != "Alice Smith" {
		t.Fatalf("resolved author lost the imported name: %+v", mappings[0])
	}
	if mappings[1].MappedByUserID != nil || mappings[1].AuthorDisplay() != "Bob Unknown" {
		t.Fatalf("Bob's mapping should keep the display name: %+v", mappings[1])
	}

	var evals []types.Evaluation
	if err := db.Where("mapping_id IN ?", []uuid.UUID{mappings[0].ID, mappings[1].ID}).Find(&evals).Error; err != nil {
		t.Fatalf("load evaluations: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("got %d evaluations, want 2 re-attached", len(evals))
	}
	for _, e := range evals {
		switch e.MappingID {
		case mappings[0].ID:
			if e.Vote != "approve" || e.EvaluatorName != "Bob Unknown" {
				t.Fatalf("unexpected evaluation on first mapping: %+v", e)
			}
		case mappings[1].ID:
			if e.Vote != "reject" || e.EvaluatorUserID != alice.ID {
				t.Fatalf("unexpected evaluation on second mapping: %+v", e)
			}
		}
	}

	var comments []types.Comment
	if err := db.Where("mapping_id = ?", mappings[0].ID).Find(&comments).Error; err != nil {
		t.Fatalf("load comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "double-checked" || comments[0].StatusAtCreation != "approved" {
		t.Fatalf("comment not re-attached: %+v", comments)
	}
}

func TestMergeGenericNeedsColumnMapping(t *testing.T) {
	db := testutil.DB(t)
	a := seedImportFixture(t, db)
	_, err := newImporter(t, db, nil).Merge(context.Background(), a.ID, "data.csv",
		[]byte("code,target\nE11,201826\n"), MergeOptions{Format: mappingfile.FormatGeneric}, nil)
	if err == nil {
		t.Fatal("want error without a column mapping")
	}
}

func TestDedupKeyUniformAcrossPaths(t *testing.T) {
	g := uuid.New()
	// The same source identity and target must collide regardless of the
	// row they entered through.
	a := dedupKey("ICD10", "E11", 1, g, 201826, uuid.Nil)
	b := dedupKey("icd10", "e11", 7, g, 201826, uuid.Nil)
	if a != b {
		t.Fatalf("code-bearing keys differ by row/case: %q vs %q", a, b)
	}
	// Without a code the row position keeps rows apart.
	c := dedupKey("", "", 1, g, 201826, uuid.Nil)
	d := dedupKey("", "", 2, g, 201826, uuid.Nil)
	if c == d {
		t.Fatal("codeless keys must not collide across rows")
	}
	// Different targets never collide.
	if dedupKey("ICD10", "E11", 1, g, 201826, uuid.Nil) == dedupKey("ICD10", "E11", 1, g, 316866, uuid.Nil) {
		t.Fatal("different targets must not collide")
	}
}

func TestUndoImportRemovesItsMappings(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	a := seedImportFixture(t, db)
	importer := newImporter(t, db, nil)

	file := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n"
	summary, err := importer.Merge(ctx, a.ID, "stcm.csv", []byte(file), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := importer.Undo(ctx, summary.ImportID); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	var count int64
	_ = db.Model(&types.Mapping{}).Where("alignment_id = ?", a.ID).Count(&count).Error
	if count != 0 {
		t.Fatalf("mappings remain after undo: %d", count)
	}
	_ = db.Model(&types.Import{}).Where("id = ?", summary.ImportID).Count(&count).Error
	if count != 0 {
		t.Fatal("import row remains after undo")
	}
}
