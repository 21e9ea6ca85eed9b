package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
)

func newAlignments(tb testing.TB, db *gorm.DB) AlignmentService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewAlignmentService(
		db,
		repos.NewAlignmentRepo(db, log),
		repos.NewSourceRowRepo(db, log),
		repos.NewMappingRepo(db, log),
		repos.NewImportRepo(db, log),
		repos.NewEvaluationRepo(db, log),
		repos.NewCommentRepo(db, log),
		repos.NewConceptRepo(db, log),
		log,
	)
}

func TestCreateAlignmentFromUpload(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := newAlignments(t, db)

	upload := "source_code,source_vocabulary_id,source_name,frequency\n" +
		"E11,ICD10,Type 2 diabetes,120\n" +
		"I10,ICD10,Hypertension,75\n"
	a, err := svc.Create(ctx, CreateAlignmentRequest{
		Name:           "labs",
		Description:    "lab codes",
		SourceFileName: "labs.csv",
		Data:           []byte(upload),
		ColumnTypes:    map[string]string{"frequency": "integer"},
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows, err := svc.Rows(ctx, a.ID)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	first := rows[0]
	if first.RowID != 1 || first.SourceCode != "E11" || first.SourceVocabularyID != "ICD10" || first.SourceName != "Type 2 diabetes" {
		t.Fatalf("row fields not picked up: %+v", first)
	}

	detail, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.RowCount != 2 || detail.MappingCount != 0 {
		t.Fatalf("detail counts = %+v", detail)
	}
}

func TestCreateAlignmentRejectsEmptyUpload(t *testing.T) {
	db := testutil.DB(t)
	svc := newAlignments(t, db)
	_, err := svc.Create(context.Background(), CreateAlignmentRequest{
		Name: "empty",
		Data: []byte("source_code,source_name\n"),
	}, nil)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestCreateMappingValidatesRowAndTarget(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	testutil.SeedConcept(t, ctx, db, 201826, "Type 2 diabetes mellitus", "SNOMED", "44054006", "S")
	a := testutil.SeedAlignment(t, ctx, db, "labs")
	testutil.SeedSourceRow(t, ctx, db, a.ID, 1, "E11", "ICD10", "Type 2 diabetes")
	svc := newAlignments(t, db)

	m, err := svc.CreateMapping(ctx, CreateMappingRequest{AlignmentID: a.ID, RowID: 1, ConceptID: 201826}, nil)
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	if m.ConceptID != 201826 || m.GeneralConceptID != uuid.Nil || m.CustomConceptID != uuid.Nil {
		t.Fatalf("sentinel targets not defaulted: %+v", m)
	}

	if _, err := svc.CreateMapping(ctx, CreateMappingRequest{AlignmentID: a.ID, RowID: 9, ConceptID: 201826}, nil); err == nil {
		t.Fatal("want error for unknown row")
	}
	if _, err := svc.CreateMapping(ctx, CreateMappingRequest{AlignmentID: a.ID, RowID: 1, ConceptID: 999999}, nil); err == nil {
		t.Fatal("want error for unknown concept")
	}
}

func TestDeleteAlignmentCascades(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	m := seedMappingFixture(t, db)
	evaluator := testutil.SeedUser(t, ctx, db, "eve@example.org", "Eve", "Reviewer")
	evals := newEvaluations(t, db)
	if _, err := evals.RecordVote(ctx, m.ID, evaluator.ID, types.VoteApprove); err != nil {
		t.Fatalf("RecordVote: %v", err)
	}
	if _, err := evals.AddComment(ctx, m.ID, evaluator.ID, "note"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := newAlignments(t, db).Delete(ctx, m.AlignmentID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, probe := range []struct {
		name  string
		model any
	}{
		{"alignments", &types.Alignment{}},
		{"source rows", &types.SourceConceptRow{}},
		{"mappings", &types.Mapping{}},
		{"evaluations", &types.Evaluation{}},
		{"comments", &types.Comment{}},
	} {
		var count int64
		if err := db.Model(probe.model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", probe.name, err)
		}
		if count != 0 {
			t.Fatalf("%s survived cascade: %d", probe.name, count)
		}
	}
}

func TestDeleteMappingRemovesVotes(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	m := seedMappingFixture(t, db)
	evaluator := testutil.SeedUser(t, ctx, db, "eve@example.org", "Eve", "Reviewer")
	if _, err := newEvaluations(t, db).RecordVote(ctx, m.ID, evaluator.ID, types.VoteApprove); err != nil {
		t.Fatalf("RecordVote: %v", err)
	}

	if err := newAlignments(t, db).DeleteMapping(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	var count int64
	_ = db.Model(&types.Evaluation{}).Count(&count).Error
	if count != 0 {
		t.Fatalf("evaluations survived mapping delete: %d", count)
	}
}
