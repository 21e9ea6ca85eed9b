package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
)

func newExport(tb testing.TB, db *gorm.DB) ExportService {
	tb.Helper()
	log := testutil.Logger(tb)
	return NewExportService(
		db,
		repos.NewAlignmentRepo(db, log),
		repos.NewSourceRowRepo(db, log),
		repos.NewMappingRepo(db, log),
		repos.NewEvaluationRepo(db, log),
		repos.NewCommentRepo(db, log),
		repos.NewConceptRepo(db, log),
		repos.NewUserRepo(db, log),
		log,
	)
}

func TestSelected(t *testing.T) {
	approvedOnly := map[string]bool{StatusApproved: true}
	cases := []struct {
		name     string
		counts   repos.VoteCounts
		statuses map[string]bool
		policy   string
		want     bool
	}{
		{"majority keeps 3a1r", repos.VoteCounts{Approves: 3, Rejects: 1}, approvedOnly, PolicyMajority, true},
		{"majority drops 2a2r", repos.VoteCounts{Approves: 2, Rejects: 2}, approvedOnly, PolicyMajority, false},
		{"no_rejection drops 3a1r", repos.VoteCounts{Approves: 3, Rejects: 1}, approvedOnly, PolicyNoRejection, false},
		{"no_rejection keeps 3a0r", repos.VoteCounts{Approves: 3}, approvedOnly, PolicyNoRejection, true},
		{"all keeps any approved", repos.VoteCounts{Approves: 1, Rejects: 4}, approvedOnly, PolicyAll, true},
		{"status filter drops rejected", repos.VoteCounts{Rejects: 1}, approvedOnly, PolicyAll, false},
		{"policy ignores non-approved", repos.VoteCounts{Rejects: 1}, nil, PolicyNoRejection, true},
		{"empty filter keeps unevaluated", repos.VoteCounts{}, nil, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := selected(tc.counts, tc.statuses, tc.policy); got != tc.want {
				t.Fatalf("selected(%+v, %v, %q) = %v, want %v", tc.counts, tc.statuses, tc.policy, got, tc.want)
			}
		})
	}
}

// seedExportFixture builds an alignment with two mappings: row 1 approved
// 3-1, row 2 approved 2-2.
func seedExportFixture(tb testing.TB, db *gorm.DB) *types.Alignment {
	tb.Helper()
	ctx := context.Background()
	testutil.SeedConcept(tb, ctx, db, 201826, "Type 2 diabetes mellitus", "SNOMED", "44054006", "S")
	testutil.SeedConcept(tb, ctx, db, 316866, "Hypertensive disorder", "SNOMED", "38341003", "S")
	a := testutil.SeedAlignment(tb, ctx, db, "labs")
	testutil.SeedSourceRow(tb, ctx, db, a.ID, 1, "E11", "ICD10", "Type 2 diabetes")
	testutil.SeedSourceRow(tb, ctx, db, a.ID, 2, "I10", "ICD10", "Hypertension")
	m1 := testutil.SeedMapping(tb, ctx, db, a.ID, 1, 201826)
	m2 := testutil.SeedMapping(tb, ctx, db, a.ID, 2, 316866)

	svc := newEvaluations(tb, db)
	vote := func(m uuid.UUID, v string) {
		reviewer := testutil.SeedUser(tb, ctx, db, uuid.NewString()+"@example.org", "R", uuid.NewString()[:8])
		if _, err := svc.RecordVote(ctx, m, reviewer.ID, v); err != nil {
			tb.Fatalf("RecordVote: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		vote(m1.ID, types.VoteApprove)
	}
	vote(m1.ID, types.VoteReject)
	for i := 0; i < 2; i++ {
		vote(m2.ID, types.VoteApprove)
		vote(m2.ID, types.VoteReject)
	}
	return a
}

func TestExportMajorityPolicyFilters(t *testing.T) {
	db := testutil.DB(t)
	a := seedExportFixture(t, db)

	var buf bytes.Buffer
	name, err := newExport(t, db).Export(context.Background(), &buf, ExportRequest{
		AlignmentID: a.ID,
		Format:      types.FormatSourceToConceptMap,
		Statuses:    []string{StatusApproved},
		Policy:      PolicyMajority,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "labs_source_to_concept_map.csv" {
		t.Fatalf("file name = %q", name)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	// Header plus the 3-1 row; the 2-2 tie is excluded.
	if len(records) != 2 {
		t.Fatalf("got %d records, want header + 1 row:\n%v", len(records), records)
	}
	row := records[1]
	if row[0] != "E11" || !strings.Contains(strings.Join(row, ","), "201826") {
		t.Fatalf("unexpected exported row: %v", row)
	}
}

func TestExportAllPolicyKeepsBoth(t *testing.T) {
	db := testutil.DB(t)
	a := seedExportFixture(t, db)

	var buf bytes.Buffer
	_, err := newExport(t, db).Export(context.Background(), &buf, ExportRequest{
		AlignmentID: a.ID,
		Format:      types.FormatSourceToConceptMap,
		Statuses:    []string{StatusApproved},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
}

func TestExportUsagiShape(t *testing.T) {
	db := testutil.DB(t)
	a := seedExportFixture(t, db)

	var buf bytes.Buffer
	name, err := newExport(t, db).Export(context.Background(), &buf, ExportRequest{
		AlignmentID: a.ID,
		Format:      types.FormatUsagi,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "labs_usagi.csv" {
		t.Fatalf("file name = %q", name)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	header := records[0]
	if header[0] != "sourceCode" {
		t.Fatalf("header = %v", header)
	}
	for _, row := range records[1:] {
		if len(row) != len(header) {
			t.Fatalf("ragged row: %v", row)
		}
	}
}

func TestExportArchiveRoundTripsThroughImport(t *testing.T) {
	db := testutil.DB(t)
	a := seedExportFixture(t, db)
	ctx := context.Background()

	var buf bytes.Buffer
	name, err := newExport(t, db).Export(ctx, &buf, ExportRequest{
		AlignmentID: a.ID,
		Format:      types.FormatArchive,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "labs.zip" {
		t.Fatalf("file name = %q", name)
	}

	parsed, err := mappingfile.ParseArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseArchive: %v", err)
	}
	if parsed.Metadata == nil || parsed.Metadata.AlignmentName != "labs" {
		t.Fatalf("metadata = %+v", parsed.Metadata)
	}
	if len(parsed.Mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(parsed.Mappings))
	}
	if len(parsed.Evaluations) != 8 {
		t.Fatalf("got %d evaluations, want all 8 carried", len(parsed.Evaluations))
	}

	// The archive re-imports into a fresh alignment with nothing lost.
	b := testutil.SeedAlignment(t, ctx, db, "labs-copy")
	testutil.SeedSourceRow(t, ctx, db, b.ID, 1, "E11", "ICD10", "Type 2 diabetes")
	testutil.SeedSourceRow(t, ctx, db, b.ID, 2, "I10", "ICD10", "Hypertension")
	summary, err := newImporter(t, db, nil).Merge(ctx, b.ID, name, buf.Bytes(), MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if summary.Accepted != 2 {
		t.Fatalf("re-import accepted %d, want 2", summary.Accepted)
	}
}

func TestExportRejectsUnknownPolicy(t *testing.T) {
	db := testutil.DB(t)
	a := seedExportFixture(t, db)
	var buf bytes.Buffer
	_, err := newExport(t, db).Export(context.Background(), &buf, ExportRequest{
		AlignmentID: a.ID,
		Format:      types.FormatSourceToConceptMap,
		Policy:      "strict",
	})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}
