package mappingfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		data     string
		want     string
	}{
		{"zip extension", "bundle.zip", "PK\x03\x04junk", FormatArchive},
		{"zip magic without extension", "bundle", "PK\x03\x04junk", FormatArchive},
		{"usagi header", "mappings.csv", "sourceCode,sourceName,conceptId\n", FormatUsagi},
		{"source to concept map header", "stcm.csv", "source_code,source_vocabulary_id,target_concept_id\n", FormatSourceToConceptMap},
		{"anything else", "data.csv", "code,target\n", FormatGeneric},
		{"semicolon delimited stcm", "stcm.csv", "source_code;target_concept_id\n", FormatSourceToConceptMap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat(tc.filename, []byte(tc.data)); got != tc.want {
				t.Fatalf("DetectFormat(%q) = %q, want %q", tc.filename, got, tc.want)
			}
		})
	}
}

func TestParseGeneric(t *testing.T) {
	cm := ColumnMapping{SourceCode: "code", TargetConceptID: "target"}

	t.Run("parses rows and skips blanks", func(t *testing.T) {
		in := "code,target\nA1,100\n,\nB2,200\n"
		pf, err := ParseGeneric(strings.NewReader(in), cm)
		if err != nil {
			t.Fatalf("ParseGeneric: %v", err)
		}
		if len(pf.Mappings) != 2 {
			t.Fatalf("got %d mappings, want 2", len(pf.Mappings))
		}
		if pf.Mappings[0].SourceCode != "A1" || pf.Mappings[0].TargetConceptID != 100 {
			t.Fatalf("unexpected first row: %+v", pf.Mappings[0])
		}
	})

	t.Run("non-integer target fails the whole file", func(t *testing.T) {
		in := "code,target\nA1,100\nB2,oops\n"
		_, err := ParseGeneric(strings.NewReader(in), cm)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if ve.Line != 3 {
			t.Fatalf("ValidationError line = %d, want 3", ve.Line)
		}
	})

	t.Run("missing mapped column", func(t *testing.T) {
		in := "other,target\nA1,100\n"
		_, err := ParseGeneric(strings.NewReader(in), cm)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want ValidationError, got %v", err)
		}
	})

	t.Run("optional vocabulary column", func(t *testing.T) {
		withVocab := ColumnMapping{SourceCode: "code", SourceVocabularyID: "vocab", TargetConceptID: "target"}
		in := "code,vocab,target\nA1,ICD10,100\n"
		pf, err := ParseGeneric(strings.NewReader(in), withVocab)
		if err != nil {
			t.Fatalf("ParseGeneric: %v", err)
		}
		if pf.Mappings[0].SourceVocabularyID != "ICD10" {
			t.Fatalf("vocabulary not captured: %+v", pf.Mappings[0])
		}
	})
}

func TestParseSourceToConceptMap(t *testing.T) {
	in := "source_code,source_vocabulary_id,source_code_description,target_concept_id\n" +
		"E11,ICD10,Type 2 diabetes,201826\n"
	pf, err := ParseSourceToConceptMap(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseSourceToConceptMap: %v", err)
	}
	if len(pf.Mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(pf.Mappings))
	}
	m := pf.Mappings[0]
	if m.SourceCode != "E11" || m.SourceVocabularyID != "ICD10" || m.SourceName != "Type 2 diabetes" || m.TargetConceptID != 201826 {
		t.Fatalf("unexpected mapping: %+v", m)
	}
}

func TestParseUsagi(t *testing.T) {
	in := "sourceCode,sourceName,sourceVocabularyId,conceptId,createdBy,mappingStatus,assignedReviewer\n" +
		"E11,Type 2 diabetes,ICD10,201826,Alice Smith,APPROVED,Bob Jones\n" +
		"I10,Hypertension,ICD10,316866,Alice Smith,UNCHECKED,\n"
	pf, err := ParseUsagi(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseUsagi: %v", err)
	}
	if len(pf.Mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(pf.Mappings))
	}
	if pf.Mappings[0].FirstName != "Alice" || pf.Mappings[0].LastName != "Smith" {
		t.Fatalf("createdBy not split: %+v", pf.Mappings[0])
	}
	if len(pf.Evaluations) != 1 {
		t.Fatalf("got %d evaluations, want 1 (approved row only)", len(pf.Evaluations))
	}
	e := pf.Evaluations[0]
	if e.Vote != "approve" || e.FirstName != "Bob" || e.LastName != "Jones" {
		t.Fatalf("unexpected evaluation: %+v", e)
	}
	if e.OldMappingID != pf.Mappings[0].OldMappingID {
		t.Fatalf("evaluation not linked to its mapping row")
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in, first, last string
	}{
		{"Alice Smith", "Alice", "Smith"},
		{"Alice", "Alice", ""},
		{"Mary Jane Watson", "Mary Jane", "Watson"},
		{"  ", "", ""},
	}
	for _, tc := range cases {
		first, last := splitName(tc.in)
		if first != tc.first || last != tc.last {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tc.in, first, last, tc.first, tc.last)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	export := ArchiveExport{
		Metadata: ArchiveMetadata{
			AlignmentName: "lab mappings",
			Description:   "round trip",
			ColumnSchema:  []ColumnType{{Name: "code", Type: "string"}},
		},
		Mappings: []MappingRow{
			{
				OldMappingID:       "m-1",
				RowPosition:        1,
				SourceCode:         "E11",
				SourceVocabularyID: "ICD10",
				SourceName:         "Type 2 diabetes",
				TargetConceptID:    201826,
				FirstName:          "Alice",
				LastName:           "Smith",
			},
		},
		Evaluations: []EvaluationRow{
			{OldMappingID: "m-1", Vote: "approve", FirstName: "Bob", LastName: "Jones"},
		},
		Comments: []CommentRow{
			{OldMappingID: "m-1", Text: "looks right", StatusAtCreation: "approved", FirstName: "Bob", LastName: "Jones"},
		},
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, export); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}

	pf, err := ParseArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseArchive: %v", err)
	}
	if pf.Format != FormatArchive {
		t.Fatalf("format = %q, want archive", pf.Format)
	}
	if pf.Metadata == nil || pf.Metadata.AlignmentName != "lab mappings" {
		t.Fatalf("metadata not round-tripped: %+v", pf.Metadata)
	}
	if len(pf.Mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(pf.Mappings))
	}
	m := pf.Mappings[0]
	if m.OldMappingID != "m-1" || m.RowPosition != 1 || m.TargetConceptID != 201826 || m.FirstName != "Alice" {
		t.Fatalf("mapping not round-tripped: %+v", m)
	}
	if len(pf.Evaluations) != 1 || pf.Evaluations[0].Vote != "approve" {
		t.Fatalf("evaluations not round-tripped: %+v", pf.Evaluations)
	}
	if len(pf.Comments) != 1 || pf.Comments[0].Text != "looks right" {
		t.Fatalf("comments not round-tripped: %+v", pf.Comments)
	}
}

func TestParseArchiveRejectsGarbage(t *testing.T) {
	_, err := ParseArchive([]byte("not a zip"))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestReadDelimitedSniffsDelimiter(t *testing.T) {
	tab := "code\tname\nA1\tAspirin\n"
	table, err := ReadDelimited(strings.NewReader(tab))
	if err != nil {
		t.Fatalf("ReadDelimited: %v", err)
	}
	if len(table.Headers) != 2 || table.Headers[1] != "name" {
		t.Fatalf("headers = %v", table.Headers)
	}
	if table.Rows[0]["name"] != "Aspirin" {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestReadDelimitedStripsByteOrderMark(t *testing.T) {
	table, err := ReadDelimited(strings.NewReader("\ufeffcode,name\nA1,Aspirin\n"))
	if err != nil {
		t.Fatalf("ReadDelimited: %v", err)
	}
	if table.Headers[0] != "code" {
		t.Fatalf("BOM not stripped from first header: %q", table.Headers[0])
	}
	if table.Rows[0]["code"] != "A1" {
		t.Fatalf("rows = %v", table.Rows)
	}
}
