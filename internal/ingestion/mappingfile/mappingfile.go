// Package mappingfile parses and writes the mapping-exchange files the
// import merge engine and the export surface speak: generic delimited files
// with a caller-supplied column mapping, the source-to-concept-map layout,
// Usagi exports, and the portable archive bundle.
package mappingfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Recognized file formats.
const (
	FormatGeneric            = "generic"
	FormatSourceToConceptMap = "source_to_concept_map"
	FormatUsagi              = "usagi"
	FormatArchive            = "archive"
)

// ColumnMapping names the columns of a generic delimited file. The source
// vocabulary column is optional; an empty string means the file carries no
// vocabulary and rows match on code alone.
type ColumnMapping struct {
	SourceCode         string `json:"source_code"`
	SourceVocabularyID string `json:"source_vocabulary_id,omitempty"`
	TargetConceptID    string `json:"target_concept_id"`
}

// MappingRow is one parsed input mapping, normalized across formats.
// RowPosition and OldMappingID are only set by the archive parser.
type MappingRow struct {
	OldMappingID       string
	RowPosition        int
	SourceCode         string
	SourceVocabularyID string
	SourceName         string
	GeneralConceptID   string
	TargetConceptID    int64
	FirstName          string
	LastName           string
}

// EvaluationRow is one archived vote, keyed by the exporting installation's
// mapping id and the evaluator's name.
type EvaluationRow struct {
	OldMappingID string
	Vote         string
	FirstName    string
	LastName     string
}

// CommentRow is one archived comment.
type CommentRow struct {
	OldMappingID     string
	Text             string
	StatusAtCreation string
	FirstName        string
	LastName         string
}

// ColumnType declares one uploaded column for the archive metadata.
type ColumnType struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ArchiveMetadata is the descriptor bundled in a portable archive. All
// identity fields across the archive are names, never numeric ids, so the
// bundle stays portable between installations with separate user registries.
type ArchiveMetadata struct {
	AlignmentName string       `json:"alignment_name"`
	Description   string       `json:"description"`
	ColumnSchema  []ColumnType `json:"column_schema"`
}

// ParsedFile is the format-independent result of parsing an import file.
type ParsedFile struct {
	Format      string
	Mappings    []MappingRow
	Evaluations []EvaluationRow
	Comments    []CommentRow
	Metadata    *ArchiveMetadata
}

// ValidationError reports malformed input detected before any write.
type ValidationError struct {
	Line   int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: field %q: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// DetectFormat guesses the file format from the name and leading bytes.
func DetectFormat(filename string, data []byte) string {
	name := strings.ToLower(filename)
	if strings.HasSuffix(name, ".zip") || bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatArchive
	}
	header := firstLine(data)
	cols := map[string]bool{}
	for _, c := range splitDelimited(header, detectDelimiter(header)) {
		cols[strings.TrimSpace(c)] = true
	}
	if cols["sourceCode"] && cols["conceptId"] {
		return FormatUsagi
	}
	if cols["source_code"] && cols["target_concept_id"] {
		return FormatSourceToConceptMap
	}
	return FormatGeneric
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return strings.TrimRight(string(data[:i]), "\r")
	}
	return string(data)
}

// detectDelimiter sniffs comma, semicolon, or tab from the header line.
func detectDelimiter(header string) rune {
	best, count := ',', strings.Count(header, ",")
	if c := strings.Count(header, ";"); c > count {
		best, count = ';', c
	}
	if c := strings.Count(header, "\t"); c > count {
		best = '\t'
	}
	return best
}

// Table is a delimited file as header plus rows-by-column-name, the shape
// the alignment upload path consumes.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadDelimited parses an uploaded delimited file, sniffing the delimiter
// from the header line.
func ReadDelimited(r io.Reader) (*Table, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	return &Table{Headers: t.headers, Rows: t.rows}, nil
}

// table holds a delimited file as header plus rows-by-column-name.
type table struct {
	headers []string
	rows    []map[string]string
}

func readTable(r io.Reader) (*table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}
	delim := detectDelimiter(firstLine(head))

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited file: %w", err)
	}
	if len(records) == 0 {
		return nil, &ValidationError{Field: "header", Reason: "file is empty"}
	}

	t := &table{headers: records[0]}
	for i := range t.headers {
		t.headers[i] = strings.TrimSpace(strings.TrimPrefix(t.headers[i], "\ufeff"))
	}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(t.headers))
		for i, h := range t.headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) hasColumn(name string) bool {
	for _, h := range t.headers {
		if h == name {
			return true
		}
	}
	return false
}

func splitDelimited(line string, delim rune) []string {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = delim
	fields, err := cr.Read()
	if err != nil {
		return strings.Split(line, string(delim))
	}
	return fields
}

// splitName breaks a single display name into the (first, last) pair the
// identity registry is keyed on. The last space wins so middle names stay
// with the first name.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, ""
	}
	return strings.TrimSpace(full[:i]), strings.TrimSpace(full[i+1:])
}
