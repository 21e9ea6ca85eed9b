package mappingfile

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// File names inside a portable archive.
const (
	archiveMetadataFile    = "metadata.json"
	archiveMappingsFile    = "mappings.csv"
	archiveEvaluationsFile = "evaluations.csv"
	archiveCommentsFile    = "comments.csv"
)

var archiveMappingHeader = []string{
	"mapping_id", "row_id", "source_vocabulary_id", "source_code", "source_name",
	"general_concept_id", "target_concept_id", "mapped_by_first_name", "mapped_by_last_name",
}

var archiveEvaluationHeader = []string{
	"mapping_id", "vote", "evaluator_first_name", "evaluator_last_name",
}

var archiveCommentHeader = []string{
	"mapping_id", "text", "status_at_creation", "author_first_name", "author_last_name",
}

// ParseArchive reads a portable archive bundle. The metadata descriptor and
// the mappings table are mandatory; evaluations and comments are optional.
func ParseArchive(data []byte) (*ParsedFile, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ValidationError{Field: "archive", Reason: "not a readable zip bundle"}
	}

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if files[archiveMetadataFile] == nil || files[archiveMappingsFile] == nil {
		return nil, &ValidationError{Field: "archive", Reason: "bundle is missing metadata.json or mappings.csv"}
	}

	pf := &ParsedFile{Format: FormatArchive}

	raw, err := readZipFile(files[archiveMetadataFile])
	if err != nil {
		return nil, err
	}
	var meta ArchiveMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &ValidationError{Field: archiveMetadataFile, Reason: "malformed metadata descriptor"}
	}
	pf.Metadata = &meta

	if err := parseArchiveMappings(files[archiveMappingsFile], pf); err != nil {
		return nil, err
	}
	if f := files[archiveEvaluationsFile]; f != nil {
		if err := parseArchiveEvaluations(f, pf); err != nil {
			return nil, err
		}
	}
	if f := files[archiveCommentsFile]; f != nil {
		if err := parseArchiveComments(f, pf); err != nil {
			return nil, err
		}
	}
	return pf, nil
}

func parseArchiveMappings(f *zip.File, pf *ParsedFile) error {
	t, err := readZipTable(f)
	if err != nil {
		return err
	}
	for _, required := range []string{"mapping_id", "row_id", "target_concept_id"} {
		if !t.hasColumn(required) {
			return &ValidationError{Field: required, Reason: "column not found in " + archiveMappingsFile}
		}
	}
	for i, row := range t.rows {
		m := MappingRow{
			OldMappingID:       row["mapping_id"],
			SourceCode:         row["source_code"],
			SourceVocabularyID: row["source_vocabulary_id"],
			SourceName:         row["source_name"],
			GeneralConceptID:   row["general_concept_id"],
			FirstName:          row["mapped_by_first_name"],
			LastName:           row["mapped_by_last_name"],
		}
		if raw := row["row_id"]; raw != "" {
			pos, err := strconv.Atoi(raw)
			if err != nil {
				return &ValidationError{Line: i + 2, Field: "row_id", Reason: "not an integer row position"}
			}
			m.RowPosition = pos
		}
		if raw := row["target_concept_id"]; raw != "" {
			target, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return &ValidationError{Line: i + 2, Field: "target_concept_id", Reason: "not an integer concept id"}
			}
			m.TargetConceptID = target
		}
		pf.Mappings = append(pf.Mappings, m)
	}
	return nil
}

func parseArchiveEvaluations(f *zip.File, pf *ParsedFile) error {
	t, err := readZipTable(f)
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		if row["mapping_id"] == "" {
			continue
		}
		pf.Evaluations = append(pf.Evaluations, EvaluationRow{
			OldMappingID: row["mapping_id"],
			Vote:         row["vote"],
			FirstName:    row["evaluator_first_name"],
			LastName:     row["evaluator_last_name"],
		})
	}
	return nil
}

func parseArchiveComments(f *zip.File, pf *ParsedFile) error {
	t, err := readZipTable(f)
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		if row["mapping_id"] == "" {
			continue
		}
		pf.Comments = append(pf.Comments, CommentRow{
			OldMappingID:     row["mapping_id"],
			Text:             row["text"],
			StatusAtCreation: row["status_at_creation"],
			FirstName:        row["author_first_name"],
			LastName:         row["author_last_name"],
		})
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readZipTable(f *zip.File) (*table, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return readTable(rc)
}

// ArchiveExport is the material the export surface bundles into an archive.
type ArchiveExport struct {
	Metadata    ArchiveMetadata
	Mappings    []MappingRow
	Evaluations []EvaluationRow
	Comments    []CommentRow
}

// WriteArchive writes a portable archive to w in the exact shape
// ParseArchive reads back.
func WriteArchive(w io.Writer, export ArchiveExport) error {
	zw := zip.NewWriter(w)

	metaRaw, err := json.MarshalIndent(export.Metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeZipEntry(zw, archiveMetadataFile, metaRaw); err != nil {
		return err
	}

	mappings := [][]string{archiveMappingHeader}
	for _, m := range export.Mappings {
		mappings = append(mappings, []string{
			m.OldMappingID,
			strconv.Itoa(m.RowPosition),
			m.SourceVocabularyID,
			m.SourceCode,
			m.SourceName,
			m.GeneralConceptID,
			strconv.FormatInt(m.TargetConceptID, 10),
			m.FirstName,
			m.LastName,
		})
	}
	if err := writeZipCSV(zw, archiveMappingsFile, mappings); err != nil {
		return err
	}

	evaluations := [][]string{archiveEvaluationHeader}
	for _, e := range export.Evaluations {
		evaluations = append(evaluations, []string{e.OldMappingID, e.Vote, e.FirstName, e.LastName})
	}
	if err := writeZipCSV(zw, archiveEvaluationsFile, evaluations); err != nil {
		return err
	}

	comments := [][]string{archiveCommentHeader}
	for _, c := range export.Comments {
		comments = append(comments, []string{c.OldMappingID, c.Text, c.StatusAtCreation, c.FirstName, c.LastName})
	}
	if err := writeZipCSV(zw, archiveCommentsFile, comments); err != nil {
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeZipCSV(zw *zip.Writer, name string, records [][]string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	cw.Flush()
	return cw.Error()
}
