package mappingfile

import (
	"io"
	"strconv"
)

// ParseGeneric reads an arbitrary delimited file using the caller-supplied
// column mapping. A target id that does not parse as an integer fails the
// whole file with a ValidationError; no partial result is returned.
func ParseGeneric(r io.Reader, cm ColumnMapping) (*ParsedFile, error) {
	if cm.SourceCode == "" {
		return nil, &ValidationError{Field: "source_code", Reason: "column mapping is required"}
	}
	if cm.TargetConceptID == "" {
		return nil, &ValidationError{Field: "target_concept_id", Reason: "column mapping is required"}
	}

	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if !t.hasColumn(cm.SourceCode) {
		return nil, &ValidationError{Field: cm.SourceCode, Reason: "column not found"}
	}
	if !t.hasColumn(cm.TargetConceptID) {
		return nil, &ValidationError{Field: cm.TargetConceptID, Reason: "column not found"}
	}
	if cm.SourceVocabularyID != "" && !t.hasColumn(cm.SourceVocabularyID) {
		return nil, &ValidationError{Field: cm.SourceVocabularyID, Reason: "column not found"}
	}

	pf := &ParsedFile{Format: FormatGeneric}
	for i, row := range t.rows {
		code := row[cm.SourceCode]
		rawTarget := row[cm.TargetConceptID]
		if code == "" && rawTarget == "" {
			continue
		}
		target, err := strconv.ParseInt(rawTarget, 10, 64)
		if err != nil {
			return nil, &ValidationError{Line: i + 2, Field: cm.TargetConceptID, Reason: "not an integer concept id"}
		}
		m := MappingRow{
			SourceCode:      code,
			TargetConceptID: target,
		}
		if cm.SourceVocabularyID != "" {
			m.SourceVocabularyID = row[cm.SourceVocabularyID]
		}
		pf.Mappings = append(pf.Mappings, m)
	}
	return pf, nil
}
