package mappingfile

import (
	"io"
	"strconv"
)

// Well-known source-to-concept-map column names.
const (
	stcmSourceCode        = "source_code"
	stcmSourceVocabulary  = "source_vocabulary_id"
	stcmSourceDescription = "source_code_description"
	stcmTargetConcept     = "target_concept_id"
)

// ParseSourceToConceptMap reads the standard source-to-concept-map layout.
func ParseSourceToConceptMap(r io.Reader) (*ParsedFile, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{stcmSourceCode, stcmTargetConcept} {
		if !t.hasColumn(required) {
			return nil, &ValidationError{Field: required, Reason: "column not found"}
		}
	}

	pf := &ParsedFile{Format: FormatSourceToConceptMap}
	for i, row := range t.rows {
		code := row[stcmSourceCode]
		rawTarget := row[stcmTargetConcept]
		if code == "" && rawTarget == "" {
			continue
		}
		target, err := strconv.ParseInt(rawTarget, 10, 64)
		if err != nil {
			return nil, &ValidationError{Line: i + 2, Field: stcmTargetConcept, Reason: "not an integer concept id"}
		}
		pf.Mappings = append(pf.Mappings, MappingRow{
			SourceCode:         code,
			SourceVocabularyID: row[stcmSourceVocabulary],
			SourceName:         row[stcmSourceDescription],
			TargetConceptID:    target,
		})
	}
	return pf, nil
}
