package mappingfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Well-known Usagi export column names.
const (
	usagiSourceCode       = "sourceCode"
	usagiSourceName       = "sourceName"
	usagiSourceVocabulary = "sourceVocabularyId"
	usagiConceptID        = "conceptId"
	usagiCreatedBy        = "createdBy"
	usagiMappingStatus    = "mappingStatus"
	usagiAssignedReviewer = "assignedReviewer"
)

// ParseUsagi reads a Usagi mapping export. The createdBy display name, when
// present, carries the author identity the merge engine tries to resolve.
func ParseUsagi(r io.Reader) (*ParsedFile, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{usagiSourceCode, usagiConceptID} {
		if !t.hasColumn(required) {
			return nil, &ValidationError{Field: required, Reason: "column not found"}
		}
	}

	pf := &ParsedFile{Format: FormatUsagi}
	for i, row := range t.rows {
		code := row[usagiSourceCode]
		rawTarget := row[usagiConceptID]
		if code == "" && rawTarget == "" {
			continue
		}
		target, err := strconv.ParseInt(rawTarget, 10, 64)
		if err != nil {
			return nil, &ValidationError{Line: i + 2, Field: usagiConceptID, Reason: "not an integer concept id"}
		}
		m := MappingRow{
			OldMappingID:       fmt.Sprintf("row-%d", i+2),
			SourceCode:         code,
			SourceVocabularyID: row[usagiSourceVocabulary],
			SourceName:         row[usagiSourceName],
			TargetConceptID:    target,
		}
		m.FirstName, m.LastName = splitName(row[usagiCreatedBy])
		pf.Mappings = append(pf.Mappings, m)

		// An approved Usagi row with an assigned reviewer carries that
		// reviewer's approval along with the mapping.
		if strings.EqualFold(row[usagiMappingStatus], "APPROVED") && row[usagiAssignedReviewer] != "" {
			e := EvaluationRow{OldMappingID: m.OldMappingID, Vote: "approve"}
			e.FirstName, e.LastName = splitName(row[usagiAssignedReviewer])
			pf.Evaluations = append(pf.Evaluations, e)
		}
	}
	return pf, nil
}
