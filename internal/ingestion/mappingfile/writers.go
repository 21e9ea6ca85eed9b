package mappingfile

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// ExportRow is one mapping flattened for the delimited export writers.
type ExportRow struct {
	SourceCode         string
	SourceVocabularyID string
	SourceName         string
	TargetConceptID    int64
	TargetConceptName  string
	TargetDomainID     string
	MappedBy           string
	CreatedAt          time.Time
}

var sourceToConceptMapHeader = []string{
	"source_code", "source_concept_id", "source_vocabulary_id", "source_code_description",
	"target_concept_id", "target_vocabulary_id", "valid_start_date", "valid_end_date", "invalid_reason",
}

// WriteSourceToConceptMap writes rows in the OMOP source_to_concept_map
// layout. The source concept id column is always zero: exported codes are
// local codes, not vocabulary concepts.
func WriteSourceToConceptMap(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	records := [][]string{sourceToConceptMapHeader}
	for _, r := range rows {
		records = append(records, []string{
			r.SourceCode,
			"0",
			r.SourceVocabularyID,
			r.SourceName,
			strconv.FormatInt(r.TargetConceptID, 10),
			r.TargetDomainID,
			r.CreatedAt.Format("2006-01-02"),
			"2099-12-31",
			"",
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

var usagiHeader = []string{
	"sourceCode", "sourceName", "sourceVocabularyId", "sourceFrequency",
	"conceptId", "conceptName", "domainId", "mappingStatus", "equivalence",
	"statusSetBy", "statusSetOn", "mappingType", "comment", "createdBy", "createdOn",
}

// WriteUsagi writes rows in the Usagi review-file layout.
func WriteUsagi(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	records := [][]string{usagiHeader}
	for _, r := range rows {
		ts := strconv.FormatInt(r.CreatedAt.UnixMilli(), 10)
		records = append(records, []string{
			r.SourceCode,
			r.SourceName,
			r.SourceVocabularyID,
			"-1",
			strconv.FormatInt(r.TargetConceptID, 10),
			r.TargetConceptName,
			r.TargetDomainID,
			"APPROVED",
			"EQUAL",
			r.MappedBy,
			ts,
			"MAPS_TO",
			"",
			r.MappedBy,
			ts,
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
