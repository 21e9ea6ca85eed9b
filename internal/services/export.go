package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// Sub-policies for exporting approved mappings.
const (
	PolicyAll         = "all"
	PolicyMajority    = "majority"
	PolicyNoRejection = "no_rejection"
)

// ExportRequest selects and shapes one export. Statuses empty means every
// status; Policy tightens which approved mappings qualify and defaults to
// PolicyAll.
type ExportRequest struct {
	AlignmentID uuid.UUID `json:"alignment_id"`
	Format      string    `json:"format"`
	Statuses    []string  `json:"statuses"`
	Policy      string    `json:"policy"`
}

type ExportService interface {
	// Export writes the selected mappings to w in the requested format
	// and returns a suggested file name.
	Export(ctx context.Context, w io.Writer, req ExportRequest) (string, error)
}

type exportService struct {
	db             *gorm.DB
	alignmentRepo  repos.AlignmentRepo
	sourceRowRepo  repos.SourceRowRepo
	mappingRepo    repos.MappingRepo
	evaluationRepo repos.EvaluationRepo
	commentRepo    repos.CommentRepo
	conceptRepo    repos.ConceptRepo
	userRepo       repos.UserRepo
	log            *logger.Logger
}

func NewExportService(
	db *gorm.DB,
	alignmentRepo repos.AlignmentRepo,
	sourceRowRepo repos.SourceRowRepo,
	mappingRepo repos.MappingRepo,
	evaluationRepo repos.EvaluationRepo,
	commentRepo repos.CommentRepo,
	conceptRepo repos.ConceptRepo,
	userRepo repos.UserRepo,
	baseLog *logger.Logger,
) ExportService {
	return &exportService{
		db:             db,
		alignmentRepo:  alignmentRepo,
		sourceRowRepo:  sourceRowRepo,
		mappingRepo:    mappingRepo,
		evaluationRepo: evaluationRepo,
		commentRepo:    commentRepo,
		conceptRepo:    conceptRepo,
		userRepo:       userRepo,
		log:            baseLog.With("service", "ExportService"),
	}
}

// selected reports whether a mapping's votes pass the status filter and,
// for approved mappings, the sub-policy.
func selected(counts repos.VoteCounts, statuses map[string]bool, policy string) bool {
	status := ConsensusStatus(counts)
	if len(statuses) > 0 && !statuses[status] {
		return false
	}
	if status != StatusApproved {
		return true
	}
	switch policy {
	case "", PolicyAll:
		return true
	case PolicyMajority:
		return counts.Approves > counts.Rejects
	case PolicyNoRejection:
		return counts.Rejects == 0
	default:
		return true
	}
}

func (s *exportService) Export(ctx context.Context, w io.Writer, req ExportRequest) (string, error) {
	switch req.Policy {
	case "", PolicyAll, PolicyMajority, PolicyNoRejection:
	default:
		return "", fmt.Errorf("%w: unknown export policy %q", pkgerrors.ErrInvalidArgument, req.Policy)
	}

	dbc := dbctx.Context{Ctx: ctx}
	alignment, err := s.alignmentRepo.GetByID(dbc, req.AlignmentID)
	if err != nil {
		return "", err
	}
	rows, err := s.sourceRowRepo.GetByAlignmentID(dbc, req.AlignmentID)
	if err != nil {
		return "", err
	}
	rowsByID := make(map[int]*types.SourceConceptRow, len(rows))
	for _, row := range rows {
		rowsByID[row.RowID] = row
	}

	mappings, err := s.mappingRepo.GetByAlignmentID(dbc, req.AlignmentID)
	if err != nil {
		return "", err
	}
	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)
	}
	counts, err := s.evaluationRepo.CountByMappingIDs(dbc, ids)
	if err != nil {
		return "", err
	}
	countsByID := make(map[uuid.UUID]repos.VoteCounts, len(counts))
	for _, c := range counts {
		countsByID[c.MappingID] = c
	}

	statuses := make(map[string]bool, len(req.Statuses))
	for _, st := range req.Statuses {
		statuses[st] = true
	}

	var kept []*types.Mapping
	for _, m := range mappings {
		if selected(countsByID[m.ID], statuses, req.Policy) {
			kept = append(kept, m)
		}
	}

	switch req.Format {
	case mappingfile.FormatSourceToConceptMap:
		exportRows, err := s.flatRows(dbc, kept, rowsByID)
		if err != nil {
			return "", err
		}
		return alignment.Name + "_source_to_concept_map.csv", mappingfile.WriteSourceToConceptMap(w, exportRows)
	case mappingfile.FormatUsagi:
		exportRows, err := s.flatRows(dbc, kept, rowsByID)
		if err != nil {
			return "", err
		}
		return alignment.Name + "_usagi.csv", mappingfile.WriteUsagi(w, exportRows)
	case mappingfile.FormatArchive:
		bundle, err := s.archive(dbc, alignment, kept, rowsByID)
		if err != nil {
			return "", err
		}
		return alignment.Name + ".zip", mappingfile.WriteArchive(w, *bundle)
	default:
		return "", fmt.Errorf("%w: unknown export format %q", pkgerrors.ErrInvalidArgument, req.Format)
	}
}

// flatRows shapes mappings for the delimited writers. Only vocabulary
// concept targets are expressible there; general-concept-only and custom
// targets are skipped.
func (s *exportService) flatRows(dbc dbctx.Context, mappings []*types.Mapping, rowsByID map[int]*types.SourceConceptRow) ([]mappingfile.ExportRow, error) {
	conceptIDs := make([]int64, 0, len(mappings))
	for _, m := range mappings {
		if m.ConceptID != 0 {
			conceptIDs = append(conceptIDs, m.ConceptID)
		}
	}
	concepts, err := s.conceptRepo.GetByIDs(dbc, conceptIDs)
	if err != nil {
		return nil, err
	}
	conceptsByID := make(map[int64]*types.Concept, len(concepts))
	for _, c := range concepts {
		conceptsByID[c.ConceptID] = c
	}

	names, err := s.authorNames(dbc, mappings)
	if err != nil {
		return nil, err
	}

	out := make([]mappingfile.ExportRow, 0, len(mappings))
	for _, m := range mappings {
		row := rowsByID[m.RowID]
		concept := conceptsByID[m.ConceptID]
		if row == nil || concept == nil {
			continue
		}
		out = append(out, mappingfile.ExportRow{
			SourceCode:         row.SourceCode,
			SourceVocabularyID: row.SourceVocabularyID,
			SourceName:         row.SourceName,
			TargetConceptID:    concept.ConceptID,
			TargetConceptName:  concept.ConceptName,
			TargetDomainID:     concept.DomainID,
			MappedBy:           names[m.ID],
			CreatedAt:          m.CreatedAt,
		})
	}
	return out, nil
}

func (s *exportService) archive(dbc dbctx.Context, alignment *types.Alignment, mappings []*types.Mapping, rowsByID map[int]*types.SourceConceptRow) (*mappingfile.ArchiveExport, error) {
	var schema []mappingfile.ColumnType
	if len(alignment.ColumnSchema) > 0 {
		if err := json.Unmarshal(alignment.ColumnSchema, &schema); err != nil {
			return nil, fmt.Errorf("decode column schema: %w", err)
		}
	}
	bundle := &mappingfile.ArchiveExport{
		Metadata: mappingfile.ArchiveMetadata{
			AlignmentName: alignment.Name,
			Description:   alignment.Description,
			ColumnSchema:  schema,
		},
	}

	names, err := s.authorNames(dbc, mappings)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)

		row := rowsByID[m.RowID]
		out := mappingfile.MappingRow{
			OldMappingID:    m.ID.String(),
			RowPosition:     m.RowID,
			TargetConceptID: m.ConceptID,
		}
		if m.GeneralConceptID != uuid.Nil {
			out.GeneralConceptID = m.GeneralConceptID.String()
		}
		if row != nil {
			out.SourceCode = row.SourceCode
			out.SourceVocabularyID = row.SourceVocabularyID
			out.SourceName = row.SourceName
		}
		out.FirstName, out.LastName = splitDisplayName(names[m.ID])
		bundle.Mappings = append(bundle.Mappings, out)
	}

	evals, err := s.evaluationRepo.GetByMappingIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	evalNames, err := s.evaluatorNames(dbc, evals)
	if err != nil {
		return nil, err
	}
	for _, e := range evals {
		first, last := splitDisplayName(evalNames[e.ID])
		bundle.Evaluations = append(bundle.Evaluations, mappingfile.EvaluationRow{
			OldMappingID: e.MappingID.String(),
			Vote:         e.Vote,
			FirstName:    first,
			LastName:     last,
		})
	}

	comments, err := s.commentRepo.GetByMappingIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	commentNames, err := s.commentAuthorNames(dbc, comments)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		first, last := splitDisplayName(commentNames[c.ID])
		bundle.Comments = append(bundle.Comments, mappingfile.CommentRow{
			OldMappingID:     c.MappingID.String(),
			Text:             c.Text,
			StatusAtCreation: c.StatusAtCreation,
			FirstName:        first,
			LastName:         last,
		})
	}

	return bundle, nil
}

// authorNames resolves every mapping's provenance to a display name, by
// registry lookup for resolved authors and verbatim for imported ones.
func (s *exportService) authorNames(dbc dbctx.Context, mappings []*types.Mapping) (map[uuid.UUID]string, error) {
	var userIDs []uuid.UUID
	for _, m := range mappings {
		if m.MappedByUserID != nil {
			userIDs = append(userIDs, *m.MappedByUserID)
		}
	}
	users, err := s.usersByID(dbc, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(mappings))
	for _, m := range mappings {
		if m.MappedByUserID != nil {
			if u := users[*m.MappedByUserID]; u != nil {
				names[m.ID] = u.FullName()
				continue
			}
		}
		names[m.ID] = m.AuthorDisplay()
	}
	return names, nil
}

func (s *exportService) evaluatorNames(dbc dbctx.Context, evals []*types.Evaluation) (map[uuid.UUID]string, error) {
	var userIDs []uuid.UUID
	for _, e := range evals {
		if e.EvaluatorUserID != uuid.Nil {
			userIDs = append(userIDs, e.EvaluatorUserID)
		}
	}
	users, err := s.usersByID(dbc, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(evals))
	for _, e := range evals {
		if u := users[e.EvaluatorUserID]; u != nil {
			names[e.ID] = u.FullName()
		} else {
			names[e.ID] = e.EvaluatorName
		}
	}
	return names, nil
}

func (s *exportService) commentAuthorNames(dbc dbctx.Context, comments []*types.Comment) (map[uuid.UUID]string, error) {
	var userIDs []uuid.UUID
	for _, c := range comments {
		if c.AuthorUserID != uuid.Nil {
			userIDs = append(userIDs, c.AuthorUserID)
		}
	}
	users, err := s.usersByID(dbc, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(comments))
	for _, c := range comments {
		if u := users[c.AuthorUserID]; u != nil {
			names[c.ID] = u.FullName()
		} else {
			names[c.ID] = c.AuthorName
		}
	}
	return names, nil
}

func (s *exportService) usersByID(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*types.User, error) {
	users, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func splitDisplayName(full string) (string, string) {
	if full == "" {
		return "", ""
	}
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
