package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// MergeOptions steer one merge. Format empty means detect from the file;
// ColumnMapping is required for the generic format and ignored otherwise.
type MergeOptions struct {
	Format        string
	ColumnMapping *mappingfile.ColumnMapping
}

// MergeSummary reports what one merge did. Every input mapping lands in
// exactly one of the three counters.
type MergeSummary struct {
	ImportID             uuid.UUID `json:"import_id"`
	Format               string    `json:"format"`
	Accepted             int       `json:"accepted"`
	SkippedDuplicate     int       `json:"skipped_duplicate"`
	SkippedNoMatch       int       `json:"skipped_no_match"`
	UnresolvedIdentities []string  `json:"unresolved_identities"`
}

type ImporterService interface {
	// Merge parses the uploaded file and folds its mappings into the
	// alignment inside one transaction. Nothing is written when any row
	// fails validation or any write fails.
	Merge(ctx context.Context, alignmentID uuid.UUID, fileName string, data []byte, opts MergeOptions, importedBy *uuid.UUID) (*MergeSummary, error)
	// History lists the alignment's import batches, newest first.
	History(ctx context.Context, alignmentID uuid.UUID) ([]*types.Import, error)
	// Undo deletes one import batch and everything it created.
	Undo(ctx context.Context, importID uuid.UUID) error
}

type importerService struct {
	db             *gorm.DB
	alignmentRepo  repos.AlignmentRepo
	sourceRowRepo  repos.SourceRowRepo
	mappingRepo    repos.MappingRepo
	importRepo     repos.ImportRepo
	evaluationRepo repos.EvaluationRepo
	commentRepo    repos.CommentRepo
	conceptRepo    repos.ConceptRepo
	generalRepo    repos.GeneralConceptRepo
	userRepo       repos.UserRepo
	log            *logger.Logger
}

func NewImporterService(
	db *gorm.DB,
	alignmentRepo repos.AlignmentRepo,
	sourceRowRepo repos.SourceRowRepo,
	mappingRepo repos.MappingRepo,
	importRepo repos.ImportRepo,
	evaluationRepo repos.EvaluationRepo,
	commentRepo repos.CommentRepo,
	conceptRepo repos.ConceptRepo,
	generalRepo repos.GeneralConceptRepo,
	userRepo repos.UserRepo,
	baseLog *logger.Logger,
) ImporterService {
	return &importerService{
		db:             db,
		alignmentRepo:  alignmentRepo,
		sourceRowRepo:  sourceRowRepo,
		mappingRepo:    mappingRepo,
		importRepo:     importRepo,
		evaluationRepo: evaluationRepo,
		commentRepo:    commentRepo,
		conceptRepo:    conceptRepo,
		generalRepo:    generalRepo,
		userRepo:       userRepo,
		log:            baseLog.With("service", "ImporterService"),
	}
}

// dedupKey identifies a mapping for duplicate detection, uniformly across
// formats: the lowercased source identity plus the full target triple. Rows
// without a source code fall back to their position so blank codes cannot
// collide across rows.
func dedupKey(sourceVocabularyID, sourceCode string, rowID int, generalConceptID uuid.UUID, conceptID int64, customConceptID uuid.UUID) string {
	target := fmt.Sprintf("g:%s|c:%d|x:%s", generalConceptID, conceptID, customConceptID)
	if sourceCode != "" {
		return strings.ToLower(sourceVocabularyID) + "|" + strings.ToLower(sourceCode) + "|" + target
	}
	return fmt.Sprintf("row:%d|%s", rowID, target)
}

func (s *importerService) Merge(ctx context.Context, alignmentID uuid.UUID, fileName string, data []byte, opts MergeOptions, importedBy *uuid.UUID) (*MergeSummary, error) {
	format := opts.Format
	if format == "" {
		format = mappingfile.DetectFormat(fileName, data)
	}

	parsed, err := s.parse(format, data, opts)
	if err != nil {
		return nil, err
	}

	var summary *MergeSummary
	err = s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		summary, err = s.merge(dbc, alignmentID, fileName, parsed, importedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *importerService) parse(format string, data []byte, opts MergeOptions) (*mappingfile.ParsedFile, error) {
	switch format {
	case mappingfile.FormatGeneric:
		if opts.ColumnMapping == nil {
			return nil, fmt.Errorf("%w: generic imports need a column mapping", pkgerrors.ErrInvalidArgument)
		}
		return mappingfile.ParseGeneric(bytes.NewReader(data), *opts.ColumnMapping)
	case mappingfile.FormatSourceToConceptMap:
		return mappingfile.ParseSourceToConceptMap(bytes.NewReader(data))
	case mappingfile.FormatUsagi:
		return mappingfile.ParseUsagi(bytes.NewReader(data))
	case mappingfile.FormatArchive:
		return mappingfile.ParseArchive(data)
	default:
		return nil, fmt.Errorf("%w: unknown import format %q", pkgerrors.ErrInvalidArgument, format)
	}
}

func (s *importerService) merge(dbc dbctx.Context, alignmentID uuid.UUID, fileName string, parsed *mappingfile.ParsedFile, importedBy *uuid.UUID) (*MergeSummary, error) {
	if _, err := s.alignmentRepo.GetByID(dbc, alignmentID); err != nil {
		return nil, err
	}

	rows, err := s.sourceRowRepo.GetByAlignmentID(dbc, alignmentID)
	if err != nil {
		return nil, err
	}
	rowsByID := make(map[int]*types.SourceConceptRow, len(rows))
	rowsByVocabCode := make(map[string]*types.SourceConceptRow, len(rows))
	rowsByCode := make(map[string]*types.SourceConceptRow, len(rows))
	for _, row := range rows {
		rowsByID[row.RowID] = row
		if row.SourceCode == "" {
			continue
		}
		code := strings.ToLower(row.SourceCode)
		vk := strings.ToLower(row.SourceVocabularyID) + "|" + code
		if _, taken := rowsByVocabCode[vk]; !taken {
			rowsByVocabCode[vk] = row
		}
		if _, taken := rowsByCode[code]; !taken {
			rowsByCode[code] = row
		}
	}

	existing, err := s.mappingRepo.GetByAlignmentID(dbc, alignmentID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(existing))
	for _, m := range existing {
		row := rowsByID[m.RowID]
		if row == nil {
			continue
		}
		keys[dedupKey(row.SourceVocabularyID, row.SourceCode, m.RowID, m.GeneralConceptID, m.ConceptID, m.CustomConceptID)] = true
	}

	targets, err := s.knownConcepts(dbc, parsed.Mappings)
	if err != nil {
		return nil, err
	}
	generals, err := s.knownGenerals(dbc, parsed.Mappings)
	if err != nil {
		return nil, err
	}

	identities := newIdentityResolver(s.userRepo)

	summary := &MergeSummary{Format: parsed.Format}
	var accepted []*types.Mapping
	byOldID := make(map[string]*types.Mapping)

	for _, in := range parsed.Mappings {
		row := s.matchRow(parsed.Format, in, rowsByID, rowsByVocabCode, rowsByCode)
		if row == nil {
			summary.SkippedNoMatch++
			continue
		}
		if in.TargetConceptID != 0 && !targets[in.TargetConceptID] {
			summary.SkippedNoMatch++
			continue
		}
		generalID := uuid.Nil
		if in.GeneralConceptID != "" {
			if id, err := uuid.Parse(in.GeneralConceptID); err == nil && generals[id] {
				generalID = id
			}
		}
		if generalID == uuid.Nil && in.TargetConceptID == 0 {
			summary.SkippedNoMatch++
			continue
		}

		key := dedupKey(row.SourceVocabularyID, row.SourceCode, row.RowID, generalID, in.TargetConceptID, uuid.Nil)
		if keys[key] {
			summary.SkippedDuplicate++
			continue
		}
		keys[key] = true

		mapping := &types.Mapping{
			ID:               uuid.New(),
			AlignmentID:      alignmentID,
			RowID:            row.RowID,
			GeneralConceptID: generalID,
			ConceptID:        in.TargetConceptID,
		}
		userID, display, err := identities.resolve(dbc, in.FirstName, in.LastName)
		if err != nil {
			return nil, err
		}
		mapping.MappedByUserID = userID
		mapping.ImportedUserName = display

		accepted = append(accepted, mapping)
		if in.OldMappingID != "" {
			byOldID[in.OldMappingID] = mapping
		}
		summary.Accepted++
	}

	summary.UnresolvedIdentities = identities.unresolved()

	unresolvedJSON, err := json.Marshal(summary.UnresolvedIdentities)
	if err != nil {
		return nil, err
	}
	batch := &types.Import{
		ID:                    uuid.New(),
		AlignmentID:           alignmentID,
		FileName:              fileName,
		Format:                parsed.Format,
		AcceptedCount:         summary.Accepted,
		SkippedDuplicateCount: summary.SkippedDuplicate,
		SkippedNoMatchCount:   summary.SkippedNoMatch,
		UnresolvedIdentities:  unresolvedJSON,
		ImportedByUserID:      importedBy,
	}
	if _, err := s.importRepo.Create(dbc, []*types.Import{batch}); err != nil {
		return nil, err
	}
	summary.ImportID = batch.ID

	for _, m := range accepted {
		id := batch.ID
		m.ImportID = &id
	}
	if _, err := s.mappingRepo.Create(dbc, accepted); err != nil {
		return nil, err
	}

	if err := s.attachEvaluations(dbc, parsed.Evaluations, byOldID, identities); err != nil {
		return nil, err
	}
	if err := s.attachComments(dbc, parsed.Comments, byOldID, identities); err != nil {
		return nil, err
	}

	s.log.Info("merged import file",
		"alignment_id", alignmentID,
		"import_id", batch.ID,
		"format", parsed.Format,
		"accepted", summary.Accepted,
		"skipped_duplicate", summary.SkippedDuplicate,
		"skipped_no_match", summary.SkippedNoMatch,
		"unresolved_identities", len(summary.UnresolvedIdentities),
	)
	return summary, nil
}

// matchRow finds the source row an input mapping refers to. Source
// identity wins over position: (vocabulary, code) first, then code alone
// when the vocabulary label differs or is absent, and only for archives,
// whose rows carry their original position, the position as a last resort.
func (s *importerService) matchRow(
	format string,
	in mappingfile.MappingRow,
	rowsByID map[int]*types.SourceConceptRow,
	rowsByVocabCode map[string]*types.SourceConceptRow,
	rowsByCode map[string]*types.SourceConceptRow,
) *types.SourceConceptRow {
	if in.SourceCode != "" {
		code := strings.ToLower(in.SourceCode)
		if in.SourceVocabularyID != "" {
			if row := rowsByVocabCode[strings.ToLower(in.SourceVocabularyID)+"|"+code]; row != nil {
				return row
			}
		}
		if row := rowsByCode[code]; row != nil {
			return row
		}
	}
	if format == mappingfile.FormatArchive {
		return rowsByID[in.RowPosition]
	}
	return nil
}

func (s *importerService) knownConcepts(dbc dbctx.Context, mappings []mappingfile.MappingRow) (map[int64]bool, error) {
	ids := make([]int64, 0, len(mappings))
	seen := map[int64]bool{}
	for _, m := range mappings {
		if m.TargetConceptID != 0 && !seen[m.TargetConceptID] {
			seen[m.TargetConceptID] = true
			ids = append(ids, m.TargetConceptID)
		}
	}
	concepts, err := s.conceptRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(concepts))
	for _, c := range concepts {
		known[c.ConceptID] = true
	}
	return known, nil
}

func (s *importerService) knownGenerals(dbc dbctx.Context, mappings []mappingfile.MappingRow) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, m := range mappings {
		if m.GeneralConceptID == "" {
			continue
		}
		id, err := uuid.Parse(m.GeneralConceptID)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	generals, err := s.generalRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]bool, len(generals))
	for _, g := range generals {
		known[g.ID] = true
	}
	return known, nil
}

func (s *importerService) attachEvaluations(dbc dbctx.Context, evals []mappingfile.EvaluationRow, byOldID map[string]*types.Mapping, identities *identityResolver) error {
	var out []*types.Evaluation
	seen := map[string]bool{}
	for _, e := range evals {
		mapping := byOldID[e.OldMappingID]
		if mapping == nil {
			continue
		}
		vote := strings.ToLower(strings.TrimSpace(e.Vote))
		if !types.ValidVote(vote) {
			continue
		}
		userID, display, err := identities.resolve(dbc, e.FirstName, e.LastName)
		if err != nil {
			return err
		}
		evaluation := &types.Evaluation{
			ID:        uuid.New(),
			MappingID: mapping.ID,
			Vote:      vote,
		}
		if userID != nil {
			evaluation.EvaluatorUserID = *userID
		} else {
			evaluation.EvaluatorName = display
		}
		key := fmt.Sprintf("%s|%s|%s", evaluation.MappingID, evaluation.EvaluatorUserID, evaluation.EvaluatorName)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, evaluation)
	}
	_, err := s.evaluationRepo.Create(dbc, out)
	return err
}

func (s *importerService) attachComments(dbc dbctx.Context, comments []mappingfile.CommentRow, byOldID map[string]*types.Mapping, identities *identityResolver) error {
	var out []*types.Comment
	for _, c := range comments {
		mapping := byOldID[c.OldMappingID]
		if mapping == nil || c.Text == "" {
			continue
		}
		userID, display, err := identities.resolve(dbc, c.FirstName, c.LastName)
		if err != nil {
			return err
		}
		comment := &types.Comment{
			ID:               uuid.New(),
			MappingID:        mapping.ID,
			Text:             c.Text,
			StatusAtCreation: c.StatusAtCreation,
		}
		if userID != nil {
			comment.AuthorUserID = *userID
		} else {
			comment.AuthorName = display
		}
		out = append(out, comment)
	}
	_, err := s.commentRepo.Create(dbc, out)
	return err
}

func (s *importerService) History(ctx context.Context, alignmentID uuid.UUID) ([]*types.Import, error) {
	return s.importRepo.GetByAlignmentID(dbctx.Context{Ctx: ctx}, alignmentID)
}

func (s *importerService) Undo(ctx context.Context, importID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		batch, err := s.importRepo.GetByID(dbc, importID)
		if err != nil {
			return err
		}
		mappings, err := s.mappingRepo.GetByAlignmentID(dbc, batch.AlignmentID)
		if err != nil {
			return err
		}
		var ids []uuid.UUID
		for _, m := range mappings {
			if m.ImportID != nil && *m.ImportID == importID {
				ids = append(ids, m.ID)
			}
		}
		if err := s.evaluationRepo.FullDeleteByMappingIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.commentRepo.FullDeleteByMappingIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.mappingRepo.FullDeleteByIDs(dbc, ids); err != nil {
			return err
		}
		return s.importRepo.FullDeleteByIDs(dbc, []uuid.UUID{importID})
	})
}

// identityResolver maps imported (first, last) names onto registry users.
// A name resolves only when exactly one user matches; unresolved names land
// in the warning list. The display name is always returned so callers can
// retain the imported spelling alongside a resolved id.
type identityResolver struct {
	userRepo repos.UserRepo
	cache    map[string]resolvedIdentity
	missing  map[string]bool
}

type resolvedIdentity struct {
	userID  *uuid.UUID
	display string
}

func newIdentityResolver(userRepo repos.UserRepo) *identityResolver {
	return &identityResolver{
		userRepo: userRepo,
		cache:    map[string]resolvedIdentity{},
		missing:  map[string]bool{},
	}
}

func (ir *identityResolver) resolve(dbc dbctx.Context, firstName, lastName string) (*uuid.UUID, string, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	display := strings.TrimSpace(firstName + " " + lastName)
	if display == "" {
		return nil, "", nil
	}

	key := strings.ToLower(firstName) + "|" + strings.ToLower(lastName)
	if hit, ok := ir.cache[key]; ok {
		return hit.userID, hit.display, nil
	}

	users, err := ir.userRepo.GetByName(dbc, firstName, lastName)
	if err != nil {
		return nil, "", err
	}
	resolved := resolvedIdentity{display: display}
	if len(users) == 1 {
		id := users[0].ID
		resolved.userID = &id
	} else {
		ir.missing[display] = true
	}
	ir.cache[key] = resolved
	return resolved.userID, resolved.display, nil
}

func (ir *identityResolver) unresolved() []string {
	names := make([]string, 0, len(ir.missing))
	for name := range ir.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
