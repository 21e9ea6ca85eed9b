package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/ingestion/mappingfile"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// Well-known source columns recognized in uploaded headers. Any of several
// spellings binds a column to the matching source row field.
var (
	sourceCodeColumns  = []string{"source_code", "sourceCode", "code"}
	sourceVocabColumns = []string{"source_vocabulary_id", "sourceVocabularyId", "vocabulary_id"}
	sourceNameColumns  = []string{"source_name", "sourceName", "source_code_description", "name"}
)

// CreateAlignmentRequest uploads one source dataset.
type CreateAlignmentRequest struct {
	Name           string
	Description    string
	SourceFileName string
	Data           []byte
	// ColumnTypes optionally declares a type per uploaded column; columns
	// absent from the map default to "string".
	ColumnTypes map[string]string
}

// AlignmentDetail is an alignment with its row and mapping counts.
type AlignmentDetail struct {
	Alignment    *types.Alignment `json:"alignment"`
	RowCount     int64            `json:"row_count"`
	MappingCount int64            `json:"mapping_count"`
}

// CreateMappingRequest adds one mapping by hand. Exactly one target kind
// must be set, or a general concept together with the concept resolving it.
type CreateMappingRequest struct {
	AlignmentID      uuid.UUID  `json:"alignment_id"`
	RowID            int        `json:"row_id"`
	GeneralConceptID *uuid.UUID `json:"general_concept_id,omitempty"`
	ConceptID        int64      `json:"concept_id,omitempty"`
	CustomConceptID  *uuid.UUID `json:"custom_concept_id,omitempty"`
}

type AlignmentService interface {
	// Create parses the uploaded table and stores the alignment with its
	// immutable row set in one transaction.
	Create(ctx context.Context, req CreateAlignmentRequest, createdBy *uuid.UUID) (*types.Alignment, error)
	List(ctx context.Context) ([]*AlignmentDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*AlignmentDetail, error)
	Rows(ctx context.Context, id uuid.UUID) ([]*types.SourceConceptRow, error)
	// Delete removes the alignment and everything hanging off it.
	Delete(ctx context.Context, id uuid.UUID) error

	CreateMapping(ctx context.Context, req CreateMappingRequest, mappedBy *uuid.UUID) (*types.Mapping, error)
	DeleteMapping(ctx context.Context, mappingID uuid.UUID) error
}

type alignmentService struct {
	db             *gorm.DB
	alignmentRepo  repos.AlignmentRepo
	sourceRowRepo  repos.SourceRowRepo
	mappingRepo    repos.MappingRepo
	importRepo     repos.ImportRepo
	evaluationRepo repos.EvaluationRepo
	commentRepo    repos.CommentRepo
	conceptRepo    repos.ConceptRepo
	log            *logger.Logger
}

func NewAlignmentService(
	db *gorm.DB,
	alignmentRepo repos.AlignmentRepo,
	sourceRowRepo repos.SourceRowRepo,
	mappingRepo repos.MappingRepo,
	importRepo repos.ImportRepo,
	evaluationRepo repos.EvaluationRepo,
	commentRepo repos.CommentRepo,
	conceptRepo repos.ConceptRepo,
	baseLog *logger.Logger,
) AlignmentService {
	return &alignmentService{
		db:             db,
		alignmentRepo:  alignmentRepo,
		sourceRowRepo:  sourceRowRepo,
		mappingRepo:    mappingRepo,
		importRepo:     importRepo,
		evaluationRepo: evaluationRepo,
		commentRepo:    commentRepo,
		conceptRepo:    conceptRepo,
		log:            baseLog.With("service", "AlignmentService"),
	}
}

func (s *alignmentService) Create(ctx context.Context, req CreateAlignmentRequest, createdBy *uuid.UUID) (*types.Alignment, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: alignment name is empty", pkgerrors.ErrInvalidArgument)
	}
	table, err := mappingfile.ReadDelimited(bytes.NewReader(req.Data))
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: uploaded file has no data rows", pkgerrors.ErrInvalidArgument)
	}

	schema := make([]mappingfile.ColumnType, 0, len(table.Headers))
	for _, h := range table.Headers {
		colType := req.ColumnTypes[h]
		if colType == "" {
			colType = "string"
		}
		schema = append(schema, mappingfile.ColumnType{Name: h, Type: colType})
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	alignment := &types.Alignment{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		SourceFileName:  req.SourceFileName,
		ColumnSchema:    schemaJSON,
		CreatedByUserID: createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	rows := make([]*types.SourceConceptRow, 0, len(table.Rows))
	for i, raw := range table.Rows {
		fields, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &types.SourceConceptRow{
			ID:                 uuid.New(),
			AlignmentID:        alignment.ID,
			RowID:              i + 1,
			SourceCode:         firstNonEmpty(raw, sourceCodeColumns),
			SourceVocabularyID: firstNonEmpty(raw, sourceVocabColumns),
			SourceName:         firstNonEmpty(raw, sourceNameColumns),
			Fields:             fields,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.alignmentRepo.Create(dbc, []*types.Alignment{alignment}); err != nil {
			return err
		}
		_, err := s.sourceRowRepo.Create(dbc, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("created alignment", "alignment_id", alignment.ID, "rows", len(rows))
	return alignment, nil
}

func firstNonEmpty(row map[string]string, columns []string) string {
	for _, c := range columns {
		if v := row[c]; v != "" {
			return v
		}
	}
	return ""
}

func (s *alignmentService) List(ctx context.Context) ([]*AlignmentDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	alignments, err := s.alignmentRepo.List(dbc)
	if err != nil {
		return nil, err
	}
	details := make([]*AlignmentDetail, 0, len(alignments))
	for _, a := range alignments {
		detail, err := s.detail(dbc, a)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *alignmentService) Get(ctx context.Context, id uuid.UUID) (*AlignmentDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	alignment, err := s.alignmentRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	return s.detail(dbc, alignment)
}

func (s *alignmentService) detail(dbc dbctx.Context, alignment *types.Alignment) (*AlignmentDetail, error) {
	rowCount, err := s.sourceRowRepo.CountByAlignmentID(dbc, alignment.ID)
	if err != nil {
		return nil, err
	}
	mappingCount, err := s.mappingRepo.CountByAlignmentID(dbc, alignment.ID)
	if err != nil {
		return nil, err
	}
	return &AlignmentDetail{Alignment: alignment, RowCount: rowCount, MappingCount: mappingCount}, nil
}

func (s *alignmentService) Rows(ctx context.Context, id uuid.UUID) ([]*types.SourceConceptRow, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.alignmentRepo.GetByID(dbc, id); err != nil {
		return nil, err
	}
	return s.sourceRowRepo.GetByAlignmentID(dbc, id)
}

func (s *alignmentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.alignmentRepo.GetByID(dbc, id); err != nil {
			return err
		}
		mappings, err := s.mappingRepo.GetByAlignmentID(dbc, id)
		if err != nil {
			return err
		}
		mappingIDs := make([]uuid.UUID, 0, len(mappings))
		for _, m := range mappings {
			mappingIDs = append(mappingIDs, m.ID)
		}
		if err := s.evaluationRepo.FullDeleteByMappingIDs(dbc, mappingIDs); err != nil {
			return err
		}
		if err := s.commentRepo.FullDeleteByMappingIDs(dbc, mappingIDs); err != nil {
			return err
		}
		if err := s.mappingRepo.FullDeleteByAlignmentIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := s.importRepo.FullDeleteByAlignmentIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := s.sourceRowRepo.FullDeleteByAlignmentIDs(dbc, []uuid.UUID{id}); err != nil {
			return err
		}
		return s.alignmentRepo.FullDeleteByIDs(dbc, []uuid.UUID{id})
	})
}

func (s *alignmentService) CreateMapping(ctx context.Context, req CreateMappingRequest, mappedBy *uuid.UUID) (*types.Mapping, error) {
	generalID := uuid.Nil
	if req.GeneralConceptID != nil {
		generalID = *req.GeneralConceptID
	}
	customID := uuid.Nil
	if req.CustomConceptID != nil {
		customID = *req.CustomConceptID
	}
	if generalID == uuid.Nil && req.ConceptID == 0 && customID == uuid.Nil {
		return nil, fmt.Errorf("%w: mapping needs a target", pkgerrors.ErrInvalidArgument)
	}

	var mapping *types.Mapping
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.sourceRowRepo.GetByAlignmentID(dbc, req.AlignmentID)
		if err != nil {
			return err
		}
		found := false
		for _, row := range rows {
			if row.RowID == req.RowID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: row %d not in alignment", pkgerrors.ErrNotFound, req.RowID)
		}
		if req.ConceptID != 0 {
			concepts, err := s.conceptRepo.GetByIDs(dbc, []int64{req.ConceptID})
			if err != nil {
				return err
			}
			if len(concepts) == 0 {
				return fmt.Errorf("%w: concept %d not in vocabulary", pkgerrors.ErrNotFound, req.ConceptID)
			}
		}
		mapping = &types.Mapping{
			ID:               uuid.New(),
			AlignmentID:      req.AlignmentID,
			RowID:            req.RowID,
			GeneralConceptID: generalID,
			ConceptID:        req.ConceptID,
			CustomConceptID:  customID,
			MappedByUserID:   mappedBy,
		}
		_, err = s.mappingRepo.Create(dbc, []*types.Mapping{mapping})
		return err
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *alignmentService) DeleteMapping(ctx context.Context, mappingID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.mappingRepo.GetByID(dbc, mappingID); err != nil {
			return err
		}
		if err := s.evaluationRepo.FullDeleteByMappingIDs(dbc, []uuid.UUID{mappingID}); err != nil {
			return err
		}
		if err := s.commentRepo.FullDeleteByMappingIDs(dbc, []uuid.UUID{mappingID}); err != nil {
			return err
		}
		return s.mappingRepo.FullDeleteByIDs(dbc, []uuid.UUID{mappingID})
	})
}
