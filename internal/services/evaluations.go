package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// Consensus statuses derived from a mapping's votes. Any approval wins,
// then any rejection, then uncertainty.
const (
	StatusApproved     = "approved"
	StatusRejected     = "rejected"
	StatusUncertain    = "uncertain"
	StatusNotEvaluated = "not_evaluated"
)

// ConsensusStatus folds one mapping's vote counts into its status.
func ConsensusStatus(counts repos.VoteCounts) string {
	switch {
	case counts.Approves > 0:
		return StatusApproved
	case counts.Rejects > 0:
		return StatusRejected
	case counts.Uncertain > 0:
		return StatusUncertain
	default:
		return StatusNotEvaluated
	}
}

// MappingStatus is one mapping with its votes folded in.
type MappingStatus struct {
	Mapping   *types.Mapping      `json:"mapping"`
	Status    string              `json:"status"`
	Approves  int                 `json:"approves"`
	Rejects   int                 `json:"rejects"`
	Uncertain int                 `json:"uncertain"`
	Votes     []*types.Evaluation `json:"votes,omitempty"`
}

type EvaluationService interface {
	// RecordVote upserts the caller's vote on a mapping; a second vote by
	// the same evaluator replaces the first.
	RecordVote(ctx context.Context, mappingID, evaluatorUserID uuid.UUID, vote string) (*MappingStatus, error)
	// ClearVote withdraws the caller's vote, if any.
	ClearVote(ctx context.Context, mappingID, evaluatorUserID uuid.UUID) (*MappingStatus, error)
	// Status folds votes into the consensus status for one mapping.
	Status(ctx context.Context, mappingID uuid.UUID) (*MappingStatus, error)
	// StatusByAlignment computes the status of every mapping in the
	// alignment, ordered by row.
	StatusByAlignment(ctx context.Context, alignmentID uuid.UUID) ([]*MappingStatus, error)
	// AddComment attaches a note to a mapping, freezing the consensus
	// status in effect at creation time.
	AddComment(ctx context.Context, mappingID, authorUserID uuid.UUID, text string) (*types.Comment, error)
	// Comments lists a mapping's comments oldest first.
	Comments(ctx context.Context, mappingID uuid.UUID) ([]*types.Comment, error)
	// DeleteComment removes a comment; only its author may do so.
	DeleteComment(ctx context.Context, commentID, requesterUserID uuid.UUID) error
}

type evaluationService struct {
	db             *gorm.DB
	mappingRepo    repos.MappingRepo
	evaluationRepo repos.EvaluationRepo
	commentRepo    repos.CommentRepo
	log            *logger.Logger
}

func NewEvaluationService(
	db *gorm.DB,
	mappingRepo repos.MappingRepo,
	evaluationRepo repos.EvaluationRepo,
	commentRepo repos.CommentRepo,
	baseLog *logger.Logger,
) EvaluationService {
	return &evaluationService{
		db:             db,
		mappingRepo:    mappingRepo,
		evaluationRepo: evaluationRepo,
		commentRepo:    commentRepo,
		log:            baseLog.With("service", "EvaluationService"),
	}
}

func (s *evaluationService) RecordVote(ctx context.Context, mappingID, evaluatorUserID uuid.UUID, vote string) (*MappingStatus, error) {
	if !types.ValidVote(vote) {
		return nil, fmt.Errorf("%w: unknown vote %q", pkgerrors.ErrInvalidArgument, vote)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.mappingRepo.GetByID(dbc, mappingID); err != nil {
			return err
		}
		now := time.Now().UTC()
		return s.evaluationRepo.Upsert(dbc, &types.Evaluation{
			ID:              uuid.New(),
			MappingID:       mappingID,
			EvaluatorUserID: evaluatorUserID,
			Vote:            vote,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Status(ctx, mappingID)
}

func (s *evaluationService) ClearVote(ctx context.Context, mappingID, evaluatorUserID uuid.UUID) (*MappingStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.mappingRepo.GetByID(dbc, mappingID); err != nil {
		return nil, err
	}
	if err := s.evaluationRepo.DeleteByEvaluator(dbc, mappingID, evaluatorUserID, ""); err != nil {
		return nil, err
	}
	return s.Status(ctx, mappingID)
}

func (s *evaluationService) Status(ctx context.Context, mappingID uuid.UUID) (*MappingStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	mapping, err := s.mappingRepo.GetByID(dbc, mappingID)
	if err != nil {
		return nil, err
	}
	votes, err := s.evaluationRepo.GetByMappingIDs(dbc, []uuid.UUID{mappingID})
	if err != nil {
		return nil, err
	}
	counts := repos.VoteCounts{MappingID: mappingID}
	for _, v := range votes {
		switch v.Vote {
		case types.VoteApprove:
			counts.Approves++
		case types.VoteReject:
			counts.Rejects++
		case types.VoteUncertain:
			counts.Uncertain++
		}
	}
	return &MappingStatus{
		Mapping:   mapping,
		Status:    ConsensusStatus(counts),
		Approves:  counts.Approves,
		Rejects:   counts.Rejects,
		Uncertain: counts.Uncertain,
		Votes:     votes,
	}, nil
}

func (s *evaluationService) StatusByAlignment(ctx context.Context, alignmentID uuid.UUID) ([]*MappingStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	mappings, err := s.mappingRepo.GetByAlignmentID(dbc, alignmentID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)
	}
	counts, err := s.evaluationRepo.CountByMappingIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	countsByID := make(map[uuid.UUID]repos.VoteCounts, len(counts))
	for _, c := range counts {
		countsByID[c.MappingID] = c
	}
	statuses := make([]*MappingStatus, 0, len(mappings))
	for _, m := range mappings {
		c := countsByID[m.ID]
		statuses = append(statuses, &MappingStatus{
			Mapping:   m,
			Status:    ConsensusStatus(c),
			Approves:  c.Approves,
			Rejects:   c.Rejects,
			Uncertain: c.Uncertain,
		})
	}
	return statuses, nil
}

func (s *evaluationService) AddComment(ctx context.Context, mappingID, authorUserID uuid.UUID, text string) (*types.Comment, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is empty", pkgerrors.ErrInvalidArgument)
	}
	status, err := s.Status(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	comment := &types.Comment{
		ID:               uuid.New(),
		MappingID:        mappingID,
		AuthorUserID:     authorUserID,
		Text:             text,
		StatusAtCreation: status.Status,
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := s.commentRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Comment{comment}); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *evaluationService) Comments(ctx context.Context, mappingID uuid.UUID) ([]*types.Comment, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.mappingRepo.GetByID(dbc, mappingID); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByMappingIDs(dbc, []uuid.UUID{mappingID})
}

func (s *evaluationService) DeleteComment(ctx context.Context, commentID, requesterUserID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	comment, err := s.commentRepo.GetByID(dbc, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorUserID != requesterUserID {
		return pkgerrors.ErrForbidden
	}
	return s.commentRepo.FullDeleteByIDs(dbc, []uuid.UUID{commentID})
}
