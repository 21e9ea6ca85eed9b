package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*types.User, error)
	// List returns the registry ordered by name, the view the import
	// review screen uses to reconcile unresolved identities.
	List(ctx context.Context) ([]*types.User, error)
}

type userService struct {
	db       *gorm.DB
	userRepo repos.UserRepo
	log      *logger.Logger
}

func NewUserService(db *gorm.DB, userRepo repos.UserRepo, baseLog *logger.Logger) UserService {
	return &userService{
		db:       db,
		userRepo: userRepo,
		log:      baseLog.With("service", "UserService"),
	}
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	users, err := s.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	return users[0], nil
}

func (s *userService) List(ctx context.Context) ([]*types.User, error) {
	return s.userRepo.List(dbctx.Context{Ctx: ctx})
}
