package repos

import (
	"gorm.io/gorm"

	alignrepo "github.com/conceptbridge/conceptbridge-backend/internal/data/repos/alignment"
	dictrepo "github.com/conceptbridge/conceptbridge-backend/internal/data/repos/dictionary"
	userrepo "github.com/conceptbridge/conceptbridge-backend/internal/data/repos/user"
	vocabrepo "github.com/conceptbridge/conceptbridge-backend/internal/data/repos/vocab"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type UserRepo = userrepo.UserRepo

type ConceptRepo = vocabrepo.ConceptRepo

type GeneralConceptRepo = dictrepo.GeneralConceptRepo
type MappingEntryRepo = dictrepo.MappingEntryRepo
type CustomConceptRepo = dictrepo.CustomConceptRepo

type AlignmentRepo = alignrepo.AlignmentRepo
type SourceRowRepo = alignrepo.SourceRowRepo
type MappingRepo = alignrepo.MappingRepo
type ImportRepo = alignrepo.ImportRepo
type EvaluationRepo = alignrepo.EvaluationRepo
type CommentRepo = alignrepo.CommentRepo

type VoteCounts = alignrepo.VoteCounts

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return userrepo.NewUserRepo(db, baseLog)
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return vocabrepo.NewConceptRepo(db, baseLog)
}

func NewGeneralConceptRepo(db *gorm.DB, baseLog *logger.Logger) GeneralConceptRepo {
	return dictrepo.NewGeneralConceptRepo(db, baseLog)
}

func NewMappingEntryRepo(db *gorm.DB, baseLog *logger.Logger) MappingEntryRepo {
	return dictrepo.NewMappingEntryRepo(db, baseLog)
}

func NewCustomConceptRepo(db *gorm.DB, baseLog *logger.Logger) CustomConceptRepo {
	return dictrepo.NewCustomConceptRepo(db, baseLog)
}

func NewAlignmentRepo(db *gorm.DB, baseLog *logger.Logger) AlignmentRepo {
	return alignrepo.NewAlignmentRepo(db, baseLog)
}

func NewSourceRowRepo(db *gorm.DB, baseLog *logger.Logger) SourceRowRepo {
	return alignrepo.NewSourceRowRepo(db, baseLog)
}

func NewMappingRepo(db *gorm.DB, baseLog *logger.Logger) MappingRepo {
	return alignrepo.NewMappingRepo(db, baseLog)
}

func NewImportRepo(db *gorm.DB, baseLog *logger.Logger) ImportRepo {
	return alignrepo.NewImportRepo(db, baseLog)
}

func NewEvaluationRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationRepo {
	return alignrepo.NewEvaluationRepo(db, baseLog)
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return alignrepo.NewCommentRepo(db, baseLog)
}
