package db

import (
	types "github.com/conceptbridge/conceptbridge-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&types.User{},

		// =========================
		// Reference vocabulary (read-only query surface; migrated so
		// empty installations can load a vocabulary snapshot in place)
		// =========================
		&types.Concept{},
		&types.ConceptAncestor{},

		// =========================
		// Dictionary
		// =========================
		&types.GeneralConcept{},
		&types.DictionaryMappingEntry{},
		&types.CustomConcept{},

		// =========================
		// Alignments (projects + mapping store)
		// =========================
		&types.Alignment{},
		&types.SourceConceptRow{},
		&types.Import{},
		&types.Mapping{},
		&types.Evaluation{},
		&types.Comment{},
	)
}
