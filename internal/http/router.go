package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/conceptbridge/conceptbridge-backend/internal/http/handlers"
	httpMW "github.com/conceptbridge/conceptbridge-backend/internal/http/middleware"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	CORSOrigins []string

	AuthHandler       *httpH.AuthHandler
	AuthMiddleware    *httpMW.AuthMiddleware
	UserHandler       *httpH.UserHandler
	ConceptHandler    *httpH.ConceptHandler
	DictionaryHandler *httpH.DictionaryHandler
	AlignmentHandler  *httpH.AlignmentHandler
	ImportHandler     *httpH.ImportHandler
	EvaluationHandler *httpH.EvaluationHandler
	ExportHandler     *httpH.ExportHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
		}

		if cfg.ConceptHandler != nil {
			protected.POST("/concepts/search", cfg.ConceptHandler.Search)
			protected.GET("/concepts/facets", cfg.ConceptHandler.Facets)
		}

		if cfg.DictionaryHandler != nil {
			protected.GET("/general-concepts", cfg.DictionaryHandler.List)
			protected.GET("/general-concepts/:id", cfg.DictionaryHandler.Get)
			protected.GET("/general-concepts/:id/resolve", cfg.DictionaryHandler.Resolve)
			protected.POST("/general-concepts/:id/entries", cfg.DictionaryHandler.AddEntry)
			protected.POST("/general-concepts/:id/custom-concepts", cfg.DictionaryHandler.AddCustomConcept)
		}

		if cfg.AlignmentHandler != nil {
			protected.POST("/alignments", cfg.AlignmentHandler.Create)
			protected.GET("/alignments", cfg.AlignmentHandler.List)
			protected.GET("/alignments/:id", cfg.AlignmentHandler.Get)
			protected.GET("/alignments/:id/rows", cfg.AlignmentHandler.Rows)
			protected.GET("/alignments/:id/mappings", cfg.AlignmentHandler.Mappings)
			protected.POST("/alignments/:id/mappings", cfg.AlignmentHandler.CreateMapping)
			protected.DELETE("/alignments/:id", cfg.AlignmentHandler.Delete)
			protected.DELETE("/mappings/:id", cfg.AlignmentHandler.DeleteMapping)
		}

		if cfg.ImportHandler != nil {
			protected.POST("/alignments/:id/imports", cfg.ImportHandler.Merge)
			protected.GET("/alignments/:id/imports", cfg.ImportHandler.History)
			protected.DELETE("/imports/:id", cfg.ImportHandler.Undo)
		}

		if cfg.EvaluationHandler != nil {
			protected.POST("/mappings/:id/vote", cfg.EvaluationHandler.Vote)
			protected.DELETE("/mappings/:id/vote", cfg.EvaluationHandler.ClearVote)
			protected.GET("/mappings/:id/status", cfg.EvaluationHandler.Status)
			protected.POST("/mappings/:id/comments", cfg.EvaluationHandler.AddComment)
			protected.GET("/mappings/:id/comments", cfg.EvaluationHandler.Comments)
			protected.DELETE("/comments/:id", cfg.EvaluationHandler.DeleteComment)
		}

		if cfg.ExportHandler != nil {
			protected.POST("/alignments/:id/export", cfg.ExportHandler.Export)
		}
	}

	return r
}
