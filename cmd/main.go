package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/conceptbridge/conceptbridge-backend/internal/cache"
	"github.com/conceptbridge/conceptbridge-backend/internal/config"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/db"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	httpServer "github.com/conceptbridge/conceptbridge-backend/internal/http"
	httpH "github.com/conceptbridge/conceptbridge-backend/internal/http/handlers"
	httpMW "github.com/conceptbridge/conceptbridge-backend/internal/http/middleware"
	"github.com/conceptbridge/conceptbridge-backend/internal/observability"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
	"github.com/conceptbridge/conceptbridge-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "conceptbridge-backend",
		Environment: os.Getenv("DEPLOY_ENV"),
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis facet cache (optional)
	var cacheClient *cache.Client
	if cfg.Redis.Addr != "" {
		cacheClient = cache.New(cfg.Redis, log)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cacheClient.Ping(pingCtx); err != nil {
			log.Warn("Redis unavailable, facet cache disabled", "error", err)
			cacheClient = nil
		}
		cancel()
	}

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	conceptRepo := repos.NewConceptRepo(thePG, log)
	generalConceptRepo := repos.NewGeneralConceptRepo(thePG, log)
	mappingEntryRepo := repos.NewMappingEntryRepo(thePG, log)
	customConceptRepo := repos.NewCustomConceptRepo(thePG, log)
	alignmentRepo := repos.NewAlignmentRepo(thePG, log)
	sourceRowRepo := repos.NewSourceRowRepo(thePG, log)
	mappingRepo := repos.NewMappingRepo(thePG, log)
	importRepo := repos.NewImportRepo(thePG, log)
	evaluationRepo := repos.NewEvaluationRepo(thePG, log)
	commentRepo := repos.NewCommentRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	authService := services.NewAuthService(thePG, userRepo, cfg.Auth, log)
	userService := services.NewUserService(thePG, userRepo, log)
	matcherService := services.NewMatcherService(thePG, conceptRepo, cacheClient, log)
	resolverService := services.NewResolverService(thePG, generalConceptRepo, mappingEntryRepo, customConceptRepo, conceptRepo, log)
	dictionaryService := services.NewDictionaryService(thePG, generalConceptRepo, mappingEntryRepo, customConceptRepo, conceptRepo, log)
	alignmentService := services.NewAlignmentService(thePG, alignmentRepo, sourceRowRepo, mappingRepo, importRepo, evaluationRepo, commentRepo, conceptRepo, log)
	importerService := services.NewImporterService(thePG, alignmentRepo, sourceRowRepo, mappingRepo, importRepo, evaluationRepo, commentRepo, conceptRepo, generalConceptRepo, userRepo, log)
	evaluationService := services.NewEvaluationService(thePG, mappingRepo, evaluationRepo, commentRepo, log)
	exportService := services.NewExportService(thePG, alignmentRepo, sourceRowRepo, mappingRepo, evaluationRepo, commentRepo, conceptRepo, userRepo, log)

	// HTTP
	log.Info("Setting up HTTP server...")
	server := httpServer.NewServer(httpServer.RouterConfig{
		Log:         log,
		CORSOrigins: cfg.Server.CORSOrigins,

		AuthHandler:       httpH.NewAuthHandler(authService),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, authService),
		UserHandler:       httpH.NewUserHandler(userService),
		ConceptHandler:    httpH.NewConceptHandler(matcherService),
		DictionaryHandler: httpH.NewDictionaryHandler(dictionaryService, resolverService),
		AlignmentHandler:  httpH.NewAlignmentHandler(alignmentService, evaluationService),
		ImportHandler:     httpH.NewImportHandler(importerService),
		EvaluationHandler: httpH.NewEvaluationHandler(evaluationService),
		ExportHandler:     httpH.NewExportHandler(exportService),
		HealthHandler:     httpH.NewHealthHandler(),
	})

	addr := ":" + cfg.Server.Port
	log.Info("Starting server", "addr", addr)
	if err := server.Run(addr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
