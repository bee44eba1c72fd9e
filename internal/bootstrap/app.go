// Package bootstrap assembles the application's dependency graph.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"medrecords-backend/internal/analysis"
	"medrecords-backend/internal/batch"
	"medrecords-backend/internal/llm"
	"medrecords-backend/internal/llm/openrouter"
	"medrecords-backend/internal/queue"
	"medrecords-backend/internal/records"
	"medrecords-backend/internal/reports"
	"medrecords-backend/internal/services/health"
	"medrecords-backend/internal/shared/config"
	"medrecords-backend/internal/shared/server"
	"medrecords-backend/internal/shared/storage/db"
	"medrecords-backend/internal/shared/storage/object"
	localstore "medrecords-backend/internal/shared/storage/object/local"
	s3store "medrecords-backend/internal/shared/storage/object/s3"
	"medrecords-backend/internal/who"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Queue  queue.Client

	RecordsRepo  records.Repo
	AnalysesRepo analysis.Repo
	BatchesRepo  batch.Repo
	ReportsRepo  reports.Repo
	WHORepo      who.Repo

	LLMClient       llm.Client
	Orchestrator    *analysis.Orchestrator
	AnalysisService *analysis.Service
	ReportsService  *reports.Service
	Coordinator     *batch.Coordinator

	AnalysisHandler *analysis.Handler
	BatchHandler    *batch.Handler
	ReportsHandler  *reports.Handler
	WHOHandler      *who.Handler
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := openrouter.NewClient(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Queue:     queueClient,
		LLMClient: llmClient,
	}

	buildRepos(app)
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          health.NewService(sqlDB),
		AnalysisHandler: app.AnalysisHandler,
		BatchHandler:    app.BatchHandler,
		ReportsHandler:  app.ReportsHandler,
		WHOHandler:      app.WHOHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.BatchDispatch != "queue" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, fmt.Errorf("BATCH_DISPATCH=queue requires MR_SQS_QUEUE_URL")
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

func buildRepos(app *App) {
	if app.DB != nil {
		app.RecordsRepo = &records.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analysis.PGRepo{DB: app.DB}
		app.BatchesRepo = &batch.PGRepo{DB: app.DB}
		app.ReportsRepo = &reports.PGRepo{DB: app.DB}
		app.WHORepo = &who.PGRepo{DB: app.DB}
		return
	}
	app.RecordsRepo = records.NewMemoryRepo()
	app.AnalysesRepo = analysis.NewMemoryRepo()
	app.BatchesRepo = batch.NewMemoryRepo()
	app.ReportsRepo = reports.NewMemoryRepo()
	app.WHORepo = who.NewMemoryRepo()
}

func buildServices(app *App) {
	cfg := app.Config

	app.Orchestrator = analysis.NewOrchestrator(
		app.LLMClient,
		analysis.FixedBackoff(cfg.RetryAttempts, cfg.RetryDelay),
	)
	app.AnalysisService = analysis.NewService(app.RecordsRepo, app.AnalysesRepo, app.Orchestrator)
	app.ReportsService = reports.NewService(app.AnalysesRepo, app.ReportsRepo, app.LLMClient)

	var dispatcher batch.Dispatcher
	if app.Queue != nil {
		dispatcher = queue.CaseDispatcher{Client: app.Queue}
	}
	app.Coordinator = batch.NewCoordinator(app.RecordsRepo, app.AnalysesRepo, app.BatchesRepo, app.Orchestrator, batch.Config{
		ChunkSize:  cfg.BatchChunkSize,
		Pause:      cfg.BatchPause,
		Dispatcher: dispatcher,
	})

	app.AnalysisHandler = analysis.NewHandler(app.AnalysisService)
	app.BatchHandler = batch.NewHandler(app.Coordinator, app.Store)
	app.ReportsHandler = reports.NewHandler(app.ReportsService)
	app.WHOHandler = who.NewHandler(app.WHORepo, app.Store)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
