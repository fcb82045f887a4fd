package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"baas/backend/libs/db"
	libredis "baas/backend/libs/redis"
	"baas/backend/services/degradation-service/internal/classify"
	"baas/backend/services/degradation-service/internal/config"
	httpserver "baas/backend/services/degradation-service/internal/http"
	"baas/backend/services/degradation-service/internal/http/handlers"
	"baas/backend/services/degradation-service/internal/http/middleware"
	"baas/backend/services/degradation-service/internal/ingest"
	"baas/backend/services/degradation-service/internal/models"
	redisstore "baas/backend/services/degradation-service/internal/redis"
	"baas/backend/services/degradation-service/internal/repository"
	"baas/backend/services/degradation-service/internal/segment"
	"baas/backend/services/degradation-service/internal/service"
)

// App wires degradation service dependencies.
type App struct {
	cfg      *config.Config
	pipeline *service.PipelineService
	results  *service.ResultStore
	db       *sql.DB
	redis    *goredis.Client
	logger   *zap.Logger
}

// New constructs application components.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, results: service.NewResultStore(), logger: logger}

	mode, err := segment.ParseMode(cfg.Input.SegmentMode)
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(cfg.Classifier.Strategy, cfg.Classifier.CurrentThreshold)
	if err != nil {
		return nil, err
	}
	requireFlags := cfg.Input.RequireStatusFlags || classify.RequiresStatusFlags(cfg.Classifier.Strategy)
	processor := ingest.NewFileProcessor(segment.NewExtractor(mode), classifier, service.NewStatisticsBuilder(), requireFlags)

	carTypes, err := a.carTypeSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = service.NewPipelineService(service.PipelineOptions{
		DataDir:     cfg.Input.DataDir,
		Workers:     cfg.Input.Workers,
		OutputDir:   cfg.Output.Dir,
		Prefix:      cfg.Output.Prefix,
		KeepParts:   cfg.Output.KeepParts,
		Plots:       cfg.Output.Plots,
		DropUnknown: cfg.Classifier.DropUnknown,
		WindowDays:  cfg.Window.MinDays,
		Eligibility: service.Eligibility{
			MinStartSOC: cfg.Eligibility.MinStartSOC,
			MinSOCDelta: cfg.Eligibility.MinSOCDelta,
			MinDuration: cfg.Eligibility.MinDuration,
		},
	}, processor.Process, carTypes, a.results, logger)

	logger.Info("degradation service configured",
		zap.String("data_dir", cfg.Input.DataDir),
		zap.String("output_dir", cfg.Output.Dir),
		zap.String("segment_mode", string(mode)),
		zap.String("classifier", cfg.Classifier.Strategy),
		zap.String("car_types", cfg.CarTypes.Source),
	)
	return a, nil
}

func (a *App) carTypeSource(ctx context.Context) (repository.CarTypeSource, error) {
	var source repository.CarTypeSource
	switch a.cfg.CarTypes.Source {
	case config.CarTypesCSV:
		source = repository.NewCSVCarTypeSource(a.cfg.CarTypes.MapFile)
	case config.CarTypesPostgres:
		sqlDB, err := db.NewPostgresDB(ctx, a.cfg.CarTypes.DSN)
		if err != nil {
			return nil, err
		}
		a.db = sqlDB
		source = repository.NewPostgresCarTypeSource(sqlDB, a.cfg.CarTypes.Query)
	case config.CarTypesStatic:
		return repository.StaticCarTypeSource{Model: a.cfg.CarTypes.Static}, nil
	default:
		return repository.StaticCarTypeSource{Model: models.UnknownCarType}, nil
	}

	if strings.TrimSpace(a.cfg.CarTypes.Redis.Addr) == "" {
		return source, nil
	}
	client, err := libredis.NewRedisClient(ctx, a.cfg.CarTypes.Redis.Addr, a.cfg.CarTypes.Redis.Password, a.cfg.CarTypes.Redis.DB)
	if err != nil {
		a.logger.Warn("car type cache unavailable, continuing without it", zap.Error(err))
		return source, nil
	}
	a.redis = client
	return repository.NewCachedCarTypeSource(redisstore.NewStore(client, a.cfg.RedisTTL()), source, a.logger), nil
}

// RunOnce executes a full pipeline run.
func (a *App) RunOnce(ctx context.Context) (*models.RunResult, error) {
	return a.pipeline.Run(ctx)
}

// Derive recomputes the downstream tables from an existing segment table.
func (a *App) Derive(ctx context.Context, segmentsPath string) (*models.RunResult, error) {
	return a.pipeline.Derive(ctx, segmentsPath)
}

// Serve runs the pipeline once and then serves the results API until ctx is done.
// A failed startup run is logged; POST /api/runs can retry it.
func (a *App) Serve(ctx context.Context) error {
	if strings.TrimSpace(a.cfg.HTTP.JWTSecret) == "" {
		return errors.New("config: http jwt secret required to serve")
	}
	if err := a.pipeline.Start(ctx); err != nil {
		return err
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		RunsHandlers:    handlers.NewRunsHandlers(a.pipeline, a.results, a.logger),
		ResultsHandlers: handlers.NewResultsHandlers(a.results),
		HealthHandler:   handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(a.cfg.HTTP.JWTSecret))

	server := httpserver.NewServer(a.cfg.HTTPAddress(), router, a.logger,
		middleware.RecoveryMiddleware(a.logger),
		middleware.LoggingMiddleware(a.logger),
	)
	server.DrainOnShutdown(a.pipeline)
	return server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
