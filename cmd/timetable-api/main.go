package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-timetable-api/api/swagger"
	"github.com/noah-isme/exam-timetable-api/internal/engine"
	"github.com/noah-isme/exam-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/exam-timetable-api/internal/middleware"
	"github.com/noah-isme/exam-timetable-api/internal/repository"
	"github.com/noah-isme/exam-timetable-api/internal/service"
	"github.com/noah-isme/exam-timetable-api/pkg/cache"
	"github.com/noah-isme/exam-timetable-api/pkg/config"
	"github.com/noah-isme/exam-timetable-api/pkg/database"
	"github.com/noah-isme/exam-timetable-api/pkg/export"
	"github.com/noah-isme/exam-timetable-api/pkg/jobs"
	"github.com/noah-isme/exam-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-timetable-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Exam Timetable API
// @version 1.0.0
// @description Exam session timetable generation, storage and export.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, generation cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	grid, err := service.ParseSessionGrid(cfg.Session.Days, cfg.Session.Slots)
	if err != nil {
		logr.Fatal("invalid session grid", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	examRepo := repository.NewExamRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	entryRepo := repository.NewTimetableEntryRepository(db)

	timetableSvc := newTimetableService(cfg, grid, db, redisClient, examRepo, roomRepo, timetableRepo, entryRepo, metricsSvc, validate, logr)

	exportSvc, jobSvc, queue := newExportServices(ctx, cfg, db, timetableSvc, examRepo, metricsSvc, logr)
	if queue != nil {
		defer queue.Stop()
	}

	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		dependencies["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg.APIPrefix, routeHandlers{
		timetables: handler.NewTimetableHandler(timetableSvc),
		exports:    handler.NewExportHandler(exportSvc, jobSvc),
		metrics:    handler.NewMetricsHandler(metricsSvc, dependencies),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newTimetableService(
	cfg *config.Config,
	grid engine.Grid,
	db *sqlx.DB,
	redisClient *redis.Client,
	exams *repository.ExamRepository,
	rooms *repository.RoomRepository,
	timetables *repository.TimetableRepository,
	entries *repository.TimetableEntryRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) *service.TimetableService {
	timetableCfg := service.TimetableConfig{
		Grid:         grid,
		NodeBudget:   cfg.Scheduler.NodeBudget,
		Timeout:      cfg.Scheduler.Timeout,
		ProposalTTL:  cfg.Scheduler.ProposalTTL,
		SpanDuration: cfg.Scheduler.SpanDuration,
		CacheTTL:     cfg.Scheduler.CacheTTL,
	}
	if redisClient == nil || !cfg.Scheduler.CacheEnabled {
		return service.NewTimetableService(exams, rooms, timetables, entries, db, nil, metrics, validate, logr, timetableCfg)
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Scheduler.CacheTTL, logr, true)
	return service.NewTimetableService(exams, rooms, timetables, entries, db, cacheSvc, metrics, validate, logr, timetableCfg)
}

// newExportServices builds the synchronous renderer and, when exports are
// enabled, the job queue with its worker.
func newExportServices(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	timetables *service.TimetableService,
	exams *repository.ExamRepository,
	metrics *service.MetricsService,
	logr *zap.Logger,
) (*service.ExportService, *service.ExportJobService, *jobs.Queue) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(timetables, exams, store, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter())

	if !cfg.Exports.Enabled {
		return exportSvc, nil, nil
	}

	jobRepo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(jobRepo, exportSvc, metrics, logr)

	var jobSvc *service.ExportJobService
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, err error) {
			jobSvc.MarkFailed(context.Background(), job.ID, err.Error())
		},
	})
	jobSvc = service.NewExportJobService(jobRepo, timetables, queue, exportSvc, metrics, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: time.Hour,
	})

	queue.Start(ctx)
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)
	return exportSvc, jobSvc, queue
}
