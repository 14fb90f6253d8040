package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 0.1.0
// @description Weekly timetable allocation, conflict detection and workload compliance
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()
	readiness := map[string]handler.ReadinessCheck{}

	roster, db, err := openRoster(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open roster", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		readiness["postgres"] = db.PingContext
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, cfg.Cache.Prefix, logr)
			defer cacheRepo.Close() //nolint:errcheck
			readiness["redis"] = cacheRepo.Ping
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.DashboardTTL, logr, true)
	}

	store := repository.NewScheduleStore()
	compliance := service.NewComplianceService(store, roster, cacheSvc, metrics, logr)
	schedules := service.NewScheduleService(store, roster, compliance, metrics, validate, logr)
	rosterSvc := service.NewRosterService(roster, compliance, validate, logr)

	genCfg, err := service.NewScheduleGeneratorConfig(
		cfg.Scheduler.DayStart,
		cfg.Scheduler.DayEnd,
		cfg.Scheduler.SlotStep,
		cfg.Scheduler.StepDelay,
		cfg.Scheduler.Seed,
		cfg.Scheduler.MaxRetries,
	)
	if err != nil {
		logr.Fatal("invalid scheduler config", zap.Error(err))
	}
	generator := service.NewScheduleGeneratorService(store, roster, compliance, metrics, validate, logr, genCfg)
	queue := jobs.NewQueue("timetable-generation", generator.Handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: cfg.Scheduler.MaxRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	generator.UseDispatcher(queue)

	var tokens internalmiddleware.TokenValidator
	if cfg.Auth.Enabled {
		tokens = service.NewTokenService(service.TokenConfig{Secret: cfg.Auth.Secret, Expiry: cfg.Auth.Expiration})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/health", "/metrics"))

	ops := handler.NewMetricsHandler(metrics, readiness)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Teachers:     handler.NewTeacherHandler(rosterSvc),
		Classes:      handler.NewClassHandler(rosterSvc),
		Rules:        handler.NewRuleHandler(rosterSvc),
		Requirements: handler.NewSubjectRequirementHandler(rosterSvc),
		Schedules:    handler.NewScheduleHandler(schedules),
		Generator:    handler.NewScheduleGeneratorHandler(generator),
		Dashboard:    handler.NewDashboardHandler(compliance),
	}, tokens)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting",
			"addr", addr,
			"env", cfg.Env,
			"roster", cfg.Roster.Backend,
			"auth", cfg.Auth.Enabled,
			"cache", cacheSvc.Enabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openRoster(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Roster, *sqlx.DB, error) {
	if cfg.Roster.Backend == config.RosterBackendPostgres {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.EnsureRosterSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logr.Info("roster backend ready", zap.String("backend", config.RosterBackendPostgres))
		return repository.NewPostgresRoster(db), db, nil
	}

	roster := repository.NewMemoryRoster()
	if cfg.Roster.Seed {
		roster.Seed()
	}
	logr.Info("roster backend ready", zap.String("backend", config.RosterBackendMemory), zap.Bool("seeded", cfg.Roster.Seed))
	return roster, nil, nil
}
