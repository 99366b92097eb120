package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/academia-sur/academy-api/api/swagger"
	"github.com/academia-sur/academy-api/internal/handler"
	"github.com/academia-sur/academy-api/internal/repository"
	"github.com/academia-sur/academy-api/internal/service"
	"github.com/academia-sur/academy-api/pkg/config"
	"github.com/academia-sur/academy-api/pkg/database"
	"github.com/academia-sur/academy-api/pkg/logger"
	corsmiddleware "github.com/academia-sur/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academia-sur/academy-api/pkg/middleware/requestid"

	rediscache "github.com/academia-sur/academy-api/pkg/cache"
)

// @title Academy API
// @version 1.0.0
// @description Role-gated course catalog and enrollment service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := rediscache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	auditService := service.NewAuditService(userRepo, service.AuditQueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, cacheService, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, evaluationRepo, logr)
	evaluationService := service.NewEvaluationService(evaluationRepo, courseRepo, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	exportService := service.NewExportService(courseRepo, enrollmentRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditService.Start(ctx)
	defer auditService.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	manager := handler.NewHandlerManager(handler.HandlerManagerDeps{
		AuthService:       authService,
		CourseService:     courseService,
		EnrollmentService: enrollmentService,
		EvaluationService: evaluationService,
		UserService:       userService,
		ExportService:     exportService,
		AuditService:      auditService,
		MetricsService:    metricsService,
		CourseRepo:        courseRepo,
		EnrollmentRepo:    enrollmentRepo,
		EvaluationRepo:    evaluationRepo,
		Config:            cfg,
	})
	manager.SetupRoutes(r)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
