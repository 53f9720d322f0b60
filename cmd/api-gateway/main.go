package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/syllabus-portal-api/api/swagger"
	"github.com/noah-isme/syllabus-portal-api/internal/handler"
	"github.com/noah-isme/syllabus-portal-api/internal/middleware"
	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/repository"
	"github.com/noah-isme/syllabus-portal-api/internal/service"
	"github.com/noah-isme/syllabus-portal-api/pkg/cache"
	"github.com/noah-isme/syllabus-portal-api/pkg/config"
	"github.com/noah-isme/syllabus-portal-api/pkg/database"
	"github.com/noah-isme/syllabus-portal-api/pkg/jobs"
	"github.com/noah-isme/syllabus-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/syllabus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/syllabus-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

// @title Syllabus Portal API
// @version 1.0.0
// @description Course syllabus upload, discovery and delivery
// @BasePath /api/v1
// @schemes http https
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
	response.ExposeErrorDetail(cfg.Env != config.EnvProduction)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	filesPrefix := strings.TrimSuffix(cfg.APIPrefix, "/") + "/files/"
	rawStore, err := storage.New(cfg.Storage, filesPrefix)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file store", "error", err, "driver", cfg.Storage.Driver)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	store := service.InstrumentStore(rawStore, metricsSvc)

	adminRepo := repository.NewAdminRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	syllabusRepo := repository.NewSyllabusRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr)
	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	adminSvc := service.NewAdminService(adminRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, syllabusRepo, adminRepo, validate, logr)

	cleanupQueue := jobs.NewQueue("file-cleanup", service.NewFileCleanupHandler(store), jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.Retries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logr,
		OnDone:     service.FileCleanupOutcome(metricsSvc, logr),
	})
	cleanupQueue.Start(context.Background())

	syllabusSvc := service.NewSyllabusService(service.SyllabusDeps{
		Repo:      syllabusRepo,
		Courses:   courseRepo,
		Admins:    adminRepo,
		Audit:     adminRepo,
		Store:     store,
		Cleanup:   cleanupQueue,
		Analytics: analyticsSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	}, service.SyllabusConfig{
		MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Upload.AllowedMIMEs,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	syllabusHandler := handler.NewSyllabusHandler(syllabusSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingFunc(cacheRepo.Ping),
	})

	limits := newLimiters(cfg.RateLimit, cacheRepo, metricsSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(limits.general)

	auth := api.Group("/auth")
	auth.POST("/login", limits.auth, authHandler.Login)
	auth.POST("/refresh", limits.auth, authHandler.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/auth/verify", authHandler.Verify)
	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:code", courseHandler.Get)
	api.GET("/courses/:code/syllabi", courseHandler.Syllabi)
	api.GET("/syllabi", syllabusHandler.List)
	api.GET("/syllabi/:id", syllabusHandler.Get)
	api.GET("/syllabi/:id/preview", syllabusHandler.Preview)
	api.GET("/syllabi/:id/download", syllabusHandler.Download)
	api.GET("/search", syllabusHandler.Search)

	if local, ok := rawStore.(*storage.LocalStorage); ok {
		api.GET("/files/:token", handler.NewFileHandler(local).Serve)
	}

	staff := secured.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	staff.POST("/syllabi", limits.upload, syllabusHandler.Upload)
	staff.DELETE("/syllabi/:id", syllabusHandler.Delete)
	staff.GET("/admins/syllabi", syllabusHandler.Owned)
	staff.GET("/admins/analytics", analyticsHandler.Syllabi)
	staff.GET("/admins/analytics/export",
		middleware.Audit(adminRepo, logr, models.AuditActionAnalyticsExport, "analytics"),
		analyticsHandler.Export,
	)

	super := secured.Group("")
	super.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	super.POST("/admins", adminHandler.Create)
	super.POST("/courses", courseHandler.Create)
	super.GET("/admins/analytics/system", analyticsHandler.System)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", rawStore.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cleanupQueue.Stop()
	logr.Info("server stopped")
}

type limiters struct {
	general gin.HandlerFunc
	auth    gin.HandlerFunc
	upload  gin.HandlerFunc
}

func newLimiters(cfg config.RateLimitConfig, shared middleware.WindowCounter, metrics *service.MetricsService, logr *zap.Logger) limiters {
	if !cfg.Enabled {
		pass := func(c *gin.Context) { c.Next() }
		return limiters{general: pass, auth: pass, upload: pass}
	}
	return limiters{
		general: middleware.NewRateLimiter("general", cfg.General, cfg.Window, shared, metrics, logr).Middleware(),
		auth:    middleware.NewRateLimiter("auth", cfg.Auth, cfg.Window, shared, metrics, logr).Middleware(),
		upload:  middleware.NewRateLimiter("upload", cfg.Upload, cfg.Window, shared, metrics, logr).Middleware(),
	}
}
