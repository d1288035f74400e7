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

	"github.com/skooldesk/skooldesk-api/internal/handler"
	"github.com/skooldesk/skooldesk-api/internal/middleware"
	"github.com/skooldesk/skooldesk-api/internal/repository"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	"github.com/skooldesk/skooldesk-api/internal/service"
	"github.com/skooldesk/skooldesk-api/pkg/cache"
	"github.com/skooldesk/skooldesk-api/pkg/config"
	"github.com/skooldesk/skooldesk-api/pkg/database"
	"github.com/skooldesk/skooldesk-api/pkg/logger"
	corsmiddleware "github.com/skooldesk/skooldesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skooldesk/skooldesk-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, cfg.Cache.TTL, true, metricsService, logr)
			defer cacheRepo.Close()
		}
	}

	validate := validator.New()

	resolver := scope.NewResolver(repository.NewScopeRepository(db), cfg.Scope.Timeout, logr)

	authService := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		Expiration:        cfg.JWT.Expiration,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
	})

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Student:      handler.NewStudentHandler(service.NewStudentService(repository.NewStudentRepository(db), resolver, cacheService, metricsService, validate, logr)),
		Teacher:      handler.NewTeacherHandler(service.NewTeacherService(repository.NewTeacherRepository(db), cacheService, metricsService, validate, logr)),
		Parent:       handler.NewParentHandler(service.NewParentService(repository.NewParentRepository(db), metricsService, validate, logr)),
		Class:        handler.NewClassHandler(service.NewClassService(repository.NewClassRepository(db), resolver, cacheService, metricsService, validate, logr)),
		Subject:      handler.NewSubjectHandler(service.NewSubjectService(repository.NewSubjectRepository(db), resolver, cacheService, metricsService, validate, logr)),
		Lesson:       handler.NewLessonHandler(service.NewLessonService(repository.NewLessonRepository(db), resolver, cacheService, metricsService, validate, logr)),
		Exam:         handler.NewExamHandler(service.NewExamService(repository.NewExamRepository(db), resolver, metricsService, validate, logr)),
		Assignment:   handler.NewAssignmentHandler(service.NewAssignmentService(repository.NewAssignmentRepository(db), resolver, metricsService, validate, logr)),
		Attendance:   handler.NewAttendanceHandler(service.NewAttendanceService(repository.NewAttendanceRepository(db), resolver, metricsService, validate, logr)),
		Result:       handler.NewResultHandler(service.NewResultService(repository.NewResultRepository(db), resolver, metricsService, validate, logr)),
		Announcement: handler.NewAnnouncementHandler(service.NewAnnouncementService(repository.NewAnnouncementRepository(db), resolver, cacheService, metricsService, validate, logr)),
		Event:        handler.NewEventHandler(service.NewEventService(repository.NewEventRepository(db), resolver, cacheService, metricsService, validate, logr)),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	handler.RegisterRoutes(r, cfg.APIPrefix, authService, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
