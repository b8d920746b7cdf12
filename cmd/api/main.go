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
	"go.uber.org/zap"

	_ "github.com/noah-isme/engir-api/api/swagger"
	"github.com/noah-isme/engir-api/internal/handler"
	"github.com/noah-isme/engir-api/internal/middleware"
	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/repository"
	"github.com/noah-isme/engir-api/internal/router"
	"github.com/noah-isme/engir-api/internal/service"
	"github.com/noah-isme/engir-api/pkg/cache"
	"github.com/noah-isme/engir-api/pkg/config"
	"github.com/noah-isme/engir-api/pkg/database"
	"github.com/noah-isme/engir-api/pkg/logger"
	"github.com/noah-isme/engir-api/pkg/ratelimit"
)

// @title Engir API
// @version 1.0.0
// @description Live classrooms: teachers publish classes, students enroll by join code and watch scheduled livestream sessions.
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

	if cfg.Migrations.AutoMigrate {
		if err := migrate(cfg); err != nil {
			logr.Sugar().Fatalw("auto migration failed", "error", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var limiter middleware.Limiter
	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	authService := service.NewAuthService(userRepo, teacherRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	teacherService := service.NewTeacherService(teacherRepo, logr)
	classroomService := service.NewClassroomService(classroomRepo, sessionRepo, metrics, validate, logr, service.ClassroomConfig{
		CodeAttempts:    cfg.Classrooms.CodeAttempts,
		LiveGracePeriod: cfg.Sessions.LiveGracePeriod,
	})
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classroomRepo, metrics, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, classroomRepo, metrics, validate, logr, service.SessionConfig{
		Endpoints: models.StreamEndpoints{
			BaseURL:   cfg.Streaming.BaseURL,
			HostPath:  cfg.Streaming.HostPath,
			WatchPath: cfg.Streaming.WatchPath,
		},
		StrictTransitions: cfg.Sessions.StrictTransitions,
		LiveGracePeriod:   cfg.Sessions.LiveGracePeriod,
		DefaultDuration:   cfg.Sessions.DefaultDuration,
	})
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		Teachers:    teacherRepo,
		Students:    studentRepo,
		Classrooms:  classroomService,
		Sessions:    sessionRepo,
		Enrollments: enrollmentRepo,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{LiveGracePeriod: cfg.Sessions.LiveGracePeriod},
	})
	exportService := service.NewExportService(classroomRepo, enrollmentRepo, logr)

	r := router.New(router.Options{
		Config:  cfg,
		Logger:  logr,
		Tokens:  authService,
		Limiter: limiter,
		Metrics: metrics,
		Audit:   userRepo,
		Handlers: router.Handlers{
			Auth:        handler.NewAuthHandler(authService),
			Teachers:    handler.NewTeacherHandler(teacherService),
			Classrooms:  handler.NewClassroomHandler(classroomService, exportService),
			Enrollments: handler.NewEnrollmentHandler(enrollmentService),
			Sessions:    handler.NewSessionHandler(sessionService),
			Dashboards:  handler.NewDashboardHandler(dashboardService),
			Metrics:     handler.NewMetricsHandler(metrics, checks, logr),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}

func migrate(cfg *config.Config) error {
	m, err := database.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck
	return m.Up()
}
