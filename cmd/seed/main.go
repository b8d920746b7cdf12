package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/repository"
	"github.com/noah-isme/engir-api/internal/seed"
	"github.com/noah-isme/engir-api/internal/service"
	"github.com/noah-isme/engir-api/pkg/config"
	"github.com/noah-isme/engir-api/pkg/database"
	"github.com/noah-isme/engir-api/pkg/logger"
)

func main() {
	var fixturePath string
	flag.StringVar(&fixturePath, "file", "", "YAML fixture to load instead of the embedded demo data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	fixture, err := seed.Demo()
	if fixturePath != "" {
		fixture, err = seed.LoadFile(fixturePath)
	}
	if err != nil {
		sugar.Fatalw("failed to load fixture", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	users := repository.NewUserRepository(db)
	teachers := repository.NewTeacherRepository(db)
	students := repository.NewStudentRepository(db)
	classrooms := repository.NewClassroomRepository(db)
	sessions := repository.NewSessionRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)

	seeder := seed.New(seed.Params{
		Accounts: service.NewAuthService(users, teachers, students, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
		}),
		Users: users,
		Classrooms: service.NewClassroomService(classrooms, sessions, nil, validate, logr, service.ClassroomConfig{
			CodeAttempts: cfg.Classrooms.CodeAttempts,
		}),
		Sessions: service.NewSessionService(sessions, classrooms, nil, validate, logr, service.SessionConfig{
			Endpoints: models.StreamEndpoints{
				BaseURL:   cfg.Streaming.BaseURL,
				HostPath:  cfg.Streaming.HostPath,
				WatchPath: cfg.Streaming.WatchPath,
			},
			DefaultDuration: cfg.Sessions.DefaultDuration,
		}),
		Enrollments: service.NewEnrollmentService(enrollments, classrooms, nil, validate, logr),
		Logger:      logr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := seeder.Run(ctx, fixture); err != nil {
		sugar.Fatalw("seed failed", "error", err)
	}
	sugar.Infow("log in with the demo teacher", "email", fixture.Teacher.Email, "password", fixture.Password)
}
