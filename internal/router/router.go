package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/engir-api/internal/handler"
	"github.com/noah-isme/engir-api/internal/middleware"
	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/service"
	"github.com/noah-isme/engir-api/pkg/config"
	"github.com/noah-isme/engir-api/pkg/logger"
	"github.com/noah-isme/engir-api/pkg/middleware/cors"
	"github.com/noah-isme/engir-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth        *handler.AuthHandler
	Teachers    *handler.TeacherHandler
	Classrooms  *handler.ClassroomHandler
	Enrollments *handler.EnrollmentHandler
	Sessions    *handler.SessionHandler
	Dashboards  *handler.DashboardHandler
	Metrics     *handler.MetricsHandler
}

// Options carries everything New needs. Limiter and Audit may be nil.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   middleware.TokenValidator
	Limiter  middleware.Limiter
	Metrics  *service.MetricsService
	Audit    middleware.AuditWriter
	Handlers Handlers
}

// New builds the gin engine with the global middleware chain and every API route.
func New(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestid.Middleware(),
		logger.GinMiddleware(log),
		cors.New(cfg.CORS.AllowedOrigins),
		middleware.Metrics(opts.Metrics),
		middleware.WithResponseMeta(),
	)

	h := opts.Handlers
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limit := func(scope string) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, opts.Metrics, log, scope)
	}
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, log, action, resource)
	}
	auth := middleware.JWT(opts.Tokens)
	optional := middleware.OptionalJWT(opts.Tokens)

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", limit("login"), h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", auth, h.Auth.Logout)
	authGroup.POST("/register/teacher", limit("register"), h.Auth.RegisterTeacher)
	authGroup.POST("/register/student", limit("register"), h.Auth.RegisterStudent)
	authGroup.GET("/me", auth, h.Auth.Me)

	teachers := api.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.GET("/:id", h.Teachers.Get)

	classes := api.Group("/classes")
	classes.GET("", optional, h.Classrooms.List)
	classes.GET("/code/:code", optional, h.Classrooms.GetByCode)
	classes.GET("/:id", optional, h.Classrooms.Get)
	classes.POST("", auth, middleware.RequireTeacher(), audit(models.AuditActionCreate, models.AuditResourceClass), h.Classrooms.Create)
	classes.PUT("/:id", auth, audit(models.AuditActionUpdate, models.AuditResourceClass), h.Classrooms.Update)
	classes.PATCH("/:id", auth, audit(models.AuditActionUpdate, models.AuditResourceClass), h.Classrooms.Update)
	classes.DELETE("/:id", auth, audit(models.AuditActionDelete, models.AuditResourceClass), h.Classrooms.Delete)
	classes.GET("/:id/roster", auth, middleware.RequireTeacher(), h.Classrooms.Roster)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", auth, h.Enrollments.List)
	enrollments.GET("/:id", auth, h.Enrollments.Get)
	enrollments.POST("", limit("enrollment"), optional, h.Enrollments.Create)
	enrollments.PATCH("/:id", auth, h.Enrollments.Update)

	sessions := api.Group("/sessions")
	sessions.GET("", optional, h.Sessions.List)
	sessions.GET("/:id", optional, h.Sessions.Get)
	sessions.POST("", auth, middleware.RequireTeacher(), audit(models.AuditActionCreate, models.AuditResourceSession), h.Sessions.Create)
	sessions.PUT("/:id", auth, audit(models.AuditActionUpdate, models.AuditResourceSession), h.Sessions.Update)
	sessions.PATCH("/:id", auth, audit(models.AuditActionUpdate, models.AuditResourceSession), h.Sessions.Update)
	sessions.DELETE("/:id", auth, audit(models.AuditActionDelete, models.AuditResourceSession), h.Sessions.Delete)
	sessions.POST("/:id/regenerate-stream-key", auth, audit(models.AuditActionRotateKey, models.AuditResourceSession), h.Sessions.RegenerateStreamKey)
	sessions.POST("/:id/start-stream", auth, audit(models.AuditActionStartLive, models.AuditResourceSession), h.Sessions.StartStream)
	sessions.POST("/:id/end-stream", auth, audit(models.AuditActionEndLive, models.AuditResourceSession), h.Sessions.EndStream)

	dashboard := api.Group("/dashboard", auth)
	dashboard.GET("/teacher", middleware.RequireTeacher(), h.Dashboards.Teacher)
	dashboard.GET("/student", middleware.RequireStudent(), h.Dashboards.Student)

	return r
}
