package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/academia-sur/academy-api/internal/middleware"
	"github.com/academia-sur/academy-api/internal/models"
	"github.com/academia-sur/academy-api/internal/repository"
	"github.com/academia-sur/academy-api/internal/service"
	"github.com/academia-sur/academy-api/pkg/config"
)

// HandlerManager owns the HTTP handlers and wires them onto the router.
type HandlerManager struct {
	auth        *AuthHandler
	courses     *CourseHandler
	evaluations *EvaluationHandler
	users       *UserHandler

	authService    *service.AuthService
	auditService   *service.AuditService
	metricsService *service.MetricsService

	courseRepo     *repository.CourseRepository
	enrollmentRepo *repository.EnrollmentRepository
	evaluationRepo *repository.EvaluationRepository

	config *config.Config
}

// HandlerManagerDeps bundles the services and repositories the routes need.
type HandlerManagerDeps struct {
	AuthService       *service.AuthService
	CourseService     *service.CourseService
	EnrollmentService *service.EnrollmentService
	EvaluationService *service.EvaluationService
	UserService       *service.UserService
	ExportService     *service.ExportService
	AuditService      *service.AuditService
	MetricsService    *service.MetricsService

	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	EvaluationRepo *repository.EvaluationRepository

	Config *config.Config
}

// NewHandlerManager constructs the handlers from their services.
func NewHandlerManager(deps HandlerManagerDeps) *HandlerManager {
	return &HandlerManager{
		auth:           NewAuthHandler(deps.AuthService),
		courses:        NewCourseHandler(deps.CourseService, deps.EnrollmentService, deps.ExportService),
		evaluations:    NewEvaluationHandler(deps.EvaluationService, deps.EnrollmentService),
		users:          NewUserHandler(deps.UserService),
		authService:    deps.AuthService,
		auditService:   deps.AuditService,
		metricsService: deps.MetricsService,
		courseRepo:     deps.CourseRepo,
		enrollmentRepo: deps.EnrollmentRepo,
		evaluationRepo: deps.EvaluationRepo,
		config:         deps.Config,
	}
}

// SetupRoutes registers every API route on the engine.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(hm.metricsService.Handler()))

	if hm.config == nil || hm.config.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/api/v1"
	if hm.config != nil && hm.config.APIPrefix != "" {
		prefix = hm.config.APIPrefix
	}
	v1 := router.Group(prefix)
	v1.Use(middleware.Metrics(hm.metricsService))

	auth := v1.Group("/auth")
	{
		auth.POST("/login", middleware.Audit(hm.auditService, models.AuditActionLogin, "auth"), hm.auth.Login)
		auth.POST("/refresh", hm.auth.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.Auth(hm.authService))
		{
			authed.POST("/logout", middleware.Audit(hm.auditService, models.AuditActionLogout, "auth"), hm.auth.Logout)
			authed.PUT("/password", middleware.Audit(hm.auditService, models.AuditActionPasswordChange, "auth"), hm.auth.ChangePassword)
			authed.GET("/me", hm.auth.Me)
		}
	}

	courses := v1.Group("/courses")
	courses.Use(middleware.Auth(hm.authService))
	{
		courses.GET("", hm.courses.List)
		courses.GET("/available", hm.courses.ListAvailable)
		courses.GET("/enrolled", hm.courses.ListEnrolled)
		courses.POST("",
			middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
			middleware.Audit(hm.auditService, models.AuditActionCourseCreate, "course"),
			hm.courses.Create)
		courses.POST("/enroll/:id",
			middleware.RequireRoles(models.RoleStudent),
			middleware.Audit(hm.auditService, models.AuditActionEnroll, "course"),
			hm.courses.Enroll)

		scoped := courses.Group("/:id")
		scoped.Use(middleware.CourseAccess(hm.courseRepo, hm.enrollmentRepo))
		{
			scoped.GET("", hm.courses.Get)
			scoped.PUT("",
				middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
				middleware.Audit(hm.auditService, models.AuditActionCourseUpdate, "course"),
				hm.courses.Update)
			scoped.DELETE("",
				middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
				middleware.Audit(hm.auditService, models.AuditActionCourseDelete, "course"),
				hm.courses.Delete)
			scoped.GET("/roster",
				middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
				hm.courses.Roster)
			scoped.GET("/certificate", hm.courses.Certificate)
			scoped.GET("/evaluations", hm.evaluations.ListByCourse)
			scoped.POST("/evaluations",
				middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin),
				hm.evaluations.Create)
		}
	}

	evaluations := v1.Group("/evaluations")
	evaluations.Use(middleware.Auth(hm.authService))
	{
		evaluations.POST("/:id/complete",
			middleware.EvaluationAccess(hm.evaluationRepo, hm.courseRepo, hm.enrollmentRepo),
			hm.evaluations.Complete)
	}

	users := v1.Group("/users")
	users.Use(middleware.Auth(hm.authService), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", hm.users.List)
		users.POST("", hm.users.Create)
	}
}
