package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/siakad-krs-api/api/swagger"
	"github.com/noah-isme/siakad-krs-api/internal/handler"
	"github.com/noah-isme/siakad-krs-api/internal/middleware"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/service"
	"github.com/noah-isme/siakad-krs-api/pkg/config"
	"github.com/noah-isme/siakad-krs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/siakad-krs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/siakad-krs-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth       middleware.TokenValidator
	metrics    *service.MetricsService
	health     *handler.MetricsHandler
	authH      *handler.AuthHandler
	krs        *handler.KRSHandler
	approvals  *handler.ApprovalHandler
	transcript *handler.TranscriptHandler
	directory  *handler.DirectoryHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	r.GET("/metrics", d.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := string(models.RoleAdmin)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	registrants := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", d.authH.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))
	secured.GET("/auth/me", d.authH.Me)

	secured.GET("/periods", d.directory.ListPeriods)
	secured.GET("/periods/active", d.directory.ActivePeriod)
	secured.GET("/students", adminOnly, d.directory.ListStudents)

	self := secured.Group("/students/:studentId")
	self.Use(middleware.RBAC(admin, middleware.SelfAccess))
	self.GET("", d.directory.GetStudent)
	self.GET("/periods/:periodId/offerings", d.krs.Offerings)
	self.GET("/periods/:periodId/krs", d.krs.List)
	self.GET("/transcript", d.transcript.Summary)
	self.GET("/transcript/semesters/:semester", d.transcript.SemesterReport)
	self.GET("/transcript/export", d.transcript.Export)

	krs := secured.Group("/krs")
	krs.POST("", registrants, d.krs.Create)
	krs.DELETE("/:id", registrants, d.krs.Delete)
	krs.POST("/submit", registrants, d.krs.Submit)
	krs.POST("/bulk", adminOnly, d.krs.Bulk)

	approvals := secured.Group("/approvals")
	approvals.Use(adminOnly)
	approvals.GET("", d.approvals.Pending)
	approvals.GET("/:studentId/:periodId", d.approvals.Review)
	approvals.POST("/:studentId/:periodId/approve", d.approvals.Approve)
	approvals.POST("/:studentId/:periodId/reject", d.approvals.Reject)

	secured.POST("/grades", adminOnly, d.transcript.PostGrade)

	return r
}
