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

	"github.com/noah-isme/siakad-krs-api/internal/handler"
	"github.com/noah-isme/siakad-krs-api/internal/repository"
	"github.com/noah-isme/siakad-krs-api/internal/service"
	"github.com/noah-isme/siakad-krs-api/pkg/cache"
	"github.com/noah-isme/siakad-krs-api/pkg/config"
	"github.com/noah-isme/siakad-krs-api/pkg/database"
	"github.com/noah-isme/siakad-krs-api/pkg/export"
	"github.com/noah-isme/siakad-krs-api/pkg/jobs"
	"github.com/noah-isme/siakad-krs-api/pkg/logger"
)

// @title SIAKAD KRS API
// @version 1.0.0
// @description Course registration (KRS), approval and transcript (IPS/IPK) service
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

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, transcript cache disabled", "error", err)
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, "siakad", cfg.Transcript.CacheTTL, logr, cfg.Transcript.CacheEnabled && cacheRepo != nil)

	studentRepo := repository.NewStudentRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, nil, logr)
	auditQueue := jobs.NewQueue("audit", auditSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		Logger:     logr,
	})
	auditSvc.SetQueue(auditQueue)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	auditQueue.Start(rootCtx)

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	krsSvc := service.NewKRSService(enrollmentRepo, studentRepo, periodRepo, courseRepo, auditSvc, metricsSvc, validate, logr,
		service.KRSConfig{MaxSKS: cfg.KRS.MaxSKS})
	approvalSvc := service.NewApprovalService(enrollmentRepo, periodRepo, auditSvc, metricsSvc, validate, logr)
	bulkSvc := service.NewBulkEnrollmentService(enrollmentRepo, studentRepo, periodRepo, courseRepo, auditSvc, metricsSvc, validate, logr,
		service.BulkConfig{MaxSKS: cfg.KRS.MaxSKS, Workers: cfg.KRS.BulkWorkers})
	transcriptSvc := service.NewTranscriptService(transcriptRepo, studentRepo, courseRepo, cacheSvc, auditSvc,
		export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	directorySvc := service.NewDirectoryService(studentRepo, periodRepo, logr)

	router := newRouter(cfg, logr, routeDeps{
		auth:       authSvc,
		metrics:    metricsSvc,
		health:     handler.NewMetricsHandler(metricsSvc, db),
		authH:      handler.NewAuthHandler(authSvc),
		krs:        handler.NewKRSHandler(krsSvc, bulkSvc),
		approvals:  handler.NewApprovalHandler(approvalSvc),
		transcript: handler.NewTranscriptHandler(transcriptSvc),
		directory:  handler.NewDirectoryHandler(directorySvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown", zap.Error(err))
	}
	auditQueue.Stop(5 * time.Second)
}
