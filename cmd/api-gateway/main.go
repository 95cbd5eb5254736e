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

	_ "github.com/noah-isme/hostel-out-api/api/swagger"
	"github.com/noah-isme/hostel-out-api/internal/handler"
	internalmiddleware "github.com/noah-isme/hostel-out-api/internal/middleware"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	"github.com/noah-isme/hostel-out-api/internal/service"
	"github.com/noah-isme/hostel-out-api/pkg/cache"
	"github.com/noah-isme/hostel-out-api/pkg/config"
	"github.com/noah-isme/hostel-out-api/pkg/database"
	"github.com/noah-isme/hostel-out-api/pkg/jobs"
	"github.com/noah-isme/hostel-out-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-out-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-out-api/pkg/middleware/requestid"
	"github.com/noah-isme/hostel-out-api/pkg/storage"
)

// @title Hostel Out API
// @version 1.0.0
// @description Leave applications, complaints and notices for hostel students, teachers and wardens
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var redisCache *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			redisCache = repository.NewCacheRepository(client)
			defer redisCache.Close() //nolint:errcheck
		}
	}
	var cacheRepo service.CacheRepository
	if redisCache != nil {
		cacheRepo = redisCache
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, redisCache != nil)

	userRepo := repository.NewUserRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, cacheSvc, metrics, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, validate, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, userRepo, cacheSvc, validate, logr)

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Accounts:   handler.NewAccountHandler(userSvc),
		Leaves:     handler.NewLeaveHandler(leaveSvc),
		Complaints: handler.NewComplaintHandler(complaintSvc),
		Notices:    handler.NewNoticeHandler(noticeSvc),
		Metrics:    handler.NewMetricsHandler(metrics, checks),
	}

	var queue *jobs.Queue
	if cfg.Reports.Enabled {
		queue, handlers.Reports, err = setupReports(ctx, cfg, db, leaveRepo, userRepo, metrics, logr)
		if err != nil {
			logr.Sugar().Fatalw("report pipeline setup failed", "error", err)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	handler.RegisterOperational(r, handlers.Metrics)
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, handler.RouteDeps{Tokens: authSvc, Audit: userRepo})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

// setupReports wires export storage, the job queue and its worker. The queue
// is started and pending jobs from a previous run are re-enqueued.
func setupReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	leaves *repository.LeaveRepository,
	users *repository.UserRepository,
	metrics *service.MetricsService,
	logr *zap.Logger,
) (*jobs.Queue, *handler.ReportHandler, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(leaves, users, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: signer.TTL(),
	}, logr)

	reportRepo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(reportRepo, exporter, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
		Observer:   metrics.ObserveJob,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exporter, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return queue, handler.NewReportHandler(reportSvc), nil
}
