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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/preicfes-api/api/swagger"
	"github.com/noah-isme/preicfes-api/internal/billing"
	"github.com/noah-isme/preicfes-api/internal/handler"
	"github.com/noah-isme/preicfes-api/internal/middleware"
	"github.com/noah-isme/preicfes-api/internal/repository"
	"github.com/noah-isme/preicfes-api/internal/service"
	"github.com/noah-isme/preicfes-api/pkg/cache"
	"github.com/noah-isme/preicfes-api/pkg/config"
	"github.com/noah-isme/preicfes-api/pkg/database"
	"github.com/noah-isme/preicfes-api/pkg/export"
	"github.com/noah-isme/preicfes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/preicfes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/preicfes-api/pkg/middleware/requestid"
)

// @title PreICFES API
// @version 1.0.0
// @description Back office for PreICFES schools: enrollment, classes, attendance and the debt ledger
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	loc := cfg.Billing.Location()
	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)

	users := repository.NewUserRepository(db)
	locations := repository.NewLocationRepository(db)
	groups := repository.NewGroupRepository(db)
	students := repository.NewStudentRepository(db)
	debts := repository.NewDebtRepository(db)
	installments := repository.NewInstallmentRepository(db)
	receipts := repository.NewReceiptRepository(db)
	agreements := repository.NewAgreementRepository(db)
	classes := repository.NewClassRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	collections := repository.NewCollectionsRepository(db)
	finance := repository.NewFinanceRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(users, validate, logr)
	locationSvc := service.NewLocationService(locations, groups, validate, logr)
	scheduler := billing.NewScheduler(cfg.Billing.RoundingUnit, cfg.Billing.MinGapDays)
	ledgerSvc := service.NewLedgerService(db, debts, installments, receipts, students, scheduler, cacheSvc, metrics, validate, logr, service.LedgerConfig{Location: loc})
	studentSvc := service.NewStudentService(students, groups, locations, ledgerSvc, db, validate, logr, loc)
	agreementSvc := service.NewAgreementService(agreements, installments, debts, validate, logr, loc)
	classSvc := service.NewClassService(classes, locations, groups, users, validate, logr, loc)
	attendanceSvc := service.NewAttendanceService(db, attendance, classes, students, validate, logr, service.AttendanceConfig{Window: cfg.Attendance.Window, Location: loc})
	collectionsSvc := service.NewCollectionsService(collections, finance, cacheSvc, metrics, logr, service.CollectionsConfig{Location: loc, CacheTTL: cfg.Reports.CacheTTL})
	financeSvc := service.NewFinanceService(finance, locations, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(
		ledgerSvc, studentSvc, classSvc, collectionsSvc,
		export.NewCSVExporter(), export.NewPDFExporter(cfg.Institution.Name, cfg.Institution.NIT),
		logr, service.ExportConfig{Location: loc},
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), authSvc, routeHandlers{
		metrics:     metricsHandler,
		auth:        handler.NewAuthHandler(authSvc),
		users:       handler.NewUserHandler(userSvc),
		locations:   handler.NewLocationHandler(locationSvc),
		students:    handler.NewStudentHandler(studentSvc, ledgerSvc, exportSvc),
		classes:     handler.NewClassHandler(classSvc, attendanceSvc, exportSvc),
		ledger:      handler.NewLedgerHandler(ledgerSvc, exportSvc),
		agreements:  handler.NewAgreementHandler(agreementSvc),
		collections: handler.NewCollectionsHandler(collectionsSvc, exportSvc),
		finance:     handler.NewFinanceHandler(financeSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
