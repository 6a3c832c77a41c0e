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

	_ "github.com/shrutiigupta24/institute-api/api/swagger"
	"github.com/shrutiigupta24/institute-api/internal/handler"
	"github.com/shrutiigupta24/institute-api/internal/middleware"
	"github.com/shrutiigupta24/institute-api/internal/repository"
	"github.com/shrutiigupta24/institute-api/internal/service"
	"github.com/shrutiigupta24/institute-api/pkg/cache"
	"github.com/shrutiigupta24/institute-api/pkg/config"
	"github.com/shrutiigupta24/institute-api/pkg/database"
	"github.com/shrutiigupta24/institute-api/pkg/jobs"
	"github.com/shrutiigupta24/institute-api/pkg/logger"
	corsmiddleware "github.com/shrutiigupta24/institute-api/pkg/middleware/cors"
	reqidmiddleware "github.com/shrutiigupta24/institute-api/pkg/middleware/requestid"
	"github.com/shrutiigupta24/institute-api/pkg/payment"
)

// @title Institute API
// @version 1.0.0
// @description Back office for courses, batches, attendance, fees and portals.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// The API stays up without Redis; cached reads fall through to postgres.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	testRepo := repository.NewTestRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	signupRepo := repository.NewSignupRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, studentRepo, teacherRepo, cfg.JWT, validate, logr)
	adminSvc := service.NewAdminService(userRepo, studentRepo, teacherRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	batchSvc := service.NewBatchService(batchRepo, courseRepo, teacherRepo, studentRepo, validate, logr)
	feeSvc := service.NewFeeService(feeRepo, studentRepo, validate, logr)
	paymentSvc := service.NewPaymentService(feeRepo, payment.NewGateway(cfg.Payment), cfg.Payment.Currency, validate, logr)
	studentPortalSvc := service.NewStudentService(studentRepo, batchRepo, courseRepo, attendanceRepo, feeRepo, testRepo, materialRepo, validate, logr)
	teacherPortalSvc := service.NewTeacherService(teacherRepo, batchRepo, attendanceRepo, testRepo, materialRepo, studentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, teacherRepo, courseRepo, batchRepo, feeRepo, signupRepo, attendanceRepo, testRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)

	// The queue's handler is a notification service method, so the service is
	// built first and the queue attached afterwards.
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, nil, validate, logr)
	noticeQueue := jobs.NewQueue("notices", notificationSvc.HandleNoticeJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notificationSvc.SetDispatcher(noticeQueue)
	signupSvc := service.NewSignupService(signupRepo, userRepo, noticeQueue, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	noticeQueue.Start(ctx)
	defer noticeQueue.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, authSvc, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Signup:        handler.NewSignupHandler(signupSvc),
		Course:        handler.NewCourseHandler(courseSvc),
		Batch:         handler.NewBatchHandler(batchSvc),
		Student:       handler.NewStudentHandler(adminSvc),
		Teacher:       handler.NewTeacherHandler(adminSvc),
		Fee:           handler.NewFeeHandler(feeSvc),
		Payment:       handler.NewPaymentHandler(paymentSvc),
		Notification:  handler.NewNotificationHandler(notificationSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		StudentPortal: handler.NewStudentPortalHandler(studentPortalSvc),
		TeacherPortal: handler.NewTeacherPortalHandler(teacherPortalSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
