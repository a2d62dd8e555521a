package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusops/uniops-api/api/swagger"
	"github.com/campusops/uniops-api/internal/handler"
	"github.com/campusops/uniops-api/internal/middleware"
	"github.com/campusops/uniops-api/internal/repository"
	"github.com/campusops/uniops-api/internal/service"
	"github.com/campusops/uniops-api/pkg/cache"
	"github.com/campusops/uniops-api/pkg/config"
	"github.com/campusops/uniops-api/pkg/database"
	"github.com/campusops/uniops-api/pkg/jobs"
	"github.com/campusops/uniops-api/pkg/logger"
	corsmiddleware "github.com/campusops/uniops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/uniops-api/pkg/middleware/requestid"
)

// @title UniOps API
// @version 0.1.0
// @description University operations platform
// @BasePath /api/v1
// @schemes http

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	attributeRepo := repository.NewAttributeRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	gpaSvc := service.NewGPAService(enrollmentRepo, studentRepo, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, cfg.JWT)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, gpaSvc, metricsSvc, cfg.Registrar, nil, logr)
	facilitySvc := service.NewFacilityService(facilityRepo, nil, logr)
	bookingSvc := service.NewBookingService(bookingRepo, cfg.Bookings, nil, logr)
	attributeSvc := service.NewAttributeService(attributeRepo, nil, logr)

	gpaQueue := jobs.NewQueue("gpa", func(ctx context.Context, job jobs.Job) error {
		studentID, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		_, err := gpaSvc.Recalculate(ctx, studentID)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.GPAWorker.Concurrency,
		BufferSize: cfg.GPAWorker.BufferSize,
		MaxRetries: cfg.GPAWorker.MaxRetries,
		Logger:     logr,
	})
	gpaQueue.Start(context.Background())
	defer gpaQueue.Stop()

	studentSvc := service.NewStudentService(studentRepo, userRepo, enrollmentRepo, attributeRepo, enrollmentSvc, gpaSvc, gpaQueue, cfg.Registrar, nil, logr)
	exportSvc := service.NewExportService(studentSvc, logr)

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(studentSvc, exportSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Facilities:  handler.NewFacilityHandler(facilitySvc, bookingSvc),
		Attributes:  handler.NewAttributeHandler(attributeSvc),
	}
	if cfg.Dashboard.Enabled {
		dashboardSvc := service.NewDashboardService(dashboardRepo, studentRepo, cacheRepo, metricsSvc, cfg.Dashboard, logr)
		handlers.Dashboard = handler.NewDashboardHandler(dashboardSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handlers, authSvc, metricsSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
