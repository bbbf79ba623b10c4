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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/brightpath-edu/scheduling-api/api/swagger"
	"github.com/brightpath-edu/scheduling-api/internal/handler"
	"github.com/brightpath-edu/scheduling-api/internal/middleware"
	"github.com/brightpath-edu/scheduling-api/internal/repository"
	"github.com/brightpath-edu/scheduling-api/internal/service"
	"github.com/brightpath-edu/scheduling-api/internal/worker"
	"github.com/brightpath-edu/scheduling-api/pkg/cache"
	"github.com/brightpath-edu/scheduling-api/pkg/config"
	"github.com/brightpath-edu/scheduling-api/pkg/database"
	"github.com/brightpath-edu/scheduling-api/pkg/logger"
	corsmiddleware "github.com/brightpath-edu/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/brightpath-edu/scheduling-api/pkg/middleware/requestid"
)

// @title BrightPath Scheduling API
// @version 1.0.0
// @description Recurring lesson generation and tutor availability resolution for the BrightPath tutoring platform.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability caching disabled", "error", err)
		redisClient = nil
	}

	// repositories
	groupRepo := repository.NewRecurringGroupRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	templateRepo := repository.NewAvailabilityTemplateRepository(db)
	timeOffRepo := repository.NewTimeOffRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	metricsSvc := service.NewMetricsService()
	recurrenceSvc := service.NewRecurrenceService(db, groupRepo, lessonRepo, cacheRepo, cfg.Recurrence, logr)
	availabilitySvc := service.NewAvailabilityService(templateRepo, timeOffRepo, lessonRepo, cacheRepo, cfg.Availability, logr)
	templateSvc := service.NewAvailabilityTemplateService(templateRepo, tutorRepo, cacheRepo, logr)
	timeOffSvc := service.NewTimeOffService(timeOffRepo, tutorRepo, cacheRepo, logr)
	lessonSvc := service.NewLessonService(lessonRepo, logr)

	// handlers
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, metricsSvc)
	recurrenceHandler := handler.NewRecurrenceHandler(recurrenceSvc, metricsSvc)
	tutorScheduleHandler := handler.NewTutorScheduleHandler(templateSvc, timeOffSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/availability/resolve", availabilityHandler.Resolve)

		api.POST("/recurrence/run", recurrenceHandler.Run)
		api.GET("/recurrence/groups", recurrenceHandler.ListDueGroups)

		api.GET("/tutors/:id/availability", tutorScheduleHandler.ListTemplates)
		api.POST("/tutors/:id/availability", tutorScheduleHandler.CreateTemplate)
		api.DELETE("/tutors/:id/availability/:templateId", tutorScheduleHandler.DeleteTemplate)
		api.GET("/tutors/:id/time-off", tutorScheduleHandler.ListTimeOff)
		api.POST("/tutors/:id/time-off", tutorScheduleHandler.CreateTimeOff)
		api.PUT("/time-off/:requestId/review", tutorScheduleHandler.ReviewTimeOff)

		api.GET("/lessons", lessonHandler.List)
		api.GET("/lessons/:id", lessonHandler.Get)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extensionWorker *worker.ExtensionWorker
	if cfg.Recurrence.Enabled {
		extensionWorker = worker.NewExtensionWorker(recurrenceSvc, metricsSvc, cfg.Recurrence, logr)
		extensionWorker.Start(rootCtx)
		defer extensionWorker.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
