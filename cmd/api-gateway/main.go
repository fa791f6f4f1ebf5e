package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/labhub-api/api/swagger"
	"github.com/noah-isme/labhub-api/internal/handler"
	"github.com/noah-isme/labhub-api/internal/middleware"
	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/internal/repository"
	"github.com/noah-isme/labhub-api/internal/service"
	"github.com/noah-isme/labhub-api/pkg/blob"
	"github.com/noah-isme/labhub-api/pkg/cache"
	"github.com/noah-isme/labhub-api/pkg/config"
	"github.com/noah-isme/labhub-api/pkg/database"
	"github.com/noah-isme/labhub-api/pkg/jobs"
	"github.com/noah-isme/labhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/labhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/labhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/labhub-api/pkg/storage"
)

// @title LabHub API
// @version 0.1.0
// @description Contribution review and material promotion service
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	store, err := blob.NewLocalStore(map[string]string{
		blob.BucketIntake:    cfg.Storage.IntakeDir,
		blob.BucketMaterials: cfg.Storage.MaterialsDir,
	})
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}

	contribRepo := repository.NewContributionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	cleanupQueue := jobs.NewQueue("intake-cleanup",
		service.IntakeCleanupHandler(store, metricsSvc, logr),
		jobs.QueueConfig{
			MaxRetries: cfg.Contributions.CleanupRetries,
			RetryDelay: cfg.Contributions.CleanupRetryDelay,
			Logger:     logr,
		})
	cleanupQueue.Start(context.Background())
	defer cleanupQueue.Stop()

	migrationSvc := service.NewMigrationService(store, logr,
		service.WithMigrationWorkers(cfg.Contributions.MigrationWorkers),
		service.WithOpTimeout(cfg.Storage.OpTimeout),
		service.WithMigrationMetrics(metricsSvc),
	)

	signer := storage.NewSignedURLSigner(cfg.Contributions.DownloadURLSecret, cfg.Contributions.DownloadURLTTL)

	contribSvc := service.NewContributionService(contribRepo, activityRepo, migrationSvc, store, logr,
		service.WithListCache(cacheRepo, cfg.Contributions.ListCacheTTL),
		service.WithCleanupQueue(cleanupQueue),
		service.WithDownloadSigner(signer),
		service.WithLinkPrefix(cfg.APIPrefix),
		service.WithWorkflowMetrics(metricsSvc),
	)

	activitySvc := service.NewActivityService(activityRepo, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	contribHandler := handler.NewContributionHandler(contribSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	labs := api.Group("/labs/:labId")
	labs.Use(middleware.RequireLab())

	labs.GET("/contributions", contribHandler.List)
	labs.GET("/contributions/:id", contribHandler.Get)
	labs.GET("/materials/:token", contribHandler.DownloadMaterial)
	labs.GET("/activity", activityHandler.List)
	labs.GET("/activity/export", activityHandler.Export)

	review := labs.Group("")
	review.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleLabAdmin))
	review.POST("/contributions/:id/accept", contribHandler.Accept)
	review.POST("/contributions/:id/reject", contribHandler.Reject)
	review.POST("/contributions/:id/retry-migration", contribHandler.RetryMigration)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
