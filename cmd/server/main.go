package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	catalogapp "github.com/pim/backend/internal/application/catalog"
	"github.com/pim/backend/internal/application/comparison"
	mappingapp "github.com/pim/backend/internal/application/mapping"
	syncapp "github.com/pim/backend/internal/application/sync"
	domainsync "github.com/pim/backend/internal/domain/sync"
	"github.com/pim/backend/internal/infrastructure/cache"
	"github.com/pim/backend/internal/infrastructure/config"
	"github.com/pim/backend/internal/infrastructure/gateway"
	"github.com/pim/backend/internal/infrastructure/logger"
	"github.com/pim/backend/internal/infrastructure/persistence"
	"github.com/pim/backend/internal/infrastructure/scheduler"
	"github.com/pim/backend/internal/infrastructure/task"
	"github.com/pim/backend/internal/interfaces/http/handler"
	"github.com/pim/backend/internal/interfaces/http/middleware"
	"github.com/pim/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PIM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Remote store gateway
	restGateway := gateway.NewRestStoreGateway(cfg.Gateway.RequestTimeout, log)

	// Remote tree cache: Redis-backed when configured, in-process otherwise
	var trees domainsync.RemoteTreeProvider
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		trees = cache.NewRedisTreeCache(redisClient, restGateway, cfg.Gateway.TreeCacheTTL, log)
		log.Info("Redis connected, using shared remote tree cache")
	} else {
		trees = cache.NewInMemoryTreeCache(restGateway, cfg.Gateway.TreeCacheTTL)
		log.Info("Using in-process remote tree cache")
	}

	// Repositories
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	mappingRepo := persistence.NewGormCategoryMappingRepository(db.DB)
	selectionRepo := persistence.NewGormSelectionRepository(db.DB)
	settingsRepo := persistence.NewGormProductStoreSettingsRepository(db.DB)
	statusRepo := persistence.NewGormSyncStatusRepository(db.DB)
	taskRepo := task.NewGormTaskRepository(db.DB)
	tenantProvider := persistence.NewGormTenantProvider(db.DB)

	// Application services
	categoryService := catalogapp.NewCategoryService(categoryRepo, mappingRepo)
	productService := catalogapp.NewProductService(productRepo, categoryRepo)
	hierarchy := mappingapp.NewCategoryHierarchySynchronizer(mappingRepo, categoryRepo, trees, taskRepo, log)
	identityMap := mappingapp.NewCategoryIdentityMap(mappingRepo, hierarchy, log)
	selections := mappingapp.NewStoreSelectionService(selectionRepo, identityMap, hierarchy, log)
	comparisonEngine := comparison.NewCategoryComparisonEngine(mappingRepo, categoryRepo, trees, log)
	overrideValidator := comparison.NewCategoryOverrideValidator(productRepo, categoryRepo, storeRepo, selectionRepo, log)
	reconciler := syncapp.NewProductSyncReconciler(productRepo, settingsRepo, storeRepo, selectionRepo, mappingRepo, statusRepo, restGateway, log)
	taskHandlers := mappingapp.NewTaskHandlers(storeRepo, hierarchy, selections, log)

	// Background task processor
	var processor *task.Processor
	if cfg.Task.ProcessorEnabled {
		processor = task.NewProcessor(taskRepo, task.ProcessorConfig{
			BatchSize:        cfg.Task.BatchSize,
			PollInterval:     cfg.Task.PollInterval,
			CleanupEnabled:   cfg.Task.CleanupEnabled,
			CleanupInterval:  cfg.Task.CleanupInterval,
			CleanupRetention: cfg.Task.CleanupRetention,
		}, log)
		processor.Register(mappingapp.TaskKindCreateCategories, taskHandlers.HandleCreateCategories)
		processor.Register(mappingapp.TaskKindApplyProductSync, taskHandlers.HandleApplyProductSync)

		if err := processor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start task processor", zap.Error(err))
		}
		log.Info("Task processor started")
	} else {
		log.Warn("Task processor disabled, category creation tasks will not run")
	}

	// Verification scheduler
	var verifyScheduler *scheduler.VerificationScheduler
	if cfg.Scheduler.Enabled {
		verifyScheduler = scheduler.NewVerificationScheduler(scheduler.VerificationSchedulerConfig{
			CheckInterval:  cfg.Scheduler.CheckInterval,
			VerifyInterval: cfg.Scheduler.VerifyInterval,
			Budget:         cfg.Scheduler.Budget,
			PageSize:       cfg.Scheduler.PageSize,
		}, reconciler, tenantProvider, log)

		if err := verifyScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start verification scheduler", zap.Error(err))
		}
		log.Info("Verification scheduler started")
	} else {
		log.Warn("Verification scheduler disabled")
	}

	// HTTP handlers
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	storeHandler := handler.NewStoreHandler(storeRepo)
	comparisonHandler := handler.NewComparisonHandler(comparisonEngine, overrideValidator, productRepo, storeRepo)
	selectionHandler := handler.NewSelectionHandler(selections, storeRepo)
	syncHandler := handler.NewSyncHandler(reconciler, statusRepo, settingsRepo)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request id first so recovery and logging carry it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Catalog domain (categories, products, per-store selections)
	catalogRoutes := router.NewDomainGroup("catalog", "/catalog")
	catalogRoutes.POST("/categories", categoryHandler.Create)
	catalogRoutes.GET("/categories", categoryHandler.List)
	catalogRoutes.GET("/categories/tree", categoryHandler.GetTree)
	catalogRoutes.GET("/categories/roots", categoryHandler.GetRoots)
	catalogRoutes.GET("/categories/:id", categoryHandler.GetByID)
	catalogRoutes.GET("/categories/:id/children", categoryHandler.GetChildren)
	catalogRoutes.PUT("/categories/:id", categoryHandler.Update)
	catalogRoutes.POST("/categories/:id/move", categoryHandler.Move)
	catalogRoutes.POST("/categories/:id/activate", categoryHandler.Activate)
	catalogRoutes.POST("/categories/:id/deactivate", categoryHandler.Deactivate)
	catalogRoutes.DELETE("/categories/:id", categoryHandler.Delete)

	catalogRoutes.POST("/products", productHandler.Create)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/:id", productHandler.GetByID)
	catalogRoutes.GET("/products/code/:code", productHandler.GetByCode)
	catalogRoutes.PUT("/products/:id", productHandler.Update)
	catalogRoutes.PUT("/products/:id/default-categories", productHandler.SetDefaultCategories)
	catalogRoutes.POST("/products/:id/publish", productHandler.Publish)
	catalogRoutes.POST("/products/:id/unpublish", productHandler.Unpublish)
	catalogRoutes.DELETE("/products/:id", productHandler.Delete)

	catalogRoutes.GET("/products/:id/overrides", comparisonHandler.ValidateOverrides)
	catalogRoutes.GET("/products/:id/overrides/:store_id", comparisonHandler.ValidateShopOverride)

	catalogRoutes.GET("/products/:id/stores/:store_id/selection", selectionHandler.Get)
	catalogRoutes.PUT("/products/:id/stores/:store_id/selection", selectionHandler.Update)
	catalogRoutes.POST("/products/:id/stores/:store_id/selection/apply-remote", selectionHandler.ApplyRemote)
	catalogRoutes.POST("/products/:id/stores/:store_id/selection/refresh", selectionHandler.Refresh)
	catalogRoutes.DELETE("/products/:id/stores/:store_id/selection", selectionHandler.Clear)

	catalogRoutes.POST("/products/:id/stores/:store_id/sync/verify", syncHandler.Verify)
	catalogRoutes.GET("/products/:id/stores/:store_id/sync", syncHandler.GetStatus)
	catalogRoutes.PUT("/products/:id/stores/:store_id/sync", syncHandler.UpdatePairSettings)

	// Store domain (remote store administration, tree comparison)
	storeRoutes := router.NewDomainGroup("stores", "/stores")
	storeRoutes.POST("", storeHandler.Create)
	storeRoutes.GET("", storeHandler.List)
	storeRoutes.GET("/:id", storeHandler.GetByID)
	storeRoutes.POST("/:id/enable", storeHandler.Enable)
	storeRoutes.POST("/:id/disable", storeHandler.Disable)
	storeRoutes.POST("/:id/sync/enable", storeHandler.EnableSync)
	storeRoutes.POST("/:id/sync/disable", storeHandler.DisableSync)
	storeRoutes.GET("/:id/comparison", comparisonHandler.Compare)

	// Sync domain (stored verification outcomes)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.GET("/statuses", syncHandler.ListByStatus)
	syncRoutes.GET("/statuses/counts", syncHandler.StatusCounts)

	r.Register(catalogRoutes).
		Register(storeRoutes).
		Register(syncRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if verifyScheduler != nil {
		if err := verifyScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping verification scheduler", zap.Error(err))
		}
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping task processor", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
