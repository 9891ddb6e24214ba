package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pushkindt/pushkind-dantes/internal/config"
	"github.com/pushkindt/pushkind-dantes/internal/events"
	"github.com/pushkindt/pushkind-dantes/internal/handlers"
	"github.com/pushkindt/pushkind-dantes/internal/middleware"
	"github.com/pushkindt/pushkind-dantes/internal/repository"
	"github.com/pushkindt/pushkind-dantes/internal/subscribers"
)

// @title Dantes Catalog API
// @version 1.0.0
// @description Crawler catalog and benchmark service with bulk CSV/XLSX reconciliation

// @contact.name Pushkind Support
// @contact.email support@pushkind.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		redisClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repositories
	crawlersRepo := repository.NewCrawlersRepository(db, redisClient)
	productsRepo := repository.NewProductsRepository(db, redisClient)
	benchmarksRepo := repository.NewBenchmarksRepository(db, redisClient)
	categoriesRepo := repository.NewCategoriesRepository(db, redisClient)

	// Initialize job publisher only if NATS_URL is set
	var jobPublisher *events.Publisher
	if cfg.NATSURL != "" {
		jobPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize job publisher: %v (continuing without job publishing)", err)
		} else {
			log.Println("✓ Job publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping job publisher initialization")
	}
	defer func() {
		if jobPublisher != nil {
			jobPublisher.Close()
		}
	}()

	// Listen for worker results so processing flags get cleared
	var resultsSubscriber *subscribers.ResultsSubscriber
	if cfg.NATSURL != "" {
		resultsSubscriber, err = subscribers.NewResultsSubscriber(crawlersRepo, benchmarksRepo, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize results subscriber: %v (processing flags will not auto-clear)", err)
		} else if err := resultsSubscriber.Start(); err != nil {
			log.Printf("WARNING: Failed to subscribe to worker results: %v", err)
		} else {
			log.Println("✓ Worker results subscriber started")
		}
	}
	defer func() {
		if resultsSubscriber != nil {
			resultsSubscriber.Stop()
		}
	}()

	// Initialize handlers
	crawlersHandler := handlers.NewCrawlersHandler(crawlersRepo, productsRepo, jobPublisher, logger)
	benchmarksHandler := handlers.NewBenchmarksHandler(benchmarksRepo, jobPublisher, logger)
	categoriesHandler := handlers.NewCategoriesHandler(categoriesRepo, crawlersRepo, productsRepo, benchmarksRepo, jobPublisher, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no hub context required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// API routes, all scoped to a hub
	api := router.Group("/api/v1")
	api.Use(middleware.UserContextMiddleware())
	api.Use(middleware.HubMiddleware())
	{
		crawlers := api.Group("/crawlers")
		{
			crawlers.GET("", crawlersHandler.GetCrawlers)
			crawlers.GET("/:id/products", crawlersHandler.GetCrawlerProducts)
			crawlers.POST("/:id/products/import", crawlersHandler.ImportProducts)
			crawlers.GET("/:id/products/export", crawlersHandler.ExportProducts)
			crawlers.POST("/:id/crawl", crawlersHandler.StartCrawl)
			crawlers.POST("/:id/price-update", crawlersHandler.StartPriceUpdate)
		}

		benchmarks := api.Group("/benchmarks")
		{
			benchmarks.GET("", benchmarksHandler.GetBenchmarks)
			benchmarks.GET("/:id", benchmarksHandler.GetBenchmark)
			benchmarks.POST("", benchmarksHandler.CreateBenchmark)
			benchmarks.POST("/import", benchmarksHandler.ImportBenchmarks)
			benchmarks.GET("/export", benchmarksHandler.ExportBenchmarks)
			benchmarks.POST("/match", benchmarksHandler.StartMatch)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoriesHandler.GetCategories)
			categories.POST("", categoriesHandler.CreateCategory)
			categories.PUT("/:id", categoriesHandler.UpdateCategory)
			categories.DELETE("/:id", categoriesHandler.DeleteCategory)
			categories.POST("/match", categoriesHandler.StartCategoryMatch)
		}

		// Manual category assignment on individual products
		api.PUT("/products/:id/category", categoriesHandler.SetProductCategory)
		api.DELETE("/products/:id/category", categoriesHandler.ClearProductCategory)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Dantes catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down dantes-catalog-service...")
	log.Println("Dantes catalog service stopped")
}
