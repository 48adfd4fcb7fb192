// cmd/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/editais/ingestor/internal/config"
	"github.com/editais/ingestor/internal/extractor"
	"github.com/editais/ingestor/internal/fetcher"
	"github.com/editais/ingestor/internal/logger"
	"github.com/editais/ingestor/internal/orchestrator"
	"github.com/editais/ingestor/internal/queue"
	"github.com/editais/ingestor/internal/rag"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/internal/telemetry"
	"github.com/editais/ingestor/internal/vectorindex"
	"github.com/editais/ingestor/middleware"
	"github.com/editais/ingestor/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)
	logger.Info("application starting", "gin_mode", cfg.GinMode, "port", cfg.Port)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	shutdownTracer, err := telemetry.InitTracer("editais-ingestor")
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
	}

	db := mongoClient.Database(cfg.DBName)
	st := store.New(db)

	ctx := context.Background()

	vectors, err := vectorindex.Open(ctx, cfg.ChromaURL, cfg.ChromaCollection, cfg.VectorEmbeddingModel, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}
	if err := vectors.Warmup(ctx); err != nil {
		logger.Warn("vector index warmup failed", "error", err)
	}

	llmClient, err := extractor.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiMaxRPS, cfg.GeminiMaxBurst,
		cfg.BreakerMaxFails, time.Duration(cfg.BreakerOpenPeriod)*time.Second, metrics)
	if err != nil {
		log.Fatal("Failed to initialize LLM client:", err)
	}

	pipeline := &extractor.Pipeline{
		LLM:          llmClient,
		Store:        st,
		Vectors:      vectors,
		Metrics:      metrics,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		ChunkDelay:   time.Duration(cfg.ChunkDelayMs) * time.Millisecond,
	}

	httpFetcher := fetcher.New(time.Duration(cfg.FetchConnectTimeoutMs) * time.Millisecond)

	orch := orchestrator.New(st, httpFetcher, pipeline, metrics, time.Duration(cfg.PDFProcessingDelayMs)*time.Millisecond)
	if os.Getenv("QUEUE_DISTRIBUTED") == "true" {
		dispatcher := queue.NewDispatcher(asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer dispatcher.Close()
		orch.UseDispatcher(dispatcher)
		logger.Info("job orchestrator running in distributed mode")
	}
	if err := orch.ScheduleDaily(); err != nil {
		log.Fatal("Failed to schedule daily jobs:", err)
	}
	orch.Start()
	defer orch.Stop()

	generator, err := rag.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("Failed to initialize RAG generator:", err)
	}
	defer generator.Close()

	ragEngine := &rag.Engine{
		Store:             st,
		Vectors:           vectors,
		Generator:         generator,
		DistanceThreshold: float32(cfg.ChromaDistanceMax),
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", "error", recovered, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error_code": "internal_error",
			"message":    "An unexpected error occurred",
		})
		c.Abort()
	}))

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	router.Use(middleware.RequestSizeLimit(10 << 20))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		health := gin.H{"status": "healthy", "timestamp": time.Now()}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "mongodb_error": err.Error()})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, health)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusOK)
	})

	authMiddleware := middleware.NewAuthMiddleware(rdb)
	roleMiddleware := middleware.NewRoleMiddleware()

	routes.SetupAuthRoutes(router, cfg, st, rdb)

	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	routes.SetupChatRoutes(api, ragEngine)

	jobsGroup := api.Group("")
	jobsGroup.Use(roleMiddleware.AdminGuard())
	routes.SetupJobRoutes(jobsGroup, orch, st)
	routes.SetupVectorIndexRoutes(jobsGroup, vectors)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
