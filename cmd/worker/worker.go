package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/editais/ingestor/internal/config"
	"github.com/editais/ingestor/internal/extractor"
	"github.com/editais/ingestor/internal/fetcher"
	"github.com/editais/ingestor/internal/logger"
	"github.com/editais/ingestor/internal/queue"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/internal/telemetry"
	"github.com/editais/ingestor/internal/vectorindex"
)

// cmd/worker runs the distributed extraction pool: one asynq server
// pulling edital:extract tasks off the pdf queue, used when the server
// process is started with QUEUE_DISTRIBUTED=true so fetch/parse/LLM
// work never competes with the orchestrator's own goroutines.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
	}

	ctx := context.Background()
	db := mongoClient.Database(cfg.DBName)
	st := store.New(db)

	vectors, err := vectorindex.Open(ctx, cfg.ChromaURL, cfg.ChromaCollection, cfg.VectorEmbeddingModel, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
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
	processor := queue.NewTaskProcessor(st, httpFetcher, pipeline)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"pdf": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskExtractEdital, processor.ExtractEdital)

	logger.Info("worker starting", "concurrency", cfg.WorkerConcurrency, "redis", redisOpt.Addr)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
