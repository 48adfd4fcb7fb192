package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the flat set of runtime settings for both the server and
// worker processes. It is loaded once at startup and passed down by
// value/pointer, never re-read.
type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	JWTSecret    string
	JWTExpiresIn string

	MongoURI string
	DBName   string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey      string
	GeminiModel       string
	GeminiEmbedModel  string
	GeminiMaxRPS      float64
	GeminiMaxBurst    int
	BreakerMaxFails   uint32
	BreakerOpenPeriod int // seconds

	ChromaURL            string
	ChromaCollection     string
	ChromaDistanceMax    float64
	VectorEmbeddingModel string

	FetchTimeoutSeconds   int
	FetchConnectTimeoutMs int
	FetchMaxRetries       int
	FetchUserAgent        string
	FetchMaxBodyBytes     int64

	ChunkSize    int
	ChunkOverlap int
	ChunkDelayMs int

	RateLimitReqs   int
	RateLimitWindow int // seconds

	SchedulerDefaultCron  string
	PDFProcessingDelayMs  int
	WorkerConcurrency     int
}

func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: getEnv("JWT_EXPIRES_IN", "24h"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/editais"),
		DBName:   getEnv("DB_NAME", "editais"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbedModel:  getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		GeminiMaxRPS:      getEnvFloat64("GEMINI_MAX_RPS", 1.0),
		GeminiMaxBurst:    getEnvInt("GEMINI_MAX_BURST", 2),
		BreakerMaxFails:   uint32(getEnvInt("BREAKER_MAX_FAILS", 5)),
		BreakerOpenPeriod: getEnvInt("BREAKER_OPEN_PERIOD_SECONDS", 30),

		ChromaURL:            getEnv("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection:     getEnv("CHROMA_COLLECTION", "editais"),
		ChromaDistanceMax:    getEnvFloat64("CHROMA_DISTANCE_MAX", 1.5),
		VectorEmbeddingModel: getEnv("VECTOR_EMBEDDING_MODEL", "text-embedding-004"),

		FetchTimeoutSeconds:   getEnvInt("FETCH_TIMEOUT_SECONDS", 30),
		FetchConnectTimeoutMs: getEnvInt("FETCH_CONNECT_TIMEOUT_MS", 5000),
		FetchMaxRetries:       getEnvInt("FETCH_MAX_RETRIES", 3),
		FetchUserAgent:        getEnv("FETCH_USER_AGENT", "editais-ingestor/1.0 (+https://github.com/editais/ingestor)"),
		FetchMaxBodyBytes:     getEnvInt64("FETCH_MAX_BODY_BYTES", 52428800),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 3000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 300),
		ChunkDelayMs: getEnvInt("CHUNK_DELAY_MS", 500),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		SchedulerDefaultCron: getEnv("SCHEDULER_DEFAULT_CRON", "0 6 * * *"),
		PDFProcessingDelayMs: getEnvInt("PDF_PROCESSING_DELAY_MS", 1000),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
