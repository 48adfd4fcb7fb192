package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics, scoped to the ingestion/RAG
// surface: HTTP, fetch, extraction, LLM usage, circuit breaker state,
// job progress.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	FetchDuration       metric.Float64Histogram
	ExtractionDuration  metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	JobProgress         metric.Int64Counter
	DatabaseOperations  metric.Int64Counter
}

func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("editais-ingestor")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"fetch.duration",
		metric.WithDescription("HTTP fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	extractionDuration, err := meter.Float64Histogram(
		"extraction.duration",
		metric.WithDescription("PDF chunked extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	jobProgress, err := meter.Int64Counter(
		"job.items.processed",
		metric.WithDescription("Items processed by job executions"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		FetchDuration:       fetchDuration,
		ExtractionDuration:  extractionDuration,
		TokensUsed:          tokensUsed,
		CircuitBreakerState: circuitBreakerState,
		JobProgress:         jobProgress,
		DatabaseOperations:  databaseOperations,
	}, nil
}

func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}
	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordFetch(duration float64, sourceTag string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("source", sourceTag),
		attribute.Bool("success", success),
	}
	m.FetchDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordExtraction(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}
	m.ExtractionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
	}
	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordJobProgress(sourceTag string, processed int64) {
	attrs := []attribute.KeyValue{
		attribute.String("source", sourceTag),
	}
	m.JobProgress.Add(context.Background(), processed, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDatabaseOperation(operation, collection string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.Bool("db.success", success),
	}
	m.DatabaseOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
