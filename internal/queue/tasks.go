// Package queue adapts the per-call extraction pipeline (C2/C6) to run
// on a separate asynq worker pool, so the CPU-bound PDF parse and the
// LLM-bound extraction never compete with the orchestrator's HTTP fetch
// loop for the same goroutines. It is an optional deployment mode: an
// Orchestrator without a Dispatcher runs every call in-process instead.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/extractor"
	"github.com/editais/ingestor/internal/fetcher"
	"github.com/editais/ingestor/internal/logger"
	"github.com/editais/ingestor/internal/pdftext"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/models"
	"github.com/editais/ingestor/utils"
)

const TaskExtractEdital = "edital:extract"

// ExtractEditalPayload is the full context an asynq worker needs to
// fetch, extract and process one candidate PDF without consulting the
// orchestrator again.
type ExtractEditalPayload struct {
	JobID     string `json:"job_id"`
	SourceTag string `json:"source_tag"`
	CallURL   string `json:"call_url"`
	CallTitle string `json:"call_title"`
}

// NewExtractEditalTask builds the asynq task for one candidate PDF.
// Retries are capped low: a transport failure on the LLM side is
// already retried once inside the extraction pipeline itself.
func NewExtractEditalTask(jobID primitive.ObjectID, sourceTag, url, title string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExtractEditalPayload{
		JobID:     jobID.Hex(),
		SourceTag: sourceTag,
		CallURL:   url,
		CallTitle: title,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskExtractEdital,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("pdf"),
	), nil
}

// Dispatcher enqueues extraction tasks onto the pdf queue. It is the
// thin client side used by the orchestrator; TaskProcessor is the
// worker-side handler that actually does the work.
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(redisOpt asynq.RedisClientOpt) *Dispatcher {
	return &Dispatcher{client: asynq.NewClient(redisOpt)}
}

func (d *Dispatcher) Close() error { return d.client.Close() }

func (d *Dispatcher) Enqueue(jobID primitive.ObjectID, sourceTag string, call models.CallRef) error {
	task, err := NewExtractEditalTask(jobID, sourceTag, call.URL, call.Title)
	if err != nil {
		return err
	}
	_, err = d.client.Enqueue(task)
	return err
}

// TaskProcessor is the worker-side handler, run by cmd/worker. It owns
// the same fetch/extract/pipeline stack the in-process orchestrator
// path uses, so a call behaves identically whether it runs locally or
// on a remote worker.
type TaskProcessor struct {
	store    *store.Store
	fetcher  *fetcher.Fetcher
	pipeline *extractor.Pipeline
}

func NewTaskProcessor(st *store.Store, f *fetcher.Fetcher, pipeline *extractor.Pipeline) *TaskProcessor {
	return &TaskProcessor{store: st, fetcher: f, pipeline: pipeline}
}

func (p *TaskProcessor) ExtractEdital(ctx context.Context, t *asynq.Task) error {
	var payload ExtractEditalPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
	}

	jobID, err := primitive.ObjectIDFromHex(payload.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id: %w: %v", asynq.SkipRetry, err)
	}

	job, err := p.store.GetJobExecution(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if job.Status == models.JobStatusCancelled {
		logger.Info("skipping call, job cancelled", "job_id", payload.JobID, "url", payload.CallURL)
		return nil
	}

	extractErr := p.process(ctx, payload)
	if extractErr != nil {
		logger.Error("call failed", "job_id", payload.JobID, "url", payload.CallURL, "error", extractErr)
	}

	if _, err := p.store.RecordCallOutcome(ctx, jobID, extractErr == nil, payload.CallURL, errString(extractErr)); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	if _, err := p.store.FinishJobIfComplete(ctx, jobID); err != nil {
		logger.Error("failed to finalize job", "job_id", payload.JobID, "error", err)
	}

	return nil
}

func (p *TaskProcessor) process(ctx context.Context, payload ExtractEditalPayload) error {
	result, err := p.fetcher.Fetch(ctx, payload.CallURL, fetcher.Options{AcceptPDF: true, ReadTimeout: 120 * time.Second})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if !result.IsPDF {
		return fmt.Errorf("not a pdf: %s", result.ContentType)
	}

	contentHash := utils.ContentHash(result.Bytes)
	if existing, err := p.store.FindEditalByHash(ctx, payload.SourceTag, contentHash); err == nil && existing.ExtractionStatus == models.ExtractionStatusCompleted {
		return nil
	}

	pages, err := pdftext.Extract(result.Bytes)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	text := pdftext.Join(pages)

	title := payload.CallTitle
	if title == "" {
		title = payload.CallURL
	}

	_, _, err = p.pipeline.Run(ctx, result.FinalURL, payload.SourceTag, contentHash, title, text)
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
