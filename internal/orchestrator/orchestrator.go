// Package orchestrator implements the process-singleton job scheduler
// (C7): one cron trigger per source, a map of in-flight run ids, and
// the per-PDF run loop that drives fetch, extraction and persistence.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/adapters"
	"github.com/editais/ingestor/internal/extractor"
	"github.com/editais/ingestor/internal/fetcher"
	"github.com/editais/ingestor/internal/logger"
	"github.com/editais/ingestor/internal/pdftext"
	"github.com/editais/ingestor/internal/queue"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/internal/telemetry"
	"github.com/editais/ingestor/models"
	"github.com/editais/ingestor/utils"
)

// runHandle tracks one in-flight job so a cancel request can flip its
// cooperative flag. Mutations to a single JobExecution are issued only
// by the goroutine running it; the handle map itself is guarded by mu.
type runHandle struct {
	cancel chan struct{}
}

type Orchestrator struct {
	scheduler *gocron.Scheduler

	store       *store.Store
	fetcher     *fetcher.Fetcher
	pipeline    *extractor.Pipeline
	metrics     *telemetry.Metrics
	descriptors map[string]models.SourceDescriptor

	pdfProcessingDelay time.Duration
	dispatcher         *queue.Dispatcher

	mu   sync.Mutex
	runs map[primitive.ObjectID]*runHandle
}

// UseDispatcher switches every future ExecuteNow call onto the
// distributed worker pool: calls are enqueued on the pdf queue instead
// of being processed in this goroutine. Pass nil to go back to the
// in-process path.
func (o *Orchestrator) UseDispatcher(d *queue.Dispatcher) {
	o.dispatcher = d
}

func New(st *store.Store, f *fetcher.Fetcher, pipeline *extractor.Pipeline, metrics *telemetry.Metrics, pdfProcessingDelay time.Duration) *Orchestrator {
	descs := map[string]models.SourceDescriptor{}
	for _, d := range adapters.Descriptors() {
		descs[d.Tag] = d
	}

	return &Orchestrator{
		scheduler:          gocron.NewScheduler(time.Local),
		store:              st,
		fetcher:            f,
		pipeline:           pipeline,
		metrics:            metrics,
		descriptors:        descs,
		pdfProcessingDelay: pdfProcessingDelay,
		runs:               make(map[primitive.ObjectID]*runHandle),
	}
}

// ScheduleDaily registers the standard daily-at-01:00-local trigger
// for every configured source.
func (o *Orchestrator) ScheduleDaily() error {
	for tag := range o.descriptors {
		sourceTag := tag
		cronTag := fmt.Sprintf("%s_daily_scraping", sourceTag)
		_, err := o.scheduler.Every(1).Day().At("01:00").Tag(cronTag).Do(func() {
			if _, err := o.ExecuteNow(context.Background(), sourceTag, true); err != nil {
				logger.Error("scheduled job failed to start", "source", sourceTag, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", sourceTag, err)
		}
	}
	return nil
}

func (o *Orchestrator) Start() { o.scheduler.StartAsync() }
func (o *Orchestrator) Stop()  { o.scheduler.Stop() }

// ExecuteNow creates the job execution record and launches the run as
// a background task, returning the job id immediately.
func (o *Orchestrator) ExecuteNow(ctx context.Context, sourceTag string, filterByDate bool) (primitive.ObjectID, error) {
	desc, ok := o.descriptors[sourceTag]
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unknown source: %s", sourceTag)
	}

	// At most one running job per source (spec.md §9 open question):
	// checked against the store rather than an in-process map, since a
	// job's lifetime spans multiple asynq workers in distributed mode
	// and no single goroutine would otherwise see it finish.
	running, err := o.store.HasRunningJob(ctx, sourceTag)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if running {
		return primitive.NilObjectID, fmt.Errorf("a job is already running for source: %s", sourceTag)
	}

	job := &models.JobExecution{
		JobName:   fmt.Sprintf("ingest-%s", sourceTag),
		SourceTag: sourceTag,
	}
	if err := o.store.CreateJobExecution(ctx, job); err != nil {
		return primitive.NilObjectID, err
	}

	handle := &runHandle{cancel: make(chan struct{})}
	o.mu.Lock()
	o.runs[job.ID] = handle
	o.mu.Unlock()

	go o.run(context.Background(), job, desc, filterByDate, handle)

	return job.ID, nil
}

// Cancel flips the cooperative cancellation flag for a running job.
// The run loop only observes it between PDFs, never mid-chunk.
func (o *Orchestrator) Cancel(jobID primitive.ObjectID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	handle, ok := o.runs[jobID]
	if !ok {
		return false
	}
	select {
	case <-handle.cancel:
		// already cancelled
	default:
		close(handle.cancel)
	}
	return true
}

func (o *Orchestrator) run(ctx context.Context, job *models.JobExecution, desc models.SourceDescriptor, filterByDate bool, handle *runHandle) {
	defer func() {
		o.mu.Lock()
		delete(o.runs, job.ID)
		o.mu.Unlock()
	}()

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	job.Progress = 0
	if err := o.store.UpdateJobExecution(ctx, job); err != nil {
		logger.Error("failed to mark job running", "job_id", job.ID.Hex(), "error", err)
		return
	}

	adapter := adapters.New(desc, o.fetcher)
	calls, err := adapter.ListCalls(ctx, filterByDate)
	if err != nil {
		o.fail(ctx, job, fmt.Sprintf("listing calls: %v", err))
		return
	}

	job.Total = len(calls)
	if err := o.store.UpdateJobExecution(ctx, job); err != nil {
		logger.Error("failed to persist job total", "job_id", job.ID.Hex(), "error", err)
	}

	if o.dispatcher != nil {
		o.dispatchAll(job, calls)
		return
	}

	for _, call := range calls {
		select {
		case <-handle.cancel:
			o.cancelled(ctx, job)
			return
		default:
		}

		if err := o.processCall(ctx, job, call); err != nil {
			job.AppendError(call.URL, err.Error(), 0, time.Now())
		} else {
			job.Processed++
		}

		if job.Total > 0 {
			job.Progress = float64(job.Processed) / float64(job.Total) * 100
		}
		if o.metrics != nil {
			o.metrics.RecordJobProgress(job.SourceTag, 1)
		}
		if err := o.store.UpdateJobExecution(ctx, job); err != nil {
			logger.Error("failed to persist job progress", "job_id", job.ID.Hex(), "error", err)
		}

		if o.pdfProcessingDelay > 0 {
			select {
			case <-time.After(o.pdfProcessingDelay):
			case <-handle.cancel:
				o.cancelled(ctx, job)
				return
			}
		}
	}

	finished := time.Now()
	job.Status = models.JobStatusCompleted
	job.FinishedAt = &finished
	job.Progress = 100
	job.ResultSummary = fmt.Sprintf("processed %d/%d pdfs, %d failures", job.Processed, job.Total, job.FailedCount)
	_ = o.store.UpdateJobExecution(ctx, job)
}

// dispatchAll hands every candidate PDF to the asynq queue and returns
// immediately; job completion is then driven by the workers themselves
// via store.RecordCallOutcome and store.FinishJobIfComplete, since no
// single goroutine owns the loop. Once it returns, run drops the job's
// handle, so Cancel reports the job as not running; workers skip a task
// only when the stored job status is already cancelled, and nothing in
// this mode sets that status.
func (o *Orchestrator) dispatchAll(job *models.JobExecution, calls []models.CallRef) {
	if len(calls) == 0 {
		finished := time.Now()
		job.Status = models.JobStatusCompleted
		job.FinishedAt = &finished
		job.Progress = 100
		job.ResultSummary = "no candidate pdfs found"
		_ = o.store.UpdateJobExecution(context.Background(), job)
		return
	}

	for _, call := range calls {
		if err := o.dispatcher.Enqueue(job.ID, job.SourceTag, call); err != nil {
			logger.Error("failed to enqueue call", "job_id", job.ID.Hex(), "url", call.URL, "error", err)
			_, _ = o.store.RecordCallOutcome(context.Background(), job.ID, false, call.URL, err.Error())
		}
	}
	_, _ = o.store.FinishJobIfComplete(context.Background(), job.ID)
}

// processCall fetches one candidate PDF, skips it if byte-identical to
// an already-completed edital for this source, and otherwise drives
// extraction to completion.
func (o *Orchestrator) processCall(ctx context.Context, job *models.JobExecution, call models.CallRef) error {
	start := time.Now()
	result, err := o.fetcher.Fetch(ctx, call.URL, fetcher.Options{AcceptPDF: true, ReadTimeout: 120 * time.Second})
	if o.metrics != nil {
		o.metrics.RecordFetch(time.Since(start).Seconds(), job.SourceTag, err == nil)
	}
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if !result.IsPDF {
		return fmt.Errorf("not a pdf: %s", result.ContentType)
	}

	contentHash := utils.ContentHash(result.Bytes)
	if existing, err := o.store.FindEditalByHash(ctx, job.SourceTag, contentHash); err == nil && existing.ExtractionStatus == models.ExtractionStatusCompleted {
		return nil
	}

	pages, err := pdftext.Extract(result.Bytes)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	text := pdftext.Join(pages)

	title := call.Title
	if title == "" {
		title = call.URL
	}

	_, _, err = o.pipeline.Run(ctx, result.FinalURL, job.SourceTag, contentHash, title, text)
	return err
}

func (o *Orchestrator) fail(ctx context.Context, job *models.JobExecution, message string) {
	finished := time.Now()
	job.Status = models.JobStatusFailed
	job.FinishedAt = &finished
	job.AppendError("", message, 0, finished)
	_ = o.store.UpdateJobExecution(ctx, job)
}

func (o *Orchestrator) cancelled(ctx context.Context, job *models.JobExecution) {
	finished := time.Now()
	job.Status = models.JobStatusCancelled
	job.FinishedAt = &finished
	_ = o.store.UpdateJobExecution(ctx, job)
}
