package orchestrator

import (
	"testing"
	"time"

	"github.com/editais/ingestor/models"
)

func TestProgressCalculation(t *testing.T) {
	job := &models.JobExecution{Total: 4, Processed: 1}
	job.Progress = float64(job.Processed) / float64(job.Total) * 100
	if job.Progress != 25 {
		t.Fatalf("expected 25%%, got %v", job.Progress)
	}
}

func TestAppendErrorCapsStoredListButNotCount(t *testing.T) {
	job := &models.JobExecution{}
	for i := 0; i < 250; i++ {
		job.AppendError("http://x", "boom", 0, time.Now())
	}
	if job.FailedCount != 250 {
		t.Fatalf("expected FailedCount 250, got %d", job.FailedCount)
	}
	if len(job.Errors) != 200 {
		t.Fatalf("expected capped Errors at 200, got %d", len(job.Errors))
	}
}
