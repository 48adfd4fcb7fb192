package store

import (
	"testing"

	"github.com/editais/ingestor/models"
)

func TestResultSummaryFormatsCounts(t *testing.T) {
	job := &models.JobExecution{Total: 10, Processed: 7, FailedCount: 3}
	got := resultSummary(job)
	want := "processed 7/10 pdfs, 3 failures"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
