package queue

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewExtractEditalTaskRoundTrips(t *testing.T) {
	jobID := primitive.NewObjectID()
	task, err := NewExtractEditalTask(jobID, "cnpq", "https://example.org/edital.pdf", "Chamada 01/2026")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskExtractEdital {
		t.Fatalf("expected type %q, got %q", TaskExtractEdital, task.Type())
	}

	var payload ExtractEditalPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if payload.JobID != jobID.Hex() {
		t.Fatalf("expected job id %q, got %q", jobID.Hex(), payload.JobID)
	}
	if payload.SourceTag != "cnpq" {
		t.Fatalf("expected source tag cnpq, got %q", payload.SourceTag)
	}
	if payload.CallURL != "https://example.org/edital.pdf" {
		t.Fatalf("unexpected call url: %q", payload.CallURL)
	}
}

func TestErrString(t *testing.T) {
	if got := errString(nil); got != "" {
		t.Fatalf("expected empty string for nil error, got %q", got)
	}
}
