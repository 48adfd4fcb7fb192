package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobExecution status values.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// JobError is one bounded entry in a JobExecution's error list: a single
// PDF or listing page that failed, kept around for operator inspection
// rather than just a count.
type JobError struct {
	URL        string    `bson:"url" json:"url"`
	Message    string    `bson:"message" json:"message"`
	RetryCount int       `bson:"retry_count" json:"retry_count"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// JobExecution is one run of a source's ingestion job, created either by
// the scheduler's cron trigger or by an explicit execute_now call.
type JobExecution struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobName       string             `bson:"job_name" json:"job_name"`
	SourceTag     string             `bson:"source_tag" json:"source_tag"`
	Status        string             `bson:"status" json:"status"`
	Progress      float64            `bson:"progress" json:"progress"`
	Total         int                `bson:"total" json:"total"`
	Processed     int                `bson:"processed" json:"processed"`
	FailedCount   int                `bson:"failed_count" json:"failed_count"`
	Errors        []JobError         `bson:"errors" json:"errors"`
	StartedAt     *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt    *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	ResultSummary string             `bson:"result_summary,omitempty" json:"result_summary,omitempty"`
}

// maxJobErrors bounds the Errors slice so a source with thousands of
// broken links doesn't blow up the JobExecution document.
const maxJobErrors = 200

// AppendError records a failed URL, capping the stored list at
// maxJobErrors while still counting every failure in FailedCount.
func (j *JobExecution) AppendError(url, message string, retryCount int, at time.Time) {
	j.FailedCount++
	if len(j.Errors) >= maxJobErrors {
		return
	}
	j.Errors = append(j.Errors, JobError{
		URL:        url,
		Message:    message,
		RetryCount: retryCount,
		Timestamp:  at,
	})
}
