// Package store implements the canonical MongoDB-backed persistence
// layer: editais, job executions, conversations and users. Every
// write is atomic per document; no cross-document transactions are
// used, matching the canonical store's stated consistency model.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/editais/ingestor/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) editais() *mongo.Collection       { return s.db.Collection("editais") }
func (s *Store) jobExecutions() *mongo.Collection { return s.db.Collection("job_executions") }
func (s *Store) conversations() *mongo.Collection { return s.db.Collection("conversations") }
func (s *Store) users() *mongo.Collection         { return s.db.Collection("users") }

// FindEditalByHash looks up an edital by its dedup identity
// (source_tag, content_hash), returning ErrNotFound if absent.
func (s *Store) FindEditalByHash(ctx context.Context, sourceTag, contentHash string) (*models.Edital, error) {
	var edital models.Edital
	err := s.editais().FindOne(ctx, bson.M{"source_tag": sourceTag, "content_hash": contentHash}).Decode(&edital)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &edital, nil
}

// AppendChunk implements the "partial append" update path: push a new
// chunk record, set extraction_status, and upsert the edital if it
// does not already exist.
func (s *Store) AppendChunk(ctx context.Context, sourceURL, sourceTag, contentHash string, chunk models.ExtractionChunk, totalChunks int) (primitive.ObjectID, error) {
	now := time.Now()
	filter := bson.M{"source_tag": sourceTag, "content_hash": contentHash}
	update := bson.M{
		"$push": bson.M{"extraction_chunks": chunk},
		"$set": bson.M{
			"extraction_status": models.ExtractionStatusInProgress,
			"total_chunks":       totalChunks,
			"updated_at":         now,
		},
		"$setOnInsert": bson.M{
			"source_url": sourceURL,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result models.Edital
	err := s.editais().FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return result.ID, nil
}

// AppendFailedChunk records a placeholder for a chunk whose extraction
// could not be parsed after retrying once.
func (s *Store) AppendFailedChunk(ctx context.Context, editalID primitive.ObjectID, failed models.RawFailedChunk) error {
	_, err := s.editais().UpdateOne(ctx,
		bson.M{"_id": editalID},
		bson.M{"$push": bson.M{"raw_failed_chunks": failed}, "$set": bson.M{"updated_at": time.Now()}},
	)
	return err
}

// FinalCommit implements the "final commit" update path: set
// consolidated_variables and also copy each non-null field to the top
// level of the document, so queries over typed fields work without
// digging into the nested structure.
func (s *Store) FinalCommit(ctx context.Context, editalID primitive.ObjectID, fields *models.EditalFields, status string) error {
	set := bson.M{
		"consolidated_variables": fields,
		"extraction_status":      status,
		"updated_at":             time.Now(),
	}
	for k, v := range topLevelFields(fields) {
		set[k] = v
	}

	_, err := s.editais().UpdateOne(ctx,
		bson.M{"_id": editalID},
		bson.M{"$set": set},
	)
	return err
}

// topLevelFields converts the non-null fields of an EditalFields into
// a bson.M keyed by their bson tag, so FinalCommit can $set them
// directly at the document root.
func topLevelFields(fields *models.EditalFields) bson.M {
	raw, err := bson.Marshal(fields)
	if err != nil {
		return bson.M{}
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return bson.M{}
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}

func (s *Store) GetEdital(ctx context.Context, id primitive.ObjectID) (*models.Edital, error) {
	var edital models.Edital
	err := s.editais().FindOne(ctx, bson.M{"_id": id}).Decode(&edital)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &edital, nil
}

// CreateJobExecution inserts a new job execution record in the
// pending state.
func (s *Store) CreateJobExecution(ctx context.Context, job *models.JobExecution) error {
	job.ID = primitive.NewObjectID()
	job.Status = models.JobStatusPending
	_, err := s.jobExecutions().InsertOne(ctx, job)
	return err
}

func (s *Store) UpdateJobExecution(ctx context.Context, job *models.JobExecution) error {
	_, err := s.jobExecutions().ReplaceOne(ctx, bson.M{"_id": job.ID}, job)
	return err
}

func (s *Store) GetJobExecution(ctx context.Context, id primitive.ObjectID) (*models.JobExecution, error) {
	var job models.JobExecution
	err := s.jobExecutions().FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// RecordCallOutcome atomically applies one processed-call outcome to a
// job execution (used by the distributed worker path in internal/queue,
// where many asynq handlers race to update the same job) and returns the
// updated document so the caller can decide whether the job is done.
func (s *Store) RecordCallOutcome(ctx context.Context, jobID primitive.ObjectID, success bool, url, errMsg string) (*models.JobExecution, error) {
	update := bson.M{}
	if success {
		update["$inc"] = bson.M{"processed": 1}
	} else {
		update["$inc"] = bson.M{"failed_count": 1}
		update["$push"] = bson.M{"errors": bson.M{
			"$each":  []models.JobError{{URL: url, Message: errMsg, Timestamp: time.Now()}},
			"$slice": -200,
		}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job models.JobExecution
	if err := s.jobExecutions().FindOneAndUpdate(ctx, bson.M{"_id": jobID}, update, opts).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if job.Total > 0 {
		job.Progress = float64(job.Processed) / float64(job.Total) * 100
		_, _ = s.jobExecutions().UpdateByID(ctx, jobID, bson.M{"$set": bson.M{"progress": job.Progress}})
	}
	return &job, nil
}

// FinishJobIfComplete transitions a running job to completed once every
// dispatched call has reported an outcome. It is a no-op (ok=false) if
// the job is not yet running or not yet fully accounted for, which
// makes it safe to call from every worker after RecordCallOutcome.
func (s *Store) FinishJobIfComplete(ctx context.Context, jobID primitive.ObjectID) (bool, error) {
	job, err := s.GetJobExecution(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.JobStatusRunning {
		return false, nil
	}
	if job.Processed+job.FailedCount < job.Total {
		return false, nil
	}

	now := time.Now()
	res, err := s.jobExecutions().UpdateOne(ctx,
		bson.M{"_id": jobID, "status": models.JobStatusRunning},
		bson.M{"$set": bson.M{
			"status":         models.JobStatusCompleted,
			"finished_at":    now,
			"progress":       100,
			"result_summary": resultSummary(job),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func resultSummary(job *models.JobExecution) string {
	return fmt.Sprintf("processed %d/%d pdfs, %d failures", job.Processed, job.Total, job.FailedCount)
}

// HasRunningJob reports whether a job for sourceTag is currently in the
// running state, enforcing the at-most-one-running-job-per-source rule
// at job creation time.
func (s *Store) HasRunningJob(ctx context.Context, sourceTag string) (bool, error) {
	count, err := s.jobExecutions().CountDocuments(ctx,
		bson.M{"source_tag": sourceTag, "status": models.JobStatusRunning},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListRecentJobExecutions(ctx context.Context, sourceTag string, limit int64) ([]models.JobExecution, error) {
	filter := bson.M{}
	if sourceTag != "" {
		filter["source_tag"] = sourceTag
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cur, err := s.jobExecutions().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []models.JobExecution
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.ID = primitive.NewObjectID()
	_, err := s.conversations().InsertOne(ctx, conv)
	return err
}

func (s *Store) GetConversation(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.conversations().FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now()
	_, err := s.conversations().ReplaceOne(ctx, bson.M{"_id": conv.ID}, conv)
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
