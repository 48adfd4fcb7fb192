package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	ctx := context.Background()

	// Editais collection indexes: identity is (source_tag, content_hash),
	// plus lookups by status for the job runner and by source URL for
	// re-ingestion checks.
	editaisCollection := db.Collection("editais")
	editalIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_tag", Value: 1}, {Key: "content_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "extraction_status", Value: 1}}},
		{Keys: bson.D{{Key: "source_url", Value: 1}}},
	}
	if _, err := editaisCollection.Indexes().CreateMany(ctx, editalIndexes); err != nil {
		return err
	}

	// JobExecution collection indexes: most-recent-run-per-source lookups.
	jobsCollection := db.Collection("job_executions")
	jobIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "source_tag", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := jobsCollection.Indexes().CreateMany(ctx, jobIndexes); err != nil {
		return err
	}

	// Conversation collection indexes.
	conversationsCollection := db.Collection("conversations")
	conversationIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	}
	if _, err := conversationsCollection.Indexes().CreateMany(ctx, conversationIndexes); err != nil {
		return err
	}

	// Users collection indexes.
	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := usersCollection.Indexes().CreateMany(ctx, userIndexes)
	return err
}
