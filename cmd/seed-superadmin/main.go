package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/config"
	"github.com/editais/ingestor/models"
	"github.com/editais/ingestor/utils"
)

// cmd/seed-superadmin seeds the single operator account needed to
// authenticate against /api/v1/*. There is no self-registration
// surface (models.User), so this is the only way to create one.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	usersCollection := client.Database(cfg.DBName).Collection("users")

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	var existing models.User
	err = usersCollection.FindOne(context.Background(), bson.M{"username": username}).Decode(&existing)
	if err == nil {
		fmt.Printf("user %q already exists\n", username)
		os.Exit(0)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD must be set")
	}

	hashed, err := utils.HashPassword(password, 12)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		PasswordHash: hashed,
		Role:         "admin",
		CreatedAt:    time.Now(),
	}

	if _, err := usersCollection.InsertOne(context.Background(), user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("created user %q with role %q\n", user.Username, user.Role)
}
