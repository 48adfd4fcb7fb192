package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage role values.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in a Conversation. Sources must be a subset
// of chunk ids that existed at send time (spec.md §3 invariant); the
// RAG engine is responsible for not citing stale ids.
type ChatMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Sources   []string  `bson:"sources,omitempty" json:"sources,omitempty"`
}

// Conversation is a RAG chat session, optionally scoped to a single
// edital via EditalUUID so follow-up questions stay grounded in one
// funding call.
type Conversation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Title      string             `bson:"title,omitempty" json:"title,omitempty"`
	EditalUUID string             `bson:"edital_uuid,omitempty" json:"edital_uuid,omitempty"`
	Messages   []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ChatRequest is the POST body for asking a question in a conversation.
type ChatRequest struct {
	Message        string `json:"message" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id,omitempty"`
	EditalUUID     string `json:"edital_uuid,omitempty"`
}

// ChatResponse is the reply to a ChatRequest, carrying the chunk ids
// the answer was grounded on.
type ChatResponse struct {
	Reply          string    `json:"reply"`
	ConversationID string    `json:"conversation_id"`
	Sources        []string  `json:"sources"`
	Timestamp      time.Time `json:"timestamp"`
}
