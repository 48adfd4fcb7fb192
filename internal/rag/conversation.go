// Package rag implements the conversational retrieval engine (C8):
// query expansion, over-fetch retrieval, distance filtering, context
// assembly and generation over the canonical conversation store.
package rag

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/logger"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/internal/vectorindex"
	"github.com/editais/ingestor/models"
)

const (
	defaultK                = 5
	defaultDistanceThreshold = 1.5
	defaultMaxContextLength = 4000
	titlePreviewLength      = 50

	// fallbackAnswer is returned when retrieval or generation fails; the
	// turn still completes and gets persisted instead of failing the
	// request, per spec.md §7.
	fallbackAnswer = "Desculpe, ocorreu um erro ao processar sua pergunta. Tente novamente em instantes."
)

type Engine struct {
	Store     *store.Store
	Vectors   *vectorindex.Index
	Generator *Generator

	K                  int
	DistanceThreshold  float32
	MaxContextLength   int
}

func (e *Engine) k() int {
	if e.K > 0 {
		return e.K
	}
	return defaultK
}

func (e *Engine) distanceThreshold() float32 {
	if e.DistanceThreshold > 0 {
		return e.DistanceThreshold
	}
	return defaultDistanceThreshold
}

func (e *Engine) maxContextLength() int {
	if e.MaxContextLength > 0 {
		return e.MaxContextLength
	}
	return defaultMaxContextLength
}

// CreateConversation starts a new, empty conversation.
func (e *Engine) CreateConversation(ctx context.Context, userID, editalUUID string) (*models.Conversation, error) {
	conv := &models.Conversation{
		UserID:     userID,
		Title:      "Nova Conversa",
		EditalUUID: editalUUID,
		Messages:   []models.ChatMessage{},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := e.Store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// SendMessage drives one full turn: load, expand, retrieve, filter,
// build context, generate, persist.
func (e *Engine) SendMessage(ctx context.Context, conversationID primitive.ObjectID, userMessage, editalUUID string) (*models.ChatResponse, error) {
	conv, err := e.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	answer, sources := e.retrieveAndGenerate(ctx, userMessage, editalUUID)

	now := time.Now()
	conv.Messages = append(conv.Messages,
		models.ChatMessage{Role: models.RoleUser, Content: userMessage, Timestamp: now},
		models.ChatMessage{Role: models.RoleAssistant, Content: answer, Timestamp: now, Sources: sources},
	)

	if len(conv.Messages) == 2 {
		conv.Title = titlePreview(userMessage)
	}

	if err := e.Store.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("persisting conversation: %w", err)
	}

	return &models.ChatResponse{
		Reply:          answer,
		ConversationID: conv.ID.Hex(),
		Sources:        sources,
		Timestamp:      now,
	}, nil
}

// retrieveAndGenerate runs the retrieval/generation leg of a turn. A
// failure here degrades to a fallback reply rather than failing the
// request, since the conversation itself is still valid.
func (e *Engine) retrieveAndGenerate(ctx context.Context, userMessage, editalUUID string) (string, []string) {
	expanded := ExpandQuery(userMessage)

	overFetchK := e.k() * 4
	results, err := e.Vectors.Search(ctx, expanded, overFetchK, editalUUID)
	if err != nil {
		logger.Error("retrieval failed", "error", err)
		return fallbackAnswer, nil
	}

	filtered := FilterByDistance(results, e.distanceThreshold(), e.k())
	contextBlock, sources := BuildContext(filtered, e.maxContextLength())

	answer, err := e.Generator.Generate(ctx, userMessage, contextBlock)
	if err != nil {
		logger.Error("generation failed", "error", err)
		return fallbackAnswer, nil
	}
	return answer, sources
}

func titlePreview(message string) string {
	if len(message) <= titlePreviewLength {
		return message
	}
	return message[:titlePreviewLength]
}
