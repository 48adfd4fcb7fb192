package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/rag"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/middleware"
	"github.com/editais/ingestor/models"
	"github.com/editais/ingestor/utils"
)

// SetupChatRoutes exposes the RAG query engine (C8): starting a
// conversation and sending a message into one.
func SetupChatRoutes(api *gin.RouterGroup, engine *rag.Engine) {
	api.POST("/conversations", func(c *gin.Context) {
		var req struct {
			EditalUUID string `json:"edital_uuid,omitempty"`
		}
		_ = c.ShouldBindJSON(&req)

		conv, err := engine.CreateConversation(c.Request.Context(), middleware.GetUserID(c), req.EditalUUID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create conversation", err.Error())
			return
		}

		c.JSON(http.StatusCreated, conv)
	})

	api.POST("/conversations/:id/messages", func(c *gin.Context) {
		convID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid conversation id", nil)
			return
		}

		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", err.Error())
			return
		}

		resp, err := engine.SendMessage(c.Request.Context(), convID, req.Message, req.EditalUUID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.RespondWithNotFound(c, "Conversation not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to generate reply", err.Error())
			return
		}

		c.JSON(http.StatusOK, resp)
	})
}
