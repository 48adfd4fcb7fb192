package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/editais/ingestor/internal/auth"
	"github.com/editais/ingestor/internal/config"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/models"
	"github.com/editais/ingestor/utils"
)

// SetupAuthRoutes exposes POST /login, the sole entry point into the
// auth module: it exchanges a username/password for the bearer token
// that guards every /api/v1/* route.
func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, st *store.Store, rdb *redis.Client) {
	router.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", err.Error())
			return
		}

		user, err := st.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		if !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		ttl, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			ttl = 24 * time.Hour
		}

		token, expiresAt, err := auth.IssueToken(cfg.JWTSecret, user.ID.Hex(), user.Username, user.Role, ttl, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User: models.UserInfo{
				ID:       user.ID.Hex(),
				Username: user.Username,
				Role:     user.Role,
			},
		})
	})
}
