package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/editais/ingestor/internal/vectorindex"
	"github.com/editais/ingestor/utils"
)

// SetupVectorIndexRoutes exposes the collection-level inspection and
// maintenance operations of the vector index, per spec.md §6.3. These
// are operator tools, not part of the RAG query path.
func SetupVectorIndexRoutes(api *gin.RouterGroup, vectors *vectorindex.Index) {
	api.GET("/vectorindex/stats", func(c *gin.Context) {
		count, err := vectors.Stats(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read vector index stats", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"chunk_count": count})
	})

	api.DELETE("/vectorindex/editais/:id", func(c *gin.Context) {
		if err := vectors.DeleteByEdital(c.Request.Context(), c.Param("id")); err != nil {
			utils.RespondWithInternalError(c, "Failed to delete edital chunks", err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.POST("/vectorindex/clear", func(c *gin.Context) {
		if err := vectors.Clear(c.Request.Context()); err != nil {
			utils.RespondWithInternalError(c, "Failed to clear vector index", err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
}
