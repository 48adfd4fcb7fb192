package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/orchestrator"
	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/utils"
)

// SetupJobRoutes exposes manual job control over the scheduler (C7):
// triggering a source's ingestion run, checking its progress, and
// requesting cooperative cancellation.
func SetupJobRoutes(api *gin.RouterGroup, orch *orchestrator.Orchestrator, st *store.Store) {
	api.POST("/sources/:source/execute", func(c *gin.Context) {
		var req struct {
			FilterByDate bool `json:"filter_by_date"`
		}
		_ = c.ShouldBindJSON(&req)

		jobID, err := orch.ExecuteNow(c.Request.Context(), c.Param("source"), req.FilterByDate)
		if err != nil {
			utils.RespondWithBadRequest(c, "Failed to start job", err.Error())
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"job_id": jobID.Hex()})
	})

	api.GET("/jobs/:id", func(c *gin.Context) {
		jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid job id", nil)
			return
		}

		job, err := st.GetJobExecution(c.Request.Context(), jobID)
		if err != nil {
			utils.RespondWithNotFound(c, "Job not found")
			return
		}

		c.JSON(http.StatusOK, job)
	})

	api.POST("/jobs/:id/cancel", func(c *gin.Context) {
		jobID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid job id", nil)
			return
		}

		if !orch.Cancel(jobID) {
			utils.RespondWithNotFound(c, "Job not running")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "cancellation_requested"})
	})

	api.GET("/sources/:source/jobs", func(c *gin.Context) {
		jobs, err := st.ListRecentJobExecutions(c.Request.Context(), c.Param("source"), 20)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list jobs", err.Error())
			return
		}

		c.JSON(http.StatusOK, jobs)
	})
}
