package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainusage "github.com/MikeSquared-Agency/PromptForge/internal/domain/usage"
	usagesvc "github.com/MikeSquared-Agency/PromptForge/internal/service/usage"
	"github.com/MikeSquared-Agency/PromptForge/internal/transport/httperr"
)

// Register mounts usage reporting endpoints.
func Register(rg *gin.RouterGroup, svc *usagesvc.Service) {
	rg.POST("/", recordUsage(svc))
	rg.GET("/stats/:slug", getStats(svc))
}

type recordReq struct {
	PromptID  uuid.UUID `json:"prompt_id" binding:"required"`
	VersionID uuid.UUID `json:"version_id" binding:"required"`
	AgentID   string    `json:"agent_id"`
	Outcome   string    `json:"outcome" binding:"required"`
	LatencyMs *int      `json:"latency_ms"`
	Feedback  string    `json:"feedback"`
}

func recordUsage(svc *usagesvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome := domainusage.Outcome(req.Outcome)
		if !outcome.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
			return
		}

		l, err := svc.Record(c.Request.Context(), domainusage.Log{
			PromptID:  req.PromptID,
			VersionID: req.VersionID,
			AgentID:   req.AgentID,
			Outcome:   outcome,
			LatencyMs: req.LatencyMs,
			Feedback:  req.Feedback,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, l)
	}
}

func getStats(svc *usagesvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context(), c.Param("slug"))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
