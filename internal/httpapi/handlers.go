package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	orch   CycleRunner
	logger *slog.Logger
}

// stageContext detaches stage work from the request lifetime. Trigger clients
// hang up long before a stage finishes (the self-trigger client times out in
// seconds, stage budgets are minutes); the stages keep their own deadlines.
func stageContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// ingest runs the ingest stage alone. triggerNext tells an external scheduler
// chaining the endpoints whether the backfill stage has work waiting.
func (h *handlers) ingest(c *gin.Context) {
	summary := h.orch.RunIngest(stageContext(c))
	c.JSON(http.StatusOK, gin.H{
		"ingest":      summary,
		"triggerNext": summary.Created > 0 || summary.Refreshed > 0 || summary.HasPending(),
	})
}

// backfill runs the AI backfill stage alone. triggerNext flags either
// publishable output or a leftover backlog.
func (h *handlers) backfill(c *gin.Context) {
	summary := h.orch.RunBackfill(stageContext(c))
	c.JSON(http.StatusOK, gin.H{
		"backfill":    summary,
		"triggerNext": summary.Succeeded > 0 || summary.Remaining > 0,
	})
}

// cycle runs the full orchestrated pass. The chain depth arrives via the
// follow-up header or the body of the self-trigger request.
func (h *handlers) cycle(c *gin.Context) {
	depth := chainDepth(c)
	summary := h.orch.RunCycle(stageContext(c), depth)
	c.JSON(http.StatusOK, gin.H{
		"cycle":       summary,
		"triggerNext": summary.WorkRemains() && !summary.FollowUpTriggered,
	})
}
