package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/deadline"
	"github.com/caseflow/caseflow/pkg/engine"
)

// SweepHandler lets an external time-based trigger drive the scheduler
// sweeps over HTTP, for deployments without the scheduler binary.
type SweepHandler struct {
	tracker *deadline.Tracker
	engine  *engine.Engine
	logger  *zap.Logger
}

func NewSweepHandler(tracker *deadline.Tracker, eng *engine.Engine, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{tracker: tracker, engine: eng, logger: logger}
}

func (h *SweepHandler) ProcessOverdueDeadlines(c *gin.Context) {
	escalated, err := h.tracker.ProcessOverdue(c.Request.Context())
	if err != nil {
		h.logger.Error("escalation sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "escalation sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalated": escalated})
}

func (h *SweepHandler) SendDeadlineReminders(c *gin.Context) {
	sent, err := h.tracker.SendReminders(c.Request.Context())
	if err != nil {
		h.logger.Error("reminder sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reminder sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *SweepHandler) RunAutoTransitions(c *gin.Context) {
	advanced, err := h.engine.RunAutoTransitions(c.Request.Context())
	if err != nil {
		h.logger.Error("auto-transition sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "auto-transition sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": advanced})
}
