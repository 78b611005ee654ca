package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/engine"
)

// ApprovalHandler resolves pending transitions. Approve executes the gated
// transition; reject leaves the case where it was.
type ApprovalHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewApprovalHandler(eng *engine.Engine, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{engine: eng, logger: logger}
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ApprovalHandler) Approve(c *gin.Context) {
	transitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transition id"})
		return
	}

	result, err := h.engine.Approve(c.Request.Context(), transitionID, actorFromContext(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapResult(result))
}

func (h *ApprovalHandler) Reject(c *gin.Context) {
	transitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transition id"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	if err := h.engine.Reject(c.Request.Context(), transitionID, actorFromContext(c), req.Reason); err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
