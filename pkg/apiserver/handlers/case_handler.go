package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/engine"
	"github.com/caseflow/caseflow/pkg/model"
)

// CaseHandler exposes the workflow operations on a case: initialization,
// transitions, status, and history.
type CaseHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewCaseHandler(eng *engine.Engine, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{engine: eng, logger: logger}
}

type transitionRequest struct {
	TargetStageID string `json:"target_stage_id" binding:"required"`
	Reason        string `json:"reason"`
	Notes         string `json:"notes"`
}

type transitionResponse struct {
	TransitionID     string   `json:"transition_id"`
	StageID          string   `json:"stage_id"`
	StageName        string   `json:"stage_name"`
	RequiresApproval bool     `json:"requires_approval"`
	Warnings         []string `json:"warnings,omitempty"`
	TriggeredActions []string `json:"triggered_actions,omitempty"`
	Progress         int      `json:"progress"`
}

func (h *CaseHandler) InitializeWorkflow(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	result, err := h.engine.StartWorkflow(c.Request.Context(), caseID, actorFromContext(c))
	if err != nil {
		h.logger.Warn("workflow initialization failed",
			zap.String("case_id", caseID.String()), zap.Error(err))
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mapResult(result))
}

func (h *CaseHandler) Transition(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	targetStageID, err := uuid.Parse(req.TargetStageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_stage_id"})
		return
	}

	result, err := h.engine.Transition(c.Request.Context(), caseID, targetStageID, actorFromContext(c), engine.Options{
		Trigger: model.TriggerManual,
		Reason:  req.Reason,
		Notes:   req.Notes,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	status := http.StatusOK
	if result.RequiresApproval {
		status = http.StatusAccepted
	}
	c.JSON(status, mapResult(result))
}

func (h *CaseHandler) WorkflowStatus(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	status, err := h.engine.Status(c.Request.Context(), caseID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *CaseHandler) History(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	transitions, err := h.engine.History(c.Request.Context(), caseID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	response := make([]gin.H, 0, len(transitions))
	for _, t := range transitions {
		entry := gin.H{
			"id":                t.ID.String(),
			"seq":               t.Seq,
			"to_stage_id":       t.ToStageID.String(),
			"trigger":           t.TriggerType,
			"transitioned_by":   t.TransitionedBy,
			"transitioned_at":   t.TransitionedAt.UTC().Format(timeRFC3339Nano),
			"requires_approval": t.RequiresApproval,
			"rejected_at":       formatTime(t.RejectedAt),
			"reason":            t.Reason,
			"notes":             t.Notes,
		}
		if t.FromStageID != nil {
			entry["from_stage_id"] = t.FromStageID.String()
		}
		response = append(response, entry)
	}

	c.JSON(http.StatusOK, response)
}

func mapResult(result *engine.Result) transitionResponse {
	resp := transitionResponse{
		TransitionID:     result.TransitionID.String(),
		RequiresApproval: result.RequiresApproval,
		Warnings:         result.Warnings,
		TriggeredActions: result.TriggeredActions,
		Progress:         result.Progress,
	}
	if result.Stage != nil {
		resp.StageID = result.Stage.ID.String()
		resp.StageName = result.Stage.Name
	}
	return resp
}
