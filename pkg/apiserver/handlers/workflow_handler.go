package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/apiserver/middleware"
	"github.com/caseflow/caseflow/pkg/definition"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/store/postgres"
)

// WorkflowHandler administers workflow definitions. Definitions are
// validated in full here; stages are immutable once created.
type WorkflowHandler struct {
	workflows *postgres.WorkflowRepository
	parser    *definition.Parser
	logger    *zap.Logger
}

func NewWorkflowHandler(workflows *postgres.WorkflowRepository, parser *definition.Parser, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, parser: parser, logger: logger}
}

type stageResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	OrderIndex      int             `json:"order_index"`
	StageType       model.StageType `json:"stage_type"`
	SLADays         *int            `json:"sla_days,omitempty"`
	RequireApproval bool            `json:"require_approval"`
	AutoTransition  bool            `json:"auto_transition"`
	NextStageID     *string         `json:"next_stage_id,omitempty"`
}

type workflowResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Version   int             `json:"version"`
	IsDefault bool            `json:"is_default"`
	IsActive  bool            `json:"is_active"`
	CreatedAt string          `json:"created_at"`
	Stages    []stageResponse `json:"stages,omitempty"`
}

func (h *WorkflowHandler) Create(c *gin.Context) {
	var spec definition.WorkflowSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	orgID, err := uuid.Parse(c.GetString(middleware.ContextOrgID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization claim"})
		return
	}

	workflow, err := h.parser.Parse(orgID, c.GetString(middleware.ContextActorID), spec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow definition", "details": err.Error()})
		return
	}

	if err := h.workflows.Create(c.Request.Context(), workflow); err != nil {
		h.logger.Error("failed to create workflow", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create workflow"})
		return
	}

	c.JSON(http.StatusCreated, mapWorkflow(workflow, true))
}

func (h *WorkflowHandler) Get(c *gin.Context) {
	workflowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	workflow, err := h.workflows.GetByID(c.Request.Context(), workflowID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapWorkflow(workflow, true))
}

func (h *WorkflowHandler) List(c *gin.Context) {
	orgID, err := uuid.Parse(c.GetString(middleware.ContextOrgID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization claim"})
		return
	}

	limit := parseLimit(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))

	workflows, total, err := h.workflows.List(c.Request.Context(), orgID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list workflows", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workflows"})
		return
	}

	response := make([]workflowResponse, 0, len(workflows))
	for i := range workflows {
		response = append(response, mapWorkflow(&workflows[i], false))
	}

	c.JSON(http.StatusOK, gin.H{"workflows": response, "total": total})
}

func mapWorkflow(workflow *model.Workflow, withStages bool) workflowResponse {
	resp := workflowResponse{
		ID:        workflow.ID.String(),
		Name:      workflow.Name,
		Category:  workflow.Category,
		Version:   workflow.Version,
		IsDefault: workflow.IsDefault,
		IsActive:  workflow.IsActive,
		CreatedAt: workflow.CreatedAt.UTC().Format(timeRFC3339Nano),
	}
	if !withStages {
		return resp
	}

	for _, stage := range workflow.Stages {
		entry := stageResponse{
			ID:              stage.ID.String(),
			Name:            stage.Name,
			OrderIndex:      stage.OrderIndex,
			StageType:       stage.StageType,
			SLADays:         stage.SLADays,
			RequireApproval: stage.RequireApproval,
			AutoTransition:  stage.AutoTransition,
		}
		if stage.NextStageID != nil {
			next := stage.NextStageID.String()
			entry.NextStageID = &next
		}
		resp.Stages = append(resp.Stages, entry)
	}
	return resp
}
