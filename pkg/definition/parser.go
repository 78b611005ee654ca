package definition

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/model"
)

// StageSpec is one stage in a workflow definition payload. NextStage refers
// to another stage by its position in the list; the parser resolves it to a
// stage ID.
type StageSpec struct {
	Name            string                `json:"name" validate:"required"`
	Description     string                `json:"description"`
	StageType       model.StageType       `json:"stage_type" validate:"required"`
	SLADays         *int                  `json:"sla_days" validate:"omitempty,gt=0"`
	ReminderDays    []int64               `json:"reminder_days" validate:"omitempty,dive,gte=0"`
	RequireApproval bool                  `json:"require_approval"`
	AutoTransition  bool                  `json:"auto_transition"`
	NextStage       *int                  `json:"next_stage"`
	EntryActions    []model.ActionSpec    `json:"entry_actions" validate:"omitempty,dive"`
	ExitActions     []model.ActionSpec    `json:"exit_actions" validate:"omitempty,dive"`
	Conditions      []model.ConditionSpec `json:"conditions" validate:"omitempty,dive"`
	NotifyOnEntry   bool                  `json:"notify_on_entry"`
	EscalateTo      string                `json:"escalate_to"`
}

// WorkflowSpec is the admin-facing definition payload.
type WorkflowSpec struct {
	Name        string      `json:"name" validate:"required,min=3"`
	Description string      `json:"description"`
	Category    string      `json:"category" validate:"required"`
	IsDefault   bool        `json:"is_default"`
	Stages      []StageSpec `json:"stages" validate:"required,min=1,dive"`
}

// Parser turns definition payloads into persistable workflows. All
// validation happens here so bad action tags, operators, or stage wiring
// never reach execution.
type Parser struct {
	validate *validator.Validate
	rules    *fsm.Ruleset
}

func NewParser(rules *fsm.Ruleset) *Parser {
	return &Parser{
		validate: validator.New(),
		rules:    rules,
	}
}

func (p *Parser) Parse(orgID uuid.UUID, createdBy string, spec WorkflowSpec) (*model.Workflow, error) {
	if err := p.validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid workflow definition: %w", err)
	}

	workflow := &model.Workflow{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Category:       spec.Category,
		Name:           spec.Name,
		Description:    spec.Description,
		Version:        1,
		IsDefault:      spec.IsDefault,
		IsActive:       true,
		CreatedBy:      createdBy,
	}

	stageIDs := make([]uuid.UUID, len(spec.Stages))
	for i := range spec.Stages {
		stageIDs[i] = uuid.New()
	}

	for i, stageSpec := range spec.Stages {
		if _, ok := p.rules.StatusFor(stageSpec.StageType); !ok {
			return nil, fmt.Errorf("stage %q: unknown stage type %q", stageSpec.Name, stageSpec.StageType)
		}

		var nextStageID *uuid.UUID
		if stageSpec.AutoTransition {
			if stageSpec.NextStage == nil {
				return nil, fmt.Errorf("stage %q: auto-transition requires next_stage", stageSpec.Name)
			}
			next := *stageSpec.NextStage
			if next < 0 || next >= len(spec.Stages) {
				return nil, fmt.Errorf("stage %q: next_stage %d out of range", stageSpec.Name, next)
			}
			if next == i {
				return nil, fmt.Errorf("stage %q: next_stage may not reference itself", stageSpec.Name)
			}
			nextStageID = &stageIDs[next]
		}

		workflow.Stages = append(workflow.Stages, model.Stage{
			ID:              stageIDs[i],
			WorkflowID:      workflow.ID,
			Name:            stageSpec.Name,
			Description:     stageSpec.Description,
			OrderIndex:      i,
			StageType:       stageSpec.StageType,
			SLADays:         stageSpec.SLADays,
			ReminderDays:    stageSpec.ReminderDays,
			RequireApproval: stageSpec.RequireApproval,
			AutoTransition:  stageSpec.AutoTransition,
			NextStageID:     nextStageID,
			EntryActions:    stageSpec.EntryActions,
			ExitActions:     stageSpec.ExitActions,
			Conditions:      stageSpec.Conditions,
			NotifyOnEntry:   stageSpec.NotifyOnEntry,
			EscalateTo:      stageSpec.EscalateTo,
		})
	}

	return workflow, nil
}
