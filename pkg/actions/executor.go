package actions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/assign"
	"github.com/caseflow/caseflow/pkg/deadline"
	"github.com/caseflow/caseflow/pkg/docgen"
	"github.com/caseflow/caseflow/pkg/metrics"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/notify"
)

// DeadlineCreator is the slice of the deadline tracker the executor needs.
type DeadlineCreator interface {
	Create(ctx context.Context, req deadline.CreateRequest) (*model.Deadline, error)
}

// CaseUpdater applies assignment results back onto the case record.
type CaseUpdater interface {
	UpdateAssignment(ctx context.Context, id uuid.UUID, assignee string) error
}

// ExecutionContext is the case/stage pair an action list runs against.
type ExecutionContext struct {
	Case  *model.Case
	Stage *model.Stage
	Actor string
}

// Handler executes one action spec. Errors are collected by the executor,
// never propagated to the transition verdict.
type Handler func(ctx context.Context, ac ExecutionContext, cfg model.JSONB) error

// Executor dispatches declarative stage actions by type tag against a
// closed registry. Unknown tags are rejected when the workflow definition
// is created; one slipping through here is logged and skipped.
type Executor struct {
	registry  map[model.ActionType]Handler
	notifier  notify.Dispatcher
	assigner  assign.Assigner
	generator docgen.Generator
	deadlines DeadlineCreator
	cases     CaseUpdater
	logger    *zap.Logger
}

func NewExecutor(
	notifier notify.Dispatcher,
	assigner assign.Assigner,
	generator docgen.Generator,
	deadlines DeadlineCreator,
	cases CaseUpdater,
	logger *zap.Logger,
) *Executor {
	e := &Executor{
		notifier:  notifier,
		assigner:  assigner,
		generator: generator,
		deadlines: deadlines,
		cases:     cases,
		logger:    logger,
	}
	e.registry = map[model.ActionType]Handler{
		model.ActionNotify:           e.runNotify,
		model.ActionAutoAssign:       e.runAutoAssign,
		model.ActionCreateDeadline:   e.runCreateDeadline,
		model.ActionGenerateDocument: e.runGenerateDocument,
	}
	return e
}

// Run executes an ordered action list and returns the identifiers of the
// actions it attempted, with failures marked. A failed action never fails
// the run: the transition of record is already committed and side effects
// carry their own failure logging.
func (e *Executor) Run(ctx context.Context, ac ExecutionContext, specs model.ActionSpecs) []string {
	triggered := make([]string, 0, len(specs))
	for _, spec := range specs {
		handler, ok := e.registry[spec.Type]
		if !ok {
			e.logger.Error("unknown action type in stage definition",
				zap.String("type", string(spec.Type)),
				zap.String("stage_id", ac.Stage.ID.String()))
			triggered = append(triggered, string(spec.Type)+":unknown")
			continue
		}

		if err := handler(ctx, ac, spec.Config); err != nil {
			e.logger.Error("stage action failed",
				zap.String("type", string(spec.Type)),
				zap.String("case_id", ac.Case.ID.String()),
				zap.Error(err))
			metrics.ActionFailures.WithLabelValues(string(spec.Type)).Inc()
			triggered = append(triggered, string(spec.Type)+":failed")
			continue
		}
		triggered = append(triggered, string(spec.Type))
	}
	return triggered
}

func (e *Executor) runNotify(ctx context.Context, ac ExecutionContext, cfg model.JSONB) error {
	recipient := configString(cfg, "recipient")
	if recipient == "" {
		recipient = ac.Case.AssignedTo
	}
	if recipient == "" {
		recipient = ac.Case.SubmittedBy
	}

	title := configString(cfg, "title")
	if title == "" {
		title = fmt.Sprintf("Case %s entered %s", ac.Case.Title, ac.Stage.Name)
	}

	return e.notifier.Send(ctx, notify.Notification{
		OrganizationID: ac.Case.OrganizationID,
		RecipientID:    recipient,
		RecipientEmail: configString(cfg, "recipient_email"),
		Type:           "stage_action",
		Priority:       ac.Case.Priority,
		Title:          title,
		Body:           configString(cfg, "body"),
		ActionURL:      configString(cfg, "action_url"),
		Metadata: map[string]interface{}{
			"case_id":  ac.Case.ID.String(),
			"stage_id": ac.Stage.ID.String(),
		},
	})
}

func (e *Executor) runAutoAssign(ctx context.Context, ac ExecutionContext, cfg model.JSONB) error {
	criteria, _ := cfg["criteria"].(map[string]interface{})

	result, err := e.assigner.AutoAssign(ctx, assign.Request{
		CaseID:         ac.Case.ID,
		OrganizationID: ac.Case.OrganizationID,
		Criteria:       criteria,
		Actor:          ac.Actor,
	})
	if err != nil {
		return fmt.Errorf("auto-assign call failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("auto-assign declined: %s", result.Error)
	}
	if result.AssignedTo == "" {
		return nil
	}

	if err := e.cases.UpdateAssignment(ctx, ac.Case.ID, result.AssignedTo); err != nil {
		return fmt.Errorf("failed to persist assignment: %w", err)
	}
	ac.Case.AssignedTo = result.AssignedTo
	return nil
}

func (e *Executor) runCreateDeadline(ctx context.Context, ac ExecutionContext, cfg model.JSONB) error {
	days := configInt(cfg, "days")
	if days <= 0 {
		return fmt.Errorf("create_deadline requires a positive days value")
	}

	deadlineType := model.DeadlineType(configString(cfg, "type"))
	if deadlineType == "" {
		deadlineType = model.DeadlineCustom
	}

	stageID := ac.Stage.ID
	_, err := e.deadlines.Create(ctx, deadline.CreateRequest{
		CaseID:       ac.Case.ID,
		StageID:      &stageID,
		Type:         deadlineType,
		Days:         days,
		EscalateTo:   configString(cfg, "escalate_to"),
		ReminderDays: configInt64s(cfg, "reminder_days"),
	})
	return err
}

func (e *Executor) runGenerateDocument(ctx context.Context, ac ExecutionContext, cfg model.JSONB) error {
	templateName := configString(cfg, "template")
	if templateName == "" {
		return fmt.Errorf("generate_document requires a template name")
	}

	title := configString(cfg, "title")
	if title == "" {
		title = ac.Case.Title
	}

	rendered, err := e.generator.Generate(ctx, docgen.Request{
		Title:    title,
		Data:     ac.Case.Fields,
		Template: templateName,
	})
	if err != nil {
		return err
	}

	// Document storage is owned by the surrounding application; the engine
	// only produces the bytes.
	e.logger.Info("generated document",
		zap.String("case_id", ac.Case.ID.String()),
		zap.String("template", templateName),
		zap.Int("bytes", len(rendered)))
	return nil
}

func configString(cfg model.JSONB, key string) string {
	value, _ := cfg[key].(string)
	return value
}

func configInt(cfg model.JSONB, key string) int {
	switch v := cfg[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func configInt64s(cfg model.JSONB, key string) []int64 {
	raw, ok := cfg[key].([]interface{})
	if !ok {
		return nil
	}
	values := make([]int64, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			values = append(values, int64(f))
		}
	}
	return values
}
