package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/actions"
	"github.com/caseflow/caseflow/pkg/conditions"
	"github.com/caseflow/caseflow/pkg/eventbus"
	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/metrics"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/notify"
)

// Store interfaces are the narrow query shapes the engine needs; the
// postgres repositories satisfy them, tests use in-memory fakes.

type TransitionStore interface {
	Create(ctx context.Context, transition *model.Transition) error
	NextSeq(ctx context.Context, caseID uuid.UUID) (int, error)
	Current(ctx context.Context, caseID uuid.UUID) (*model.Transition, error)
	GetPending(ctx context.Context, id uuid.UUID) (*model.Transition, error)
	Resolve(ctx context.Context, id uuid.UUID, rejected bool) error
	AppendNote(ctx context.Context, id uuid.UUID, note string) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]model.Transition, error)
	CurrentOnStages(ctx context.Context, stageIDs []uuid.UUID) ([]model.Transition, error)
}

type StageStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Stage, error)
	CountForWorkflow(ctx context.Context, workflowID uuid.UUID) (int64, error)
	AutoTransitionStages(ctx context.Context) ([]model.Stage, error)
}

type WorkflowStore interface {
	DefaultFor(ctx context.Context, orgID uuid.UUID, category string) (*model.Workflow, error)
}

type CaseStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Case, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status string) error
}

type ApprovalStore interface {
	Create(ctx context.Context, approval *model.Approval) error
}

// DeadlineTracker is the slice of the deadline tracker the engine drives.
type DeadlineTracker interface {
	CreateStageSLA(ctx context.Context, kase *model.Case, stage *model.Stage) (*model.Deadline, error)
	IsCaseOverdue(ctx context.Context, caseID uuid.UUID) (bool, error)
	Upcoming(ctx context.Context, caseID uuid.UUID) ([]model.Deadline, error)
	MarkStageMet(ctx context.Context, caseID, stageID uuid.UUID) error
}

// ActionRunner executes a stage's declarative action list.
type ActionRunner interface {
	Run(ctx context.Context, ac actions.ExecutionContext, specs model.ActionSpecs) []string
}

// Publisher pushes engine events onto the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

// Actor is whoever requests a transition: a user (via the API) or the
// system (scheduler sweeps, approval resolution).
type Actor struct {
	ID   string
	Role fsm.Role
}

// SystemActor performs automatic and administrative transitions.
var SystemActor = Actor{ID: "system", Role: fsm.RoleSystem}

// Options tune a single transition request.
type Options struct {
	Trigger model.TriggerType
	Reason  string
	Notes   string

	// set only by the approval path; approved transitions re-enter the
	// execution path without hitting the gate a second time
	skipApprovalGate bool
	autoHop          int
}

// Result is the synchronous outcome of a transition request. When
// RequiresApproval is true nothing executed: the case stays on its previous
// stage until an approver acts.
type Result struct {
	TransitionID     uuid.UUID
	Stage            *model.Stage
	RequiresApproval bool
	Warnings         []string
	TriggeredActions []string
	Progress         int
}

// maxAutoHops bounds chained auto-transitions within one request so a
// miswired stage graph cannot loop forever.
const maxAutoHops = 10

// Engine is the single entry point for all stage changes. It holds no
// state between calls; the store is the source of truth.
type Engine struct {
	transitions TransitionStore
	stages      StageStore
	workflows   WorkflowStore
	cases       CaseStore
	approvals   ApprovalStore
	deadlines   DeadlineTracker
	actions     ActionRunner
	evaluator   *conditions.Evaluator
	rules       *fsm.Ruleset
	notifier    notify.Dispatcher
	bus         Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func New(
	transitions TransitionStore,
	stages StageStore,
	workflows WorkflowStore,
	cases CaseStore,
	approvals ApprovalStore,
	deadlines DeadlineTracker,
	runner ActionRunner,
	evaluator *conditions.Evaluator,
	rules *fsm.Ruleset,
	notifier notify.Dispatcher,
	bus Publisher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		transitions: transitions,
		stages:      stages,
		workflows:   workflows,
		cases:       cases,
		approvals:   approvals,
		deadlines:   deadlines,
		actions:     runner,
		evaluator:   evaluator,
		rules:       rules,
		notifier:    notifier,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// StartWorkflow enters a case into the first stage of the default active
// workflow for its organization and category. The degenerate transition:
// no prior stage, no exit actions.
func (e *Engine) StartWorkflow(ctx context.Context, caseID uuid.UUID, actor Actor) (*Result, error) {
	kase, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	current, err := e.transitions.Current(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current stage: %w", err)
	}
	if current != nil {
		return nil, ErrAlreadyInitialized
	}

	workflow, err := e.workflows.DefaultFor(ctx, kase.OrganizationID, kase.Category)
	if err != nil {
		return nil, err
	}
	if len(workflow.Stages) == 0 {
		return nil, fmt.Errorf("workflow %s has no stages", workflow.ID)
	}

	first := workflow.Stages[0]
	return e.doTransition(ctx, kase, nil, nil, &first, actor, Options{Trigger: model.TriggerManual})
}

// Transition moves a case to the target stage. Validation happens before
// any write; a denial leaves the store untouched. An approval-gated target
// records a pending transition and returns with RequiresApproval set.
func (e *Engine) Transition(ctx context.Context, caseID, targetStageID uuid.UUID, actor Actor, opts Options) (*Result, error) {
	kase, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	current, err := e.transitions.Current(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current stage: %w", err)
	}

	toStage, err := e.stages.Get(ctx, targetStageID)
	if err != nil {
		return nil, err
	}

	var fromStage *model.Stage
	if current != nil {
		fromStage, err = e.stages.Get(ctx, current.ToStageID)
		if err != nil {
			return nil, err
		}
	}

	return e.doTransition(ctx, kase, current, fromStage, toStage, actor, opts)
}

func (e *Engine) doTransition(ctx context.Context, kase *model.Case, current *model.Transition, fromStage, toStage *model.Stage, actor Actor, opts Options) (*Result, error) {
	var warnings []string
	var fromStageID *uuid.UUID

	if fromStage != nil {
		id := fromStage.ID
		fromStageID = &id

		enteredAt := time.Time{}
		if current != nil {
			enteredAt = current.TransitionedAt
		}

		verdict, err := e.validate(ctx, kase, fromStage, toStage, actor, enteredAt, opts)
		if err != nil {
			return nil, err
		}
		if !verdict.Allowed {
			metrics.TransitionsTotal.WithLabelValues(string(opts.Trigger), "denied").Inc()
			return nil, &ValidationDeniedError{Reason: verdict.Reason}
		}
		warnings = verdict.Warnings
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = model.TriggerManual
	}

	seq, err := e.transitions.NextSeq(ctx, kase.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate transition sequence: %w", err)
	}

	transition := &model.Transition{
		ID:             uuid.New(),
		CaseID:         kase.ID,
		Seq:            seq,
		FromStageID:    fromStageID,
		ToStageID:      toStage.ID,
		TriggerType:    trigger,
		TransitionedBy: actor.ID,
		TransitionedAt: e.now().UTC(),
		Reason:         opts.Reason,
		Notes:          opts.Notes,
	}

	// Approval gate: record the intent and stop. The case stays on its
	// previous stage until an approver resolves the pending transition.
	if toStage.RequireApproval && !opts.skipApprovalGate {
		transition.RequiresApproval = true
		if err := e.transitions.Create(ctx, transition); err != nil {
			return nil, fmt.Errorf("failed to record pending transition: %w", err)
		}
		metrics.TransitionsTotal.WithLabelValues(string(trigger), "pending_approval").Inc()
		return &Result{
			TransitionID:     transition.ID,
			Stage:            toStage,
			RequiresApproval: true,
			Warnings:         warnings,
			Progress:         kase.Progress,
		}, nil
	}

	// Commit the transition of record before any side effect runs, so a
	// failing action cannot leave the case on the wrong stage.
	if err := e.transitions.Create(ctx, transition); err != nil {
		return nil, fmt.Errorf("failed to record transition: %w", err)
	}

	result := e.runStageEffects(ctx, kase, fromStage, toStage, actor, transition, opts.autoHop)
	result.Warnings = warnings
	metrics.TransitionsTotal.WithLabelValues(string(trigger), "executed").Inc()
	return result, nil
}

func (e *Engine) validate(ctx context.Context, kase *model.Case, fromStage, toStage *model.Stage, actor Actor, enteredAt time.Time, opts Options) (fsm.Verdict, error) {
	fromStatus, ok := e.rules.StatusFor(fromStage.StageType)
	if !ok {
		return fsm.Verdict{}, fmt.Errorf("stage type %q has no status mapping", fromStage.StageType)
	}
	toStatus, ok := e.rules.StatusFor(toStage.StageType)
	if !ok {
		return fsm.Verdict{}, fmt.Errorf("stage type %q has no status mapping", toStage.StageType)
	}

	overdue, err := e.deadlines.IsCaseOverdue(ctx, kase.ID)
	if err != nil {
		e.logger.Warn("failed to compute overdue flag, assuming not overdue",
			zap.String("case_id", kase.ID.String()), zap.Error(err))
		overdue = false
	}

	var nextDeadline *time.Time
	if upcoming, err := e.deadlines.Upcoming(ctx, kase.ID); err == nil && len(upcoming) > 0 {
		date := upcoming[0].DeadlineDate
		nextDeadline = &date
	}

	return e.rules.Validate(fsm.Context{
		From:                         fromStatus,
		To:                           toStatus,
		ActorRole:                    actor.Role,
		Priority:                     kase.Priority,
		EnteredStateAt:               enteredAt,
		HasUnresolvedCriticalSignals: kase.HasCriticalSignals,
		HasRequiredDocumentation:     kase.HasRequiredDocs,
		IsOverdue:                    overdue,
		Notes:                        opts.Notes,
		NextDeadline:                 nextDeadline,
		Now:                          e.now().UTC(),
	}), nil
}

// runStageEffects is the one execution path for committed transitions:
// exit actions, entry actions, SLA deadline, entry notification, progress.
// Approved transitions come through here exactly like unconditional ones.
func (e *Engine) runStageEffects(ctx context.Context, kase *model.Case, fromStage, toStage *model.Stage, actor Actor, transition *model.Transition, hop int) *Result {
	var triggered []string

	if fromStage != nil {
		triggered = append(triggered, e.actions.Run(ctx, actions.ExecutionContext{
			Case:  kase,
			Stage: fromStage,
			Actor: actor.ID,
		}, fromStage.ExitActions)...)

		if err := e.deadlines.MarkStageMet(ctx, kase.ID, fromStage.ID); err != nil {
			e.logger.Error("failed to close stage deadlines",
				zap.String("case_id", kase.ID.String()), zap.Error(err))
		}
	}

	triggered = append(triggered, e.actions.Run(ctx, actions.ExecutionContext{
		Case:  kase,
		Stage: toStage,
		Actor: actor.ID,
	}, toStage.EntryActions)...)

	if toStage.SLADays != nil {
		if _, err := e.deadlines.CreateStageSLA(ctx, kase, toStage); err != nil {
			e.logger.Error("failed to create stage SLA deadline",
				zap.String("case_id", kase.ID.String()), zap.Error(err))
			triggered = append(triggered, "stage_sla_deadline:failed")
		} else {
			triggered = append(triggered, "stage_sla_deadline")
		}
	}

	if toStage.NotifyOnEntry {
		e.sendEntryNotification(ctx, kase, toStage)
		triggered = append(triggered, "entry_notification")
	}

	progress := e.computeProgress(ctx, toStage)
	status := string(toStage.StageType)
	if abstract, ok := e.rules.StatusFor(toStage.StageType); ok {
		status = string(abstract)
	}
	if err := e.cases.UpdateProgress(ctx, kase.ID, progress, status); err != nil {
		e.logger.Error("failed to update case progress",
			zap.String("case_id", kase.ID.String()), zap.Error(err))
	}

	e.publishTransitionEvent(ctx, transition, actor)

	result := &Result{
		TransitionID:     transition.ID,
		Stage:            toStage,
		TriggeredActions: triggered,
		Progress:         progress,
	}

	e.maybeAutoAdvance(ctx, kase, toStage, hop)
	return result
}

// computeProgress maps the stage's position to a linear percentage:
// stages completed before the current one over the total.
func (e *Engine) computeProgress(ctx context.Context, stage *model.Stage) int {
	total, err := e.stages.CountForWorkflow(ctx, stage.WorkflowID)
	if err != nil || total == 0 {
		return 0
	}
	return int(int64(stage.OrderIndex) * 100 / total)
}

// maybeAutoAdvance hands an auto-transition stage off to the same condition
// check the scheduler sweep uses, bounded per request.
func (e *Engine) maybeAutoAdvance(ctx context.Context, kase *model.Case, stage *model.Stage, hop int) {
	if !stage.AutoTransition || stage.NextStageID == nil {
		return
	}
	if hop >= maxAutoHops {
		e.logger.Warn("auto-transition hop limit reached",
			zap.String("case_id", kase.ID.String()),
			zap.String("stage_id", stage.ID.String()))
		return
	}
	if !e.evaluator.Evaluate(kase.Fields, stage.Conditions) {
		return
	}

	_, err := e.Transition(ctx, kase.ID, *stage.NextStageID, SystemActor, Options{
		Trigger: model.TriggerAutomatic,
		Reason:  "auto-transition conditions met",
		autoHop: hop + 1,
	})
	if err != nil {
		e.logger.Error("auto-transition failed",
			zap.String("case_id", kase.ID.String()),
			zap.String("next_stage_id", stage.NextStageID.String()),
			zap.Error(err))
	}
}

func (e *Engine) sendEntryNotification(ctx context.Context, kase *model.Case, stage *model.Stage) {
	recipient := kase.AssignedTo
	if recipient == "" {
		recipient = kase.SubmittedBy
	}

	err := e.notifier.Send(ctx, notify.Notification{
		OrganizationID: kase.OrganizationID,
		RecipientID:    recipient,
		Type:           "stage_entered",
		Priority:       kase.Priority,
		Title:          fmt.Sprintf("Case %s moved to %s", kase.Title, stage.Name),
		Metadata: map[string]interface{}{
			"case_id":  kase.ID.String(),
			"stage_id": stage.ID.String(),
		},
	})
	if err != nil {
		e.logger.Error("failed to send entry notification",
			zap.String("case_id", kase.ID.String()), zap.Error(err))
	}
}

func (e *Engine) publishTransitionEvent(ctx context.Context, transition *model.Transition, actor Actor) {
	if e.bus == nil {
		return
	}

	payload := eventbus.TransitionEvent{
		CaseID:       transition.CaseID.String(),
		TransitionID: transition.ID.String(),
		ToStageID:    transition.ToStageID.String(),
		Trigger:      string(transition.TriggerType),
		Actor:        actor.ID,
	}
	if transition.FromStageID != nil {
		payload.FromStageID = transition.FromStageID.String()
	}

	event, err := eventbus.NewEvent("case_transitioned", payload)
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, eventbus.ChannelTransition, event); err != nil {
		e.logger.Warn("failed to publish transition event", zap.Error(err))
	}
}
