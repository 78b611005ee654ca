package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/store"
)

// WorkflowStatus is the caller-facing view of where a case stands.
type WorkflowStatus struct {
	CurrentStage       *model.Stage     `json:"current_stage"`
	Progress           int              `json:"progress"`
	UpcomingDeadlines  []model.Deadline `json:"upcoming_deadlines"`
	IsOverdue          bool             `json:"is_overdue"`
	DaysInCurrentStage int              `json:"days_in_current_stage"`
}

// Status reports the case's current stage and deadline posture. A case
// without workflow history yields store.ErrNotFound.
func (e *Engine) Status(ctx context.Context, caseID uuid.UUID) (*WorkflowStatus, error) {
	kase, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	current, err := e.transitions.Current(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, store.ErrNotFound
	}

	stage, err := e.stages.Get(ctx, current.ToStageID)
	if err != nil {
		return nil, err
	}

	upcoming, err := e.deadlines.Upcoming(ctx, caseID)
	if err != nil {
		return nil, err
	}

	overdue, err := e.deadlines.IsCaseOverdue(ctx, caseID)
	if err != nil {
		return nil, err
	}

	return &WorkflowStatus{
		CurrentStage:       stage,
		Progress:           kase.Progress,
		UpcomingDeadlines:  upcoming,
		IsOverdue:          overdue,
		DaysInCurrentStage: int(e.now().UTC().Sub(current.TransitionedAt).Hours() / 24),
	}, nil
}

// History returns the case's full stage history in sequence order.
func (e *Engine) History(ctx context.Context, caseID uuid.UUID) ([]model.Transition, error) {
	return e.transitions.ListByCase(ctx, caseID)
}
