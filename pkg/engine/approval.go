package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/metrics"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/notify"
)

// Approve resolves a pending transition and executes it. The approval row
// is appended first, then the single-flip guard on requires_approval claims
// the transition; a second resolution attempt surfaces as not-found. After
// the flip the transition re-enters the same execution path every committed
// transition takes.
func (e *Engine) Approve(ctx context.Context, transitionID uuid.UUID, approver Actor) (*Result, error) {
	transition, err := e.transitions.GetPending(ctx, transitionID)
	if err != nil {
		return nil, err
	}

	approval := &model.Approval{
		ID:           uuid.New(),
		TransitionID: transition.ID,
		ApproverID:   approver.ID,
		Action:       model.ApprovalApproved,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.approvals.Create(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	if err := e.transitions.Resolve(ctx, transition.ID, false); err != nil {
		return nil, err
	}

	kase, err := e.cases.Get(ctx, transition.CaseID)
	if err != nil {
		return nil, err
	}

	var fromStage *model.Stage
	if transition.FromStageID != nil {
		fromStage, err = e.stages.Get(ctx, *transition.FromStageID)
		if err != nil {
			return nil, err
		}
	}

	toStage, err := e.stages.Get(ctx, transition.ToStageID)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalsTotal.WithLabelValues(string(model.ApprovalApproved)).Inc()
	e.logger.Info("transition approved",
		zap.String("transition_id", transition.ID.String()),
		zap.String("approver", approver.ID))

	result := e.runStageEffects(ctx, kase, fromStage, toStage, approver, transition, 0)
	return result, nil
}

// Reject resolves a pending transition without executing it. The case stays
// on its previous stage; the decision lands in the approval ledger and the
// rejection reason is appended to the transition's notes.
func (e *Engine) Reject(ctx context.Context, transitionID uuid.UUID, approver Actor, reason string) error {
	transition, err := e.transitions.GetPending(ctx, transitionID)
	if err != nil {
		return err
	}

	approval := &model.Approval{
		ID:           uuid.New(),
		TransitionID: transition.ID,
		ApproverID:   approver.ID,
		Action:       model.ApprovalRejected,
		Reason:       reason,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.approvals.Create(ctx, approval); err != nil {
		return fmt.Errorf("failed to record rejection: %w", err)
	}

	if err := e.transitions.Resolve(ctx, transition.ID, true); err != nil {
		return err
	}

	if err := e.transitions.AppendNote(ctx, transition.ID, "Rejected: "+reason); err != nil {
		e.logger.Error("failed to append rejection note",
			zap.String("transition_id", transition.ID.String()), zap.Error(err))
	}

	metrics.ApprovalsTotal.WithLabelValues(string(model.ApprovalRejected)).Inc()

	// Tell the original requester; delivery failure is logged, not surfaced.
	kase, err := e.cases.Get(ctx, transition.CaseID)
	if err != nil {
		e.logger.Error("failed to load case for rejection notice",
			zap.String("case_id", transition.CaseID.String()), zap.Error(err))
		return nil
	}

	err = e.notifier.Send(ctx, notify.Notification{
		OrganizationID: kase.OrganizationID,
		RecipientID:    transition.TransitionedBy,
		Type:           "transition_rejected",
		Priority:       kase.Priority,
		Title:          fmt.Sprintf("Transition rejected for case %s", kase.Title),
		Body:           reason,
		Metadata: map[string]interface{}{
			"case_id":       kase.ID.String(),
			"transition_id": transition.ID.String(),
		},
	})
	if err != nil {
		e.logger.Error("failed to send rejection notice",
			zap.String("transition_id", transition.ID.String()), zap.Error(err))
	}
	return nil
}
