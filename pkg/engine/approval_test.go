package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/store"
)

var manager = Actor{ID: "manager-1", Role: fsm.RoleManager}

func pendingResolution(t *testing.T, f *fixture) uuid.UUID {
	t.Helper()
	f.engine.StartWorkflow(context.Background(), f.kase.ID, officer)
	f.advanceTo(t, f.review, officer)
	f.advanceTo(t, f.assignment, officer)
	f.advanceTo(t, f.investigation, officer)

	result := f.advanceTo(t, f.resolution, officer)
	if !result.RequiresApproval {
		t.Fatalf("expected pending approval")
	}
	return result.TransitionID
}

func TestApproveExecutesTransition(t *testing.T) {
	f := newFixture(t)
	transitionID := pendingResolution(t, f)

	result, err := f.engine.Approve(context.Background(), transitionID, manager)
	if err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	if result.Stage.ID != f.resolution.ID {
		t.Fatalf("expected resolution stage, got %s", result.Stage.Name)
	}
	// Resolution is stage 4 of 5.
	if result.Progress != 80 {
		t.Fatalf("expected progress 80, got %d", result.Progress)
	}

	current := f.mustCurrent(t)
	if current.ID != transitionID {
		t.Fatalf("expected approved transition to define the current stage")
	}
	if current.ToStageID != f.resolution.ID {
		t.Fatalf("expected case on resolution, got %s", current.ToStageID)
	}

	// Effects ran exactly as for an unconditional transition.
	found := false
	for _, stageID := range f.tracker.slaStages {
		if stageID == f.resolution.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SLA deadline for resolution after approval")
	}

	if len(f.approvals.rows) != 1 {
		t.Fatalf("expected 1 approval row, got %d", len(f.approvals.rows))
	}
	approval := f.approvals.rows[0]
	if approval.Action != model.ApprovalApproved {
		t.Fatalf("expected approved action, got %s", approval.Action)
	}
	if approval.ApproverID != manager.ID {
		t.Fatalf("expected approver %s, got %s", manager.ID, approval.ApproverID)
	}
}

func TestRejectHoldsCase(t *testing.T) {
	f := newFixture(t)
	transitionID := pendingResolution(t, f)

	if err := f.engine.Reject(context.Background(), transitionID, manager, "insufficient evidence"); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}

	// The case stays on investigation; the rejected row never defines the
	// current stage even though its approval flag is cleared.
	current := f.mustCurrent(t)
	if current.ToStageID != f.investigation.ID {
		t.Fatalf("expected case held on investigation, got %s", current.ToStageID)
	}

	if len(f.approvals.rows) != 1 {
		t.Fatalf("expected 1 approval row, got %d", len(f.approvals.rows))
	}
	approval := f.approvals.rows[0]
	if approval.Action != model.ApprovalRejected {
		t.Fatalf("expected rejected action, got %s", approval.Action)
	}
	if approval.Reason != "insufficient evidence" {
		t.Fatalf("expected rejection reason recorded, got %q", approval.Reason)
	}

	history, err := f.engine.History(context.Background(), f.kase.ID)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	var rejected *model.Transition
	for i := range history {
		if history[i].ID == transitionID {
			rejected = &history[i]
		}
	}
	if rejected == nil {
		t.Fatalf("rejected transition missing from history")
	}
	if rejected.RejectedAt == nil {
		t.Fatalf("expected RejectedAt set")
	}
	if !strings.HasSuffix(rejected.Notes, "Rejected: insufficient evidence") {
		t.Fatalf("expected rejection note appended, got %q", rejected.Notes)
	}

	// The original requester is told.
	var notice bool
	for _, n := range f.notifier.sent {
		if n.Type == "transition_rejected" && n.RecipientID == officer.ID {
			notice = true
		}
	}
	if !notice {
		t.Fatalf("expected rejection notice to the requester, got %v", f.notifier.sent)
	}
}

func TestResolveIsSingleShot(t *testing.T) {
	f := newFixture(t)
	transitionID := pendingResolution(t, f)

	if _, err := f.engine.Approve(context.Background(), transitionID, manager); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	// A second decision on the same transition finds nothing pending.
	if _, err := f.engine.Approve(context.Background(), transitionID, manager); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-approval, got %v", err)
	}
	if err := f.engine.Reject(context.Background(), transitionID, manager, "late"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reject after approval, got %v", err)
	}
}

func TestApproveUnknownTransition(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.Approve(context.Background(), uuid.New(), manager); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
