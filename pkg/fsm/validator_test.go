package fsm

import (
	"testing"
	"time"
)

var allStatuses = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusAssigned,
	StatusInvestigation,
	StatusResolved,
	StatusRejected,
	StatusClosed,
}

var legalEdges = map[Status][]Status{
	StatusSubmitted:     {StatusUnderReview, StatusRejected},
	StatusUnderReview:   {StatusAssigned, StatusInvestigation, StatusRejected},
	StatusAssigned:      {StatusInvestigation, StatusUnderReview, StatusRejected},
	StatusInvestigation: {StatusResolved, StatusRejected, StatusUnderReview},
	StatusResolved:      {StatusClosed, StatusInvestigation},
	StatusRejected:      {StatusUnderReview},
	StatusClosed:        {StatusUnderReview},
}

func isLegal(from, to Status) bool {
	for _, target := range legalEdges[from] {
		if target == to {
			return true
		}
	}
	return false
}

func TestValidateEdgeLegality(t *testing.T) {
	rules := DefaultRuleset()

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			verdict := rules.Validate(Context{
				From:      from,
				To:        to,
				ActorRole: RoleAdmin,
			})
			if verdict.Allowed != isLegal(from, to) {
				t.Fatalf("%s -> %s: expected allowed=%v, got %v (reason %q)",
					from, to, isLegal(from, to), verdict.Allowed, verdict.Reason)
			}
			if !verdict.Allowed && verdict.Reason == "" {
				t.Fatalf("%s -> %s: denial without reason", from, to)
			}
		}
	}
}

func TestValidateRoleGating(t *testing.T) {
	rules := DefaultRuleset()

	tests := []struct {
		name    string
		from    Status
		to      Status
		role    Role
		allowed bool
	}{
		{"requester may move submitted to review", StatusSubmitted, StatusUnderReview, RoleRequester, true},
		{"requester may not resolve", StatusInvestigation, StatusResolved, RoleRequester, false},
		{"requester may not reject", StatusSubmitted, StatusRejected, RoleRequester, false},
		{"officer may resolve", StatusInvestigation, StatusResolved, RoleOfficer, true},
		{"officer may not close", StatusResolved, StatusClosed, RoleOfficer, false},
		{"manager may close", StatusResolved, StatusClosed, RoleManager, true},
		{"admin may close", StatusResolved, StatusClosed, RoleAdmin, true},
		{"system may do anything legal", StatusResolved, StatusClosed, RoleSystem, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := rules.Validate(Context{
				From:                     tt.from,
				To:                       tt.to,
				ActorRole:                tt.role,
				HasRequiredDocumentation: true,
			})
			if verdict.Allowed != tt.allowed {
				t.Fatalf("expected allowed=%v, got %v (reason %q)", tt.allowed, verdict.Allowed, verdict.Reason)
			}
		})
	}
}

func TestValidateCriticalSignalsBlockTerminalSuccess(t *testing.T) {
	rules := DefaultRuleset()

	// No combination of overdue state, documentation, or notes unblocks a
	// resolution while critical signals are unresolved.
	for _, overdue := range []bool{false, true} {
		for _, docs := range []bool{false, true} {
			verdict := rules.Validate(Context{
				From:                         StatusInvestigation,
				To:                           StatusResolved,
				ActorRole:                    RoleManager,
				HasUnresolvedCriticalSignals: true,
				HasRequiredDocumentation:     docs,
				IsOverdue:                    overdue,
				Notes:                        "please",
			})
			if verdict.Allowed {
				t.Fatalf("overdue=%v docs=%v: expected denial", overdue, docs)
			}
		}
	}

	verdict := rules.Validate(Context{
		From:                         StatusResolved,
		To:                           StatusClosed,
		ActorRole:                    RoleManager,
		HasUnresolvedCriticalSignals: true,
	})
	if verdict.Allowed {
		t.Fatalf("expected closure denied with unresolved critical signals")
	}

	// The system role takes the administrative override path.
	verdict = rules.Validate(Context{
		From:                         StatusResolved,
		To:                           StatusClosed,
		ActorRole:                    RoleSystem,
		HasUnresolvedCriticalSignals: true,
	})
	if !verdict.Allowed {
		t.Fatalf("expected system override allowed, got denial %q", verdict.Reason)
	}
}

func TestValidateWarningsNeverBlock(t *testing.T) {
	rules := DefaultRuleset()

	verdict := rules.Validate(Context{
		From:                     StatusInvestigation,
		To:                       StatusResolved,
		ActorRole:                RoleOfficer,
		HasRequiredDocumentation: false,
		IsOverdue:                true,
	})
	if !verdict.Allowed {
		t.Fatalf("expected allowed with warnings, got denial %q", verdict.Reason)
	}
	if len(verdict.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", verdict.Warnings)
	}
	if verdict.Metadata.SLACompliant {
		t.Fatalf("expected SLACompliant=false for overdue case")
	}
}

func TestValidateMetadata(t *testing.T) {
	rules := DefaultRuleset()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entered := now.AddDate(0, 0, -7)
	next := now.AddDate(0, 0, 3)

	verdict := rules.Validate(Context{
		From:           StatusUnderReview,
		To:             StatusAssigned,
		ActorRole:      RoleOfficer,
		EnteredStateAt: entered,
		NextDeadline:   &next,
		Now:            now,
	})
	if !verdict.Allowed {
		t.Fatalf("expected allowed, got denial %q", verdict.Reason)
	}
	if verdict.Metadata.DaysInState != 7 {
		t.Fatalf("expected 7 days in state, got %d", verdict.Metadata.DaysInState)
	}
	if verdict.Metadata.NextDeadline == nil || !verdict.Metadata.NextDeadline.Equal(next) {
		t.Fatalf("expected next deadline %v, got %v", next, verdict.Metadata.NextDeadline)
	}
	if !verdict.Metadata.SLACompliant {
		t.Fatalf("expected SLACompliant=true")
	}
}

func TestStatusForUnknownStageType(t *testing.T) {
	rules := DefaultRuleset()
	if _, ok := rules.StatusFor("archive"); ok {
		t.Fatalf("expected unknown stage type to have no mapping")
	}
}
