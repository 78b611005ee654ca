package fsm

import (
	"fmt"
	"time"

	"github.com/caseflow/caseflow/pkg/model"
)

// Context carries everything the validator looks at. It is assembled by the
// transition engine; the validator itself reads nothing else and writes
// nothing.
type Context struct {
	From           Status
	To             Status
	ActorRole      Role
	Priority       model.Priority
	EnteredStateAt time.Time

	HasUnresolvedCriticalSignals bool
	HasRequiredDocumentation     bool
	IsOverdue                    bool
	Notes                        string

	NextDeadline *time.Time
	Now          time.Time
}

// Metadata is advisory state returned alongside every verdict.
type Metadata struct {
	SLACompliant bool       `json:"sla_compliant"`
	DaysInState  int        `json:"days_in_state"`
	NextDeadline *time.Time `json:"next_deadline,omitempty"`
}

// Verdict is the validator's answer. Denials carry a reason; warnings never
// block — they flag data-quality or timeliness issues for the actor while
// hard rules protect integrity and compliance.
type Verdict struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Validate checks a single abstract-status transition. Pure: no store
// access, no side effects, freely retryable.
func (r *Ruleset) Validate(ctx Context) Verdict {
	now := ctx.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	meta := Metadata{
		SLACompliant: !ctx.IsOverdue,
		NextDeadline: ctx.NextDeadline,
	}
	if !ctx.EnteredStateAt.IsZero() {
		meta.DaysInState = int(now.Sub(ctx.EnteredStateAt).Hours() / 24)
	}

	if !r.legal(ctx.From, ctx.To) {
		return Verdict{
			Allowed:  false,
			Reason:   fmt.Sprintf("transition from %s to %s is not permitted", ctx.From, ctx.To),
			Metadata: meta,
		}
	}

	if !r.roleAllows(ctx.ActorRole, ctx.To) {
		return Verdict{
			Allowed:  false,
			Reason:   fmt.Sprintf("role %s may not move a case to %s", ctx.ActorRole, ctx.To),
			Metadata: meta,
		}
	}

	// Unresolved critical signals block entry into terminal-success states.
	// Only the system role may override, on the administrative path.
	if (ctx.To == StatusResolved || ctx.To == StatusClosed) &&
		ctx.HasUnresolvedCriticalSignals && ctx.ActorRole != RoleSystem {
		return Verdict{
			Allowed:  false,
			Reason:   "case has unresolved critical signals",
			Metadata: meta,
		}
	}

	var warnings []string
	if ctx.From == StatusInvestigation && !ctx.HasRequiredDocumentation {
		warnings = append(warnings, "required documentation is missing for investigation exit")
	}
	if ctx.IsOverdue {
		warnings = append(warnings, "case has overdue deadlines")
	}

	return Verdict{Allowed: true, Warnings: warnings, Metadata: meta}
}
