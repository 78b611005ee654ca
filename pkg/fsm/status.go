package fsm

import "github.com/caseflow/caseflow/pkg/model"

// Status is one of the closed set of abstract case states the transition
// rules are defined over. Concrete stages map onto these via the ruleset's
// stage-type table, so workflows can define any number of stages without
// touching the legality rules.
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusUnderReview   Status = "under_review"
	StatusAssigned      Status = "assigned"
	StatusInvestigation Status = "investigation"
	StatusResolved      Status = "resolved"
	StatusRejected      Status = "rejected"
	StatusClosed        Status = "closed"
)

// Role is the actor role consulted for gated target statuses.
type Role string

const (
	RoleRequester Role = "requester"
	RoleOfficer   Role = "officer"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
	RoleSystem    Role = "system"
)

// Ruleset is the immutable FSM configuration: stage-type mapping, legal
// edges, and role requirements. Construct once at startup and share; tests
// may build alternates.
type Ruleset struct {
	stageStatus map[model.StageType]Status
	edges       map[Status]map[Status]bool
	minRole     map[Status]Role
	roleRank    map[Role]int
}

// DefaultRuleset returns the standard case-handling ruleset. Terminal
// statuses (resolved, rejected, closed) have no outgoing edges except the
// explicit reopen paths back to under_review (and resolved back to
// investigation).
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		stageStatus: map[model.StageType]Status{
			model.StageIntake:        StatusSubmitted,
			model.StageReview:        StatusUnderReview,
			model.StageTriage:        StatusUnderReview,
			model.StageAssignment:    StatusAssigned,
			model.StageInvestigation: StatusInvestigation,
			model.StageResolution:    StatusResolved,
			model.StageRejection:     StatusRejected,
			model.StageClosure:       StatusClosed,
		},
		edges: buildEdges(map[Status][]Status{
			StatusSubmitted:     {StatusUnderReview, StatusRejected},
			StatusUnderReview:   {StatusAssigned, StatusInvestigation, StatusRejected},
			StatusAssigned:      {StatusInvestigation, StatusUnderReview, StatusRejected},
			StatusInvestigation: {StatusResolved, StatusRejected, StatusUnderReview},
			StatusResolved:      {StatusClosed, StatusInvestigation},
			StatusRejected:      {StatusUnderReview},
			StatusClosed:        {StatusUnderReview},
		}),
		minRole: map[Status]Role{
			StatusResolved: RoleOfficer,
			StatusRejected: RoleOfficer,
			StatusClosed:   RoleManager,
		},
		roleRank: map[Role]int{
			RoleRequester: 0,
			RoleOfficer:   1,
			RoleManager:   2,
			RoleAdmin:     3,
			RoleSystem:    4,
		},
	}
}

func buildEdges(adjacency map[Status][]Status) map[Status]map[Status]bool {
	edges := make(map[Status]map[Status]bool, len(adjacency))
	for from, targets := range adjacency {
		set := make(map[Status]bool, len(targets))
		for _, to := range targets {
			set[to] = true
		}
		edges[from] = set
	}
	return edges
}

// StatusFor maps a concrete stage type onto its abstract status.
func (r *Ruleset) StatusFor(stageType model.StageType) (Status, bool) {
	status, ok := r.stageStatus[stageType]
	return status, ok
}

func (r *Ruleset) legal(from, to Status) bool {
	return r.edges[from][to]
}

func (r *Ruleset) roleAllows(role Role, target Status) bool {
	min, gated := r.minRole[target]
	if !gated {
		return true
	}
	return r.roleRank[role] >= r.roleRank[min]
}
