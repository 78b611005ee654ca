package definition

import (
	"testing"

	"github.com/google/uuid"

	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/model"
)

func intPtr(v int) *int { return &v }

func validSpec() WorkflowSpec {
	next := 2
	return WorkflowSpec{
		Name:      "Standard Complaints",
		Category:  "complaint",
		IsDefault: true,
		Stages: []StageSpec{
			{Name: "Intake", StageType: model.StageIntake},
			{Name: "Review", StageType: model.StageReview, SLADays: intPtr(3), AutoTransition: true, NextStage: &next,
				Conditions: []model.ConditionSpec{{Field: "amount", Operator: model.OpLessThan, Value: 100}}},
			{Name: "Assignment", StageType: model.StageAssignment},
			{Name: "Resolution", StageType: model.StageResolution, RequireApproval: true},
		},
	}
}

func TestParseResolvesStageReferences(t *testing.T) {
	parser := NewParser(fsm.DefaultRuleset())
	orgID := uuid.New()

	workflow, err := parser.Parse(orgID, "admin-1", validSpec())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if workflow.OrganizationID != orgID {
		t.Fatalf("expected org %s, got %s", orgID, workflow.OrganizationID)
	}
	if len(workflow.Stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(workflow.Stages))
	}

	review := workflow.Stages[1]
	assignment := workflow.Stages[2]
	if review.NextStageID == nil || *review.NextStageID != assignment.ID {
		t.Fatalf("expected review's next stage resolved to assignment")
	}
	for i, stage := range workflow.Stages {
		if stage.OrderIndex != i {
			t.Fatalf("expected order index %d, got %d", i, stage.OrderIndex)
		}
		if stage.WorkflowID != workflow.ID {
			t.Fatalf("stage %s not linked to workflow", stage.Name)
		}
	}
}

func TestParseRejectsUnknownStageType(t *testing.T) {
	parser := NewParser(fsm.DefaultRuleset())

	spec := validSpec()
	spec.Stages[0].StageType = "archive"

	if _, err := parser.Parse(uuid.New(), "admin-1", spec); err == nil {
		t.Fatalf("expected error for unknown stage type")
	}
}

func TestParseRejectsBadAutoTransitionWiring(t *testing.T) {
	parser := NewParser(fsm.DefaultRuleset())

	tests := []struct {
		name   string
		mutate func(*WorkflowSpec)
	}{
		{"missing next_stage", func(s *WorkflowSpec) { s.Stages[1].NextStage = nil }},
		{"out of range", func(s *WorkflowSpec) { next := 9; s.Stages[1].NextStage = &next }},
		{"self reference", func(s *WorkflowSpec) { next := 1; s.Stages[1].NextStage = &next }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			if _, err := parser.Parse(uuid.New(), "admin-1", spec); err == nil {
				t.Fatalf("expected wiring error")
			}
		})
	}
}

func TestParseRejectsInvalidActionAndOperatorTags(t *testing.T) {
	parser := NewParser(fsm.DefaultRuleset())

	spec := validSpec()
	spec.Stages[0].EntryActions = []model.ActionSpec{{Type: "archive"}}
	if _, err := parser.Parse(uuid.New(), "admin-1", spec); err == nil {
		t.Fatalf("expected error for unknown action tag")
	}

	spec = validSpec()
	spec.Stages[1].Conditions = []model.ConditionSpec{{Field: "amount", Operator: "matches", Value: 1}}
	if _, err := parser.Parse(uuid.New(), "admin-1", spec); err == nil {
		t.Fatalf("expected error for unknown operator")
	}
}

func TestParseRejectsEmptySpec(t *testing.T) {
	parser := NewParser(fsm.DefaultRuleset())

	if _, err := parser.Parse(uuid.New(), "admin-1", WorkflowSpec{Name: "x", Category: "y"}); err == nil {
		t.Fatalf("expected error for workflow without stages")
	}

	if _, err := parser.Parse(uuid.New(), "admin-1", WorkflowSpec{
		Category: "complaint",
		Stages:   []StageSpec{{Name: "Intake", StageType: model.StageIntake}},
	}); err == nil {
		t.Fatalf("expected error for missing name")
	}
}
