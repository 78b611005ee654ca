package conditions

import (
	"testing"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/model"
)

func TestEvaluateEmptyConditions(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	if !ev.Evaluate(map[string]interface{}{"anything": 1}, nil) {
		t.Fatalf("expected empty condition list to be satisfied")
	}
}

func TestEvaluateNumericCoercion(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())

	tests := []struct {
		name     string
		fields   map[string]interface{}
		cond     model.ConditionSpec
		expected bool
	}{
		{
			"numeric string coerces",
			map[string]interface{}{"amount": "120"},
			model.ConditionSpec{Field: "amount", Operator: model.OpGreaterThan, Value: "100"},
			true,
		},
		{
			"non-numeric string fails closed",
			map[string]interface{}{"amount": "abc"},
			model.ConditionSpec{Field: "amount", Operator: model.OpGreaterThan, Value: "100"},
			false,
		},
		{
			"json number compares",
			map[string]interface{}{"amount": float64(99)},
			model.ConditionSpec{Field: "amount", Operator: model.OpLessThan, Value: 100},
			true,
		},
		{
			"equal values are not greater",
			map[string]interface{}{"amount": 100},
			model.ConditionSpec{Field: "amount", Operator: model.OpGreaterThan, Value: 100},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ev.Evaluate(tt.fields, []model.ConditionSpec{tt.cond})
			if got != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvaluateStringOperators(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	fields := map[string]interface{}{
		"region": "eu-west",
		"status": "flagged",
	}

	if !ev.Evaluate(fields, []model.ConditionSpec{
		{Field: "region", Operator: model.OpEquals, Value: "eu-west"},
		{Field: "region", Operator: model.OpContains, Value: "west"},
		{Field: "status", Operator: model.OpNotEquals, Value: "clear"},
	}) {
		t.Fatalf("expected all string conditions to hold")
	}

	if ev.Evaluate(fields, []model.ConditionSpec{
		{Field: "region", Operator: model.OpEquals, Value: "eu-west"},
		{Field: "status", Operator: model.OpEquals, Value: "clear"},
	}) {
		t.Fatalf("expected conjunction to fail on second condition")
	}
}

func TestEvaluateUnknownFieldComparesAgainstNil(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())

	// Missing field resolves to nil: equals "" holds, numeric compare fails.
	if !ev.Evaluate(map[string]interface{}{}, []model.ConditionSpec{
		{Field: "missing", Operator: model.OpEquals, Value: ""},
	}) {
		t.Fatalf("expected nil to stringify to empty")
	}
	if ev.Evaluate(map[string]interface{}{}, []model.ConditionSpec{
		{Field: "missing", Operator: model.OpGreaterThan, Value: 0},
	}) {
		t.Fatalf("expected numeric compare against missing field to fail")
	}
}

func TestEvaluateUnknownOperatorFailsClosed(t *testing.T) {
	ev := NewEvaluator(zap.NewNop())
	if ev.Evaluate(map[string]interface{}{"x": 1}, []model.ConditionSpec{
		{Field: "x", Operator: "matches", Value: 1},
	}) {
		t.Fatalf("expected unknown operator to fail the condition")
	}
}
