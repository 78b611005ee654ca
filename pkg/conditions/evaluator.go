package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/model"
)

// Evaluator decides whether a case satisfies a stage's declarative
// conditions. Pure apart from warning logs; an empty condition list is
// vacuously satisfied.
type Evaluator struct {
	logger *zap.Logger
}

func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate returns true only if every condition holds against the case
// fields. Unknown fields resolve to nil and log a warning rather than
// failing hard; non-coercible numeric operands make the comparison false so
// a malformed condition blocks an auto-transition instead of permitting it.
func (e *Evaluator) Evaluate(fields map[string]interface{}, conds []model.ConditionSpec) bool {
	for _, cond := range conds {
		value, ok := fields[cond.Field]
		if !ok {
			e.logger.Warn("condition references unknown case field",
				zap.String("field", cond.Field))
		}
		if !e.compare(value, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

func (e *Evaluator) compare(actual interface{}, op model.Operator, expected interface{}) bool {
	switch op {
	case model.OpEquals:
		return stringify(actual) == stringify(expected)
	case model.OpNotEquals:
		return stringify(actual) != stringify(expected)
	case model.OpGreaterThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		return aok && bok && a > b
	case model.OpLessThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		return aok && bok && a < b
	case model.OpContains:
		return strings.Contains(stringify(actual), stringify(expected))
	default:
		e.logger.Warn("unknown condition operator", zap.String("operator", string(op)))
		return false
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		parsed, err := strconv.ParseFloat(fmt.Sprint(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
