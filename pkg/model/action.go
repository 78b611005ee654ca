package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ActionType tags a declarative stage action. The set is closed: workflow
// definitions carrying any other tag are rejected at creation time.
type ActionType string

const (
	ActionNotify           ActionType = "notify"
	ActionAutoAssign       ActionType = "auto_assign"
	ActionCreateDeadline   ActionType = "create_deadline"
	ActionGenerateDocument ActionType = "generate_document"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
)

// ActionSpec is one declarative entry/exit action attached to a stage.
type ActionSpec struct {
	Type   ActionType `json:"type" validate:"required,oneof=notify auto_assign create_deadline generate_document"`
	Config JSONB      `json:"config"`
}

// ConditionSpec is one declarative predicate consulted before an
// auto-transition fires.
type ConditionSpec struct {
	Field    string      `json:"field" validate:"required"`
	Operator Operator    `json:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains"`
	Value    interface{} `json:"value"`
}

type ActionSpecs []ActionSpec

func (a ActionSpecs) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]ActionSpec{})
	}
	return json.Marshal(a)
}

func (a *ActionSpecs) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan ActionSpecs: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

func (a ActionSpecs) GormDataType() string {
	return "jsonb"
}

type ConditionSpecs []ConditionSpec

func (c ConditionSpecs) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]ConditionSpec{})
	}
	return json.Marshal(c)
}

func (c *ConditionSpecs) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan ConditionSpecs: %v", value)
	}
	return json.Unmarshal(bytes, c)
}

func (c ConditionSpecs) GormDataType() string {
	return "jsonb"
}
