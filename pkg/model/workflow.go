package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StageType names the kind of work a stage represents. Each type maps onto
// one abstract FSM status; workflows may define any number of concrete
// stages but only these types.
type StageType string

const (
	StageIntake        StageType = "intake"
	StageReview        StageType = "review"
	StageTriage        StageType = "triage"
	StageAssignment    StageType = "assignment"
	StageInvestigation StageType = "investigation"
	StageResolution    StageType = "resolution"
	StageRejection     StageType = "rejection"
	StageClosure       StageType = "closure"
)

// Workflow is a named, versioned stage pipeline scoped to an organization
// and case category. Definitions are immutable once cases reference their
// stages; new cases pick up the latest active version.
type Workflow struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_workflow_org_category"`
	Category       string    `gorm:"not null;index:idx_workflow_org_category"`
	Name           string    `gorm:"not null"`
	Description    string
	Version        int     `gorm:"default:1"`
	IsDefault      bool    `gorm:"default:false"`
	IsActive       bool    `gorm:"default:true"`
	Stages         []Stage `gorm:"foreignKey:WorkflowID"`
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stage is one node in a workflow's ordered pipeline. Stages are created
// with the workflow and read-only afterwards; never deleted while a live
// Transition references them.
type Stage struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	WorkflowID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name            string    `gorm:"not null"`
	Description     string
	OrderIndex      int       `gorm:"not null"`
	StageType       StageType `gorm:"type:varchar(50);not null"`
	SLADays         *int
	ReminderDays    pq.Int64Array  `gorm:"type:integer[]"`
	RequireApproval bool           `gorm:"default:false"`
	AutoTransition  bool           `gorm:"default:false"`
	NextStageID     *uuid.UUID     `gorm:"type:uuid"`
	EntryActions    ActionSpecs    `gorm:"type:jsonb;default:'[]'"`
	ExitActions     ActionSpecs    `gorm:"type:jsonb;default:'[]'"`
	Conditions      ConditionSpecs `gorm:"type:jsonb;default:'[]'"`
	NotifyOnEntry   bool           `gorm:"default:false"`
	EscalateTo      string
	CreatedAt       time.Time
}
