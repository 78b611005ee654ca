package model

import (
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerAutomatic TriggerType = "automatic"
	TriggerDeadline  TriggerType = "deadline"
	TriggerApproval  TriggerType = "approval"
)

// Transition is one immutable state change for one case. Rows are append
// only; the single permitted mutation is flipping RequiresApproval from
// true to false when an approver resolves it (plus appending a rejection
// note). The resolved transition with the highest Seq defines the case's
// current stage.
type Transition struct {
	ID               uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CaseID           uuid.UUID   `gorm:"type:uuid;not null;index:idx_transition_case_seq"`
	Seq              int         `gorm:"not null;index:idx_transition_case_seq"`
	FromStageID      *uuid.UUID  `gorm:"type:uuid"`
	ToStageID        uuid.UUID   `gorm:"type:uuid;not null"`
	TriggerType      TriggerType `gorm:"type:varchar(20);not null"`
	TransitionedBy   string      `gorm:"not null"`
	TransitionedAt   time.Time   `gorm:"not null;index"`
	RequiresApproval bool        `gorm:"default:false;index"`
	RejectedAt       *time.Time
	Reason           string
	Notes            string `gorm:"type:text"`
}

type ApprovalAction string

const (
	ApprovalApproved ApprovalAction = "approved"
	ApprovalRejected ApprovalAction = "rejected"
)

// Approval is one append-only decision in the approval chain. Never mutated
// or deleted; the ledger makes gated decisions verifiable independently of
// the transitions table.
type Approval struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TransitionID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ApproverID   string         `gorm:"not null"`
	Action       ApprovalAction `gorm:"type:varchar(20);not null"`
	Reason       string
	CreatedAt    time.Time `gorm:"index"`
}
