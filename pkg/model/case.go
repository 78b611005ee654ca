package model

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Case is the business record routed through a workflow. The engine reads
// it and updates progress and assignment; everything else about the case is
// owned by the surrounding application.
type Case struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Category           string    `gorm:"not null;index"`
	Title              string
	Priority           Priority `gorm:"type:varchar(20);default:'medium'"`
	Status             string   `gorm:"type:varchar(50);index"`
	SubmittedBy        string
	AssignedTo         string
	Progress           int   `gorm:"default:0"`
	Fields             JSONB `gorm:"type:jsonb;default:'{}'"`
	HasCriticalSignals bool  `gorm:"default:false"`
	HasRequiredDocs    bool  `gorm:"default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
