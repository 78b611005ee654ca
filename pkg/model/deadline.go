package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type DeadlineType string

const (
	DeadlineStageSLA   DeadlineType = "stage_sla"
	DeadlineRegulatory DeadlineType = "regulatory"
	DeadlineCustom     DeadlineType = "custom"
)

// Deadline is a day-granularity due date attached to a case, optionally
// scoped to one stage. EscalatedAt gates escalation to exactly once;
// LastReminderSentAt gates reminders to one per day.
type Deadline struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CaseID             uuid.UUID    `gorm:"type:uuid;not null;index"`
	StageID            *uuid.UUID   `gorm:"type:uuid"`
	DeadlineType       DeadlineType `gorm:"type:varchar(50);not null"`
	DeadlineDate       time.Time    `gorm:"type:date;not null;index"`
	IsMet              *time.Time
	EscalateOnMiss     bool `gorm:"default:false"`
	EscalateTo         string
	EscalatedAt        *time.Time
	ReminderDays       pq.Int64Array `gorm:"type:integer[]"`
	LastReminderSentAt *time.Time
	CreatedAt          time.Time
}

// Overdue reports whether the deadline is unmet and past due relative to
// the given day.
func (d *Deadline) Overdue(today time.Time) bool {
	return d.IsMet == nil && d.DeadlineDate.Before(Day(today))
}

// DaysUntil returns whole days from today until the deadline date.
func (d *Deadline) DaysUntil(today time.Time) int {
	return int(d.DeadlineDate.Sub(Day(today)).Hours() / 24)
}

// Day truncates a timestamp to its UTC date.
func Day(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
