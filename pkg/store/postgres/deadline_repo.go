package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/store"
)

type DeadlineRepository struct {
	db *gorm.DB
}

func NewDeadlineRepository(db *gorm.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

func (r *DeadlineRepository) Create(ctx context.Context, deadline *model.Deadline) error {
	return r.db.WithContext(ctx).Create(deadline).Error
}

func (r *DeadlineRepository) Get(ctx context.Context, id uuid.UUID) (*model.Deadline, error) {
	var deadline model.Deadline
	err := r.db.WithContext(ctx).First(&deadline, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &deadline, nil
}

// DueForEscalation selects unmet, past-due deadlines that want escalation
// and have not escalated yet.
func (r *DeadlineRepository) DueForEscalation(ctx context.Context, today time.Time) ([]model.Deadline, error) {
	var deadlines []model.Deadline
	err := r.db.WithContext(ctx).
		Where("is_met IS NULL AND deadline_date <= ? AND escalate_on_miss = true AND escalated_at IS NULL",
			model.Day(today)).
		Find(&deadlines).Error
	return deadlines, err
}

// DueForReminders selects unmet deadlines that are still ahead of (or on)
// today and carry a reminder schedule.
func (r *DeadlineRepository) DueForReminders(ctx context.Context, today time.Time) ([]model.Deadline, error) {
	var deadlines []model.Deadline
	err := r.db.WithContext(ctx).
		Where("is_met IS NULL AND deadline_date >= ? AND reminder_days IS NOT NULL",
			model.Day(today)).
		Find(&deadlines).Error
	return deadlines, err
}

// MarkEscalated sets escalated_at once. Reports false when another sweep
// got there first, so duplicate invocations escalate exactly once.
func (r *DeadlineRepository) MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Deadline{}).
		Where("id = ? AND escalated_at IS NULL", id).
		Update("escalated_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkReminderSent records the reminder send time. The guard compares the
// date portion so a same-day rerun is a no-op.
func (r *DeadlineRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Deadline{}).
		Where("id = ? AND (last_reminder_sent_at IS NULL OR last_reminder_sent_at < ?)",
			id, model.Day(at)).
		Update("last_reminder_sent_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HasOverdue reports whether the case has any unmet deadline strictly past
// due. Case-wide on purpose: an overdue deadline anywhere flags the whole
// case for the FSM's timeliness warning.
func (r *DeadlineRepository) HasOverdue(ctx context.Context, caseID uuid.UUID, today time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Deadline{}).
		Where("case_id = ? AND is_met IS NULL AND deadline_date < ?", caseID, model.Day(today)).
		Count(&count).Error
	return count > 0, err
}

// Upcoming lists the case's unmet deadlines from today onward, soonest
// first.
func (r *DeadlineRepository) Upcoming(ctx context.Context, caseID uuid.UUID, today time.Time) ([]model.Deadline, error) {
	var deadlines []model.Deadline
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND is_met IS NULL AND deadline_date >= ?", caseID, model.Day(today)).
		Order("deadline_date ASC").
		Find(&deadlines).Error
	return deadlines, err
}

// MarkStageMet closes out a stage's unmet SLA deadlines when the case
// leaves the stage.
func (r *DeadlineRepository) MarkStageMet(ctx context.Context, caseID, stageID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Deadline{}).
		Where("case_id = ? AND stage_id = ? AND is_met IS NULL", caseID, stageID).
		Update("is_met", at).Error
}
