package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/eventbus"
	"github.com/caseflow/caseflow/pkg/metrics"
	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/notify"
)

// Store is the deadline persistence the tracker needs. Satisfied by
// postgres.DeadlineRepository.
type Store interface {
	Create(ctx context.Context, deadline *model.Deadline) error
	DueForEscalation(ctx context.Context, today time.Time) ([]model.Deadline, error)
	DueForReminders(ctx context.Context, today time.Time) ([]model.Deadline, error)
	MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	HasOverdue(ctx context.Context, caseID uuid.UUID, today time.Time) (bool, error)
	Upcoming(ctx context.Context, caseID uuid.UUID, today time.Time) ([]model.Deadline, error)
	MarkStageMet(ctx context.Context, caseID, stageID uuid.UUID, at time.Time) error
}

// CaseStore provides read access to the case record, for notification
// addressing.
type CaseStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Case, error)
}

// Publisher pushes deadline events onto the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

// Tracker creates deadlines and runs the two periodic sweeps. Both sweeps
// are idempotent: every mutation is a conditional update gated on the
// relevant field still being unset, so overlapping runs act once.
type Tracker struct {
	deadlines Store
	cases     CaseStore
	notifier  notify.Dispatcher
	bus       Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewTracker(deadlines Store, cases CaseStore, notifier notify.Dispatcher, bus Publisher, logger *zap.Logger) *Tracker {
	return &Tracker{
		deadlines: deadlines,
		cases:     cases,
		notifier:  notifier,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRequest describes one deadline to attach to a case.
type CreateRequest struct {
	CaseID       uuid.UUID
	StageID      *uuid.UUID
	Type         model.DeadlineType
	Days         int
	EscalateTo   string
	ReminderDays []int64
}

// Create computes deadlineDate = today + days (day granularity) and
// persists the deadline.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (*model.Deadline, error) {
	if req.Days <= 0 {
		return nil, fmt.Errorf("deadline days must be positive, got %d", req.Days)
	}

	deadline := &model.Deadline{
		ID:             uuid.New(),
		CaseID:         req.CaseID,
		StageID:        req.StageID,
		DeadlineType:   req.Type,
		DeadlineDate:   model.Day(t.now()).AddDate(0, 0, req.Days),
		EscalateOnMiss: req.EscalateTo != "",
		EscalateTo:     req.EscalateTo,
		ReminderDays:   pq.Int64Array(req.ReminderDays),
		CreatedAt:      t.now().UTC(),
	}
	if err := t.deadlines.Create(ctx, deadline); err != nil {
		return nil, fmt.Errorf("failed to create deadline: %w", err)
	}

	metrics.DeadlinesCreated.WithLabelValues(string(req.Type)).Inc()
	return deadline, nil
}

// CreateStageSLA creates the SLA deadline for a stage entry. No-op when the
// stage has no SLA configured.
func (t *Tracker) CreateStageSLA(ctx context.Context, kase *model.Case, stage *model.Stage) (*model.Deadline, error) {
	if stage.SLADays == nil {
		return nil, nil
	}
	stageID := stage.ID
	return t.Create(ctx, CreateRequest{
		CaseID:       kase.ID,
		StageID:      &stageID,
		Type:         model.DeadlineStageSLA,
		Days:         *stage.SLADays,
		EscalateTo:   stage.EscalateTo,
		ReminderDays: stage.ReminderDays,
	})
}

// ProcessOverdue is the escalation sweep: every unmet, past-due deadline
// with escalation enabled escalates at most once. Returns the number of
// escalations fired.
func (t *Tracker) ProcessOverdue(ctx context.Context) (int, error) {
	now := t.now().UTC()
	due, err := t.deadlines.DueForEscalation(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load escalation candidates: %w", err)
	}

	escalated := 0
	for i := range due {
		d := &due[i]
		claimed, err := t.deadlines.MarkEscalated(ctx, d.ID, now)
		if err != nil {
			t.logger.Error("failed to mark deadline escalated",
				zap.String("deadline_id", d.ID.String()), zap.Error(err))
			continue
		}
		if !claimed {
			// Another sweep got there first.
			continue
		}

		t.sendEscalation(ctx, d)
		t.publishDeadlineEvent(ctx, d, "escalated", 0)
		metrics.DeadlinesEscalated.Inc()
		escalated++
	}
	return escalated, nil
}

// SendReminders is the reminder sweep: a reminder fires when the days
// remaining until an unmet deadline match one of its configured offsets,
// at most once per day.
func (t *Tracker) SendReminders(ctx context.Context) (int, error) {
	now := t.now().UTC()
	due, err := t.deadlines.DueForReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to load reminder candidates: %w", err)
	}

	sent := 0
	for i := range due {
		d := &due[i]
		daysLeft := d.DaysUntil(now)
		if !containsOffset(d.ReminderDays, daysLeft) {
			continue
		}

		claimed, err := t.deadlines.MarkReminderSent(ctx, d.ID, now)
		if err != nil {
			t.logger.Error("failed to mark reminder sent",
				zap.String("deadline_id", d.ID.String()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		t.sendReminder(ctx, d, daysLeft)
		t.publishDeadlineEvent(ctx, d, "reminder", daysLeft)
		metrics.RemindersSent.Inc()
		sent++
	}
	return sent, nil
}

// IsCaseOverdue reports whether any of the case's deadlines is unmet and
// past due. Case-wide by design: the FSM's timeliness warning looks at the
// whole case, not just the target stage.
func (t *Tracker) IsCaseOverdue(ctx context.Context, caseID uuid.UUID) (bool, error) {
	return t.deadlines.HasOverdue(ctx, caseID, t.now().UTC())
}

// Upcoming lists the case's unmet future deadlines, soonest first.
func (t *Tracker) Upcoming(ctx context.Context, caseID uuid.UUID) ([]model.Deadline, error) {
	return t.deadlines.Upcoming(ctx, caseID, t.now().UTC())
}

// MarkStageMet closes the stage's SLA deadlines when a case leaves it.
func (t *Tracker) MarkStageMet(ctx context.Context, caseID, stageID uuid.UUID) error {
	return t.deadlines.MarkStageMet(ctx, caseID, stageID, t.now().UTC())
}

func (t *Tracker) sendEscalation(ctx context.Context, d *model.Deadline) {
	kase, err := t.cases.Get(ctx, d.CaseID)
	if err != nil {
		t.logger.Error("failed to load case for escalation",
			zap.String("case_id", d.CaseID.String()), zap.Error(err))
		return
	}

	err = t.notifier.Send(ctx, notify.Notification{
		OrganizationID: kase.OrganizationID,
		RecipientID:    d.EscalateTo,
		Type:           "deadline_escalation",
		Priority:       model.PriorityHigh,
		Title:          fmt.Sprintf("Deadline missed for case %s", kase.Title),
		Body: fmt.Sprintf("The %s deadline of %s was missed and has been escalated to you.",
			d.DeadlineType, d.DeadlineDate.Format("2006-01-02")),
		Metadata: map[string]interface{}{
			"case_id":     d.CaseID.String(),
			"deadline_id": d.ID.String(),
		},
	})
	if err != nil {
		t.logger.Error("failed to send escalation notification",
			zap.String("deadline_id", d.ID.String()), zap.Error(err))
	}
}

func (t *Tracker) sendReminder(ctx context.Context, d *model.Deadline, daysLeft int) {
	kase, err := t.cases.Get(ctx, d.CaseID)
	if err != nil {
		t.logger.Error("failed to load case for reminder",
			zap.String("case_id", d.CaseID.String()), zap.Error(err))
		return
	}

	recipient := kase.AssignedTo
	if recipient == "" {
		recipient = kase.SubmittedBy
	}

	err = t.notifier.Send(ctx, notify.Notification{
		OrganizationID: kase.OrganizationID,
		RecipientID:    recipient,
		Type:           "deadline_reminder",
		Priority:       kase.Priority,
		Title:          fmt.Sprintf("Deadline approaching for case %s", kase.Title),
		Body: fmt.Sprintf("The %s deadline is due in %d day(s), on %s.",
			d.DeadlineType, daysLeft, d.DeadlineDate.Format("2006-01-02")),
		Metadata: map[string]interface{}{
			"case_id":     d.CaseID.String(),
			"deadline_id": d.ID.String(),
			"days_left":   daysLeft,
		},
	})
	if err != nil {
		t.logger.Error("failed to send reminder notification",
			zap.String("deadline_id", d.ID.String()), zap.Error(err))
	}
}

func (t *Tracker) publishDeadlineEvent(ctx context.Context, d *model.Deadline, kind string, daysLeft int) {
	if t.bus == nil {
		return
	}
	event, err := eventbus.NewEvent("deadline_"+kind, eventbus.DeadlineEvent{
		CaseID:     d.CaseID.String(),
		DeadlineID: d.ID.String(),
		Kind:       kind,
		DaysLeft:   daysLeft,
	})
	if err != nil {
		return
	}
	if err := t.bus.Publish(ctx, eventbus.ChannelDeadline, event); err != nil {
		t.logger.Warn("failed to publish deadline event", zap.Error(err))
	}
}

func containsOffset(offsets []int64, days int) bool {
	for _, offset := range offsets {
		if int(offset) == days {
			return true
		}
	}
	return false
}
