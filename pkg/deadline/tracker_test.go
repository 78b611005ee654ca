package deadline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/notify"
	"github.com/caseflow/caseflow/pkg/store"
)

// fakeDeadlineStore mirrors the conditional-update semantics of the
// postgres repository, including the single-shot escalation claim and the
// per-day reminder guard.
type fakeDeadlineStore struct {
	rows map[uuid.UUID]*model.Deadline
}

func newFakeDeadlineStore() *fakeDeadlineStore {
	return &fakeDeadlineStore{rows: make(map[uuid.UUID]*model.Deadline)}
}

func (s *fakeDeadlineStore) Create(_ context.Context, deadline *model.Deadline) error {
	copied := *deadline
	s.rows[deadline.ID] = &copied
	return nil
}

func (s *fakeDeadlineStore) DueForEscalation(_ context.Context, today time.Time) ([]model.Deadline, error) {
	var out []model.Deadline
	for _, d := range s.rows {
		if d.IsMet == nil && !d.DeadlineDate.After(model.Day(today)) && d.EscalateOnMiss && d.EscalatedAt == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDeadlineStore) DueForReminders(_ context.Context, today time.Time) ([]model.Deadline, error) {
	var out []model.Deadline
	for _, d := range s.rows {
		if d.IsMet == nil && !d.DeadlineDate.Before(model.Day(today)) && len(d.ReminderDays) > 0 {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDeadlineStore) MarkEscalated(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	d, ok := s.rows[id]
	if !ok || d.EscalatedAt != nil {
		return false, nil
	}
	stamp := at
	d.EscalatedAt = &stamp
	return true, nil
}

func (s *fakeDeadlineStore) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	d, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	if d.LastReminderSentAt != nil && !d.LastReminderSentAt.Before(model.Day(at)) {
		return false, nil
	}
	stamp := at
	d.LastReminderSentAt = &stamp
	return true, nil
}

func (s *fakeDeadlineStore) HasOverdue(_ context.Context, caseID uuid.UUID, today time.Time) (bool, error) {
	for _, d := range s.rows {
		if d.CaseID == caseID && d.Overdue(today) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeDeadlineStore) Upcoming(_ context.Context, caseID uuid.UUID, today time.Time) ([]model.Deadline, error) {
	var out []model.Deadline
	for _, d := range s.rows {
		if d.CaseID == caseID && d.IsMet == nil && !d.DeadlineDate.Before(model.Day(today)) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDeadlineStore) MarkStageMet(_ context.Context, caseID, stageID uuid.UUID, at time.Time) error {
	for _, d := range s.rows {
		if d.CaseID == caseID && d.StageID != nil && *d.StageID == stageID && d.IsMet == nil {
			stamp := at
			d.IsMet = &stamp
		}
	}
	return nil
}

type fakeCases struct {
	kase *model.Case
}

func (c *fakeCases) Get(_ context.Context, id uuid.UUID) (*model.Case, error) {
	if c.kase == nil || c.kase.ID != id {
		return nil, store.ErrNotFound
	}
	copied := *c.kase
	return &copied, nil
}

type captureNotifier struct {
	sent []notify.Notification
}

func (n *captureNotifier) Send(_ context.Context, notification notify.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func newTestTracker(t *testing.T, now time.Time) (*Tracker, *fakeDeadlineStore, *captureNotifier, *model.Case) {
	t.Helper()

	kase := &model.Case{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Title:          "Water damage claim",
		Priority:       model.PriorityMedium,
		SubmittedBy:    "user-1",
		AssignedTo:     "officer-1",
	}

	deadlines := newFakeDeadlineStore()
	notifier := &captureNotifier{}
	tracker := NewTracker(deadlines, &fakeCases{kase: kase}, notifier, nil, zap.NewNop())
	tracker.now = func() time.Time { return now }
	return tracker, deadlines, notifier, kase
}

func TestCreateComputesDeadlineDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 16, 45, 0, 0, time.UTC)
	tracker, _, _, kase := newTestTracker(t, now)

	deadline, err := tracker.Create(context.Background(), CreateRequest{
		CaseID:     kase.ID,
		Type:       model.DeadlineRegulatory,
		Days:       14,
		EscalateTo: "manager-1",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	expected := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	if !deadline.DeadlineDate.Equal(expected) {
		t.Fatalf("expected deadline date %v, got %v", expected, deadline.DeadlineDate)
	}
	if !deadline.EscalateOnMiss {
		t.Fatalf("expected escalation enabled when EscalateTo is set")
	}
}

func TestCreateRejectsNonPositiveDays(t *testing.T) {
	tracker, _, _, kase := newTestTracker(t, time.Now())

	if _, err := tracker.Create(context.Background(), CreateRequest{CaseID: kase.ID, Type: model.DeadlineCustom, Days: 0}); err == nil {
		t.Fatalf("expected error for zero days")
	}
}

func TestCreateStageSLASkipsStagesWithoutSLA(t *testing.T) {
	tracker, deadlines, _, kase := newTestTracker(t, time.Now())

	stage := &model.Stage{ID: uuid.New(), Name: "Intake"}
	deadline, err := tracker.CreateStageSLA(context.Background(), kase, stage)
	if err != nil {
		t.Fatalf("CreateStageSLA() error: %v", err)
	}
	if deadline != nil {
		t.Fatalf("expected nil deadline for stage without SLA")
	}
	if len(deadlines.rows) != 0 {
		t.Fatalf("expected no rows created")
	}
}

func TestProcessOverdueEscalatesOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker, deadlines, notifier, kase := newTestTracker(t, now)

	missed := &model.Deadline{
		ID:             uuid.New(),
		CaseID:         kase.ID,
		DeadlineType:   model.DeadlineStageSLA,
		DeadlineDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		EscalateOnMiss: true,
		EscalateTo:     "manager-1",
	}
	deadlines.Create(context.Background(), missed)

	escalated, err := tracker.ProcessOverdue(context.Background())
	if err != nil {
		t.Fatalf("ProcessOverdue() error: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("expected 1 escalation, got %d", escalated)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].RecipientID != "manager-1" {
		t.Fatalf("expected escalation to manager-1, got %s", notifier.sent[0].RecipientID)
	}
	if notifier.sent[0].Priority != model.PriorityHigh {
		t.Fatalf("expected high priority escalation, got %s", notifier.sent[0].Priority)
	}

	// A second sweep finds nothing to claim.
	escalated, err = tracker.ProcessOverdue(context.Background())
	if err != nil {
		t.Fatalf("ProcessOverdue() rerun error: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("expected idempotent rerun, got %d escalations", escalated)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected no additional notifications, got %d", len(notifier.sent))
	}
}

func TestProcessOverdueSkipsMetAndNonEscalating(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tracker, deadlines, notifier, kase := newTestTracker(t, now)

	met := now.AddDate(0, 0, -1)
	deadlines.Create(context.Background(), &model.Deadline{
		ID:             uuid.New(),
		CaseID:         kase.ID,
		DeadlineDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		EscalateOnMiss: true,
		EscalateTo:     "manager-1",
		IsMet:          &met,
	})
	deadlines.Create(context.Background(), &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	escalated, err := tracker.ProcessOverdue(context.Background())
	if err != nil {
		t.Fatalf("ProcessOverdue() error: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("expected no escalations, got %d", escalated)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.sent))
	}
}

func TestSendRemindersMatchesOffsets(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tracker, deadlines, notifier, kase := newTestTracker(t, now)

	// Due in 3 days with offsets {7, 3, 1}: today's sweep fires.
	deadlines.Create(context.Background(), &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineType: model.DeadlineStageSLA,
		DeadlineDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		ReminderDays: []int64{7, 3, 1},
	})
	// Due in 5 days: no offset matches.
	deadlines.Create(context.Background(), &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineType: model.DeadlineStageSLA,
		DeadlineDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		ReminderDays: []int64{7, 3, 1},
	})

	sent, err := tracker.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("SendReminders() error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].RecipientID != kase.AssignedTo {
		t.Fatalf("expected reminder to assignee, got %s", notifier.sent[0].RecipientID)
	}
}

func TestSendRemindersOncePerDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tracker, deadlines, notifier, kase := newTestTracker(t, now)

	deadlines.Create(context.Background(), &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		ReminderDays: []int64{3},
	})

	if sent, _ := tracker.SendReminders(context.Background()); sent != 1 {
		t.Fatalf("expected first sweep to send, got %d", sent)
	}

	// Same day, later run: the claim fails.
	tracker.now = func() time.Time { return now.Add(6 * time.Hour) }
	if sent, _ := tracker.SendReminders(context.Background()); sent != 0 {
		t.Fatalf("expected same-day rerun to send nothing")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifier.sent))
	}
}

func TestIsCaseOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tracker, deadlines, _, kase := newTestTracker(t, now)

	overdue, err := tracker.IsCaseOverdue(context.Background(), kase.ID)
	if err != nil {
		t.Fatalf("IsCaseOverdue() error: %v", err)
	}
	if overdue {
		t.Fatalf("expected case without deadlines not overdue")
	}

	deadlines.Create(context.Background(), &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	})

	overdue, err = tracker.IsCaseOverdue(context.Background(), kase.ID)
	if err != nil {
		t.Fatalf("IsCaseOverdue() error: %v", err)
	}
	if !overdue {
		t.Fatalf("expected case overdue with missed deadline")
	}
}

func TestMarkStageMetClosesOnlyStageDeadlines(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tracker, deadlines, _, kase := newTestTracker(t, now)

	stageID := uuid.New()
	stageDeadline := &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		StageID:      &stageID,
		DeadlineDate: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
	}
	caseDeadline := &model.Deadline{
		ID:           uuid.New(),
		CaseID:       kase.ID,
		DeadlineDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	deadlines.Create(context.Background(), stageDeadline)
	deadlines.Create(context.Background(), caseDeadline)

	if err := tracker.MarkStageMet(context.Background(), kase.ID, stageID); err != nil {
		t.Fatalf("MarkStageMet() error: %v", err)
	}

	if deadlines.rows[stageDeadline.ID].IsMet == nil {
		t.Fatalf("expected stage deadline closed")
	}
	if deadlines.rows[caseDeadline.ID].IsMet != nil {
		t.Fatalf("expected case-level deadline untouched")
	}
}
