package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/metrics"
)

// Escalator runs the escalation sweep. Satisfied by deadline.Tracker.
type Escalator interface {
	ProcessOverdue(ctx context.Context) (int, error)
}

// Reminder runs the reminder sweep. Satisfied by deadline.Tracker.
type Reminder interface {
	SendReminders(ctx context.Context) (int, error)
}

// AutoAdvancer runs the auto-transition sweep. Satisfied by engine.Engine.
type AutoAdvancer interface {
	RunAutoTransitions(ctx context.Context) (int, error)
}

// Scheduler drives the periodic sweeps: escalations and reminders on cron
// expressions, auto-transitions on a fixed interval. All three sweeps are
// idempotent at the store level, so overlapping or replayed runs are safe.
type Scheduler struct {
	escalator Escalator
	reminder  Reminder
	advancer  AutoAdvancer
	cfg       *config.SchedulerConfig
	logger    *zap.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
	done   chan struct{}
}

func New(escalator Escalator, reminder Reminder, advancer AutoAdvancer, cfg *config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		escalator: escalator,
		reminder:  reminder,
		advancer:  advancer,
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(),
		done:      make(chan struct{}),
	}
}

// Start registers the cron jobs and the auto-transition ticker and begins
// running them. It returns once everything is scheduled.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.cfg.EscalationCron, func() {
		s.runEscalations(ctx)
	}); err != nil {
		return fmt.Errorf("invalid escalation cron %q: %w", s.cfg.EscalationCron, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.ReminderCron, func() {
		s.runReminders(ctx)
	}); err != nil {
		return fmt.Errorf("invalid reminder cron %q: %w", s.cfg.ReminderCron, err)
	}

	s.cron.Start()
	go s.autoTransitionLoop(ctx)

	s.logger.Info("scheduler started",
		zap.String("escalation_cron", s.cfg.EscalationCron),
		zap.String("reminder_cron", s.cfg.ReminderCron),
		zap.Duration("auto_transition_every", s.cfg.AutoTransitionEvery))
	return nil
}

// Stop halts the cron jobs and the ticker, waiting for in-flight cron runs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	<-s.done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) autoTransitionLoop(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.AutoTransitionEvery
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAutoTransitions(ctx)
		}
	}
}

func (s *Scheduler) runEscalations(ctx context.Context) {
	start := time.Now()
	escalated, err := s.escalator.ProcessOverdue(ctx)
	metrics.SweepDuration.WithLabelValues("escalation").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("escalation sweep completed",
		zap.Int("escalated", escalated),
		zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) runReminders(ctx context.Context) {
	start := time.Now()
	sent, err := s.reminder.SendReminders(ctx)
	metrics.SweepDuration.WithLabelValues("reminder").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("reminder sweep completed",
		zap.Int("sent", sent),
		zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) runAutoTransitions(ctx context.Context) {
	start := time.Now()
	advanced, err := s.advancer.RunAutoTransitions(ctx)
	metrics.SweepDuration.WithLabelValues("auto_transition").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("auto-transition sweep failed", zap.Error(err))
		return
	}
	if advanced > 0 {
		s.logger.Info("auto-transition sweep completed",
			zap.Int("advanced", advanced),
			zap.Duration("duration", time.Since(start)))
	}
}
