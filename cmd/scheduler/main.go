package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"text/template"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/actions"
	"github.com/caseflow/caseflow/pkg/assign"
	"github.com/caseflow/caseflow/pkg/conditions"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/deadline"
	"github.com/caseflow/caseflow/pkg/docgen"
	"github.com/caseflow/caseflow/pkg/engine"
	"github.com/caseflow/caseflow/pkg/eventbus"
	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/notify"
	"github.com/caseflow/caseflow/pkg/scheduler"
	"github.com/caseflow/caseflow/pkg/store/postgres"
	redisclient "github.com/caseflow/caseflow/pkg/store/redis"
)

const documentTemplates = `
{{define "case_summary"}}Case Summary: {{.Title}}
{{range $key, $value := .Data}}{{$key}}: {{$value}}
{{end}}{{end}}

{{define "resolution_report"}}Resolution Report: {{.Title}}
{{range $key, $value := .Data}}{{$key}}: {{$value}}
{{end}}{{end}}
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	bus := eventbus.NewBus(redis.Client())

	var notifier notify.Dispatcher
	if cfg.Notifications.Driver == "log" {
		notifier = notify.NewLogDispatcher(logger)
	} else {
		notifier = notify.NewBusDispatcher(bus, logger)
	}

	transitions := postgres.NewTransitionRepository(db.DB())
	stages := postgres.NewStageRepository(db.DB())
	workflows := postgres.NewWorkflowRepository(db.DB())
	cases := postgres.NewCaseRepository(db.DB())
	approvals := postgres.NewApprovalRepository(db.DB())
	deadlines := postgres.NewDeadlineRepository(db.DB())

	tracker := deadline.NewTracker(deadlines, cases, notifier, bus, logger)

	templates := template.Must(template.New("documents").Parse(documentTemplates))
	assigner := assign.NewHTTPAssigner(cfg.Assignment.ServiceURL, cfg.Assignment.Timeout)
	executor := actions.NewExecutor(notifier, assigner, docgen.NewTemplateGenerator(templates), tracker, cases, logger)

	eng := engine.New(
		transitions,
		stages,
		workflows,
		cases,
		approvals,
		tracker,
		executor,
		conditions.NewEvaluator(logger),
		fsm.DefaultRuleset(),
		notifier,
		bus,
		logger,
	)

	svc := scheduler.New(tracker, tracker, eng, &cfg.Scheduler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("scheduler shutting down")
	svc.Stop()
}
