package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/actions"
	"github.com/caseflow/caseflow/pkg/apiserver"
	"github.com/caseflow/caseflow/pkg/assign"
	"github.com/caseflow/caseflow/pkg/auth"
	"github.com/caseflow/caseflow/pkg/conditions"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/deadline"
	"github.com/caseflow/caseflow/pkg/definition"
	"github.com/caseflow/caseflow/pkg/docgen"
	"github.com/caseflow/caseflow/pkg/engine"
	"github.com/caseflow/caseflow/pkg/eventbus"
	"github.com/caseflow/caseflow/pkg/fsm"
	"github.com/caseflow/caseflow/pkg/notify"
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
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
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

	rules := fsm.DefaultRuleset()
	eng := engine.New(
		transitions,
		stages,
		workflows,
		cases,
		approvals,
		tracker,
		executor,
		conditions.NewEvaluator(logger),
		rules,
		notifier,
		bus,
		logger,
	)

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	server := apiserver.NewServer(eng, tracker, workflows, definition.NewParser(rules), tokens, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
