package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/apiserver/handlers"
	"github.com/caseflow/caseflow/pkg/apiserver/middleware"
	"github.com/caseflow/caseflow/pkg/auth"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/deadline"
	"github.com/caseflow/caseflow/pkg/definition"
	"github.com/caseflow/caseflow/pkg/engine"
	"github.com/caseflow/caseflow/pkg/store/postgres"
)

type Server struct {
	router    *gin.Engine
	engine    *engine.Engine
	tracker   *deadline.Tracker
	workflows *postgres.WorkflowRepository
	parser    *definition.Parser
	tokens    *auth.TokenManager
	cfg       *config.Config
	logger    *zap.Logger
}

func NewServer(
	eng *engine.Engine,
	tracker *deadline.Tracker,
	workflows *postgres.WorkflowRepository,
	parser *definition.Parser,
	tokens *auth.TokenManager,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		engine:    eng,
		tracker:   tracker,
		workflows: workflows,
		parser:    parser,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens))

		workflowHandler := handlers.NewWorkflowHandler(s.workflows, s.parser, s.logger)
		api.POST("/workflows", workflowHandler.Create)
		api.GET("/workflows", workflowHandler.List)
		api.GET("/workflows/:id", workflowHandler.Get)

		caseHandler := handlers.NewCaseHandler(s.engine, s.logger)
		api.POST("/cases/:id/workflow", caseHandler.InitializeWorkflow)
		api.POST("/cases/:id/transitions", caseHandler.Transition)
		api.GET("/cases/:id/transitions", caseHandler.History)
		api.GET("/cases/:id/workflow-status", caseHandler.WorkflowStatus)

		approvalHandler := handlers.NewApprovalHandler(s.engine, s.logger)
		api.POST("/transitions/:id/approve", approvalHandler.Approve)
		api.POST("/transitions/:id/reject", approvalHandler.Reject)

		sweepHandler := handlers.NewSweepHandler(s.tracker, s.engine, s.logger)
		internal := api.Group("/internal/sweeps")
		internal.POST("/escalations", sweepHandler.ProcessOverdueDeadlines)
		internal.POST("/reminders", sweepHandler.SendDeadlineReminders)
		internal.POST("/auto-transitions", sweepHandler.RunAutoTransitions)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
