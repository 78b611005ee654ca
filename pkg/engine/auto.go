package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/model"
)

// RunAutoTransitions sweeps every case parked on an auto-transition stage
// and advances those whose conditions hold. Returns how many cases moved.
// Safe to run concurrently with live requests: each hop goes through the
// normal transition path and its guards.
func (e *Engine) RunAutoTransitions(ctx context.Context) (int, error) {
	stages, err := e.stages.AutoTransitionStages(ctx)
	if err != nil {
		return 0, err
	}
	if len(stages) == 0 {
		return 0, nil
	}

	stageByID := make(map[uuid.UUID]*model.Stage, len(stages))
	stageIDs := make([]uuid.UUID, 0, len(stages))
	for i := range stages {
		stageByID[stages[i].ID] = &stages[i]
		stageIDs = append(stageIDs, stages[i].ID)
	}

	currents, err := e.transitions.CurrentOnStages(ctx, stageIDs)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, current := range currents {
		stage := stageByID[current.ToStageID]
		if stage == nil || stage.NextStageID == nil {
			continue
		}

		kase, err := e.cases.Get(ctx, current.CaseID)
		if err != nil {
			e.logger.Error("failed to load case for auto-transition",
				zap.String("case_id", current.CaseID.String()), zap.Error(err))
			continue
		}

		if !e.evaluator.Evaluate(kase.Fields, stage.Conditions) {
			continue
		}

		_, err = e.Transition(ctx, kase.ID, *stage.NextStageID, SystemActor, Options{
			Trigger: model.TriggerAutomatic,
			Reason:  "auto-transition conditions met",
		})
		if err != nil {
			e.logger.Error("auto-transition failed",
				zap.String("case_id", kase.ID.String()),
				zap.String("next_stage_id", stage.NextStageID.String()),
				zap.Error(err))
			continue
		}
		advanced++
	}
	return advanced, nil
}
