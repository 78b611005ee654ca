package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caseflow/caseflow/pkg/model"
	"github.com/caseflow/caseflow/pkg/store"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create persists a workflow definition together with its stages. When the
// definition is marked default it replaces any previous default for the
// same organization and category, atomically.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *model.Workflow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if workflow.IsDefault {
			err := tx.Model(&model.Workflow{}).
				Where("organization_id = ? AND category = ? AND is_default = true",
					workflow.OrganizationID, workflow.Category).
				Update("is_default", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(workflow).Error
	})
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&workflow, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

// DefaultFor returns the active default workflow for an organization and
// case category, with stages preloaded in pipeline order.
func (r *WorkflowRepository) DefaultFor(ctx context.Context, orgID uuid.UUID, category string) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("organization_id = ? AND category = ? AND is_default = true AND is_active = true",
			orgID, category).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]model.Workflow, int64, error) {
	var workflows []model.Workflow
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Workflow{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&workflows).Error

	return workflows, total, err
}

type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Stage, error) {
	var stage model.Stage
	err := r.db.WithContext(ctx).First(&stage, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &stage, nil
}

func (r *StageRepository) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]model.Stage, error) {
	var stages []model.Stage
	err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("order_index ASC").
		Find(&stages).Error
	return stages, err
}

func (r *StageRepository) CountForWorkflow(ctx context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Stage{}).
		Where("workflow_id = ?", workflowID).
		Count(&count).Error
	return count, err
}

// AutoTransitionStages returns every stage flagged for automatic
// advancement. The sweep resolves which cases currently sit on them.
func (r *StageRepository) AutoTransitionStages(ctx context.Context) ([]model.Stage, error) {
	var stages []model.Stage
	err := r.db.WithContext(ctx).
		Where("auto_transition = true AND next_stage_id IS NOT NULL").
		Find(&stages).Error
	return stages, err
}
