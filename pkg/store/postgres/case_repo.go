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

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Get(ctx context.Context, id uuid.UUID) (*model.Case, error) {
	var c model.Case
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, status string) error {
	result := r.db.WithContext(ctx).Model(&model.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":   progress,
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *CaseRepository) UpdateAssignment(ctx context.Context, id uuid.UUID, assignee string) error {
	result := r.db.WithContext(ctx).Model(&model.Case{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"assigned_to": assignee,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
