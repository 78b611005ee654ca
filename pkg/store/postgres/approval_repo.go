package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caseflow/caseflow/pkg/model"
)

// ApprovalRepository is the append-only approval ledger. There is no update
// or delete on purpose.
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(ctx context.Context, approval *model.Approval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

func (r *ApprovalRepository) ListByTransition(ctx context.Context, transitionID uuid.UUID) ([]model.Approval, error) {
	var approvals []model.Approval
	err := r.db.WithContext(ctx).
		Where("transition_id = ?", transitionID).
		Order("created_at ASC").
		Find(&approvals).Error
	return approvals, err
}
