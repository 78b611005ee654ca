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

type TransitionRepository struct {
	db *gorm.DB
}

func NewTransitionRepository(db *gorm.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

func (r *TransitionRepository) Create(ctx context.Context, transition *model.Transition) error {
	return r.db.WithContext(ctx).Create(transition).Error
}

// NextSeq returns the next per-case sequence number. Sequence, not
// timestamp, orders the history; this keeps "current stage" stable under
// clock skew.
func (r *TransitionRepository) NextSeq(ctx context.Context, caseID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&model.Transition{}).
		Where("case_id = ?", caseID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Current returns the transition of record for a case: highest sequence
// among resolved, non-rejected rows. A pending or rejected transition never
// moves the case. Returns (nil, nil) when the case has no workflow history.
func (r *TransitionRepository) Current(ctx context.Context, caseID uuid.UUID) (*model.Transition, error) {
	var transition model.Transition
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND requires_approval = false AND rejected_at IS NULL", caseID).
		Order("seq DESC").
		First(&transition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transition, nil
}

func (r *TransitionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Transition, error) {
	var transition model.Transition
	err := r.db.WithContext(ctx).First(&transition, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &transition, nil
}

// GetPending loads a transition only while it still awaits approval. An
// already-resolved transition is indistinguishable from a missing one, so
// re-resolution attempts fail with ErrNotFound.
func (r *TransitionRepository) GetPending(ctx context.Context, id uuid.UUID) (*model.Transition, error) {
	var transition model.Transition
	err := r.db.WithContext(ctx).
		Where("id = ? AND requires_approval = true", id).
		First(&transition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &transition, nil
}

// Resolve flips requires_approval exactly once. The conditional predicate
// makes a second resolution a no-op reported as ErrNotFound, which is what
// keeps concurrent approvers safe without locks.
func (r *TransitionRepository) Resolve(ctx context.Context, id uuid.UUID, rejected bool) error {
	updates := map[string]interface{}{
		"requires_approval": false,
	}
	if rejected {
		now := time.Now().UTC()
		updates["rejected_at"] = &now
	}

	result := r.db.WithContext(ctx).Model(&model.Transition{}).
		Where("id = ? AND requires_approval = true", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendNote concatenates onto the transition's notes. Existing notes are
// never overwritten.
func (r *TransitionRepository) AppendNote(ctx context.Context, id uuid.UUID, note string) error {
	result := r.db.WithContext(ctx).Model(&model.Transition{}).
		Where("id = ?", id).
		Update("notes", gorm.Expr(
			"CASE WHEN notes = '' THEN ? ELSE notes || E'\\n' || ? END", note, note))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TransitionRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]model.Transition, error) {
	var transitions []model.Transition
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("seq ASC").
		Find(&transitions).Error
	return transitions, err
}

// CurrentOnStages returns, for every case whose transition of record points
// at one of the given stages, that latest transition. Feeds the
// auto-transition sweep.
func (r *TransitionRepository) CurrentOnStages(ctx context.Context, stageIDs []uuid.UUID) ([]model.Transition, error) {
	if len(stageIDs) == 0 {
		return nil, nil
	}

	var transitions []model.Transition
	err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT DISTINCT ON (case_id) *
			FROM transitions
			WHERE requires_approval = false AND rejected_at IS NULL
			ORDER BY case_id, seq DESC
		) current
		WHERE current.to_stage_id IN ?
	`, stageIDs).Scan(&transitions).Error
	return transitions, err
}
