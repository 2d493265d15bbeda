package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

// PlanRepo is the thin store adapter over the plan collection. All writes are
// partial-field updates so concurrent writers of unrelated fields cannot
// clobber each other.
type PlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plan *types.Plan) (*types.Plan, error)
	GetByID(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID) (*types.Plan, error)
	Find(ctx context.Context, tx *gorm.DB, childID uuid.UUID, statuses []string, limit int) ([]*types.Plan, error)
	MaxPlanNumber(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*int, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error)
	UpdateManyFields(ctx context.Context, tx *gorm.DB, childID uuid.UUID, excludeIDs []uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error)
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

// expandLegacyStatuses widens a status filter so the deprecated active
// spelling is matched wherever active is requested. Stored rows are never
// rewritten for this.
func expandLegacyStatuses(statuses []string) []string {
	out := make([]string, 0, len(statuses)+1)
	hasLegacy := false
	wantsActive := false
	for _, s := range statuses {
		out = append(out, s)
		if s == types.PlanStatusActive {
			wantsActive = true
		}
		if s == types.PlanStatusActiveLegacy {
			hasLegacy = true
		}
	}
	if wantsActive && !hasLegacy {
		out = append(out, types.PlanStatusActiveLegacy)
	}
	return out
}

func (r *planRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.Plan) (*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if plan == nil {
		return nil, errors.New("plan required")
	}
	if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *planRepo) GetByID(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID) (*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var plan types.Plan
	err := transaction.WithContext(ctx).
		Where("id = ? AND child_id = ?", planID, childID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepo) Find(ctx context.Context, tx *gorm.DB, childID uuid.UUID, statuses []string, limit int) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("plan_number DESC").
		Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", expandLegacyStatuses(statuses))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var results []*types.Plan
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *planRepo) MaxPlanNumber(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		Max *int
	}
	err := transaction.WithContext(ctx).
		Model(&types.Plan{}).
		Select("MAX(plan_number) AS max").
		Where("child_id = ?", childID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.Max, nil
}

// UpdateFields writes updates to a single plan. A non-empty statuses filter
// turns the write into a conditional one: rows whose current status is not in
// the filter are left alone and RowsAffected reports 0.
func (r *planRepo) UpdateFields(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if planID == uuid.Nil || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := transaction.WithContext(ctx).
		Model(&types.Plan{}).
		Where("id = ? AND child_id = ?", planID, childID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", expandLegacyStatuses(statuses))
	}
	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *planRepo) UpdateManyFields(ctx context.Context, tx *gorm.DB, childID uuid.UUID, excludeIDs []uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if childID == uuid.Nil || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := transaction.WithContext(ctx).
		Model(&types.Plan{}).
		Where("child_id = ?", childID)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if len(statuses) > 0 {
		q = q.Where("status IN ?", expandLegacyStatuses(statuses))
	}
	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}
