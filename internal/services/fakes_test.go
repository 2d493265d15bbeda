package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/redis"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/requestdata"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

func testLogger(tb interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

func ctxFor(userID uuid.UUID, role string) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID: userID,
		Role:   role,
	})
}

// ---- plan repo fake ----

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*types.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[uuid.UUID]*types.Plan{}}
}

func statusMatches(status string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if status == f {
			return true
		}
		if f == types.PlanStatusActive && status == types.PlanStatusActiveLegacy {
			return true
		}
	}
	return false
}

func (r *fakePlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.Plan) (*types.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.plans {
		if existing.ChildID == plan.ChildID && existing.PlanNumber == plan.PlanNumber {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	stored := *plan
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	r.plans[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID) (*types.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[planID]
	if !ok || plan.ChildID != childID {
		return nil, nil
	}
	out := *plan
	return &out, nil
}

func (r *fakePlanRepo) Find(ctx context.Context, tx *gorm.DB, childID uuid.UUID, statuses []string, limit int) ([]*types.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []*types.Plan
	for _, plan := range r.plans {
		if plan.ChildID != childID {
			continue
		}
		if !statusMatches(plan.Status, statuses) {
			continue
		}
		out := *plan
		results = append(results, &out)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].PlanNumber != results[j].PlanNumber {
			return results[i].PlanNumber > results[j].PlanNumber
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *fakePlanRepo) MaxPlanNumber(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max *int
	for _, plan := range r.plans {
		if plan.ChildID != childID {
			continue
		}
		n := plan.PlanNumber
		if max == nil || n > *max {
			max = &n
		}
	}
	return max, nil
}

func (r *fakePlanRepo) UpdateFields(ctx context.Context, tx *gorm.DB, planID, childID uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[planID]
	if !ok || plan.ChildID != childID {
		return 0, nil
	}
	if !statusMatches(plan.Status, statuses) {
		return 0, nil
	}
	applyUpdates(plan, updates)
	return 1, nil
}

func (r *fakePlanRepo) UpdateManyFields(ctx context.Context, tx *gorm.DB, childID uuid.UUID, excludeIDs []uuid.UUID, statuses []string, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, plan := range r.plans {
		if plan.ChildID != childID {
			continue
		}
		excluded := false
		for _, id := range excludeIDs {
			if plan.ID == id {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if !statusMatches(plan.Status, statuses) {
			continue
		}
		applyUpdates(plan, updates)
		count++
	}
	return count, nil
}

func applyUpdates(plan *types.Plan, updates map[string]interface{}) {
	if status, ok := updates["status"].(string); ok {
		plan.Status = status
	}
	plan.UpdatedAt = time.Now()
}

// rawStatus returns the stored (non-normalized) status.
func (r *fakePlanRepo) rawStatus(planID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan, ok := r.plans[planID]; ok {
		return plan.Status
	}
	return ""
}

func (r *fakePlanRepo) seed(plan *types.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	r.plans[plan.ID] = plan
}

func (r *fakePlanRepo) countByStatus(childID uuid.UUID, status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, plan := range r.plans {
		if plan.ChildID == childID && types.NormalizeStatus(plan.Status) == status {
			n++
		}
	}
	return n
}

func (r *fakePlanRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

// ---- child repo fake ----

type fakeChildRepo struct {
	mu       sync.Mutex
	children map[uuid.UUID]*types.Child
}

func newFakeChildRepo() *fakeChildRepo {
	return &fakeChildRepo{children: map[uuid.UUID]*types.Child{}}
}

func (r *fakeChildRepo) Create(ctx context.Context, tx *gorm.DB, child *types.Child) (*types.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *child
	r.children[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeChildRepo) GetByID(ctx context.Context, tx *gorm.DB, childID uuid.UUID) (*types.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	child, ok := r.children[childID]
	if !ok {
		return nil, nil
	}
	out := *child
	return &out, nil
}

func (r *fakeChildRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []*types.Child
	for _, child := range r.children {
		if child.UserID == userID {
			out := *child
			results = append(results, &out)
		}
	}
	return results, nil
}

// ---- ai call log fake ----

type fakeAILogRepo struct {
	mu      sync.Mutex
	entries []*types.AICallLog
}

func (r *fakeAILogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logs...)
	return logs, nil
}

// ---- generation client fake ----

type fakeAIClient struct {
	response map[string]any
	err      error
	calls    int
}

func (c *fakeAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func (c *fakeAIClient) Model() string { return "fake-model" }

// ---- knowledge fake ----

type fakeKnowledge struct {
	excerpts []string
	err      error
}

func (k *fakeKnowledge) Excerpts(ctx context.Context, query string, limit int) ([]string, error) {
	return k.excerpts, k.err
}

// ---- event bus fake ----

type fakeEventBus struct {
	mu     sync.Mutex
	events []redisclient.PlanEvent
}

func (b *fakeEventBus) Publish(ctx context.Context, event redisclient.PlanEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeEventBus) Close() error { return nil }
