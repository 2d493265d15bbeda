package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/apierr"
	redisclient "github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/redis"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/normalization"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/repos"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/requestdata"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/types"
)

// PlanService owns the plan lifecycle invariants: at most one active plan per
// child, strictly increasing plan numbers, idempotent transitions.
type PlanService interface {
	CreateDraft(ctx context.Context, childID uuid.UUID, input CreateDraftInput) (*types.Plan, error)
	Apply(ctx context.Context, childID, planID uuid.UUID) (*ApplyResult, error)
	Complete(ctx context.Context, childID, planID uuid.UUID) (*types.Plan, error)
	Supersede(ctx context.Context, childID, planID uuid.UUID) (*types.Plan, error)
	List(ctx context.Context, childID uuid.UUID, statusFilter []string, limit int) ([]*types.Plan, error)
	GetActive(ctx context.Context, childID uuid.UUID) (*types.Plan, error)
}

type CreateDraftInput struct {
	PlanType   string
	BasePlanID *uuid.UUID

	// Optional generated content. When nil the draft gets the safe default
	// schedule, so nothing partial ever reaches storage.
	Schedule        *types.PlanSchedule
	Objectives      []string
	Recommendations []string
	SourceData      datatypes.JSON
}

// ApplyResult reports the applied plan plus how many previously-active plans
// were completed as a side effect (zero on a redundant apply).
type ApplyResult struct {
	Plan          *types.Plan `json:"plan"`
	CompletedPrev int64       `json:"completedPrev"`
}

type planService struct {
	db        *gorm.DB
	log       *logger.Logger
	planRepo  repos.PlanRepo
	childRepo repos.ChildRepo
	events    redisclient.PlanEventBus
}

func NewPlanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	planRepo repos.PlanRepo,
	childRepo repos.ChildRepo,
	events redisclient.PlanEventBus,
) PlanService {
	return &planService{
		db:        db,
		log:       baseLog.With("service", "PlanService"),
		planRepo:  planRepo,
		childRepo: childRepo,
		events:    events,
	}
}

// authorizeChild resolves the child and enforces ownership. A child that does
// not exist and a child owned by someone else look identical to the caller.
func authorizeChild(ctx context.Context, childRepo repos.ChildRepo, childID uuid.UUID) (*types.Child, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("not authenticated")
	}
	if childID == uuid.Nil {
		return nil, apierr.NotFound("child not found")
	}
	child, err := childRepo.GetByID(ctx, nil, childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, apierr.NotFound("child not found")
	}
	if !rd.IsAdmin() && child.UserID != rd.UserID {
		return nil, apierr.NotFound("child not found")
	}
	return child, nil
}

// inTransaction runs fn inside a store transaction when a database handle is
// present; repo fakes run without one.
func (s *planService) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *planService) publish(ctx context.Context, event string, plan *types.Plan) {
	if s.events == nil || plan == nil {
		return
	}
	err := s.events.Publish(ctx, redisclient.PlanEvent{
		Event:      event,
		PlanID:     plan.ID,
		ChildID:    plan.ChildID,
		UserID:     plan.UserID,
		PlanNumber: plan.PlanNumber,
	})
	if err != nil {
		s.log.Warn("Plan event publish failed", "event", event, "plan_id", plan.ID, "error", err)
	}
}

func (s *planService) CreateDraft(ctx context.Context, childID uuid.UUID, input CreateDraftInput) (*types.Plan, error) {
	if !types.IsValidPlanType(input.PlanType) {
		return nil, apierr.Validation(fmt.Sprintf("unknown planType %q", input.PlanType))
	}
	child, err := authorizeChild(ctx, s.childRepo, childID)
	if err != nil {
		return nil, mapStoreErr(s.log, "CreateDraft", err)
	}

	schedule := input.Schedule
	objectives := input.Objectives
	recommendations := input.Recommendations
	if schedule == nil {
		defaults := normalization.NormalizeGeneratedPlan(nil)
		schedule = &defaults.Schedule
		if len(objectives) == 0 {
			objectives = defaults.Objectives
		}
		if len(recommendations) == 0 {
			recommendations = defaults.Recommendations
		}
	}
	sourceData := input.SourceData
	if len(sourceData) == 0 {
		sourceData = datatypes.JSON([]byte("{}"))
	}

	rd := requestdata.GetRequestData(ctx)

	// Number allocation can race with a concurrent create for the same
	// child; the unique (child_id, plan_number) index rejects the loser and
	// one re-read resolves it. Gaps from failed creates are acceptable.
	var created *types.Plan
	for attempt := 0; attempt < 2; attempt++ {
		max, err := s.planRepo.MaxPlanNumber(ctx, nil, childID)
		if err != nil {
			return nil, mapStoreErr(s.log, "CreateDraft", err)
		}
		next := 0
		if max != nil {
			next = *max + 1
		}
		plan := &types.Plan{
			ID:              uuid.New(),
			ChildID:         child.ID,
			UserID:          rd.UserID,
			PlanType:        input.PlanType,
			PlanNumber:      next,
			Status:          types.PlanStatusDraft,
			BasePlanID:      input.BasePlanID,
			Schedule:        *schedule,
			Objectives:      objectives,
			Recommendations: recommendations,
			SourceData:      sourceData,
		}
		created, err = s.planRepo.Create(ctx, nil, plan)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && attempt == 0 {
				s.log.Debug("Plan number collision, reallocating", "child_id", childID, "plan_number", next)
				continue
			}
			return nil, mapStoreErr(s.log, "CreateDraft", err)
		}
		break
	}

	s.publish(ctx, redisclient.EventDraftCreated, created)
	return created, nil
}

func (s *planService) Apply(ctx context.Context, childID, planID uuid.UUID) (*ApplyResult, error) {
	if _, err := authorizeChild(ctx, s.childRepo, childID); err != nil {
		return nil, mapStoreErr(s.log, "Apply", err)
	}
	plan, err := s.planRepo.GetByID(ctx, nil, planID, childID)
	if err != nil {
		return nil, mapStoreErr(s.log, "Apply", err)
	}
	if plan == nil {
		return nil, apierr.NotFound("plan not found")
	}
	if types.IsTerminalStatus(plan.Status) {
		return nil, apierr.NotFound("plan not found")
	}

	// Demote-then-promote. Each write is idempotent on its own, so a crash
	// or a concurrent duplicate call converges to the same end state; the
	// transaction just removes the zero-active window Postgres can spare us.
	var completedPrev int64
	err = s.inTransaction(ctx, func(tx *gorm.DB) error {
		n, txErr := s.planRepo.UpdateManyFields(ctx, tx, childID,
			[]uuid.UUID{planID},
			[]string{types.PlanStatusActive},
			map[string]interface{}{"status": types.PlanStatusCompleted},
		)
		if txErr != nil {
			return txErr
		}
		completedPrev = n
		if types.NormalizeStatus(plan.Status) != types.PlanStatusActive {
			// Guarded on status so a plan that a concurrent Complete or
			// Supersede already finished cannot be resurrected here.
			if _, txErr = s.planRepo.UpdateFields(ctx, tx, planID, childID,
				[]string{types.PlanStatusDraft, types.PlanStatusActive},
				map[string]interface{}{"status": types.PlanStatusActive},
			); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(s.log, "Apply", err)
	}

	applied, err := s.planRepo.GetByID(ctx, nil, planID, childID)
	if err != nil || applied == nil {
		return nil, mapStoreErr(s.log, "Apply", err)
	}
	applied.Status = types.NormalizeStatus(applied.Status)
	if types.IsTerminalStatus(applied.Status) {
		return nil, apierr.NotFound("plan not found")
	}

	if completedPrev > 0 || types.NormalizeStatus(plan.Status) != types.PlanStatusActive {
		s.publish(ctx, redisclient.EventApplied, applied)
	}
	s.log.Info("Plan applied",
		"child_id", childID,
		"plan_id", planID,
		"completed_prev", completedPrev,
	)
	return &ApplyResult{Plan: applied, CompletedPrev: completedPrev}, nil
}

func (s *planService) Complete(ctx context.Context, childID, planID uuid.UUID) (*types.Plan, error) {
	return s.finish(ctx, childID, planID, types.PlanStatusCompleted, redisclient.EventCompleted)
}

func (s *planService) Supersede(ctx context.Context, childID, planID uuid.UUID) (*types.Plan, error) {
	return s.finish(ctx, childID, planID, types.PlanStatusSuperseded, redisclient.EventSuperseded)
}

// finish moves a plan into a terminal state. Allowed from draft as well as
// active; a redundant call is a no-op, a call against the other terminal
// state is rejected.
func (s *planService) finish(ctx context.Context, childID, planID uuid.UUID, target, event string) (*types.Plan, error) {
	if _, err := authorizeChild(ctx, s.childRepo, childID); err != nil {
		return nil, mapStoreErr(s.log, "finish", err)
	}
	plan, err := s.planRepo.GetByID(ctx, nil, planID, childID)
	if err != nil {
		return nil, mapStoreErr(s.log, "finish", err)
	}
	if plan == nil {
		return nil, apierr.NotFound("plan not found")
	}
	current := types.NormalizeStatus(plan.Status)
	if current == target {
		plan.Status = current
		return plan, nil
	}
	if types.IsTerminalStatus(current) {
		return nil, apierr.Validation(fmt.Sprintf("plan is already %s", current))
	}

	rows, err := s.planRepo.UpdateFields(ctx, nil, planID, childID,
		[]string{types.PlanStatusDraft, types.PlanStatusActive},
		map[string]interface{}{"status": target},
	)
	if err != nil {
		return nil, mapStoreErr(s.log, "finish", err)
	}

	updated, err := s.planRepo.GetByID(ctx, nil, planID, childID)
	if err != nil || updated == nil {
		return nil, mapStoreErr(s.log, "finish", err)
	}
	updated.Status = types.NormalizeStatus(updated.Status)
	if rows == 0 {
		// Lost the write to a concurrent transition; re-evaluate instead of
		// reporting a transition that did not happen.
		if updated.Status == target {
			return updated, nil
		}
		return nil, apierr.Validation(fmt.Sprintf("plan is already %s", updated.Status))
	}
	s.publish(ctx, event, updated)
	return updated, nil
}

func (s *planService) List(ctx context.Context, childID uuid.UUID, statusFilter []string, limit int) ([]*types.Plan, error) {
	if _, err := authorizeChild(ctx, s.childRepo, childID); err != nil {
		return nil, mapStoreErr(s.log, "List", err)
	}
	for _, status := range statusFilter {
		switch status {
		case types.PlanStatusDraft, types.PlanStatusActive, types.PlanStatusCompleted, types.PlanStatusSuperseded:
		default:
			return nil, apierr.Validation(fmt.Sprintf("unknown status %q", status))
		}
	}
	plans, err := s.planRepo.Find(ctx, nil, childID, statusFilter, limit)
	if err != nil {
		return nil, mapStoreErr(s.log, "List", err)
	}
	for _, plan := range plans {
		plan.Status = types.NormalizeStatus(plan.Status)
	}
	return plans, nil
}

func (s *planService) GetActive(ctx context.Context, childID uuid.UUID) (*types.Plan, error) {
	if _, err := authorizeChild(ctx, s.childRepo, childID); err != nil {
		return nil, mapStoreErr(s.log, "GetActive", err)
	}
	plans, err := s.planRepo.Find(ctx, nil, childID, []string{types.PlanStatusActive}, 1)
	if err != nil {
		return nil, mapStoreErr(s.log, "GetActive", err)
	}
	if len(plans) == 0 {
		return nil, nil
	}
	active := plans[0]
	active.Status = types.NormalizeStatus(active.Status)
	return active, nil
}

// mapStoreErr passes api errors through and logs everything else before
// hiding it behind internal_error.
func mapStoreErr(log *logger.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	log.Error("Store operation failed", "op", op, "error", err)
	return apierr.Internal(err)
}
