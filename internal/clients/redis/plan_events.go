package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/utils"
)

// Plan lifecycle event names.
const (
	EventDraftCreated = "plan.draft_created"
	EventApplied      = "plan.applied"
	EventCompleted    = "plan.completed"
	EventSuperseded   = "plan.superseded"
)

// PlanEvent is published whenever a plan changes state. Downstream consumers
// (notification delivery lives outside this service) subscribe to the channel.
type PlanEvent struct {
	Event      string    `json:"event"`
	PlanID     uuid.UUID `json:"planId"`
	ChildID    uuid.UUID `json:"childId"`
	UserID     uuid.UUID `json:"userId"`
	PlanNumber int       `json:"planNumber"`
	OccurredAt time.Time `json:"occurredAt"`
}

type PlanEventBus interface {
	Publish(ctx context.Context, event PlanEvent) error
	Close() error
}

type planEventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewPlanEventBus connects to redis using REDIS_ADDR. When REDIS_ADDR is not
// set it returns a no-op bus so the service runs without redis.
func NewPlanEventBus(log *logger.Logger) (PlanEventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	busLog := log.With("service", "PlanEventBus")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		busLog.Info("REDIS_ADDR not set, plan events disabled")
		return &noopPlanEventBus{}, nil
	}
	channel := strings.TrimSpace(utils.GetEnv("REDIS_PLAN_CHANNEL", "plan-events", log))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &planEventBus{
		log:     busLog,
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *planEventBus) Publish(ctx context.Context, event PlanEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("plan event bus not initialized")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *planEventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

type noopPlanEventBus struct{}

func (*noopPlanEventBus) Publish(ctx context.Context, event PlanEvent) error { return nil }
func (*noopPlanEventBus) Close() error                                       { return nil }
