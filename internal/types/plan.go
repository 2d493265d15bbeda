package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Plan lifecycle states. "activo" is the legacy spelling of active that still
// exists in historical rows; reads normalize it, writes never produce it.
const (
	PlanStatusDraft        = "draft"
	PlanStatusActive       = "active"
	PlanStatusCompleted    = "completed"
	PlanStatusSuperseded   = "superseded"
	PlanStatusActiveLegacy = "activo"
)

const (
	PlanTypeInitial              = "initial"
	PlanTypeEventBased           = "event_based"
	PlanTypeTranscriptRefinement = "transcript_refinement"
)

// NormalizeStatus maps the legacy active spelling onto the current one.
func NormalizeStatus(status string) string {
	if status == PlanStatusActiveLegacy {
		return PlanStatusActive
	}
	return status
}

// IsTerminalStatus reports whether status admits no further transitions.
func IsTerminalStatus(status string) bool {
	s := NormalizeStatus(status)
	return s == PlanStatusCompleted || s == PlanStatusSuperseded
}

// IsValidPlanType reports whether t is a known plan kind.
func IsValidPlanType(t string) bool {
	switch t {
	case PlanTypeInitial, PlanTypeEventBased, PlanTypeTranscriptRefinement:
		return true
	}
	return false
}

type PlanNap struct {
	Time            string `json:"time"`
	DurationMinutes int    `json:"durationMinutes"`
	Description     string `json:"description,omitempty"`
}

type PlanMeal struct {
	Time        string `json:"time"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type PlanActivity struct {
	Time            string `json:"time"`
	Activity        string `json:"activity"`
	DurationMinutes int    `json:"durationMinutes"`
	Description     string `json:"description,omitempty"`
}

// PlanSchedule is always fully populated once a plan reaches storage.
type PlanSchedule struct {
	Bedtime    string         `json:"bedtime"`
	WakeTime   string         `json:"wakeTime"`
	Naps       []PlanNap      `json:"naps"`
	Meals      []PlanMeal     `json:"meals"`
	Activities []PlanActivity `json:"activities"`
}

type Plan struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChildID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_child_plan_number,priority:1" json:"childId"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	PlanType        string         `gorm:"column:plan_type;not null" json:"planType"`
	PlanNumber      int            `gorm:"column:plan_number;not null;uniqueIndex:idx_child_plan_number,priority:2" json:"planNumber"`
	Status          string         `gorm:"not null;default:'draft';index" json:"status"`
	BasePlanID      *uuid.UUID     `gorm:"type:uuid" json:"basePlanId,omitempty"`
	Schedule        PlanSchedule   `gorm:"type:jsonb;serializer:json" json:"schedule"`
	Objectives      []string       `gorm:"type:jsonb;serializer:json" json:"objectives"`
	Recommendations []string       `gorm:"type:jsonb;serializer:json" json:"recommendations"`
	SourceData      datatypes.JSON `gorm:"type:jsonb;column:source_data" json:"sourceData"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Plan) TableName() string {
	return "child_plan"
}
