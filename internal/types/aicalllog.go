package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AICallLog records one call to the generation provider, successful or not.
type AICallLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        *uuid.UUID     `gorm:"type:uuid;index" json:"userId,omitempty"`
	ChildID       *uuid.UUID     `gorm:"type:uuid;index" json:"childId,omitempty"`
	PlanID        *uuid.UUID     `gorm:"type:uuid;index" json:"planId,omitempty"`
	CallType      string         `gorm:"column:call_type;not null" json:"callType"`
	Model         string         `gorm:"column:model;not null" json:"model"`
	PromptVersion string         `gorm:"column:prompt_version" json:"promptVersion"`
	Success       bool           `gorm:"column:success;not null" json:"success"`
	Error         string         `gorm:"column:error" json:"error"`
	LatencyMS     int64          `gorm:"column:latency_ms" json:"latencyMs"`
	Usage         datatypes.JSON `gorm:"type:jsonb;column:usage" json:"usage"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updatedAt"`
}

func (AICallLog) TableName() string {
	return "ai_call_log"
}
