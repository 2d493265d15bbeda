package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Child struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	FirstName  string         `gorm:"column:first_name;not null" json:"firstName"`
	BirthDate  time.Time      `gorm:"column:birth_date;not null" json:"birthDate"`
	SurveyData datatypes.JSON `gorm:"type:jsonb;column:survey_data" json:"surveyData"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Child) TableName() string {
	return "child"
}

// AgeInMonths returns the child's age in whole months at the given time.
func (c *Child) AgeInMonths(at time.Time) int {
	if c == nil || c.BirthDate.IsZero() || at.Before(c.BirthDate) {
		return 0
	}
	years := at.Year() - c.BirthDate.Year()
	months := int(at.Month()) - int(c.BirthDate.Month())
	total := years*12 + months
	if at.Day() < c.BirthDate.Day() {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}
