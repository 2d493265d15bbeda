package app

import (
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/repos"
)

type Repos struct {
	Child     repos.ChildRepo
	Plan      repos.PlanRepo
	AICallLog repos.AICallLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Child:     repos.NewChildRepo(db, log),
		Plan:      repos.NewPlanRepo(db, log),
		AICallLog: repos.NewAICallLogRepo(db, log),
	}
}
