package app

import (
	"gorm.io/gorm"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/services"
)

type Services struct {
	Child      services.ChildService
	Plan       services.PlanService
	Generation services.PlanGenerationService
}

func wireServices(db *gorm.DB, log *logger.Logger, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")
	childService := services.NewChildService(db, log, repos.Child)
	planService := services.NewPlanService(db, log, repos.Plan, repos.Child, clients.Events)
	generationService := services.NewPlanGenerationService(
		log,
		repos.Child,
		repos.AICallLog,
		clients.OpenAI,
		services.NewNoKnowledge(),
		planService,
	)
	return Services{
		Child:      childService,
		Plan:       planService,
		Generation: generationService,
	}
}
