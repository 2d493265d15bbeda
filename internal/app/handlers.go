package app

import (
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/handlers"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
)

type Handlers struct {
	Child *handlers.ChildHandler
	Plan  *handlers.PlanHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Child: handlers.NewChildHandler(log, services.Child),
		Plan:  handlers.NewPlanHandler(log, services.Plan, services.Generation),
	}
}
