package app

import (
	"fmt"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/openai"
	redisclient "github.com/Nebulatools/happy-dreamersV2-sub006/internal/clients/redis"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
)

type Clients struct {
	OpenAI openai.Client
	Events redisclient.PlanEventBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	events, err := redisclient.NewPlanEventBus(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init plan event bus: %w", err)
	}
	return Clients{
		OpenAI: openaiClient,
		Events: events,
	}, nil
}
