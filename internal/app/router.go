package app

import (
	"github.com/gin-gonic/gin"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/server"
)

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *gin.Engine {
	log.Info("Wiring router...")
	return server.NewRouter(server.RouterConfig{
		Log:            log,
		AuthMiddleware: middleware.Auth,
		ChildHandler:   handlers.Child,
		PlanHandler:    handlers.Plan,
	})
}
