package app

import (
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/middleware"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}
