package app

import (
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/utils"
)

type Config struct {
	Port         string
	JWTSecretKey string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
	}
}
