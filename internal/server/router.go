package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/handlers"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/logger"
	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/middleware"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *middleware.AuthMiddleware
	ChildHandler   *handlers.ChildHandler
	PlanHandler    *handlers.PlanHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.WithRequestID())
	if cfg.Log != nil {
		router.Use(middleware.RequestLog(cfg.Log))
	}

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Children
	api.GET("/children", cfg.ChildHandler.List)
	api.POST("/children", cfg.ChildHandler.Create)
	api.GET("/children/:childId", cfg.ChildHandler.Get)
	// Plans
	api.GET("/children/:childId/plans", cfg.PlanHandler.List)
	api.POST("/children/:childId/plans", cfg.PlanHandler.Create)
	api.POST("/children/:childId/plans/generate", cfg.PlanHandler.Generate)
	api.PUT("/children/:childId/plans/:planId/apply", cfg.PlanHandler.Apply)
	api.PUT("/children/:childId/plans/:planId/complete", cfg.PlanHandler.Complete)
	api.PUT("/children/:childId/plans/:planId/supersede", cfg.PlanHandler.Supersede)

	return router
}
