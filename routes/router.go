package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edulane/streakd/config"
	"github.com/edulane/streakd/controllers"
	"github.com/edulane/streakd/middleware"
	"github.com/edulane/streakd/store"
	"github.com/edulane/streakd/streak"
	"github.com/edulane/streakd/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(st store.Store, registry *streak.Registry, engineCfg streak.Config) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.GinLogger())
	r.Use(utils.GinRecovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	presence := controllers.NewPresenceController(registry)
	streaks := controllers.NewStreakController(st, registry, engineCfg)

	api := r.Group("/api/v1", middleware.AuthRequired())
	{
		api.POST("/presence", middleware.RateLimitMiddleware(), presence.Heartbeat)
		api.POST("/signout", presence.SignOut)
		api.GET("/streak", streaks.Status)
		api.GET("/levels", streaks.Levels)
	}

	return r
}
