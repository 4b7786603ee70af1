package main

import (
	"time"

	"github.com/edulane/streakd/config"
	"github.com/edulane/streakd/models"
	"github.com/edulane/streakd/routes"
	"github.com/edulane/streakd/store"
	"github.com/edulane/streakd/streak"
	"github.com/edulane/streakd/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.StreakRecord{}, &models.DailyUsage{})
	st := store.NewGormStore(db, utils.GetRedis(), utils.Sugar)

	engineCfg := streak.Config{
		MinutesPerDayRequired: cfg.MinutesPerDayRequired,
		Thresholds:            cfg.LevelThresholds,
	}
	validator := streak.NewValidator(st, engineCfg, utils.Sugar)
	registry := streak.NewRegistry(st, validator, streak.SessionConfig{
		FlushThresholdMinutes: cfg.CommitThresholdMinutes,
		MaxTickCreditMinutes:  cfg.MaxTickCreditMinutes,
		HeartbeatTimeout:      time.Duration(cfg.HeartbeatTimeoutSeconds) * time.Second,
	}, utils.Sugar)

	stopReaper := registry.StartReaper(time.Duration(cfg.ReaperIntervalSeconds) * time.Second)

	r := routes.SetupRouter(st, registry, engineCfg)

	srv := utils.NewGraceServer(":"+cfg.AppPort, r)
	// Flush every live session before exit so pending minutes survive
	// restarts and deploys.
	srv.OnShutdown(func() {
		stopReaper()
		registry.StopAll()
	})

	utils.Sugar.Infof("Starting streakd on port %s (graceful)", cfg.AppPort)
	if err := srv.Run(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
