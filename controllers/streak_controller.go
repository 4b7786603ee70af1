package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edulane/streakd/middleware"
	"github.com/edulane/streakd/models"
	"github.com/edulane/streakd/store"
	"github.com/edulane/streakd/streak"
	"github.com/edulane/streakd/utils"
)

// StreakController serves read endpoints over streak state.
type StreakController struct {
	store    store.Store
	registry *streak.Registry
	cfg      streak.Config
}

// NewStreakController creates a new controller instance.
func NewStreakController(st store.Store, registry *streak.Registry, cfg streak.Config) *StreakController {
	return &StreakController{store: st, registry: registry, cfg: cfg}
}

// Status returns the caller's streak record plus today's committed
// minutes. A user with no record yet gets a zeroed view; records are
// only created by activity, never by reads.
func (s *StreakController) Status(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rec, err := s.store.GetStreak(ctx.Request.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load streak")
		return
	}
	if rec == nil {
		rec = &models.StreakRecord{UserID: userID}
	}

	today := time.Now()
	minutes, err := s.store.GetDailyUsage(ctx.Request.Context(), userID, today)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load daily usage")
		return
	}

	utils.Success(ctx, gin.H{
		"current_streak":     rec.CurrentStreak,
		"longest_streak":     rec.LongestStreak,
		"total_days_active":  rec.TotalDaysActive,
		"current_level":      rec.CurrentLevel,
		"last_activity_date": rec.LastActivityDate,
		"last_login_at":      rec.LastLoginAt,
		"last_logout_at":     rec.LastLogoutAt,
		"today_minutes":      minutes,
		"minutes_required":   s.cfg.MinutesPerDayRequired,
		"today_qualified":    minutes >= s.cfg.MinutesPerDayRequired,
		"active_sessions":    s.registry.ActiveSessions(userID),
		"presence":           utils.PresenceOf(userID),
	})
}

// Levels returns the threshold table so clients can render progress bars
// without hardcoding it.
func (s *StreakController) Levels(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"minutes_per_day_required": s.cfg.MinutesPerDayRequired,
		"thresholds":               s.cfg.Thresholds,
	})
}
