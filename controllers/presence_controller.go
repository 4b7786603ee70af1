package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edulane/streakd/config"
	"github.com/edulane/streakd/middleware"
	"github.com/edulane/streakd/streak"
	"github.com/edulane/streakd/utils"
)

// PresenceController handles heartbeat and sign-out endpoints.
type PresenceController struct {
	registry *streak.Registry
}

// NewPresenceController creates a new controller instance.
func NewPresenceController(registry *streak.Registry) *PresenceController {
	return &PresenceController{registry: registry}
}

type heartbeatRequest struct {
	State string `json:"state" binding:"required"`
	// SessionID distinguishes tabs/devices of one user. Empty on the
	// first heartbeat; the server mints one and the client echoes it.
	SessionID string `json:"session_id"`
}

// Heartbeat applies a presence report for the caller's session.
func (p *PresenceController) Heartbeat(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req heartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "state is required")
		return
	}
	presence, ok := streak.ParsePresence(req.State)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40011, "state must be online, idle or offline")
		return
	}

	sessionID := p.registry.Heartbeat(userID, req.SessionID, presence)

	cfg := config.Get()
	utils.MarkPresence(userID, string(presence), time.Duration(cfg.HeartbeatTimeoutSeconds)*time.Second)

	utils.Success(ctx, gin.H{
		"session_id": sessionID,
		"state":      string(presence),
	})
}

// SignOut closes every live session of the caller and revokes the token,
// so an account switch in the same client starts from a clean slate.
func (p *PresenceController) SignOut(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	p.registry.SignOut(userID)
	utils.MarkPresence(userID, string(streak.PresenceOffline), time.Minute)

	if token, expires, ok := middleware.TokenInfo(ctx); ok && !expires.IsZero() {
		utils.BlacklistToken(token, expires)
	}

	utils.Success(ctx, gin.H{"message": "signed out"})
}
