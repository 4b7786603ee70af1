package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/streakd/config"
	"github.com/edulane/streakd/routes"
	"github.com/edulane/streakd/store"
	"github.com/edulane/streakd/streak"
	"github.com/edulane/streakd/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", "test")
	gin.SetMode(gin.TestMode)
	config.Load()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	cfg := config.Get()
	st := store.NewMemoryStore()
	engineCfg := streak.Config{
		MinutesPerDayRequired: cfg.MinutesPerDayRequired,
		Thresholds:            cfg.LevelThresholds,
	}
	validator := streak.NewValidator(st, engineCfg, nil)
	registry := streak.NewRegistry(st, validator, streak.SessionConfig{
		FlushThresholdMinutes: cfg.CommitThresholdMinutes,
		MaxTickCreditMinutes:  cfg.MaxTickCreditMinutes,
		HeartbeatTimeout:      time.Duration(cfg.HeartbeatTimeoutSeconds) * time.Second,
	}, nil)
	t.Cleanup(registry.StopAll)
	return routes.SetupRouter(st, registry, engineCfg), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err == nil {
		return w, envelope.Data
	}
	return w, nil
}

func TestHeartbeatLifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	token, err := utils.GenerateToken("u1", time.Hour)
	require.NoError(t, err)

	w, data := doJSON(t, r, http.MethodPost, "/api/v1/presence", token, gin.H{"state": "online"})
	require.Equal(t, http.StatusOK, w.Code)
	sessionID, _ := data["session_id"].(string)
	assert.NotEmpty(t, sessionID, "server mints a session id on first heartbeat")

	// Echoed session id keeps the same session alive.
	w, data = doJSON(t, r, http.MethodPost, "/api/v1/presence", token,
		gin.H{"state": "online", "session_id": sessionID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sessionID, data["session_id"])

	w, data = doJSON(t, r, http.MethodGet, "/api/v1/streak", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, data["last_activity_date"], "first heartbeat ran daily validation")
	assert.Equal(t, float64(1), data["active_sessions"])
	assert.Equal(t, float64(0), data["current_streak"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/presence", token,
		gin.H{"state": "offline", "session_id": sessionID})
	require.Equal(t, http.StatusOK, w.Code)

	_, data = doJSON(t, r, http.MethodGet, "/api/v1/streak", token, nil)
	assert.Equal(t, float64(0), data["active_sessions"])
}

func TestHeartbeatRejectsUnknownState(t *testing.T) {
	r, _ := newTestServer(t)
	token, err := utils.GenerateToken("u1", time.Hour)
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/presence", token, gin.H{"state": "busy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/presence", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndpointsRequireAuth(t *testing.T) {
	r, _ := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/presence"},
		{http.MethodPost, "/api/v1/signout"},
		{http.MethodGet, "/api/v1/streak"},
		{http.MethodGet, "/api/v1/levels"},
	} {
		w, _ := doJSON(t, r, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	r, _ := newTestServer(t)
	token, err := utils.GenerateToken("u-signout", time.Hour)
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/presence", token, gin.H{"state": "online"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/signout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/streak", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked token no longer works")
}

func TestLevelsEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	token, err := utils.GenerateToken("u1", time.Hour)
	require.NoError(t, err)

	w, data := doJSON(t, r, http.MethodGet, "/api/v1/levels", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(config.Get().MinutesPerDayRequired), data["minutes_per_day_required"])
	assert.NotEmpty(t, data["thresholds"])
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	w, _ := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
