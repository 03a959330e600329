package sysconfig

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass/internal/jwttoken"
	"outpass/pkg/requestcontext"
)

func newTestHandler(t *testing.T) (*chi.Mux, *InMemoryStore, *jwttoken.JWTService) {
	t.Helper()
	store := NewInMemory(Default())
	jwtService := jwttoken.NewJWTService("sysconfig-test-key", "outpass", "outpass")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	NewHandler(store, logger, jwtService).Register(r)
	return r, store, jwtService
}

func request(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionToken(t *testing.T, jwtService *jwttoken.JWTService, role requestcontext.Role) string {
	t.Helper()
	token, err := jwtService.GenerateSessionToken(uuid.New(), role, "", time.Hour)
	require.NoError(t, err)
	return token
}

func TestHandleGetConfig(t *testing.T) {
	r, _, jwtService := newTestHandler(t)

	rec := request(t, r, http.MethodGet, "/warden/config", sessionToken(t, jwtService, requestcontext.RoleWarden), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body ConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "06:00", body.DayPassWindowStart)
	assert.Equal(t, "21:00", body.DayPassWindowEnd)
	assert.Equal(t, 48, body.GuardianTokenTTLHours)
	assert.False(t, body.EmergencyFreeze)
}

func TestHandleGetConfig_StudentForbidden(t *testing.T) {
	r, _, jwtService := newTestHandler(t)

	rec := request(t, r, http.MethodGet, "/warden/config", sessionToken(t, jwtService, requestcontext.RoleStudent), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleUpdateConfig(t *testing.T) {
	r, store, jwtService := newTestHandler(t)

	rec := request(t, r, http.MethodPut, "/admin/config", sessionToken(t, jwtService, requestcontext.RoleAdmin), map[string]any{
		"emergency_freeze":         true,
		"day_pass_auto_approve":    true,
		"day_pass_window_start":    "07:30",
		"day_pass_window_end":      "20:00",
		"guardian_token_ttl_hours": 24,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	cfg, err := store.Get(t.Context())
	require.NoError(t, err)
	assert.True(t, cfg.EmergencyFreeze)
	assert.True(t, cfg.DayPassAutoApprove)
	assert.Equal(t, 7*60+30, cfg.DayPassStartMinute)
	assert.Equal(t, 20*60, cfg.DayPassEndMinute)
	assert.Equal(t, 24*time.Hour, cfg.GuardianTokenTTL)
}

func TestHandleUpdateConfig_WardenForbidden(t *testing.T) {
	r, _, jwtService := newTestHandler(t)

	rec := request(t, r, http.MethodPut, "/admin/config", sessionToken(t, jwtService, requestcontext.RoleWarden), map[string]any{
		"day_pass_window_start":    "07:30",
		"day_pass_window_end":      "20:00",
		"guardian_token_ttl_hours": 24,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleUpdateConfig_InvertedWindow(t *testing.T) {
	r, _, jwtService := newTestHandler(t)

	rec := request(t, r, http.MethodPut, "/admin/config", sessionToken(t, jwtService, requestcontext.RoleAdmin), map[string]any{
		"day_pass_window_start":    "20:00",
		"day_pass_window_end":      "07:30",
		"guardian_token_ttl_hours": 24,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
