package sysconfig

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"outpass/internal/platform/middleware"
	"outpass/internal/transport/http/shared"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/requestcontext"
)

// Handler exposes the global policy row. Wardens may read it; only admins
// may change it.
type Handler struct {
	logger       *slog.Logger
	config       Store
	validate     *validator.Validate
	jwtValidator middleware.JWTValidator
}

func NewHandler(config Store, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		config:       config,
		validate:     validator.New(),
		jwtValidator: jwtValidator,
	}
}

// Register registers the config routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleWarden, requestcontext.RoleAdmin))
		r.Get("/warden/config", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleAdmin))
		r.Put("/admin/config", h.handleUpdate)
	})
}

// ConfigResponse renders the policy with human-readable clock bounds.
type ConfigResponse struct {
	EmergencyFreeze       bool   `json:"emergency_freeze"`
	DayPassAutoApprove    bool   `json:"day_pass_auto_approve"`
	HomePassAutoApprove   bool   `json:"home_pass_auto_approve"`
	DayPassWindowStart    string `json:"day_pass_window_start"`
	DayPassWindowEnd      string `json:"day_pass_window_end"`
	GuardianTokenTTLHours int    `json:"guardian_token_ttl_hours"`
}

func toResponse(cfg Config) ConfigResponse {
	return ConfigResponse{
		EmergencyFreeze:       cfg.EmergencyFreeze,
		DayPassAutoApprove:    cfg.DayPassAutoApprove,
		HomePassAutoApprove:   cfg.HomePassAutoApprove,
		DayPassWindowStart:    FormatClock(cfg.DayPassStartMinute),
		DayPassWindowEnd:      FormatClock(cfg.DayPassEndMinute),
		GuardianTokenTTLHours: int(cfg.GuardianTokenTTL / time.Hour),
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reading policy failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "reading policy failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(cfg))
}

// UpdateRequest is a full policy replacement. Clock bounds are "HH:MM".
type UpdateRequest struct {
	EmergencyFreeze       bool   `json:"emergency_freeze"`
	DayPassAutoApprove    bool   `json:"day_pass_auto_approve"`
	HomePassAutoApprove   bool   `json:"home_pass_auto_approve"`
	DayPassWindowStart    string `json:"day_pass_window_start" validate:"required"`
	DayPassWindowEnd      string `json:"day_pass_window_end" validate:"required"`
	GuardianTokenTTLHours int    `json:"guardian_token_ttl_hours" validate:"required,min=1,max=336"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "request failed validation"))
		return
	}

	startMinute, err := ParseClock(req.DayPassWindowStart)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	endMinute, err := ParseClock(req.DayPassWindowEnd)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	cfg := Config{
		EmergencyFreeze:     req.EmergencyFreeze,
		DayPassAutoApprove:  req.DayPassAutoApprove,
		HomePassAutoApprove: req.HomePassAutoApprove,
		DayPassStartMinute:  startMinute,
		DayPassEndMinute:    endMinute,
		GuardianTokenTTL:    time.Duration(req.GuardianTokenTTLHours) * time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.config.Update(ctx, cfg); err != nil {
		h.logger.ErrorContext(ctx, "updating policy failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "updating policy failed"))
		return
	}

	h.logger.InfoContext(ctx, "policy updated",
		"request_id", requestcontext.RequestID(ctx),
		"emergency_freeze", cfg.EmergencyFreeze,
	)
	shared.WriteJSON(w, http.StatusOK, toResponse(cfg))
}
