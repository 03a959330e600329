// Package handler exposes the gate verification endpoints used by security
// guards.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"outpass/internal/gate/models"
	"outpass/internal/gate/service"
	"outpass/internal/platform/middleware"
	"outpass/internal/transport/http/shared"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the gate operations the handler needs.
type Service interface {
	VerifyScan(ctx context.Context, scanType models.ScanType, payload, location string) (*service.Result, error)
	ListRecentLogs(ctx context.Context, limit int) ([]*models.GateLog, error)
}

// Handler handles gate scan endpoints.
type Handler struct {
	logger       *slog.Logger
	gate         Service
	validate     *validator.Validate
	jwtValidator middleware.JWTValidator
}

// New creates a new gate Handler.
func New(gate Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		gate:         gate,
		validate:     validator.New(),
		jwtValidator: jwtValidator,
	}
}

// Register registers the gate routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleGuard))
		r.Post("/gate/verify", h.handleVerify)
		r.Get("/gate/logs", h.handleLogs)
	})
}

// VerifyRequest is the scan submission. QRData may be the bare identifier or
// the JSON envelope a scanner app produces.
type VerifyRequest struct {
	ScanType string `json:"scan_type" validate:"required,oneof=CHECK_OUT CHECK_IN"`
	QRData   string `json:"qr_data" validate:"required"`
	Location string `json:"location" validate:"max=120"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.WarnContext(ctx, "invalid verify request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "scan_type must be CHECK_OUT or CHECK_IN and qr_data is required"))
		return
	}

	result, err := h.gate.VerifyScan(ctx, models.ScanType(req.ScanType), req.QRData, req.Location)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "gate verification failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		} else {
			h.logger.WarnContext(ctx, "gate scan denied",
				"request_id", requestID,
				"scan_type", req.ScanType,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	logs, err := h.gate.ListRecentLogs(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list gate logs",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
