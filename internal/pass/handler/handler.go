// Package handler exposes the pass lifecycle endpoints: student
// applications, the public guardian decision link, and the warden queue.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"outpass/internal/pass/models"
	"outpass/internal/pass/service"
	"outpass/internal/platform/middleware"
	"outpass/internal/ratelimit"
	"outpass/internal/transport/http/shared"
	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	ApplyDay(ctx context.Context, in service.ApplyDayInput) (*models.Pass, error)
	ApplyHome(ctx context.Context, in service.ApplyHomeInput) (*models.Pass, error)
	GuardianDecide(ctx context.Context, plaintext string, action service.GuardianAction, reason string) (*models.Pass, error)
	WardenDecide(ctx context.Context, passID id.PassID, action service.WardenAction, reason string) (*models.Pass, error)
	Cancel(ctx context.Context, passID id.PassID) (*models.Pass, error)
	ListOwn(ctx context.Context) ([]*models.Pass, error)
	ListForWarden(ctx context.Context) ([]*models.Pass, error)
}

// Handler handles pass lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	passes       Service
	validate     *validator.Validate
	jwtValidator middleware.JWTValidator
	limiter      *ratelimit.Limiter
}

// New creates a new pass Handler. The guardian decision link is public, so
// it carries a per-client rate limit.
func New(passes Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		passes:       passes,
		validate:     validator.New(),
		jwtValidator: jwtValidator,
		limiter:      ratelimit.NewLimiter(30, time.Minute),
	}
}

// Register registers the pass routes with the chi router. The guardian
// decision link is public; possession of the emailed token is its auth.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleStudent))
		r.Post("/student/apply/day", h.handleApplyDay)
		r.Post("/student/apply/home", h.handleApplyHome)
		r.Get("/student/passes", h.handleListOwn)
		r.Put("/student/passes/{id}/cancel", h.handleCancel)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleWarden))
		r.Get("/warden/pass-requests", h.handleWardenQueue)
		r.Put("/warden/pass-requests/{id}", h.handleWardenDecide)
	})

	// Email clients open links with GET, so the action path answers both
	// methods. The action arrives in the body or as a query parameter.
	public := r.With(ratelimit.Middleware(h.limiter))
	public.Post("/public/pass/{token}/action", h.handleGuardianDecide)
	public.Get("/public/pass/{token}/action", h.handleGuardianDecide)
}

const dateLayout = "2006-01-02"

// ApplyDayRequest is a day pass application.
type ApplyDayRequest struct {
	Date        string `json:"date" validate:"required"`
	OutTime     string `json:"out_time" validate:"required"`
	InTime      string `json:"in_time" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=500"`
	Destination string `json:"destination" validate:"required,max=200"`
}

// ApplyHomeRequest is a home pass application.
type ApplyHomeRequest struct {
	FromDate    string `json:"from_date" validate:"required"`
	ToDate      string `json:"to_date" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=500"`
	Destination string `json:"destination" validate:"required,max=200"`
}

func (h *Handler) handleApplyDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyDayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "date must be %s", dateLayout))
		return
	}

	pass, err := h.passes.ApplyDay(ctx, service.ApplyDayInput{
		Date:        date,
		OutClock:    req.OutTime,
		InClock:     req.InTime,
		Reason:      req.Reason,
		Destination: req.Destination,
	})
	if err != nil {
		h.logFailure(ctx, "day pass application failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, pass)
}

func (h *Handler) handleApplyHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyHomeRequest
	if !h.decode(w, r, &req) {
		return
	}
	fromDate, err := time.Parse(dateLayout, req.FromDate)
	if err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "from_date must be %s", dateLayout))
		return
	}
	toDate, err := time.Parse(dateLayout, req.ToDate)
	if err != nil {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "to_date must be %s", dateLayout))
		return
	}

	pass, err := h.passes.ApplyHome(ctx, service.ApplyHomeInput{
		FromDate:    fromDate,
		ToDate:      toDate,
		Reason:      req.Reason,
		Destination: req.Destination,
	})
	if err != nil {
		h.logFailure(ctx, "home pass application failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, pass)
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	passes, err := h.passes.ListOwn(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "listing own passes failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"passes": passes})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	passID, err := id.ParsePassID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid pass id"))
		return
	}

	pass, err := h.passes.Cancel(r.Context(), passID)
	if err != nil {
		h.logFailure(r.Context(), "pass cancellation failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, pass)
}

// GuardianDecisionRequest carries a guardian's approve or reject action.
type GuardianDecisionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *Handler) handleGuardianDecide(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req GuardianDecisionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	query := r.URL.Query()
	if req.Action == "" {
		req.Action = query.Get("action")
	}
	if req.Reason == "" {
		req.Reason = query.Get("reason")
	}
	if req.Action == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "action is required"))
		return
	}

	pass, err := h.passes.GuardianDecide(r.Context(), token, service.GuardianAction(req.Action), req.Reason)
	if err != nil {
		h.logFailure(r.Context(), "guardian decision failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  pass.Status,
		"message": "decision recorded, thank you",
	})
}

func (h *Handler) handleWardenQueue(w http.ResponseWriter, r *http.Request) {
	passes, err := h.passes.ListForWarden(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "listing warden queue failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"requests": passes})
}

// WardenDecisionRequest carries a warden's approve or reject action.
type WardenDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) handleWardenDecide(w http.ResponseWriter, r *http.Request) {
	passID, err := id.ParsePassID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid pass id"))
		return
	}

	var req WardenDecisionRequest
	if !h.decode(w, r, &req) {
		return
	}

	pass, err := h.passes.WardenDecide(r.Context(), passID, service.WardenAction(req.Action), req.Reason)
	if err != nil {
		h.logFailure(r.Context(), "warden decision failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, pass)
}

// decode parses and validates a JSON request body, writing the error
// response itself when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "request failed validation"))
		return false
	}
	return true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
