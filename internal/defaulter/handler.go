package defaulter

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"outpass/internal/platform/middleware"
	"outpass/internal/transport/http/shared"
	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
	"outpass/pkg/requestcontext"
)

// Handler exposes the warden discipline endpoints.
type Handler struct {
	logger       *slog.Logger
	defaulters   *Service
	jwtValidator middleware.JWTValidator
}

func NewHandler(defaulters *Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		defaulters:   defaulters,
		jwtValidator: jwtValidator,
	}
}

// Register registers the defaulter routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, requestcontext.RoleWarden))
		r.Get("/warden/defaulters", h.handleList)
		r.Put("/warden/defaulters/{id}/clear", h.handleClear)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.defaulters.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing defaulters failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"defaulters": records})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseDefaulterID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid defaulter record id"))
		return
	}

	record, err := h.defaulters.Clear(r.Context(), recordID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "clearing defaulter failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"record_id", recordID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}
