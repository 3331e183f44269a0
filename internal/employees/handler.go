package employees

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hr/meridian-hr/internal/history"
	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// Handler exposes employee directory endpoints and account registration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	history   *history.Recorder
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, hist *history.Recorder) *Handler {
	return &Handler{logger: logger, service: service, history: hist, validator: validator.New()}
}

// MountRoutes registers employee routes. Account setup is reachable without
// a session because invited users have no credentials yet.
func (h *Handler) MountRoutes(r chi.Router, mw identity.Middleware) {
	r.Post("/account/setup", h.completeSetup)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Get("/employees", h.list)
		r.Get("/employees/{id}", h.show)
		r.Get("/employees/{id}/history", h.showHistory)
	})
}

type employeeResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	DivisionID *int64  `json:"division_id,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	Terminated *string `json:"terminated_at,omitempty"`
}

func toEmployeeResponse(emp Employee) employeeResponse {
	resp := employeeResponse{
		ID:         emp.ID,
		Name:       emp.Name,
		Email:      emp.Email,
		Role:       emp.RoleName,
		DivisionID: emp.DivisionID,
		Status:     string(emp.Status),
		CreatedAt:  emp.CreatedAt.Format(time.RFC3339),
	}
	if emp.TerminatedAt != nil {
		at := emp.TerminatedAt.Format(time.RFC3339)
		resp.Terminated = &at
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := make([]employeeResponse, 0, len(all))
	for _, emp := range all {
		resp = append(resp, toEmployeeResponse(emp))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	emp, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "employee not found")
			return
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(emp))
}

type historyEntryResponse struct {
	Event         string    `json:"event"`
	OldRole       *string   `json:"old_role,omitempty"`
	NewRole       *string   `json:"new_role,omitempty"`
	OldDivisionID *int64    `json:"old_division_id,omitempty"`
	NewDivisionID *int64    `json:"new_division_id,omitempty"`
	OldStatus     *string   `json:"old_status,omitempty"`
	NewStatus     *string   `json:"new_status,omitempty"`
	EffectiveDate time.Time `json:"effective_date"`
	Reason        string    `json:"reason,omitempty"`
	CreatedBy     int64     `json:"created_by"`
}

func (h *Handler) showHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return
	}
	entries, err := h.history.ListForEmployee(r.Context(), id)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, historyEntryResponse{
			Event:         e.Event,
			OldRole:       e.OldRole,
			NewRole:       e.NewRole,
			OldDivisionID: e.OldDivisionID,
			NewDivisionID: e.NewDivisionID,
			OldStatus:     e.OldStatus,
			NewStatus:     e.NewStatus,
			EffectiveDate: e.EffectiveDate,
			Reason:        e.Reason,
			CreatedBy:     e.CreatedBy,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type setupRequest struct {
	Token    string `json:"token" validate:"required,uuid4"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) completeSetup(w http.ResponseWriter, r *http.Request) {
	var form setupRequest
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	emp, err := h.service.CompleteSetup(r.Context(), form.Token, form.Password)
	if err != nil {
		if errors.Is(err, ErrSetupTokenInvalid) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Token", "setup token invalid or expired")
			return
		}
		h.logger.Error("complete account setup", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toEmployeeResponse(emp))
}
