package divisions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// Handler exposes division lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers division routes.
func (h *Handler) MountRoutes(r chi.Router, mw identity.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated)
		r.Get("/divisions", h.list)
		r.Get("/divisions/{id}", h.show)
	})
}

type divisionResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := make([]divisionResponse, 0, len(all))
	for _, d := range all {
		resp = append(resp, divisionResponse{ID: d.ID, Name: d.Name, ManagerID: d.ManagerID})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid division id")
		return
	}
	division, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "division not found")
			return
		}
		h.logger.Error("load division", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, divisionResponse{ID: division.ID, Name: division.Name, ManagerID: division.ManagerID})
}
