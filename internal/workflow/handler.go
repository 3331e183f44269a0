package workflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-hr/meridian-hr/internal/identity"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Handler exposes the workflow over JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}

	var form submitRequest
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	req, steps, err := h.service.Submit(r.Context(), principal, SubmitInput{
		Type:             RequestType(form.Type),
		TargetUserID:     form.TargetUserID,
		RequesterName:    form.RequesterName,
		Email:            form.Email,
		RequestedRole:    form.RequestedRole,
		TargetDivisionID: form.TargetDivisionID,
		Notes:            form.Notes,
	})
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestResponse(req, steps))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return
	}

	var (
		req   Request
		steps []ApprovalStep
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		req, err = h.service.Request(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		steps, err = h.service.Steps(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		respondWorkflowError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(req, steps))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := identity.PrincipalFromContext(r.Context())

	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Type:   RequestType(r.URL.Query().Get("type")),
	}
	if r.URL.Query().Get("mine") == "true" {
		filter.RequestedBy = principal.EmployeeID
	}

	requests, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	resp := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, toRequestResponse(req, nil))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	requests, err := h.service.Inbox(r.Context(), principal)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	resp := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, toRequestResponse(req, nil))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

type decisionFunc func(ctx context.Context, actor identity.Principal, stepID int64, comment string) (Request, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	stepID, err := strconv.ParseInt(chi.URLParam(r, "stepID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid step id")
		return
	}

	var form decisionRequest
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	req, err := fn(r.Context(), principal, stepID, form.Comment)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	steps, err := h.service.Steps(r.Context(), req.ID)
	if err != nil {
		h.logger.Warn("load steps after decision", slog.Int64("request_id", req.ID), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(req, steps))
}

func respondWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedType):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotApprover):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyProcessed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrStepLocked):
		httpx.Problem(w, http.StatusConflict, "Not Yet Unlocked", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
