package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gencare-scheduler/internal/application"
)

type overrideService interface {
	CreateOverride(ctx context.Context, params application.CreateOverrideParams) (application.Override, error)
	UpdateOverride(ctx context.Context, params application.UpdateOverrideParams) (application.Override, error)
	GetOverride(ctx context.Context, principal application.Principal, overrideID string) (application.Override, error)
	ListConsultantOverrides(ctx context.Context, params application.ListOverridesParams) ([]application.Override, error)
	DeleteOverride(ctx context.Context, principal application.Principal, overrideID string) error
}

// OverrideHandler serves per-date schedule override endpoints.
type OverrideHandler struct {
	service   overrideService
	responder responder
	logger    *slog.Logger
}

func NewOverrideHandler(service overrideService, logger *slog.Logger) *OverrideHandler {
	base := defaultLogger(logger)
	return &OverrideHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *OverrideHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "OverrideHandler", operation, attrs...)
}

func (h *OverrideHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode override request", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "consultant_id", req.ConsultantID)

	override, err := h.service.CreateOverride(r.Context(), application.CreateOverrideParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "override creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("override_id", override.ID).InfoContext(r.Context(), "override created")
	h.responder.success(r.Context(), w, http.StatusCreated, "schedule override created", toOverrideDTO(override))
}

func (h *OverrideHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	overrideID := pathID(r)
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "override_id", overrideID)

	override, err := h.service.GetOverride(r.Context(), principal, overrideID)
	if err != nil {
		logger.ErrorContext(r.Context(), "override lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.success(r.Context(), w, http.StatusOK, "schedule override retrieved", toOverrideDTO(override))
}

func (h *OverrideHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	overrideID := pathID(r)

	var req overridePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "override_id", overrideID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode override update", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "override_id", overrideID)

	override, err := h.service.UpdateOverride(r.Context(), application.UpdateOverrideParams{
		Principal:  principal,
		OverrideID: overrideID,
		Patch:      req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "override update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "override updated")
	h.responder.success(r.Context(), w, http.StatusOK, "schedule override updated", toOverrideDTO(override))
}

func (h *OverrideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	overrideID := pathID(r)
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "override_id", overrideID)

	if err := h.service.DeleteOverride(r.Context(), principal, overrideID); err != nil {
		logger.ErrorContext(r.Context(), "override delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "override deleted")
	h.responder.success(r.Context(), w, http.StatusOK, "schedule override deleted", nil)
}

// ListForConsultant handles GET /consultants/{id}/overrides.
func (h *OverrideHandler) ListForConsultant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListOverridesParams{
		Principal:    principal,
		ConsultantID: pathID(r),
		StartDate:    queryValue(r, "start_date"),
		EndDate:      queryValue(r, "end_date"),
	}
	logger := h.log(r.Context(), "ListForConsultant", "principal_id", principal.UserID, "consultant_id", params.ConsultantID)

	overrides, err := h.service.ListConsultantOverrides(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "override list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(overrides)).InfoContext(r.Context(), "overrides listed")
	h.responder.success(r.Context(), w, http.StatusOK, "schedule overrides retrieved", toOverrideDTOs(overrides))
}

type overrideRequest struct {
	ConsultantID string  `json:"consultant_id"`
	OverrideDate string  `json:"override_date"`
	IsAvailable  bool    `json:"is_available"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	BreakStart   *string `json:"break_start"`
	BreakEnd     *string `json:"break_end"`
	Reason       string  `json:"reason"`
}

func (r overrideRequest) toInput() application.OverrideInput {
	return application.OverrideInput{
		ConsultantID: strings.TrimSpace(r.ConsultantID),
		OverrideDate: strings.TrimSpace(r.OverrideDate),
		IsAvailable:  r.IsAvailable,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		BreakStart:   r.BreakStart,
		BreakEnd:     r.BreakEnd,
		Reason:       strings.TrimSpace(r.Reason),
	}
}

type overridePatchRequest struct {
	OverrideDate *string `json:"override_date"`
	IsAvailable  *bool   `json:"is_available"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	BreakStart   *string `json:"break_start"`
	BreakEnd     *string `json:"break_end"`
	Reason       *string `json:"reason"`
}

func (r overridePatchRequest) toPatch() application.OverridePatch {
	return application.OverridePatch{
		OverrideDate: r.OverrideDate,
		IsAvailable:  r.IsAvailable,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		BreakStart:   r.BreakStart,
		BreakEnd:     r.BreakEnd,
		Reason:       r.Reason,
	}
}
