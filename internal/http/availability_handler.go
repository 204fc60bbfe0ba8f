package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/gencare-scheduler/internal/application"
)

type availabilityService interface {
	DayAvailability(ctx context.Context, params application.DayAvailabilityParams) (application.DayAvailability, error)
	WeeklyAvailability(ctx context.Context, params application.WeeklyAvailabilityParams) (application.WeeklyAvailability, error)
}

// AvailabilityHandler serves computed slot views for a consultant.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Day handles GET /consultants/{id}/availability?date=YYYY-MM-DD.
func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.DayAvailabilityParams{
		Principal:    principal,
		ConsultantID: pathID(r),
		Date:         queryValue(r, "date"),
	}
	logger := h.log(r.Context(), "Day", "principal_id", principal.UserID, "consultant_id", params.ConsultantID, "date", params.Date)

	day, err := h.service.DayAvailability(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "day availability failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("available_slots", len(day.AvailableSlots)).InfoContext(r.Context(), "day availability computed")
	h.responder.success(r.Context(), w, http.StatusOK, "availability retrieved", toDayAvailabilityDTO(day))
}

// Week handles GET /consultants/{id}/weekly-availability?week_start_date=YYYY-MM-DD.
func (h *AvailabilityHandler) Week(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.WeeklyAvailabilityParams{
		Principal:     principal,
		ConsultantID:  pathID(r),
		WeekStartDate: queryValue(r, "week_start_date"),
	}
	logger := h.log(r.Context(), "Week", "principal_id", principal.UserID, "consultant_id", params.ConsultantID, "week_start_date", params.WeekStartDate)

	week, err := h.service.WeeklyAvailability(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly availability failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("available_slots", week.Summary.TotalAvailableSlots).InfoContext(r.Context(), "weekly availability computed")
	h.responder.success(r.Context(), w, http.StatusOK, "weekly availability retrieved", toWeeklyAvailabilityDTO(week))
}
