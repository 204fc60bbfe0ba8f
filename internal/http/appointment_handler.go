package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gencare-scheduler/internal/application"
)

type appointmentService interface {
	BookAppointment(ctx context.Context, params application.BookAppointmentParams) (application.Appointment, error)
	CancelAppointment(ctx context.Context, principal application.Principal, appointmentID string) (application.Appointment, error)
	ConfirmAppointment(ctx context.Context, principal application.Principal, appointmentID string) (application.Appointment, error)
	ListConsultantAppointments(ctx context.Context, params application.ListAppointmentsParams) ([]application.Appointment, error)
}

// AppointmentHandler serves booking endpoints.
type AppointmentHandler struct {
	service   appointmentService
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, logger *slog.Logger) *AppointmentHandler {
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Book", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Book", "principal_id", principal.UserID, "consultant_id", req.ConsultantID, "date", req.AppointmentDate)

	appointment, err := h.service.BookAppointment(r.Context(), application.BookAppointmentParams{
		Principal:    principal,
		ConsultantID: strings.TrimSpace(req.ConsultantID),
		CustomerID:   strings.TrimSpace(req.CustomerID),
		Date:         strings.TrimSpace(req.AppointmentDate),
		StartTime:    strings.TrimSpace(req.StartTime),
		EndTime:      strings.TrimSpace(req.EndTime),
		Notes:        req.Notes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("appointment_id", appointment.ID).InfoContext(r.Context(), "appointment booked")
	h.responder.success(r.Context(), w, http.StatusCreated, "appointment booked", toAppointmentDTO(appointment))
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel", "appointment cancelled", func(ctx context.Context, principal application.Principal, id string) (application.Appointment, error) {
		return h.service.CancelAppointment(ctx, principal, id)
	})
}

func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Confirm", "appointment confirmed", func(ctx context.Context, principal application.Principal, id string) (application.Appointment, error) {
		return h.service.ConfirmAppointment(ctx, principal, id)
	})
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, operation, message string, apply func(context.Context, application.Principal, string) (application.Appointment, error)) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	appointmentID := pathID(r)
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "appointment_id", appointmentID)

	appointment, err := apply(r.Context(), principal, appointmentID)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", appointment.Status).InfoContext(r.Context(), message)
	h.responder.success(r.Context(), w, http.StatusOK, message, toAppointmentDTO(appointment))
}

// ListForConsultant handles GET /consultants/{id}/appointments.
func (h *AppointmentHandler) ListForConsultant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListAppointmentsParams{
		Principal:    principal,
		ConsultantID: pathID(r),
		StartDate:    queryValue(r, "start_date"),
		EndDate:      queryValue(r, "end_date"),
	}
	logger := h.log(r.Context(), "ListForConsultant", "principal_id", principal.UserID, "consultant_id", params.ConsultantID)

	appointments, err := h.service.ListConsultantAppointments(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(appointments)).InfoContext(r.Context(), "appointments listed")
	h.responder.success(r.Context(), w, http.StatusOK, "appointments retrieved", toAppointmentDTOs(appointments))
}

type bookAppointmentRequest struct {
	ConsultantID    string  `json:"consultant_id"`
	CustomerID      string  `json:"customer_id"`
	AppointmentDate string  `json:"appointment_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Notes           *string `json:"notes"`
}
