package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gencare-scheduler/internal/application"
)

type weeklyScheduleService interface {
	CreateSchedule(ctx context.Context, params application.CreateWeeklyScheduleParams) (application.WeeklySchedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateWeeklyScheduleParams) (application.WeeklySchedule, error)
	GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.WeeklySchedule, error)
	ListConsultantSchedules(ctx context.Context, params application.ListWeeklySchedulesParams) ([]application.WeeklySchedule, error)
	ListSchedules(ctx context.Context, params application.ListWeeklySchedulesParams) ([]application.WeeklySchedule, error)
	DeleteSchedule(ctx context.Context, principal application.Principal, scheduleID string) error
	CopySchedule(ctx context.Context, params application.CopyWeeklyScheduleParams) (application.WeeklySchedule, error)
}

// WeeklyScheduleHandler serves weekly template endpoints.
type WeeklyScheduleHandler struct {
	service   weeklyScheduleService
	responder responder
	logger    *slog.Logger
}

func NewWeeklyScheduleHandler(service weeklyScheduleService, logger *slog.Logger) *WeeklyScheduleHandler {
	base := defaultLogger(logger)
	return &WeeklyScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WeeklyScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WeeklyScheduleHandler", operation, attrs...)
}

func (h *WeeklyScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req weeklyScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode weekly schedule request", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "consultant_id", req.ConsultantID)

	schedule, err := h.service.CreateSchedule(r.Context(), application.CreateWeeklyScheduleParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("schedule_id", schedule.ID).InfoContext(r.Context(), "weekly schedule created")
	h.responder.success(r.Context(), w, http.StatusCreated, "weekly schedule created", toWeeklyScheduleDTO(schedule))
}

func (h *WeeklyScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	scheduleID := pathID(r)
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "schedule_id", scheduleID)

	schedule, err := h.service.GetSchedule(r.Context(), principal, scheduleID)
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.success(r.Context(), w, http.StatusOK, "weekly schedule retrieved", toWeeklyScheduleDTO(schedule))
}

func (h *WeeklyScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	scheduleID := pathID(r)

	var req weeklySchedulePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "schedule_id", scheduleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode weekly schedule update", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "schedule_id", scheduleID)

	schedule, err := h.service.UpdateSchedule(r.Context(), application.UpdateWeeklyScheduleParams{
		Principal:  principal,
		ScheduleID: scheduleID,
		Patch:      req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "weekly schedule updated")
	h.responder.success(r.Context(), w, http.StatusOK, "weekly schedule updated", toWeeklyScheduleDTO(schedule))
}

func (h *WeeklyScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	scheduleID := pathID(r)
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "schedule_id", scheduleID)

	if err := h.service.DeleteSchedule(r.Context(), principal, scheduleID); err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "weekly schedule deleted")
	h.responder.success(r.Context(), w, http.StatusOK, "weekly schedule deleted", nil)
}

func (h *WeeklyScheduleHandler) Copy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req copyScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Copy", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode copy request", "error", err)
		h.responder.fail(r.Context(), w, http.StatusBadRequest, errBadRequestBody.Error(), nil)
		return
	}

	logger := h.log(r.Context(), "Copy", "principal_id", principal.UserID, "source_schedule_id", req.SourceScheduleID)

	schedule, err := h.service.CopySchedule(r.Context(), application.CopyWeeklyScheduleParams{
		Principal:           principal,
		SourceScheduleID:    strings.TrimSpace(req.SourceScheduleID),
		TargetWeekStartDate: strings.TrimSpace(req.TargetWeekStartDate),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule copy failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("schedule_id", schedule.ID).InfoContext(r.Context(), "weekly schedule copied")
	h.responder.success(r.Context(), w, http.StatusCreated, "weekly schedule copied", toWeeklyScheduleDTO(schedule))
}

// List handles GET /weekly-schedules for staff and administrators.
func (h *WeeklyScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListWeeklySchedulesParams{
		Principal:    principal,
		ConsultantID: queryValue(r, "consultant_id"),
		StartDate:    queryValue(r, "start_date"),
		EndDate:      queryValue(r, "end_date"),
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "consultant_id", params.ConsultantID)

	schedules, err := h.service.ListSchedules(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "weekly schedule list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(schedules)).InfoContext(r.Context(), "weekly schedules listed")
	h.responder.success(r.Context(), w, http.StatusOK, "weekly schedules retrieved", toWeeklyScheduleDTOs(schedules))
}

// ListForConsultant handles GET /consultants/{id}/weekly-schedules.
func (h *WeeklyScheduleHandler) ListForConsultant(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListWeeklySchedulesParams{
		Principal:    principal,
		ConsultantID: pathID(r),
		StartDate:    queryValue(r, "start_date"),
		EndDate:      queryValue(r, "end_date"),
	}
	logger := h.log(r.Context(), "ListForConsultant", "principal_id", principal.UserID, "consultant_id", params.ConsultantID)

	schedules, err := h.service.ListConsultantSchedules(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "consultant schedule list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(schedules)).InfoContext(r.Context(), "consultant schedules listed")
	h.responder.success(r.Context(), w, http.StatusOK, "weekly schedules retrieved", toWeeklyScheduleDTOs(schedules))
}

type workingDayRequest struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	BreakStart  *string `json:"break_start"`
	BreakEnd    *string `json:"break_end"`
	IsAvailable bool    `json:"is_available"`
}

func toWorkingDayInputs(days map[string]workingDayRequest) map[string]application.WorkingDayInput {
	if days == nil {
		return nil
	}
	out := make(map[string]application.WorkingDayInput, len(days))
	for name, day := range days {
		out[strings.ToLower(strings.TrimSpace(name))] = application.WorkingDayInput{
			StartTime:   strings.TrimSpace(day.StartTime),
			EndTime:     strings.TrimSpace(day.EndTime),
			BreakStart:  day.BreakStart,
			BreakEnd:    day.BreakEnd,
			IsAvailable: day.IsAvailable,
		}
	}
	return out
}

type weeklyScheduleRequest struct {
	ConsultantID        string                       `json:"consultant_id"`
	WeekStartDate       string                       `json:"week_start_date"`
	WorkingDays         map[string]workingDayRequest `json:"working_days"`
	DefaultSlotDuration *int                         `json:"default_slot_duration"`
	Notes               *string                      `json:"notes"`
}

func (r weeklyScheduleRequest) toInput() application.WeeklyScheduleInput {
	return application.WeeklyScheduleInput{
		ConsultantID:        strings.TrimSpace(r.ConsultantID),
		WeekStartDate:       strings.TrimSpace(r.WeekStartDate),
		WorkingDays:         toWorkingDayInputs(r.WorkingDays),
		DefaultSlotDuration: r.DefaultSlotDuration,
		Notes:               r.Notes,
	}
}

type weeklySchedulePatchRequest struct {
	WeekStartDate       *string                      `json:"week_start_date"`
	WorkingDays         map[string]workingDayRequest `json:"working_days"`
	DefaultSlotDuration *int                         `json:"default_slot_duration"`
	Notes               *string                      `json:"notes"`
}

func (r weeklySchedulePatchRequest) toPatch() application.WeeklySchedulePatch {
	return application.WeeklySchedulePatch{
		WeekStartDate:       r.WeekStartDate,
		WorkingDays:         toWorkingDayInputs(r.WorkingDays),
		DefaultSlotDuration: r.DefaultSlotDuration,
		Notes:               r.Notes,
	}
}

type copyScheduleRequest struct {
	SourceScheduleID    string `json:"source_schedule_id"`
	TargetWeekStartDate string `json:"target_week_start_date"`
}
