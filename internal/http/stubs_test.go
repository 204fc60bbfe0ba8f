package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/availability"
)

var (
	staffPrincipal    = application.Principal{UserID: "staff-1", Role: application.RoleStaff, Name: "Staff"}
	customerPrincipal = application.Principal{UserID: "customer-1", Role: application.RoleCustomer, Name: "Customer"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnvelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      json.RawMessage   `json:"data"`
	Errors    map[string]string `json:"errors"`
	Timestamp string            `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var body testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", rec.Body.String(), err)
	}
	if body.Timestamp == "" {
		t.Fatalf("expected timestamp in envelope: %s", rec.Body.String())
	}
	return body
}

func decodeData(t *testing.T, body testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(body.Data, dst); err != nil {
		t.Fatalf("failed to decode data %q: %v", string(body.Data), err)
	}
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withPrincipal(req *http.Request, principal application.Principal) *http.Request {
	return req.WithContext(ContextWithPrincipal(req.Context(), principal))
}

func tod(value string) availability.TimeOfDay {
	return availability.MustParseTimeOfDay(value)
}

func todPtr(value string) *availability.TimeOfDay {
	t := tod(value)
	return &t
}

func mustDate(value string) time.Time {
	d, err := availability.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

type authServiceStub struct {
	result  application.AuthenticateResult
	err     error
	params  application.AuthenticateParams
	revoked []string
}

func (s *authServiceStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.params = params
	return s.result, s.err
}

func (s *authServiceStub) RevokeSession(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return s.err
}

type userServiceStub struct {
	user      application.User
	users     []application.User
	err       error
	created   application.CreateUserParams
	updated   application.UpdateUserParams
	deletedID string
}

func (s *userServiceStub) CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error) {
	s.created = params
	return s.user, s.err
}

func (s *userServiceStub) GetUser(ctx context.Context, principal application.Principal, userID string) (application.User, error) {
	return s.user, s.err
}

func (s *userServiceStub) UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error) {
	s.updated = params
	return s.user, s.err
}

func (s *userServiceStub) DeleteUser(ctx context.Context, principal application.Principal, userID string) error {
	s.deletedID = userID
	return s.err
}

func (s *userServiceStub) ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error) {
	return s.users, s.err
}

type scheduleServiceStub struct {
	schedule  application.WeeklySchedule
	schedules []application.WeeklySchedule
	err       error
	created   application.CreateWeeklyScheduleParams
	updated   application.UpdateWeeklyScheduleParams
	copied    application.CopyWeeklyScheduleParams
	listed    application.ListWeeklySchedulesParams
	deletedID string
}

func (s *scheduleServiceStub) CreateSchedule(ctx context.Context, params application.CreateWeeklyScheduleParams) (application.WeeklySchedule, error) {
	s.created = params
	return s.schedule, s.err
}

func (s *scheduleServiceStub) UpdateSchedule(ctx context.Context, params application.UpdateWeeklyScheduleParams) (application.WeeklySchedule, error) {
	s.updated = params
	return s.schedule, s.err
}

func (s *scheduleServiceStub) GetSchedule(ctx context.Context, principal application.Principal, scheduleID string) (application.WeeklySchedule, error) {
	return s.schedule, s.err
}

func (s *scheduleServiceStub) ListConsultantSchedules(ctx context.Context, params application.ListWeeklySchedulesParams) ([]application.WeeklySchedule, error) {
	s.listed = params
	return s.schedules, s.err
}

func (s *scheduleServiceStub) ListSchedules(ctx context.Context, params application.ListWeeklySchedulesParams) ([]application.WeeklySchedule, error) {
	s.listed = params
	return s.schedules, s.err
}

func (s *scheduleServiceStub) DeleteSchedule(ctx context.Context, principal application.Principal, scheduleID string) error {
	s.deletedID = scheduleID
	return s.err
}

func (s *scheduleServiceStub) CopySchedule(ctx context.Context, params application.CopyWeeklyScheduleParams) (application.WeeklySchedule, error) {
	s.copied = params
	return s.schedule, s.err
}

type overrideServiceStub struct {
	override  application.Override
	overrides []application.Override
	err       error
	created   application.CreateOverrideParams
	updated   application.UpdateOverrideParams
	listed    application.ListOverridesParams
}

func (s *overrideServiceStub) CreateOverride(ctx context.Context, params application.CreateOverrideParams) (application.Override, error) {
	s.created = params
	return s.override, s.err
}

func (s *overrideServiceStub) UpdateOverride(ctx context.Context, params application.UpdateOverrideParams) (application.Override, error) {
	s.updated = params
	return s.override, s.err
}

func (s *overrideServiceStub) GetOverride(ctx context.Context, principal application.Principal, overrideID string) (application.Override, error) {
	return s.override, s.err
}

func (s *overrideServiceStub) ListConsultantOverrides(ctx context.Context, params application.ListOverridesParams) ([]application.Override, error) {
	s.listed = params
	return s.overrides, s.err
}

func (s *overrideServiceStub) DeleteOverride(ctx context.Context, principal application.Principal, overrideID string) error {
	return s.err
}

type availabilityServiceStub struct {
	day       application.DayAvailability
	week      application.WeeklyAvailability
	err       error
	dayParams application.DayAvailabilityParams
	weekQuery application.WeeklyAvailabilityParams
}

func (s *availabilityServiceStub) DayAvailability(ctx context.Context, params application.DayAvailabilityParams) (application.DayAvailability, error) {
	s.dayParams = params
	return s.day, s.err
}

func (s *availabilityServiceStub) WeeklyAvailability(ctx context.Context, params application.WeeklyAvailabilityParams) (application.WeeklyAvailability, error) {
	s.weekQuery = params
	return s.week, s.err
}

type appointmentServiceStub struct {
	appointment  application.Appointment
	appointments []application.Appointment
	err          error
	booked       application.BookAppointmentParams
	cancelledID  string
	confirmedID  string
}

func (s *appointmentServiceStub) BookAppointment(ctx context.Context, params application.BookAppointmentParams) (application.Appointment, error) {
	s.booked = params
	return s.appointment, s.err
}

func (s *appointmentServiceStub) CancelAppointment(ctx context.Context, principal application.Principal, appointmentID string) (application.Appointment, error) {
	s.cancelledID = appointmentID
	return s.appointment, s.err
}

func (s *appointmentServiceStub) ConfirmAppointment(ctx context.Context, principal application.Principal, appointmentID string) (application.Appointment, error) {
	s.confirmedID = appointmentID
	return s.appointment, s.err
}

func (s *appointmentServiceStub) ListConsultantAppointments(ctx context.Context, params application.ListAppointmentsParams) ([]application.Appointment, error) {
	return s.appointments, s.err
}

type pingerStub struct {
	err error
}

func (p pingerStub) Ping(ctx context.Context) error {
	return p.err
}

type observerStub struct {
	methods     []string
	routes      []string
	statuses    []int
	rateLimited int
}

func (o *observerStub) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	o.methods = append(o.methods, method)
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func (o *observerStub) RateLimited() {
	o.rateLimited++
}
