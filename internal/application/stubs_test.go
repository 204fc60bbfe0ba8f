package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/gencare-scheduler/internal/availability"
)

var (
	staffPrincipal      = Principal{UserID: "staff-1", Role: RoleStaff, Name: "Sam Staff"}
	adminPrincipal      = Principal{UserID: "admin-1", Role: RoleAdmin, Name: "Ada Admin"}
	consultantPrincipal = Principal{UserID: "consultant-1", Role: RoleConsultant, Name: "Cora Consultant"}
	otherConsultant     = Principal{UserID: "consultant-2", Role: RoleConsultant, Name: "Otto Consultant"}
	customerPrincipal   = Principal{UserID: "customer-1", Role: RoleCustomer, Name: "Cass Customer"}
)

// fixedClock returns a now func pinned to a single instant.
func fixedClock() func() time.Time {
	at := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func date(value string) time.Time {
	d, err := availability.ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

func tod(value string) availability.TimeOfDay {
	return availability.MustParseTimeOfDay(value)
}

func todPtr(value string) *availability.TimeOfDay {
	t := tod(value)
	return &t
}

func strPtr(value string) *string {
	return &value
}

// directoryStub implements UserDirectory over a fixed user set.
type directoryStub struct {
	users map[string]User
	err   error
}

func newDirectoryStub(users ...User) *directoryStub {
	d := &directoryStub{users: make(map[string]User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func defaultDirectory() *directoryStub {
	return newDirectoryStub(
		User{ID: "consultant-1", DisplayName: "Cora Consultant", Role: RoleConsultant},
		User{ID: "consultant-2", DisplayName: "Otto Consultant", Role: RoleConsultant},
		User{ID: "customer-1", DisplayName: "Cass Customer", Role: RoleCustomer},
		User{ID: "customer-2", DisplayName: "Cole Customer", Role: RoleCustomer},
		User{ID: "staff-1", DisplayName: "Sam Staff", Role: RoleStaff},
	)
}

func (d *directoryStub) DisplayName(ctx context.Context, userID string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	u, ok := d.users[userID]
	if !ok {
		return "", ErrNotFound
	}
	return u.DisplayName, nil
}

func (d *directoryStub) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]string)
	for _, id := range userIDs {
		if u, ok := d.users[id]; ok {
			out[id] = u.DisplayName
		}
	}
	return out, nil
}

func (d *directoryStub) Consultant(ctx context.Context, consultantID string) (User, error) {
	if d.err != nil {
		return User{}, d.err
	}
	u, ok := d.users[consultantID]
	if !ok || u.Role != RoleConsultant {
		return User{}, describe(ErrNotFound, "consultant not found")
	}
	return u, nil
}

// scheduleRepoStub is an in-memory WeeklyScheduleRepository enforcing the
// (consultant, week) uniqueness and the delete guard.
type scheduleRepoStub struct {
	byID         map[string]WeeklySchedule
	appointments *appointmentRepoStub
	err          error
}

func newScheduleRepoStub() *scheduleRepoStub {
	return &scheduleRepoStub{byID: make(map[string]WeeklySchedule)}
}

func (r *scheduleRepoStub) taken(schedule WeeklySchedule) bool {
	for id, existing := range r.byID {
		if id != schedule.ID && existing.ConsultantID == schedule.ConsultantID && existing.WeekStartDate.Equal(schedule.WeekStartDate) {
			return true
		}
	}
	return false
}

func (r *scheduleRepoStub) CreateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error {
	if r.err != nil {
		return r.err
	}
	if r.taken(schedule) {
		return ErrAlreadyExists
	}
	r.byID[schedule.ID] = schedule
	return nil
}

func (r *scheduleRepoStub) UpdateWeeklySchedule(ctx context.Context, schedule WeeklySchedule) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byID[schedule.ID]; !ok {
		return ErrNotFound
	}
	if r.taken(schedule) {
		return ErrAlreadyExists
	}
	r.byID[schedule.ID] = schedule
	return nil
}

func (r *scheduleRepoStub) GetWeeklySchedule(ctx context.Context, id string) (WeeklySchedule, error) {
	if r.err != nil {
		return WeeklySchedule{}, r.err
	}
	s, ok := r.byID[id]
	if !ok {
		return WeeklySchedule{}, ErrNotFound
	}
	return s, nil
}

func (r *scheduleRepoStub) FindWeeklyScheduleByWeek(ctx context.Context, consultantID string, weekStart time.Time) (WeeklySchedule, error) {
	if r.err != nil {
		return WeeklySchedule{}, r.err
	}
	for _, s := range r.byID {
		if s.ConsultantID == consultantID && s.WeekStartDate.Equal(weekStart) {
			return s, nil
		}
	}
	return WeeklySchedule{}, ErrNotFound
}

func (r *scheduleRepoStub) ListWeeklySchedules(ctx context.Context, filter WeeklyScheduleFilter) ([]WeeklySchedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []WeeklySchedule
	for _, s := range r.byID {
		if filter.ConsultantID != "" && s.ConsultantID != filter.ConsultantID {
			continue
		}
		if !filter.WeekStart.Contains(s.WeekStartDate) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStartDate.Before(out[j].WeekStartDate) })
	return out, nil
}

func (r *scheduleRepoStub) DeleteWeeklySchedule(ctx context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	s, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if r.appointments != nil {
		for _, a := range r.appointments.byID {
			if a.ConsultantID == s.ConsultantID && a.Status != AppointmentCancelled &&
				!a.AppointmentDate.Before(s.WeekStartDate) && !a.AppointmentDate.After(s.WeekEndDate) {
				return ErrConflict
			}
		}
	}
	delete(r.byID, id)
	return nil
}

// overrideRepoStub is an in-memory OverrideRepository enforcing (consultant, date) uniqueness.
type overrideRepoStub struct {
	byID map[string]Override
	err  error
}

func newOverrideRepoStub() *overrideRepoStub {
	return &overrideRepoStub{byID: make(map[string]Override)}
}

func (r *overrideRepoStub) taken(o Override) bool {
	for id, existing := range r.byID {
		if id != o.ID && existing.ConsultantID == o.ConsultantID && existing.OverrideDate.Equal(o.OverrideDate) {
			return true
		}
	}
	return false
}

func (r *overrideRepoStub) CreateOverride(ctx context.Context, o Override) error {
	if r.err != nil {
		return r.err
	}
	if r.taken(o) {
		return ErrAlreadyExists
	}
	r.byID[o.ID] = o
	return nil
}

func (r *overrideRepoStub) UpdateOverride(ctx context.Context, o Override) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byID[o.ID]; !ok {
		return ErrNotFound
	}
	if r.taken(o) {
		return ErrAlreadyExists
	}
	r.byID[o.ID] = o
	return nil
}

func (r *overrideRepoStub) GetOverride(ctx context.Context, id string) (Override, error) {
	o, ok := r.byID[id]
	if !ok {
		return Override{}, ErrNotFound
	}
	return o, nil
}

func (r *overrideRepoStub) FindOverrideByDate(ctx context.Context, consultantID string, d time.Time) (Override, error) {
	if r.err != nil {
		return Override{}, r.err
	}
	for _, o := range r.byID {
		if o.ConsultantID == consultantID && o.OverrideDate.Equal(d) {
			return o, nil
		}
	}
	return Override{}, ErrNotFound
}

func (r *overrideRepoStub) ListOverrides(ctx context.Context, consultantID string, dates DateRange) ([]Override, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Override
	for _, o := range r.byID {
		if o.ConsultantID == consultantID && dates.Contains(o.OverrideDate) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverrideDate.Before(out[j].OverrideDate) })
	return out, nil
}

func (r *overrideRepoStub) DeleteOverride(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// appointmentRepoStub is an in-memory AppointmentRepository rejecting overlapping active bookings.
type appointmentRepoStub struct {
	byID      map[string]Appointment
	createErr error
	listCalls int
	// afterList runs once a listing has been read, standing in for a write
	// that lands while the caller is still computing.
	afterList func()
}

func newAppointmentRepoStub() *appointmentRepoStub {
	return &appointmentRepoStub{byID: make(map[string]Appointment)}
}

func (r *appointmentRepoStub) seed(appointments ...Appointment) {
	for _, a := range appointments {
		r.byID[a.ID] = a
	}
}

func (r *appointmentRepoStub) CreateAppointment(ctx context.Context, a Appointment) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.ConsultantID == a.ConsultantID && existing.AppointmentDate.Equal(a.AppointmentDate) &&
			existing.Status != AppointmentCancelled && availability.Overlaps(existing.Start, existing.End, a.Start, a.End) {
			return ErrConflict
		}
	}
	r.byID[a.ID] = a
	return nil
}

func (r *appointmentRepoStub) UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = updatedAt
	r.byID[id] = a
	return nil
}

func (r *appointmentRepoStub) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	a, ok := r.byID[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *appointmentRepoStub) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	r.listCalls++
	var out []Appointment
	for _, a := range r.byID {
		if filter.ConsultantID != "" && a.ConsultantID != filter.ConsultantID {
			continue
		}
		if !filter.Dates.Contains(a.AppointmentDate) {
			continue
		}
		if slices.Contains(filter.ExcludeStatuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		}
		return out[i].Start < out[j].Start
	})
	if r.afterList != nil {
		r.afterList()
	}
	return out, nil
}

// cacheStub records invalidations and serves stored values back as-is. Each
// invalidation advances the consultant's generation, hiding earlier entries.
type cacheStub struct {
	entries     map[string]any
	generations map[string]int64
	invalidated []string
	loadErr     error
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string]any), generations: make(map[string]int64)}
}

func (c *cacheStub) key(consultantID string, generation int64, view, d string) string {
	return fmt.Sprintf("%s|%d|%s|%s", consultantID, generation, view, d)
}

func (c *cacheStub) Load(ctx context.Context, consultantID, view, d string, dest any) (int64, bool, error) {
	if c.loadErr != nil {
		return 0, false, c.loadErr
	}
	generation := c.generations[consultantID]
	v, ok := c.entries[c.key(consultantID, generation, view, d)]
	if !ok {
		return generation, false, nil
	}
	switch target := dest.(type) {
	case *DayAvailability:
		*target = v.(DayAvailability)
	case *WeeklyAvailability:
		*target = v.(WeeklyAvailability)
	default:
		return generation, false, fmt.Errorf("unsupported cache target %T", dest)
	}
	return generation, true, nil
}

func (c *cacheStub) Store(ctx context.Context, consultantID, view, d string, generation int64, value any) error {
	c.entries[c.key(consultantID, generation, view, d)] = value
	return nil
}

func (c *cacheStub) InvalidateConsultant(ctx context.Context, consultantID string) error {
	c.generations[consultantID]++
	c.invalidated = append(c.invalidated, consultantID)
	return nil
}

// metricsStub counts domain events.
type metricsStub struct {
	lookups   map[string]int
	mutations map[string]int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{lookups: make(map[string]int), mutations: make(map[string]int)}
}

func (m *metricsStub) AvailabilityLookup(view string, cacheHit bool) {
	m.lookups[fmt.Sprintf("%s:%t", view, cacheHit)]++
}

func (m *metricsStub) Mutation(resource, operation string) {
	m.mutations[resource+":"+operation]++
}

// standardWeek returns a Monday-Friday 09:00-17:00 template with a 12:00-13:00 break.
func standardWeek(id, consultantID, weekStart string) WeeklySchedule {
	start := date(weekStart)
	days := make(map[string]WorkingDay, 7)
	for i, weekday := range availability.Weekdays {
		if i < 5 {
			days[weekday] = WorkingDay{Start: tod("09:00"), End: tod("17:00"), BreakStart: todPtr("12:00"), BreakEnd: todPtr("13:00"), IsAvailable: true}
			continue
		}
		days[weekday] = disabledWorkingDay()
	}
	return WeeklySchedule{
		ID:                  id,
		ConsultantID:        consultantID,
		WeekStartDate:       start,
		WeekEndDate:         availability.WeekEnd(start),
		WorkingDays:         days,
		DefaultSlotDuration: 60,
		CreatedBy:           CreatedBy{UserID: "staff-1", Role: RoleStaff, Name: "Sam Staff"},
	}
}
