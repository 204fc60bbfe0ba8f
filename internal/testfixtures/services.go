package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Hooks       application.Hooks
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithHooks sets the cache and metrics collaborators passed to scheduling services.
func WithHooks(hooks application.Hooks) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Hooks = hooks
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// WeeklyScheduleServiceDeps captures dependencies for constructing a weekly schedule service.
type WeeklyScheduleServiceDeps struct {
	Schedules   application.WeeklyScheduleRepository
	Directory   application.UserDirectory
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewWeeklyScheduleService builds a weekly schedule service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewWeeklyScheduleService(deps WeeklyScheduleServiceDeps) *application.WeeklyScheduleService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewWeeklyScheduleServiceWithLogger(
		deps.Schedules,
		deps.Directory,
		f.Hooks,
		idGen,
		now,
		deps.Logger,
	)
}

// OverrideServiceDeps captures dependencies for constructing an override service.
type OverrideServiceDeps struct {
	Overrides   application.OverrideRepository
	Directory   application.UserDirectory
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewOverrideService builds an override service using the supplied dependencies.
func (f *ServiceFactory) NewOverrideService(deps OverrideServiceDeps) *application.OverrideService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewOverrideServiceWithLogger(
		deps.Overrides,
		deps.Directory,
		f.Hooks,
		idGen,
		now,
		deps.Logger,
	)
}

// AvailabilityServiceDeps captures dependencies for constructing an availability service.
type AvailabilityServiceDeps struct {
	Schedules    application.WeeklyScheduleRepository
	Overrides    application.OverrideRepository
	Appointments application.AppointmentRepository
	Directory    application.UserDirectory
	Logger       *slog.Logger
}

// NewAvailabilityService builds an availability service using the supplied dependencies.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityServiceWithLogger(
		deps.Schedules,
		deps.Overrides,
		deps.Appointments,
		deps.Directory,
		f.Hooks,
		deps.Logger,
	)
}

// AppointmentServiceDeps captures dependencies for constructing an appointment service.
type AppointmentServiceDeps struct {
	Appointments application.AppointmentRepository
	Schedules    application.WeeklyScheduleRepository
	Overrides    application.OverrideRepository
	Directory    application.UserDirectory
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAppointmentService builds an appointment service using the supplied dependencies.
func (f *ServiceFactory) NewAppointmentService(deps AppointmentServiceDeps) *application.AppointmentService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewAppointmentServiceWithLogger(
		deps.Appointments,
		deps.Schedules,
		deps.Overrides,
		deps.Directory,
		f.Hooks,
		idGen,
		now,
		deps.Logger,
	)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	Hasher      application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies. A
// missing hasher falls back to a fast deterministic one so tests skip argon2id.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	hasher := deps.Hasher
	if hasher == nil {
		hasher = PlainHasher
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		hasher,
		idGen,
		now,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	Policy         application.SessionPolicy
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies. A
// missing verifier pairs with PlainHasher and missing token generation yields
// "token-<n>" from a generator private to the service.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	tokens := deps.TokenGenerator
	if tokens == nil {
		tokens = NewIDGenerator("token").NextFunc()
	}
	verify := deps.PasswordVerify
	if verify == nil {
		verify = PlainVerifier
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		verify,
		idGen,
		tokens,
		now,
		deps.Policy,
		deps.Logger,
	)
}

// PlainHasher prefixes the password instead of hashing it.
func PlainHasher(password string) (string, error) {
	return "plain:" + password, nil
}

// PlainVerifier accepts hashes produced by PlainHasher.
func PlainVerifier(hash, password string) error {
	if hash != "plain:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}
