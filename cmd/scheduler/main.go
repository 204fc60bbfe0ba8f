package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/gencare-scheduler/internal/application"
	"github.com/example/gencare-scheduler/internal/cache"
	"github.com/example/gencare-scheduler/internal/config"
	httptransport "github.com/example/gencare-scheduler/internal/http"
	"github.com/example/gencare-scheduler/internal/logging"
	"github.com/example/gencare-scheduler/internal/metrics"
	"github.com/example/gencare-scheduler/internal/persistence/sqlite"
	"github.com/example/gencare-scheduler/internal/tracing"
)

const serviceName = "gencare-scheduler"

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if ferr := shutdownTracing(flushCtx); ferr != nil {
			logger.Error("failed to flush traces", "error", ferr)
		}
	}()

	storage, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	var availabilityCache *cache.AvailabilityCache
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.Error("failed to close redis client", "error", cerr)
			}
		}()
		availabilityCache = cache.NewAvailabilityCache(client, cfg.Redis.CacheTTL)
		if err := availabilityCache.Ping(ctx); err != nil {
			logger.Warn("availability cache unreachable, continuing without it until it recovers",
				"addr", cfg.Redis.Addr, "error", err)
		}
	}

	recorder := metrics.New()
	services := newServices(storage, availabilityCache, recorder, cfg, logger)

	if cfg.BootstrapAdmin.Enabled() {
		if err := bootstrapAdmin(ctx, services.users, cfg.BootstrapAdmin); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	handler := newHandler(services, storage, availabilityCache, recorder, cfg, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down scheduler API", "timeout", cfg.ShutdownTimeout.String())
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening",
		"addr", server.Addr,
		"cache_enabled", availabilityCache != nil,
		"metrics_enabled", cfg.MetricsEnabled,
		"tracing_enabled", cfg.Tracing.Enabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-shutdownDone
	return nil
}

type serviceSet struct {
	schedules    *application.WeeklyScheduleService
	overrides    *application.OverrideService
	availability *application.AvailabilityService
	appointments *application.AppointmentService
	users        *application.UserService
	auth         *application.AuthService
}

// newServices wires the application layer over storage. availabilityCache may be nil.
func newServices(storage *sqlite.Storage, availabilityCache *cache.AvailabilityCache, recorder *metrics.Recorder, cfg config.Config, logger *slog.Logger) serviceSet {
	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := func() time.Time { return time.Now().UTC() }

	userRepo := newUserRepositoryAdapter(storage)
	scheduleRepo := newWeeklyScheduleRepositoryAdapter(storage)
	overrideRepo := newOverrideRepositoryAdapter(storage)
	appointmentRepo := newAppointmentRepositoryAdapter(storage)
	sessionRepo := newSessionRepositoryAdapter(storage)
	directory := application.NewDirectory(userRepo)
	sessionPolicy := application.SessionPolicy{TTL: cfg.SessionTTL, RenewWithin: cfg.SessionRenewWithin}

	hooks := application.Hooks{Metrics: recorder}
	if availabilityCache != nil {
		hooks.Cache = availabilityCache
	}

	return serviceSet{
		schedules:    application.NewWeeklyScheduleServiceWithLogger(scheduleRepo, directory, hooks, idGenerator, now, logger),
		overrides:    application.NewOverrideServiceWithLogger(overrideRepo, directory, hooks, idGenerator, now, logger),
		availability: application.NewAvailabilityServiceWithLogger(scheduleRepo, overrideRepo, appointmentRepo, directory, hooks, logger),
		appointments: application.NewAppointmentServiceWithLogger(appointmentRepo, scheduleRepo, overrideRepo, directory, hooks, idGenerator, now, logger),
		users:        application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger),
		auth:         application.NewAuthServiceWithLogger(userRepo, sessionRepo, nil, idGenerator, tokenGenerator, now, sessionPolicy, logger),
	}
}

// newHandler assembles the router, its middleware chain and the tracing
// wrapper. otelhttp sits outermost so RequestLogger sees the server span.
func newHandler(services serviceSet, database httptransport.Pinger, availabilityCache *cache.AvailabilityCache, recorder *metrics.Recorder, cfg config.Config, logger *slog.Logger) http.Handler {
	var cachePinger httptransport.Pinger
	if availabilityCache != nil {
		cachePinger = availabilityCache
	}

	routerCfg := httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(services.auth, logger),
		Users:          httptransport.NewUserHandler(services.users, logger),
		Schedules:      httptransport.NewWeeklyScheduleHandler(services.schedules, logger),
		Overrides:      httptransport.NewOverrideHandler(services.overrides, logger),
		Availability:   httptransport.NewAvailabilityHandler(services.availability, logger),
		Appointments:   httptransport.NewAppointmentHandler(services.appointments, logger),
		Health:         httptransport.NewHealthHandler(database, cachePinger, logger),
		RequireSession: httptransport.RequireSession(services.auth, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger, recorder),
			httptransport.RateLimit(httptransport.RateLimitConfig{
				RPS:      cfg.RateLimit.RPS,
				Burst:    cfg.RateLimit.Burst,
				Observer: recorder,
				Logger:   logger,
			}),
		},
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = recorder.Handler()
	}

	return otelhttp.NewHandler(httptransport.NewRouter(routerCfg), serviceName)
}

// bootstrapAdmin makes sure the configured administrator account exists.
func bootstrapAdmin(ctx context.Context, users *application.UserService, admin config.BootstrapAdmin) error {
	_, _, err := users.EnsureUser(ctx, application.UserInput{
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		Role:        application.RoleAdmin,
		Password:    admin.Password,
	})
	return err
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
