package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/gencare-scheduler/internal/logging"
	"github.com/example/gencare-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the connection pool with every repository backed by it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	*UserRepository
	*SessionRepository
	*WeeklyScheduleRepository
	*OverrideRepository
	*AppointmentRepository
}

// Open opens the database file at path with production settings.
func Open(path string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path), logger)
}

// OpenWithConfig opens a database using an explicit connection configuration.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:                     pool,
		logger:                   logging.DefaultLogger(logger),
		UserRepository:           NewUserRepository(pool),
		SessionRepository:        NewSessionRepository(pool),
		WeeklyScheduleRepository: NewWeeklyScheduleRepository(pool),
		OverrideRepository:       NewOverrideRepository(pool),
		AppointmentRepository:    NewAppointmentRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations. Locked databases are retried.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(s.pool.DB()),
		s.logger,
	)
	retry := NewRetryHelper(DefaultRetryConfig())
	if err := retry.WithRetry(ctx, func() error { return manager.Run(ctx) }); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the connection pool for callers that need transactions.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
