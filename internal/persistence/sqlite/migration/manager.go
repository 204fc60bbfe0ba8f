package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/gencare-scheduler/internal/logging"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and executor together.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logging.DefaultLogger(logger).With("component", "migration"),
	}
}

// Run initialises the version table and applies every pending migration.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)
	for _, pending := range status.Pending {
		if err := m.executor.Apply(ctx, pending); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", pending.Version,
				"file", pending.FilePath,
				"error", err,
			)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", pending.Version,
			"description", pending.Description,
		)
	}

	m.logger.InfoContext(ctx, "migrations completed",
		"count", len(status.Pending),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Status compares the scanned files with the applied versions.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	status := Status{Applied: applied}
	for _, record := range applied {
		appliedSet[record.Version] = struct{}{}
		if versionNumber(record.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = record.Version
		}
	}
	for _, candidate := range available {
		if _, ok := appliedSet[candidate.Version]; !ok {
			status.Pending = append(status.Pending, candidate)
		}
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[string]Migration, len(available))
	for i, candidate := range available {
		if i > 0 && versionNumber(candidate.Version) != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: gap between %s and %s", ErrVersionConflict, available[i-1].Version, candidate.Version)
		}
		byVersion[candidate.Version] = candidate
	}
	for _, record := range applied {
		file, ok := byVersion[record.Version]
		if !ok {
			return fmt.Errorf("%w: applied version %s has no file", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && record.Checksum != file.Checksum {
			return newError(record.Version, file.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
