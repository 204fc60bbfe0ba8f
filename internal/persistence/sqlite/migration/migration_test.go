package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *Executor {
	t.Helper()
	db, err := OpenDatabase(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewExecutor(db)
}

func TestScannerOrdersAndValidates(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/002_add_notes.sql":      {Data: []byte("ALTER TABLE widgets ADD COLUMN notes TEXT;")},
		"migrations/001_initial_schema.sql": {Data: []byte("-- widgets\nCREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"migrations/README.md":              {Data: []byte("ignored")},
	}

	migrations, err := NewScanner(files, "migrations").Scan()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "initial schema", migrations[0].Description)
	assert.Equal(t, "002", migrations[1].Version)
	assert.NotEmpty(t, migrations[0].Checksum)
}

func TestScannerRejectsBadFiles(t *testing.T) {
	t.Parallel()

	cases := map[string]fstest.MapFS{
		"bad name":  {"m/first.sql": {Data: []byte("SELECT 1;")}},
		"empty":     {"m/001_empty.sql": {Data: []byte("-- nothing here\n")}},
		"duplicate": {"m/001_a.sql": {Data: []byte("SELECT 1;")}, "m/01_b.sql": {Data: []byte("SELECT 1;")}},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewScanner(files, "m").Scan()
			require.Error(t, err)
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\n;CREATE INDEX idx_a ON a(id);\n-- trailing")
	assert.Equal(t, []string{"CREATE TABLE a (id INTEGER)", "CREATE INDEX idx_a ON a(id)"}, got)
}

func TestManagerRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	executor := openTestDB(t)
	files := fstest.MapFS{
		"m/001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"m/002_gadgets.sql": {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
	}
	manager := NewManager(NewScanner(files, "m"), executor, discardLogger())

	require.NoError(t, manager.Run(ctx))
	require.NoError(t, manager.Run(ctx))

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Empty(t, status.Pending)
	assert.Len(t, status.Applied, 2)
}

func TestManagerRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	executor := openTestDB(t)
	files := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT);\nCREATE TABLE ok (id TEXT);")},
	}
	manager := NewManager(NewScanner(files, "m"), executor, discardLogger())

	err := manager.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMigrationFailed))

	applied, err := executor.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var count int
	require.NoError(t, executor.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ok'`).Scan(&count))
	assert.Zero(t, count)
}

func TestManagerDetectsGapsAndEditedFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	gap := NewManager(NewScanner(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"m/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
	}, "m"), openTestDB(t), discardLogger())
	assert.ErrorIs(t, gap.Run(ctx), ErrVersionConflict)

	executor := openTestDB(t)
	original := NewManager(NewScanner(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
	}, "m"), executor, discardLogger())
	require.NoError(t, original.Run(ctx))

	edited := NewManager(NewScanner(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")},
	}, "m"), executor, discardLogger())
	assert.ErrorIs(t, edited.Run(ctx), ErrChecksumMismatch)
}

func TestSQLiteConfigDSN(t *testing.T) {
	t.Parallel()

	cfg := DefaultSQLiteConfig("/tmp/app.db")
	require.NoError(t, cfg.Validate())
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")

	bad := cfg
	bad.JournalMode = "SIDEWAYS"
	assert.Error(t, bad.Validate())

	empty := cfg
	empty.Path = " "
	assert.Error(t, empty.Validate())
}
