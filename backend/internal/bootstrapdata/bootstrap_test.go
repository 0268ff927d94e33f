package bootstrapdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yn01/simple-diary/backend/internal/infra/migrations"
	"github.com/yn01/simple-diary/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepository(t *testing.T, name string) *repository.EntryRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, nil))
	return repository.NewEntryRepository(db)
}

func TestExportThenSeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newRepository(t, "source")
	for _, item := range [][2]string{{"2026-01-29", "Entry 1"}, {"2026-01-31", "Entry 3"}, {"2026-01-30", "Entry 2"}} {
		_, err := source.Create(ctx, item[0], item[1])
		require.NoError(t, err)
	}
	deleted, err := source.Delete(ctx, 1)
	require.NoError(t, err)
	require.True(t, deleted)

	dir := t.TempDir()
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	path, err := ExportSnapshot(ctx, source, ExportOptions{OutputDir: dir, Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SnapshotFilename), path)

	snapshot, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00.000Z", snapshot.ExportedAt)
	require.Len(t, snapshot.Entries, 2)

	target := newRepository(t, "target")
	imported, err := SeedDatabase(ctx, target, Options{DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	want, err := source.FindAll(ctx)
	require.NoError(t, err)
	got, err := target.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = SeedDatabase(ctx, target, Options{Path: path})
	assert.ErrorIs(t, err, ErrStoreNotEmpty)
}

func TestSeedDatabaseSkipsMissingSnapshot(t *testing.T) {
	target := newRepository(t, "target")
	imported, err := SeedDatabase(context.Background(), target, Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, imported)
}

func TestSeedDatabaseAcceptsBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	payload := `[{"id":5,"date":"2025-12-31","content":"legacy","created_at":"2025-12-31T10:00:00.000Z","updated_at":"2025-12-31T10:00:00.000Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	target := newRepository(t, "target")
	imported, err := SeedDatabase(context.Background(), target, Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	found, err := target.FindByID(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "legacy", found.Content)
}

func TestSeedDatabaseRejectsInvalidSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), SnapshotFilename)
	payload := `{"version":1,"entries":[{"id":1,"date":"2026-02-30","content":"x","created_at":"2026-01-01T00:00:00.000Z","updated_at":"2026-01-01T00:00:00.000Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	target := newRepository(t, "target")
	_, err := SeedDatabase(context.Background(), target, Options{Path: path})
	require.Error(t, err)

	total, err := target.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReadSnapshotRejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), SnapshotFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"entries":[]}`), 0o644))

	_, err := ReadSnapshot(path)
	assert.Error(t, err)
	_, err = ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv(envDataDir, "")
	assert.Equal(t, defaultSnapshotDataDir, ResolveDataDir())
	t.Setenv(envDataDir, " /srv/diary ")
	assert.Equal(t, "/srv/diary", ResolveDataDir())
}
