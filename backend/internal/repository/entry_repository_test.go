package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yn01/simple-diary/backend/internal/domain/entry"
	"github.com/yn01/simple-diary/backend/internal/infra/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestRepository(t *testing.T, opts ...Option) (*EntryRepository, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.Up(context.Background(), db, nil))
	return NewEntryRepository(db, opts...), db
}

func mustCreate(t *testing.T, repo *EntryRepository, date, content string) *entry.Entry {
	t.Helper()
	created, err := repo.Create(context.Background(), date, content)
	require.NoError(t, err)
	require.NotNil(t, created)
	return created
}

func strPtr(s string) *string { return &s }

func TestCreateThenFindByID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	created := mustCreate(t, repo, "2026-01-29", "Entry 1")
	assert.Positive(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	_, err := entry.ParseTimestamp(created.CreatedAt)
	assert.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, *created, *found)
}

func TestCreateUsesUTCMillisecondTimestamps(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 29, 23, 59, 59, 987654321, time.FixedZone("JST", 9*3600))}
	repo, _ := newTestRepository(t, WithClock(clock.Now))

	created := mustCreate(t, repo, "2026-01-29", "timestamp")
	assert.Equal(t, "2026-01-29T14:59:59.987Z", created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestCreateRejectsInvalidInputWithoutWriting(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	cases := []struct {
		date, content string
		sentinel      error
	}{
		{"2026-02-30", "x", entry.ErrInvalidDate},
		{"2026-02-29", "x", entry.ErrInvalidDate},
		{"2026/01/01", "x", entry.ErrInvalidDate},
		{"2026-01-01", "", entry.ErrEmptyContent},
		{"2026-01-01", " \n\t ", entry.ErrEmptyContent},
	}
	for _, tc := range cases {
		created, err := repo.Create(ctx, tc.date, tc.content)
		assert.Nil(t, created)
		assert.ErrorIs(t, err, tc.sentinel, "date=%q content=%q", tc.date, tc.content)
	}

	leap, err := repo.Create(ctx, "2024-02-29", "x")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", leap.Date)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCreateReportsBothFields(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Create(context.Background(), "bad", "")
	var verr *entry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"'date': Date must be in YYYY-MM-DD format",
		"'content': Content must not be empty",
	}, verr.Details())
}

func TestFindAllOrdering(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	mustCreate(t, repo, "2026-01-29", "Entry 1")
	mustCreate(t, repo, "2026-01-31", "Entry 3")
	mustCreate(t, repo, "2026-01-30", "Entry 2")

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	dates := make([]string, 0, len(all))
	for _, e := range all {
		dates = append(dates, e.Date)
	}
	assert.Equal(t, []string{"2026-01-31", "2026-01-30", "2026-01-29"}, dates)
}

func TestFindAllBreaksTiesByNewestID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	first := mustCreate(t, repo, "2026-02-01", "morning")
	second := mustCreate(t, repo, "2026-02-01", "evening")
	mustCreate(t, repo, "2025-12-31", "last year")
	mustCreate(t, repo, "2026-03-01", "later")

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	for i := 0; i+1 < len(all); i++ {
		cur, next := all[i], all[i+1]
		require.GreaterOrEqual(t, cur.Date, next.Date)
		if cur.Date == next.Date {
			require.Greater(t, cur.ID, next.ID)
		}
	}
}

func TestFindByIDAbsent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	mustCreate(t, repo, "2026-01-01", "only")

	for _, id := range []int64{0, -1, 999} {
		found, err := repo.FindByID(ctx, id)
		assert.NoError(t, err, "id=%d", id)
		assert.Nil(t, found, "id=%d", id)
	}
}

func TestUpdatePreservesIdentityAndRefreshesTimestamp(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 29, 8, 0, 0, 0, time.UTC)}
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	ctx := context.Background()

	created := mustCreate(t, repo, "2026-01-29", "old content")

	clock.Set(clock.Now().Add(90 * time.Second))
	updated, err := repo.Update(ctx, created.ID, "2026-01-30", "new content")
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "2026-01-29T08:01:30.000Z", updated.UpdatedAt)
	assert.Equal(t, "2026-01-30", updated.Date)
	assert.Equal(t, "new content", updated.Content)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *updated, *found)

	hits, err := repo.Search(ctx, strPtr("old content"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpdateNeverMovesTimestampBackwards(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 29, 8, 0, 0, 0, time.UTC)}
	repo, _ := newTestRepository(t, WithClock(clock.Now))
	ctx := context.Background()

	created := mustCreate(t, repo, "2026-01-29", "content")

	// 系统时钟回拨一小时。
	clock.Set(clock.Now().Add(-time.Hour))
	updated, err := repo.Update(ctx, created.ID, "2026-01-29", "content v2")
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, updated.UpdatedAt)
	assert.GreaterOrEqual(t, updated.UpdatedAt, updated.CreatedAt)
}

func TestUpdateWithRealClockIsMonotonic(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	current := mustCreate(t, repo, "2026-01-29", "v0")
	for i := 1; i <= 5; i++ {
		next, err := repo.Update(ctx, current.ID, "2026-01-29", fmt.Sprintf("v%d", i))
		require.NoError(t, err)
		require.GreaterOrEqual(t, next.UpdatedAt, current.UpdatedAt)
		require.Equal(t, current.CreatedAt, next.CreatedAt)
		current = next
	}
}

func TestUpdateMissingEntryHasNoSideEffects(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	existing := mustCreate(t, repo, "2026-01-01", "keep")

	for _, id := range []int64{0, -5, existing.ID + 100} {
		updated, err := repo.Update(ctx, id, "2026-01-02", "changed")
		assert.NoError(t, err)
		assert.Nil(t, updated)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, *existing, all[0])
}

func TestUpdateValidatesBeforeLookup(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	existing := mustCreate(t, repo, "2026-01-01", "keep")

	_, err := repo.Update(ctx, existing.ID, "2026-13-01", "x")
	assert.ErrorIs(t, err, entry.ErrInvalidDate)

	_, err = repo.Update(ctx, 12345, "2026-01-01", "   ")
	assert.ErrorIs(t, err, entry.ErrEmptyContent)

	found, err := repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, *existing, *found)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := mustCreate(t, repo, "2026-01-01", "a")
	b := mustCreate(t, repo, "2026-01-02", "b")

	before, err := repo.FindAll(ctx)
	require.NoError(t, err)

	for _, id := range []int64{0, -1, b.ID + 10} {
		deleted, err := repo.Delete(ctx, id)
		require.NoError(t, err)
		assert.False(t, deleted, "id=%d", id)
	}
	after, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	deleted, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	again, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, again)

	remaining, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, b.ID, remaining[0].ID)
}

func TestIDsAreNeverReused(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	first := mustCreate(t, repo, "2026-01-01", "first")
	second := mustCreate(t, repo, "2026-01-01", "second")
	require.Greater(t, second.ID, first.ID)

	deleted, err := repo.Delete(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	third := mustCreate(t, repo, "2026-01-01", "third")
	assert.Greater(t, third.ID, second.ID)
}

func TestSearch(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	mustCreate(t, repo, "2026-01-01", "Learning TypeScript today")
	mustCreate(t, repo, "2026-01-03", "more typescript generics")
	mustCreate(t, repo, "2026-01-02", "went hiking")
	mustCreate(t, repo, "2026-01-04", "progress: 50% done")
	mustCreate(t, repo, "2026-01-05", "snake_case vs camelCase")
	mustCreate(t, repo, "2026-01-06", "Wow! exclamation")
	mustCreate(t, repo, "2026-01-07", `back\slash path`)

	t.Run("missingKeyword", func(t *testing.T) {
		_, err := repo.Search(ctx, nil)
		assert.ErrorIs(t, err, entry.ErrMissingKeyword)
	})

	t.Run("emptyMatchesFindAll", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		hits, err := repo.Search(ctx, strPtr(""))
		require.NoError(t, err)
		assert.Equal(t, all, hits)
	})

	t.Run("caseInsensitive", func(t *testing.T) {
		upper, err := repo.Search(ctx, strPtr("TYPESCRIPT"))
		require.NoError(t, err)
		lower, err := repo.Search(ctx, strPtr("typescript"))
		require.NoError(t, err)
		assert.Equal(t, upper, lower)
		require.Len(t, upper, 2)
		assert.Equal(t, "2026-01-03", upper[0].Date)
	})

	literal := map[string]string{
		"%":   "progress: 50% done",
		"_":   "snake_case vs camelCase",
		"!":   "Wow! exclamation",
		`\`:   `back\slash path`,
		"50%": "progress: 50% done",
		"e_c": "snake_case vs camelCase",
	}
	for keyword, want := range literal {
		keyword, want := keyword, want
		t.Run("literal "+keyword, func(t *testing.T) {
			hits, err := repo.Search(ctx, strPtr(keyword))
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, want, hits[0].Content)
		})
	}

	t.Run("noMatch", func(t *testing.T) {
		hits, err := repo.Search(ctx, strPtr("%%nothing%%"))
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	})
}

func TestAdversarialContentIsStoredVerbatim(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	payload := `'); DROP TABLE entries; -- <b>"quoted"</b>`
	created := mustCreate(t, repo, "2026-01-01", payload)

	hits, err := repo.Search(ctx, strPtr("' OR 1=1 --"))
	require.NoError(t, err)
	assert.Empty(t, hits)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, found.Content)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRestore(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	snapshot := []entry.Entry{
		{ID: 7, Date: "2025-12-31", Content: "old year", CreatedAt: "2025-12-31T10:00:00.000Z", UpdatedAt: "2026-01-01T09:00:00.000Z"},
		{ID: 3, Date: "2025-12-30", Content: "earlier", CreatedAt: "2025-12-30T10:00:00.000Z", UpdatedAt: "2025-12-30T10:00:00.000Z"},
	}
	require.NoError(t, repo.Restore(ctx, snapshot))

	found, err := repo.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, snapshot[0], *found)

	next := mustCreate(t, repo, "2026-01-02", "after restore")
	assert.Greater(t, next.ID, int64(7))
}

func TestRestoreRejectsInvalidSnapshotAtomically(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	snapshot := []entry.Entry{
		{ID: 1, Date: "2026-01-01", Content: "fine", CreatedAt: "2026-01-01T00:00:00.000Z", UpdatedAt: "2026-01-01T00:00:00.000Z"},
		{ID: 1, Date: "2026-02-30", Content: " ", CreatedAt: "2026-01-02T00:00:00.000Z", UpdatedAt: "2026-01-01T00:00:00.000Z"},
	}
	err := repo.Restore(ctx, snapshot)
	var verr *entry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details(), "'entries[1].id': Duplicate ID")
	assert.Contains(t, verr.Details(), "'entries[1].date': Invalid date")

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%", escapeLike("50%"))
	assert.Equal(t, "a!_b", escapeLike("a_b"))
	assert.Equal(t, "hi!!", escapeLike("hi!"))
	assert.Equal(t, `c:\x`, escapeLike(`c:\x`))
}
