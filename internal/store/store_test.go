// ABOUTME: Tests for opening the SQLite store and its connection settings
// ABOUTME: Also provides the setupTestStore helper used across store tests

package store

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock pinned at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// setupBootstrappedStore returns a store at StateCurrent with no seed data.
func setupBootstrappedStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store := setupTestStore(t, opts...)
	require.NoError(t, store.Bootstrap(context.Background(), Seed{}))
	return store
}

func countTable(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")

	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
}

func TestOpen_Pragmas(t *testing.T) {
	store := setupTestStore(t, WithBusyTimeout(1500*time.Millisecond))

	var fk int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var busy int
	require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1500, busy)

	var mode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_InMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Bootstrap(ctx, Seed{Offers: []string{"offer"}}))

	// The single pooled connection keeps the schema visible across scopes.
	assert.Equal(t, 1, countTable(t, store, "promotions"))
}

func TestDSN(t *testing.T) {
	d := dsn("/tmp/x.db", 2*time.Second)
	path, rawQuery, ok := strings.Cut(d, "?")
	require.True(t, ok)
	assert.Equal(t, "/tmp/x.db", path)

	q, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"foreign_keys(1)", "busy_timeout(2000)", "journal_mode(WAL)"}, q["_pragma"])
	assert.Equal(t, "immediate", q.Get("_txlock"))

	mem := dsn(":memory:", time.Second)
	assert.NotContains(t, mem, "journal_mode")
}

func TestStore_Now_UsesClock(t *testing.T) {
	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	store := setupTestStore(t, WithClock(fixedClock(at)))

	assert.Equal(t, at.UTC(), store.Now())
	assert.Equal(t, time.UTC, store.Now().Location())
}

func TestActor(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, SystemActor, ActorFrom(ctx))
	assert.Equal(t, SystemActor, ActorFrom(WithActor(ctx, "")))
	assert.Equal(t, "operator", ActorFrom(WithActor(ctx, "operator")))
}
