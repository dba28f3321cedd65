// ABOUTME: SQLite-backed Store for the client ledger using modernc.org/sqlite
// ABOUTME: Opens the single store file with foreign keys, WAL and a busy timeout

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout is how long a scope waits for the file lock.
const DefaultBusyTimeout = 5 * time.Second

// Store owns the connection pool for one ledger file.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

type options struct {
	logger      *slog.Logger
	busyTimeout time.Duration
	now         func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger; the store tags it with component=store.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithClock overrides the wall clock used for timestamps written by the store.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open opens (or creates) the ledger file at path.
// Parent directories are created if needed. The schema is NOT touched;
// call Bootstrap before any other operation.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{
		logger:      slog.Default(),
		busyTimeout: DefaultBusyTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "store")

	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, NewFault(KindStorage, "store.open", fmt.Errorf("creating database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", dsn(path, o.busyTimeout))
	if err != nil {
		return nil, NewFault(KindStorage, "store.open", fmt.Errorf("opening database: %w", err))
	}

	// Every :memory: connection is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewFault(KindStorage, "store.open", fmt.Errorf("connecting to database: %w", err))
	}

	logger.Info("SQLite store opened", "path", path)
	return &Store{db: db, path: path, logger: logger, now: o.now}, nil
}

// dsn builds a modernc DSN whose pragmas apply to every pooled connection.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// Path returns the file the store was opened on.
func (s *Store) Path() string { return s.path }

// Now returns the store clock in UTC.
func (s *Store) Now() time.Time { return s.now().UTC() }

// Logger returns the store's component logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Close releases the connection pool.
func (s *Store) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

type actorKey struct{}

// SystemActor is recorded when no acting identity is in the context.
const SystemActor = "system"

// WithActor attaches the acting user's identity to ctx for audit stamping.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting identity stored in ctx, or SystemActor.
func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return SystemActor
}
