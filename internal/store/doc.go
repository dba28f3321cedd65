// Package store provides the persistence core of the client ledger using SQLite.
//
// # Architecture
//
// A Store wraps one SQLite file. All work happens inside a scope:
//
//	err := st.WithScope(ctx, "clients.add", func(sc store.Scope) error {
//	    // statements against sc commit together or not at all
//	})
//
// WithScope commits when the function returns nil, rolls back on error or
// panic, and always releases the connection. Domain packages (accounts,
// clients, promotions) issue their SQL through a Scope and never touch the
// connection pool directly.
//
// # Schema Lifecycle
//
// Bootstrap runs, in order:
//
//   - InitializeSchema: users, client_info, client_financial, promotions, audit_log
//   - ApplyAdditiveMigrations: last_call, last_caller, last_offer on client_info
//   - SeedDefaults: bootstrap administrator and starter offers into empty tables
//   - AbsorbLegacySchema: folds a pre-split "clients" table into the two client tables
//
// Each step is idempotent. SchemaState reports UNINITIALIZED, SCHEMA_BASE or
// SCHEMA_CURRENT.
//
// # SQLite Configuration
//
// Pragmas are set through the DSN so they apply to every pooled connection:
//
//	foreign_keys(1)      required for the client_financial cascade
//	busy_timeout(5000)   wait for the file lock instead of failing
//	journal_mode(WAL)
//
// Transactions start with BEGIN IMMEDIATE, so concurrent writers serialise on
// the file lock rather than deadlocking on lock upgrade.
//
// # Error Handling
//
// Every operation returns *Fault carrying one of four kinds:
//
//   - KindValidation: caller supplied unusable input
//   - KindUniqueness: UNIQUE constraint violation
//   - KindStorage: I/O or other driver failure
//   - KindNotFound: lookup matched no row
//
// Use errors.Is(err, ErrNotFound) (or IsNotFound) to test the kind.
//
// # Search
//
// The package registers a deterministic fold(text) SQL function that applies
// Unicode case folding, so case-insensitive matching also works outside ASCII.
//
// # Testing
//
// Use Open(filepath.Join(t.TempDir(), "ledger.db")) for tests with real SQLite.
package store
