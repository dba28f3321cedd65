// ABOUTME: Schema manager: table creation, additive column migrations, seeding
// ABOUTME: Also absorbs the pre-split single-table "clients" layout into client_info/client_financial

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DefaultTariff is written when a client is created without a tariff.
const DefaultTariff = "Standard"

// LegacyClientsTable is the pre-split table holding profile and billing columns together.
const LegacyClientsTable = "clients"

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT DEFAULT 'worker',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS client_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		last_name TEXT NOT NULL,
		first_name TEXT NOT NULL,
		middle_name TEXT,
		birth_date DATE,
		phone TEXT,
		email TEXT,
		address TEXT,
		last_call DATETIME,
		last_caller TEXT,
		last_offer TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_client_info_name ON client_info(last_name, first_name);

	CREATE TABLE IF NOT EXISTS client_financial (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		tariff TEXT DEFAULT 'Standard',
		balance REAL DEFAULT 0.00,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES client_info(id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_client_financial_client ON client_financial(client_id);

	CREATE TABLE IF NOT EXISTS promotions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		offer_text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		audit_id    TEXT PRIMARY KEY,
		actor       TEXT NOT NULL,
		action      TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		ts          TEXT NOT NULL,
		detail_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_type, target_id);
`

// coreTables are the tables whose presence marks a store as initialized.
var coreTables = []string{"users", "client_info", "client_financial", "promotions"}

// additiveColumns were added to client_info after the first release.
var additiveColumns = []struct {
	column string
	decl   string
}{
	{column: "last_call", decl: "DATETIME"},
	{column: "last_caller", decl: "TEXT"},
	{column: "last_offer", decl: "TEXT"},
}

// SeedAccount is the bootstrap administrator. PasswordHash must already be hashed.
type SeedAccount struct {
	Username     string
	PasswordHash string
	Role         string
}

// Seed is the default data inserted into empty tables.
type Seed struct {
	Admin  *SeedAccount
	Offers []string
}

// State is the schema lifecycle position of a store.
type State int

const (
	StateUninitialized State = iota
	StateBase
	StateCurrent
)

func (s State) String() string {
	switch s {
	case StateBase:
		return "SCHEMA_BASE"
	case StateCurrent:
		return "SCHEMA_CURRENT"
	default:
		return "UNINITIALIZED"
	}
}

// Bootstrap brings the store to StateCurrent: create tables, add missing
// columns, seed empty tables, absorb the legacy layout. Every step is
// idempotent, so running it against a current store changes nothing.
func (s *Store) Bootstrap(ctx context.Context, seed Seed) error {
	if err := s.InitializeSchema(ctx); err != nil {
		return err
	}
	if err := s.ApplyAdditiveMigrations(ctx); err != nil {
		return err
	}
	if err := s.SeedDefaults(ctx, seed); err != nil {
		return err
	}
	if _, err := s.AbsorbLegacySchema(ctx); err != nil {
		return err
	}
	return nil
}

// InitializeSchema creates the ledger tables if they don't exist.
func (s *Store) InitializeSchema(ctx context.Context) error {
	return s.WithScope(ctx, "schema.initialize", func(sc Scope) error {
		if _, err := sc.ExecContext(ctx, schemaDDL); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
		return nil
	})
}

// ApplyAdditiveMigrations adds the post-release client_info columns that
// are missing. A column is considered missing when selecting it fails.
func (s *Store) ApplyAdditiveMigrations(ctx context.Context) error {
	return s.WithScope(ctx, "schema.migrate", func(sc Scope) error {
		for _, c := range additiveColumns {
			present, err := columnPresent(ctx, sc, "client_info", c.column)
			if err != nil {
				return err
			}
			if present {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE client_info ADD COLUMN %s %s", c.column, c.decl)
			if _, err := sc.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("adding %s column to client_info: %w", c.column, err)
			}
			s.logger.Info("applied migration", "column", c.column, "table", "client_info")
		}
		return nil
	})
}

// columnPresent probes a column by reading it.
func columnPresent(ctx context.Context, sc Scope, table, column string) (bool, error) {
	rows, err := sc.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT 1", column, table))
	if err != nil {
		if strings.Contains(err.Error(), "no such column") {
			return false, nil
		}
		return false, fmt.Errorf("probing %s.%s: %w", table, column, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
	}
	return true, rows.Err()
}

// SeedDefaults inserts the bootstrap administrator when no accounts exist
// and the starter offers when the promotion catalog is empty. Emptiness
// is checked by count, so reruns are no-ops.
func (s *Store) SeedDefaults(ctx context.Context, seed Seed) error {
	return s.WithScope(ctx, "schema.seed", func(sc Scope) error {
		if seed.Admin != nil {
			n, err := countRows(ctx, sc, "users")
			if err != nil {
				return err
			}
			if n == 0 {
				role := seed.Admin.Role
				if role == "" {
					role = "admin"
				}
				if _, err := sc.ExecContext(ctx,
					`INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)`,
					seed.Admin.Username, seed.Admin.PasswordHash, role, FormatTimestamp(sc.Now()),
				); err != nil {
					return fmt.Errorf("seeding administrator: %w", err)
				}
				s.logger.Info("seeded bootstrap administrator", "username", seed.Admin.Username)
			}
		}

		if len(seed.Offers) > 0 {
			n, err := countRows(ctx, sc, "promotions")
			if err != nil {
				return err
			}
			if n == 0 {
				for _, offer := range seed.Offers {
					if _, err := sc.ExecContext(ctx, `INSERT INTO promotions (offer_text) VALUES (?)`, offer); err != nil {
						return fmt.Errorf("seeding promotion: %w", err)
					}
				}
				s.logger.Info("seeded promotion catalog", "count", len(seed.Offers))
			}
		}
		return nil
	})
}

func countRows(ctx context.Context, sc Scope, table string) (int, error) {
	var n int
	if err := sc.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// AbsorbLegacySchema moves rows from the pre-split "clients" table into
// client_info and client_financial (same ids) and drops it, all in one
// scope. It returns how many clients were absorbed; 0 when there is no
// legacy table.
func (s *Store) AbsorbLegacySchema(ctx context.Context) (int, error) {
	var absorbed int
	err := s.WithScope(ctx, "schema.absorb_legacy", func(sc Scope) error {
		present, err := tableExists(ctx, sc, LegacyClientsTable)
		if err != nil || !present {
			return err
		}

		if absorbed, err = countRows(ctx, sc, LegacyClientsTable); err != nil {
			return err
		}

		if _, err := sc.ExecContext(ctx, `
			INSERT INTO client_info (
				id, last_name, first_name, middle_name, birth_date,
				phone, email, address, created_at, updated_at
			)
			SELECT
				id, last_name, first_name, middle_name, birth_date,
				phone, email, address, created_at, updated_at
			FROM clients
		`); err != nil {
			return fmt.Errorf("copying legacy profiles: %w", err)
		}

		if _, err := sc.ExecContext(ctx, `
			INSERT INTO client_financial (client_id, tariff, balance, created_at, updated_at)
			SELECT id, COALESCE(tariff, ?), COALESCE(balance, 0.00), ?, ?
			FROM clients
		`, DefaultTariff, FormatTimestamp(sc.Now()), FormatTimestamp(sc.Now())); err != nil {
			return fmt.Errorf("copying legacy billing: %w", err)
		}

		if _, err := sc.ExecContext(ctx, `DROP TABLE clients`); err != nil {
			return fmt.Errorf("dropping legacy table: %w", err)
		}

		return AppendAudit(ctx, sc, &AuditEntry{
			Action:     AuditAbsorbLegacy,
			TargetType: TargetSchema,
			TargetID:   LegacyClientsTable,
			Detail:     map[string]any{"clients": absorbed},
		})
	})
	if err != nil {
		return 0, err
	}
	if absorbed > 0 {
		s.logger.Info("absorbed legacy clients table", "clients", absorbed)
	}
	return absorbed, nil
}

func tableExists(ctx context.Context, sc Scope, name string) (bool, error) {
	var found string
	err := sc.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probing table %s: %w", name, err)
	}
	return true, nil
}

// SchemaState reports where the store is in its lifecycle.
func (s *Store) SchemaState(ctx context.Context) (State, error) {
	state := StateCurrent
	err := s.WithScope(ctx, "schema.state", func(sc Scope) error {
		for _, t := range coreTables {
			ok, err := tableExists(ctx, sc, t)
			if err != nil {
				return err
			}
			if !ok {
				state = StateUninitialized
				return nil
			}
		}
		for _, c := range additiveColumns {
			ok, err := columnPresent(ctx, sc, "client_info", c.column)
			if err != nil {
				return err
			}
			if !ok {
				state = StateBase
				return nil
			}
		}
		legacy, err := tableExists(ctx, sc, LegacyClientsTable)
		if err != nil {
			return err
		}
		if legacy {
			state = StateBase
		}
		return nil
	})
	return state, err
}
