// ABOUTME: Account directory: staff login credentials and role assignment
// ABOUTME: Verify/Create/UpdateRole/Delete/List over the users table, one scope per call

package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/generated/Chill-Man/internal/store"
)

// Role is a staff permission level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

// legacyWorkerRole is the worker role label stored by the original program.
const legacyWorkerRole = "Работник"

// ValidRoles lists assignable roles.
var ValidRoles = []Role{RoleAdmin, RoleWorker}

// ParseRole validates a role name. Empty means RoleWorker.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RoleWorker), strings.ToLower(legacyWorkerRole):
		return RoleWorker, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// normalizeRole maps stored values (including legacy labels) onto Role.
func normalizeRole(s string) Role {
	if r, err := ParseRole(s); err == nil {
		return r
	}
	return Role(s)
}

// CanManageUsers reports whether the role may administer accounts.
func (r Role) CanManageUsers() bool { return r == RoleAdmin }

// User is a staff account. The credential never leaves this package.
type User struct {
	ID        int64
	Username  string
	Role      Role
	CreatedAt time.Time
}

// Directory manages staff accounts.
type Directory struct {
	store  *store.Store
	logger *slog.Logger
	cost   int
}

// Option configures a Directory.
type Option func(*Directory)

// WithBcryptCost sets the bcrypt cost for new hashes.
func WithBcryptCost(cost int) Option {
	return func(d *Directory) { d.cost = cost }
}

// NewDirectory creates a Directory over st.
func NewDirectory(st *store.Store, opts ...Option) *Directory {
	d := &Directory{
		store:  st,
		logger: st.Logger().With("component", "accounts"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Verify checks a username/password pair. It returns ok=false without an
// error for both unknown users and wrong passwords. A matching plaintext
// credential left by the original program is replaced by a bcrypt hash.
func (d *Directory) Verify(ctx context.Context, username, password string) (bool, Role, error) {
	var ok bool
	var role Role

	err := d.store.WithScope(ctx, "accounts.verify", func(sc store.Scope) error {
		var id int64
		var stored string
		var roleStr sql.NullString

		err := sc.QueryRowContext(ctx,
			`SELECT id, password, role FROM users WHERE username = ?`, username,
		).Scan(&id, &stored, &roleStr)
		if errors.Is(err, sql.ErrNoRows) {
			matchPassword(dummyHash, password)
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying user: %w", err)
		}

		match, legacy := matchPassword(stored, password)
		if !match {
			return nil
		}
		if legacy {
			hash, err := HashPassword(password, d.cost)
			if err != nil {
				return err
			}
			if _, err := sc.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hash, id); err != nil {
				return fmt.Errorf("upgrading credential: %w", err)
			}
			d.logger.Info("upgraded plaintext credential", "username", username)
		}

		ok = true
		role = normalizeRole(roleStr.String)
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return ok, role, nil
}

// Create registers a new account. An empty role means RoleWorker.
// A taken username yields a KindUniqueness fault and leaves the existing row as is.
func (d *Directory) Create(ctx context.Context, username, password string, role Role) error {
	const op = "accounts.create"

	username = strings.TrimSpace(username)
	if username == "" {
		return store.Validation(op, "username is required")
	}
	if password == "" {
		return store.Validation(op, "password is required")
	}
	r, err := ParseRole(string(role))
	if err != nil {
		return store.Validation(op, "%v", err)
	}

	hash, err := HashPassword(password, d.cost)
	if err != nil {
		return store.NewFault(store.KindStorage, op, err)
	}

	err = d.store.WithScope(ctx, op, func(sc store.Scope) error {
		res, err := sc.ExecContext(ctx,
			`INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)`,
			username, hash, string(r), store.FormatTimestamp(sc.Now()),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditCreateUser,
			TargetType: store.TargetUser,
			TargetID:   username,
			Detail:     map[string]any{"id": id, "role": string(r)},
		})
	})
	if err != nil {
		return err
	}

	d.logger.Info("created user", "username", username, "role", r)
	return nil
}

// UpdateRole changes a user's role. It reports whether a row matched.
func (d *Directory) UpdateRole(ctx context.Context, username string, role Role) (bool, error) {
	const op = "accounts.update_role"

	r, err := ParseRole(string(role))
	if err != nil || role == "" {
		return false, store.Validation(op, "unknown role %q", role)
	}

	var matched bool
	err = d.store.WithScope(ctx, op, func(sc store.Scope) error {
		res, err := sc.ExecContext(ctx, `UPDATE users SET role = ? WHERE username = ?`, string(r), username)
		if err != nil {
			return err
		}
		if matched, err = affected(res); err != nil || !matched {
			return err
		}
		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditUpdateRole,
			TargetType: store.TargetUser,
			TargetID:   username,
			Detail:     map[string]any{"role": string(r)},
		})
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

// Delete removes an account. It reports whether a row matched.
func (d *Directory) Delete(ctx context.Context, username string) (bool, error) {
	var matched bool
	err := d.store.WithScope(ctx, "accounts.delete", func(sc store.Scope) error {
		res, err := sc.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
		if err != nil {
			return err
		}
		if matched, err = affected(res); err != nil || !matched {
			return err
		}
		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditDeleteUser,
			TargetType: store.TargetUser,
			TargetID:   username,
		})
	})
	if err != nil {
		return false, err
	}
	if matched {
		d.logger.Info("deleted user", "username", username)
	}
	return matched, nil
}

// List returns every account in insertion order.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	var users []User
	err := d.store.WithScope(ctx, "accounts.list", func(sc store.Scope) error {
		rows, err := sc.QueryContext(ctx, `SELECT id, username, role, created_at FROM users ORDER BY id`)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Get returns one account by username, or a KindNotFound fault.
func (d *Directory) Get(ctx context.Context, username string) (*User, error) {
	const op = "accounts.get"
	var u *User
	err := d.store.WithScope(ctx, op, func(sc store.Scope) error {
		var err error
		u, err = scanUser(sc.QueryRowContext(ctx,
			`SELECT id, username, role, created_at FROM users WHERE username = ?`, username))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var role, createdAt sql.NullString
	if err := scanner.Scan(&u.ID, &u.Username, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = normalizeRole(role.String)
	if ts, err := store.ParseNullTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	} else if ts != nil {
		u.CreatedAt = *ts
	}
	return &u, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}
