// ABOUTME: Boolean-result facades over the account directory and client ledger
// ABOUTME: Faults are logged and collapsed to false / nil / empty, matching the desktop program's contract

package compat

import (
	"context"
	"log/slog"

	"github.com/generated/Chill-Man/internal/accounts"
	"github.com/generated/Chill-Man/internal/clients"
)

// Users wraps an accounts.Directory.
type Users struct {
	dir    *accounts.Directory
	logger *slog.Logger
}

// NewUsers creates a Users facade.
func NewUsers(dir *accounts.Directory, logger *slog.Logger) *Users {
	return &Users{dir: dir, logger: logger.With("component", "compat.users")}
}

// VerifyUser reports whether the credentials match and, if so, the role.
func (u *Users) VerifyUser(ctx context.Context, username, password string) (bool, string) {
	ok, role, err := u.dir.Verify(ctx, username, password)
	if err != nil {
		u.logger.Error("verify user failed", "username", username, "error", err)
		return false, ""
	}
	if !ok {
		return false, ""
	}
	return true, string(role)
}

// CreateUser reports false for a taken username or any other fault.
func (u *Users) CreateUser(ctx context.Context, username, password, role string) bool {
	if err := u.dir.Create(ctx, username, password, accounts.Role(role)); err != nil {
		u.logger.Error("create user failed", "username", username, "error", err)
		return false
	}
	return true
}

// UpdateUserRole reports whether a user was updated.
func (u *Users) UpdateUserRole(ctx context.Context, username, role string) bool {
	ok, err := u.dir.UpdateRole(ctx, username, accounts.Role(role))
	if err != nil {
		u.logger.Error("update user role failed", "username", username, "error", err)
		return false
	}
	return ok
}

// DeleteUser reports whether a user was removed.
func (u *Users) DeleteUser(ctx context.Context, username string) bool {
	ok, err := u.dir.Delete(ctx, username)
	if err != nil {
		u.logger.Error("delete user failed", "username", username, "error", err)
		return false
	}
	return ok
}

// GetAllUsers returns every account, or nothing on a fault.
func (u *Users) GetAllUsers(ctx context.Context) []accounts.User {
	users, err := u.dir.List(ctx)
	if err != nil {
		u.logger.Error("list users failed", "error", err)
		return []accounts.User{}
	}
	return users
}

// Clients wraps a clients.Ledger.
type Clients struct {
	ledger *clients.Ledger
	logger *slog.Logger
}

// NewClients creates a Clients facade.
func NewClients(ledger *clients.Ledger, logger *slog.Logger) *Clients {
	return &Clients{ledger: ledger, logger: logger.With("component", "compat.clients")}
}

func (c *Clients) AddClient(ctx context.Context, p clients.Profile, b clients.Billing) bool {
	if _, err := c.ledger.Add(ctx, p, b); err != nil {
		c.logger.Error("add client failed", "error", err)
		return false
	}
	return true
}

func (c *Clients) UpdateClient(ctx context.Context, id int64, p clients.Profile, b clients.Billing) bool {
	if err := c.ledger.Update(ctx, id, p, b); err != nil {
		c.logger.Error("update client failed", "id", id, "error", err)
		return false
	}
	return true
}

// GetClient returns nil when the client is missing or on a fault.
func (c *Clients) GetClient(ctx context.Context, id int64) *clients.Client {
	cl, err := c.ledger.Get(ctx, id)
	if err != nil {
		c.logger.Error("get client failed", "id", id, "error", err)
		return nil
	}
	return cl
}

func (c *Clients) GetAllClients(ctx context.Context) []clients.Client {
	cs, err := c.ledger.List(ctx)
	if err != nil {
		c.logger.Error("list clients failed", "error", err)
		return []clients.Client{}
	}
	return cs
}

func (c *Clients) SearchClients(ctx context.Context, query string) []clients.Client {
	cs, err := c.ledger.Search(ctx, query)
	if err != nil {
		c.logger.Error("search clients failed", "query", query, "error", err)
		return []clients.Client{}
	}
	return cs
}

// DeleteClient is true whenever no fault occurred, matched or not.
func (c *Clients) DeleteClient(ctx context.Context, id int64) bool {
	if err := c.ledger.Delete(ctx, id); err != nil {
		c.logger.Error("delete client failed", "id", id, "error", err)
		return false
	}
	return true
}

// UpdateLastCall records a call by username; offer may be empty.
func (c *Clients) UpdateLastCall(ctx context.Context, id int64, username, offer string) bool {
	if err := c.ledger.RecordCall(ctx, id, username, offer); err != nil {
		c.logger.Error("update last call failed", "id", id, "error", err)
		return false
	}
	return true
}
