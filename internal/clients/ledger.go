// ABOUTME: Client ledger: paired client_info/client_financial CRUD, search and call recording
// ABOUTME: Every write runs in one store scope so both halves commit or neither does

package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/generated/Chill-Man/internal/store"
)

// Ledger manages clients.
type Ledger struct {
	store  *store.Store
	logger *slog.Logger
}

// NewLedger creates a Ledger over st.
func NewLedger(st *store.Store) *Ledger {
	return &Ledger{
		store:  st,
		logger: st.Logger().With("component", "clients"),
	}
}

const selectClient = `
	SELECT
		ci.id, ci.last_name, ci.first_name, ci.middle_name, ci.birth_date,
		ci.phone, ci.email, ci.address,
		cf.client_id, cf.tariff, cf.balance,
		ci.last_call, ci.last_caller, ci.last_offer,
		ci.created_at, ci.updated_at
	FROM client_info ci
	LEFT JOIN client_financial cf ON cf.client_id = ci.id
`

// searchFields are matched against the folded query. NULL columns never match.
var searchFields = []string{
	"ci.last_name",
	"ci.first_name",
	"ci.middle_name",
	"ci.phone",
	"ci.email",
	"ci.address",
	"cf.tariff",
}

var searchWhere = func() string {
	clauses := make([]string, len(searchFields))
	for i, f := range searchFields {
		clauses[i] = fmt.Sprintf("instr(%s(%s), ?) > 0", store.FoldFunc, f)
	}
	return "WHERE " + strings.Join(clauses, " OR ")
}()

// Add creates a client and its billing row in one scope and returns the new id.
// An empty tariff becomes store.DefaultTariff. Names are not checked here;
// callers run Profile.Validate first.
func (l *Ledger) Add(ctx context.Context, p Profile, b Billing) (int64, error) {
	const op = "clients.add"

	b = b.withDefaults()

	var id int64
	err := l.store.WithScope(ctx, op, func(sc store.Scope) error {
		now := store.FormatTimestamp(sc.Now())

		res, err := sc.ExecContext(ctx, `
			INSERT INTO client_info (
				last_name, first_name, middle_name, birth_date,
				phone, email, address, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.LastName, p.FirstName, store.NullString(p.MiddleName), store.NullDate(p.BirthDate),
			store.NullString(p.Phone), store.NullString(p.Email), store.NullString(p.Address), now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting client_info: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading client id: %w", err)
		}

		if _, err := sc.ExecContext(ctx, `
			INSERT INTO client_financial (client_id, tariff, balance, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, b.Tariff, b.Balance.InexactFloat64(), now, now); err != nil {
			return fmt.Errorf("inserting client_financial: %w", err)
		}

		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditAddClient,
			TargetType: store.TargetClient,
			TargetID:   strconv.FormatInt(id, 10),
			Detail:     map[string]any{"name": p.LastName + " " + p.FirstName},
		})
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("added client", "id", id)
	return id, nil
}

// Update overwrites both halves of a client. Fields are replaced wholesale,
// so unset optional fields are cleared. An unknown id yields a KindNotFound
// fault and nothing is written.
func (l *Ledger) Update(ctx context.Context, id int64, p Profile, b Billing) error {
	const op = "clients.update"

	b = b.withDefaults()

	return l.store.WithScope(ctx, op, func(sc store.Scope) error {
		now := store.FormatTimestamp(sc.Now())

		res, err := sc.ExecContext(ctx, `
			UPDATE client_info SET
				last_name = ?, first_name = ?, middle_name = ?, birth_date = ?,
				phone = ?, email = ?, address = ?, updated_at = ?
			WHERE id = ?
		`,
			p.LastName, p.FirstName, store.NullString(p.MiddleName), store.NullDate(p.BirthDate),
			store.NullString(p.Phone), store.NullString(p.Email), store.NullString(p.Address), now, id,
		)
		if err != nil {
			return fmt.Errorf("updating client_info: %w", err)
		}
		if ok, err := rowsMatched(res); err != nil {
			return err
		} else if !ok {
			return store.NotFound(op)
		}

		res, err = sc.ExecContext(ctx, `
			UPDATE client_financial SET tariff = ?, balance = ?, updated_at = ?
			WHERE client_id = ?
		`, b.Tariff, b.Balance.InexactFloat64(), now, id)
		if err != nil {
			return fmt.Errorf("updating client_financial: %w", err)
		}
		if ok, err := rowsMatched(res); err != nil {
			return err
		} else if !ok {
			return missingBilling(op, id)
		}

		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditUpdateClient,
			TargetType: store.TargetClient,
			TargetID:   strconv.FormatInt(id, 10),
		})
	})
}

// Get returns one client, or a KindNotFound fault.
func (l *Ledger) Get(ctx context.Context, id int64) (*Client, error) {
	const op = "clients.get"
	var c *Client
	err := l.store.WithScope(ctx, op, func(sc store.Scope) error {
		var err error
		c, err = scanClient(op, sc.QueryRowContext(ctx, selectClient+` WHERE ci.id = ?`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every client ordered by last name, then first name.
func (l *Ledger) List(ctx context.Context) ([]Client, error) {
	return l.query(ctx, "clients.list", selectClient+` ORDER BY ci.last_name, ci.first_name, ci.id`)
}

// Search returns clients where any of last name, first name, middle name,
// phone, email, address or tariff contains query. Matching is a literal,
// Unicode case-insensitive substring test; an empty query matches everyone.
func (l *Ledger) Search(ctx context.Context, query string) ([]Client, error) {
	folded := store.Fold(query)
	args := make([]any, len(searchFields))
	for i := range args {
		args[i] = folded
	}
	return l.query(ctx, "clients.search",
		selectClient+searchWhere+` ORDER BY ci.last_name, ci.first_name, ci.id`, args...)
}

func (l *Ledger) query(ctx context.Context, op, q string, args ...any) ([]Client, error) {
	var out []Client
	err := l.store.WithScope(ctx, op, func(sc store.Scope) error {
		rows, err := sc.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("querying clients: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			c, err := scanClient(op, rows)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Client{}
	}
	return out, nil
}

// Delete removes a client; its billing row goes with it via the foreign key.
// Deleting an unknown id is not an error.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	var matched bool
	err := l.store.WithScope(ctx, "clients.delete", func(sc store.Scope) error {
		res, err := sc.ExecContext(ctx, `DELETE FROM client_info WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting client: %w", err)
		}
		if matched, err = rowsMatched(res); err != nil || !matched {
			return err
		}
		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditDeleteClient,
			TargetType: store.TargetClient,
			TargetID:   strconv.FormatInt(id, 10),
		})
	})
	if err != nil {
		return err
	}
	if matched {
		l.logger.Info("deleted client", "id", id)
	}
	return nil
}

// RecordCall stamps a client with the time of a call and who made it.
// When offer is non-empty it is stored as the last offer; otherwise the
// previous offer is kept. An empty caller falls back to the context actor.
// Other profile fields and updated_at are left alone.
func (l *Ledger) RecordCall(ctx context.Context, id int64, caller, offer string) error {
	const op = "clients.record_call"

	return l.store.WithScope(ctx, op, func(sc store.Scope) error {
		if caller == "" {
			caller = sc.Actor()
		}
		when := sc.Now()

		var res sql.Result
		var err error
		if offer != "" {
			res, err = sc.ExecContext(ctx,
				`UPDATE client_info SET last_call = ?, last_caller = ?, last_offer = ? WHERE id = ?`,
				store.FormatTimestamp(when), caller, offer, id)
		} else {
			res, err = sc.ExecContext(ctx,
				`UPDATE client_info SET last_call = ?, last_caller = ? WHERE id = ?`,
				store.FormatTimestamp(when), caller, id)
		}
		if err != nil {
			return fmt.Errorf("recording call: %w", err)
		}
		if ok, err := rowsMatched(res); err != nil {
			return err
		} else if !ok {
			return store.NotFound(op)
		}

		detail := map[string]any{"caller": caller}
		if offer != "" {
			detail["offer"] = offer
		}
		return store.AppendAudit(ctx, sc, &store.AuditEntry{
			Action:     store.AuditRecordCall,
			TargetType: store.TargetClient,
			TargetID:   strconv.FormatInt(id, 10),
			Detail:     detail,
		})
	})
}

// CallHistory returns recorded calls for a client, newest first.
func (l *Ledger) CallHistory(ctx context.Context, id int64, limit int) ([]store.AuditEntry, error) {
	action := store.AuditRecordCall
	target := store.TargetClient
	targetID := strconv.FormatInt(id, 10)
	return l.store.ListAuditLog(ctx, store.AuditFilter{
		Action:     &action,
		TargetType: &target,
		TargetID:   &targetID,
		Limit:      limit,
	})
}

func scanClient(op string, scanner interface{ Scan(dest ...any) error }) (*Client, error) {
	var (
		c                                     Client
		middle, phone, email, address         sql.NullString
		birth, lastCall, createdAt, updatedAt sql.NullString
		lastCaller, lastOffer                 sql.NullString
		billingID                             sql.NullInt64
		tariff, balance                       sql.NullString
	)
	if err := scanner.Scan(
		&c.ID, &c.Profile.LastName, &c.Profile.FirstName, &middle, &birth,
		&phone, &email, &address,
		&billingID, &tariff, &balance,
		&lastCall, &lastCaller, &lastOffer,
		&createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound(op)
		}
		return nil, fmt.Errorf("scanning client: %w", err)
	}
	if !billingID.Valid {
		return nil, missingBilling(op, c.ID)
	}

	c.Profile.MiddleName = middle.String
	c.Profile.Phone = phone.String
	c.Profile.Email = email.String
	c.Profile.Address = address.String
	c.LastCaller = lastCaller.String
	c.LastOffer = lastOffer.String
	c.Billing.Tariff = tariff.String

	var err error
	if c.Billing.Balance, err = decodeBalance(balance); err != nil {
		return nil, fmt.Errorf("client %d balance: %w", c.ID, err)
	}
	if c.Profile.BirthDate, err = decodeDate(birth); err != nil {
		return nil, fmt.Errorf("client %d birth_date: %w", c.ID, err)
	}
	if c.LastCall, err = store.ParseNullTimestamp(lastCall); err != nil {
		return nil, fmt.Errorf("client %d last_call: %w", c.ID, err)
	}
	if ts, err := store.ParseNullTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("client %d created_at: %w", c.ID, err)
	} else if ts != nil {
		c.CreatedAt = *ts
	}
	if ts, err := store.ParseNullTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("client %d updated_at: %w", c.ID, err)
	} else if ts != nil {
		c.UpdatedAt = *ts
	}
	return &c, nil
}

// decodeBalance reads the REAL balance column. Legacy rows may hold text
// with a comma separator.
func decodeBalance(ns sql.NullString) (decimal.Decimal, error) {
	if !ns.Valid {
		return decimal.Zero, nil
	}
	d, err := ParseBalance(ns.String)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// decodeDate reads a DATE column and drops any time-of-day component.
func decodeDate(ns sql.NullString) (*time.Time, error) {
	t, err := store.ParseNullTimestamp(ns)
	if err != nil || t == nil {
		return nil, err
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func missingBilling(op string, id int64) error {
	return store.NewFault(store.KindStorage, op, fmt.Errorf("client %d has no client_financial row", id))
}

func rowsMatched(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}
