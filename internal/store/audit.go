// ABOUTME: Append-only audit log of ledger actions (accounts, clients, calls)
// ABOUTME: Entries carry no foreign keys so they outlive the rows they describe

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditCreateUser   AuditAction = "create_user"
	AuditUpdateRole   AuditAction = "update_role"
	AuditDeleteUser   AuditAction = "delete_user"
	AuditAddClient    AuditAction = "add_client"
	AuditUpdateClient AuditAction = "update_client"
	AuditDeleteClient AuditAction = "delete_client"
	AuditRecordCall   AuditAction = "record_call"
	AuditAbsorbLegacy AuditAction = "absorb_legacy"
)

// Audit target types.
const (
	TargetUser   = "user"
	TargetClient = "client"
	TargetSchema = "schema"
)

// auditTimeLayout is fixed-width so ts sorts lexically.
const auditTimeLayout = "2006-01-02T15:04:05.000000000Z"

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID         string         // UUID v4
	Actor      string         // who performed the action
	Action     AuditAction    // what action was performed
	TargetType string         // "user", "client", "schema"
	TargetID   string         // ID of the affected resource
	Timestamp  time.Time      // when it happened
	Detail     map[string]any // additional context
}

// AuditFilter narrows ListAuditLog.
type AuditFilter struct {
	Actor      *string
	Action     *AuditAction
	TargetType *string
	TargetID   *string
	Limit      int // default 100, max 1000
}

// AppendAudit writes e inside the caller's scope so the entry commits or
// rolls back together with the change it describes. ID, Actor and
// Timestamp are filled from the scope when unset.
func AppendAudit(ctx context.Context, sc Scope, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Actor == "" {
		e.Actor = sc.Actor()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = sc.Now()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	_, err := sc.ExecContext(ctx, `
		INSERT INTO audit_log (audit_id, actor, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Actor,
		e.Action,
		e.TargetType,
		e.TargetID,
		e.Timestamp.UTC().Format(auditTimeLayout),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

const auditLogQuery = `
	SELECT audit_id, actor, action, target_type, target_id, ts, detail_json
	FROM audit_log
	WHERE (? IS NULL OR actor = ?)
	  AND (? IS NULL OR action = ?)
	  AND (? IS NULL OR target_type = ?)
	  AND (? IS NULL OR target_id = ?)
	ORDER BY ts DESC, rowid DESC
	LIMIT ?
`

// ListAuditLog returns entries matching f, newest first.
func (s *Store) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	var action *string
	if f.Action != nil {
		a := string(*f.Action)
		action = &a
	}

	var entries []AuditEntry
	err := s.WithScope(ctx, "audit.list", func(sc Scope) error {
		rows, err := sc.QueryContext(ctx, auditLogQuery,
			f.Actor, f.Actor,
			action, action,
			f.TargetType, f.TargetType,
			f.TargetID, f.TargetID,
			normalizeAuditLimit(f.Limit),
		)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			e, err := scanAuditEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (AuditEntry, error) {
	var e AuditEntry
	var actionStr, tsStr string
	var detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.Actor,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = AuditAction(actionStr)
	var err error
	e.Timestamp, err = ParseTimestamp(tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}
