// ABOUTME: Timestamp encoding helpers shared by ledger tables
// ABOUTME: Writes RFC3339 UTC, reads RFC3339, SQLite CURRENT_TIMESTAMP and legacy dd.mm.yyyy forms

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout used for date-only columns.
const DateLayout = "2006-01-02"

// readLayouts are tried in order when decoding stored timestamps.
var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DateLayout,
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// FormatTimestamp encodes t for a DATETIME/TIMESTAMP column.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatDate encodes t for a DATE column.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseTimestamp decodes any timestamp form the ledger may contain.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseNullTimestamp decodes an optional column; NULL and "" map to nil.
func ParseNullTimestamp(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTimestamp encodes an optional timestamp.
func NullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTimestamp(*t), Valid: true}
}

// NullDate encodes an optional date.
func NullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatDate(*t), Valid: true}
}
