// ABOUTME: Structured fault type and sentinel kinds for ledger persistence
// ABOUTME: Maps SQLite driver errors onto validation/uniqueness/storage/not-found kinds

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a Fault.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindUniqueness
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUniqueness:
		return "uniqueness"
	case KindNotFound:
		return "not found"
	default:
		return "storage"
	}
}

// Sentinel errors matched by errors.Is against any Fault of the same kind.
var (
	ErrStorage    = errors.New("storage fault")
	ErrValidation = errors.New("validation fault")
	ErrUniqueness = errors.New("uniqueness fault")
	ErrNotFound   = errors.New("not found")
)

// Fault is the error type returned by every ledger operation.
type Fault struct {
	Kind Kind
	Op   string // operation that failed, e.g. "clients.add"
	Err  error  // underlying cause, may be nil
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Is reports whether target is the sentinel for this fault's kind.
func (f *Fault) Is(target error) bool {
	return target == f.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindUniqueness:
		return ErrUniqueness
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrStorage
	}
}

// NewFault builds a Fault of the given kind.
func NewFault(kind Kind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

// Validation returns a KindValidation fault with a formatted message.
func Validation(op, format string, args ...any) *Fault {
	return &Fault{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound returns a KindNotFound fault.
func NotFound(op string) *Fault {
	return &Fault{Kind: KindNotFound, Op: op}
}

// Wrap classifies a raw driver error and wraps it as a Fault for op.
// Errors that are already Faults keep their kind. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}
	if isUniqueConstraintError(err) {
		return KindUniqueness
	}
	return KindStorage
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE or PRIMARY KEY violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// KindOf returns the kind of err, or KindStorage for foreign errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindStorage
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsUniqueness(err error) bool { return errors.Is(err, ErrUniqueness) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsStorage(err error) bool    { return errors.Is(err, ErrStorage) }
