// Package compat exposes the account directory and client ledger with the
// boolean and empty-result contract of the original desktop program.
// Faults are logged and never returned.
package compat
