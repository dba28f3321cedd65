// Package accounts manages the staff accounts that sign in to the ledger.
//
// Credentials are stored as bcrypt hashes. Rows still holding a plaintext
// password (written by the original desktop program) are accepted once and
// rehashed on the first successful Verify.
//
// Two roles exist: admin may manage accounts, worker may not. The role check
// itself is the caller's job; Role.CanManageUsers is provided for it.
package accounts
