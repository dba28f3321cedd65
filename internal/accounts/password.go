// ABOUTME: bcrypt password hashing and comparison for staff accounts
// ABOUTME: Recognises legacy plaintext credentials so they can be upgraded on login

package accounts

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/generated/Chill-Man/internal/store"
)

// dummyHash is compared against when the username doesn't exist, so unknown
// users take as long to reject as wrong passwords.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword returns a bcrypt hash of password at the given cost.
// A cost of 0 means bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// isBcryptHash reports whether stored looks like a bcrypt hash rather than
// a plaintext credential written by the original program.
func isBcryptHash(stored string) bool {
	if len(stored) != 60 {
		return false
	}
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// matchPassword compares password with a stored credential. legacy is true
// when the stored value was plaintext and matched.
func matchPassword(stored, password string) (ok, legacy bool) {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	// Keep timing comparable to the bcrypt path.
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1 {
		return true, true
	}
	return false, false
}

// BootstrapAccount builds the seed administrator for store.Seed.
func BootstrapAccount(username, password string, cost int) (*store.SeedAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, store.Validation("accounts.bootstrap", "bootstrap username and password are required")
	}
	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, store.NewFault(store.KindStorage, "accounts.bootstrap", err)
	}
	return &store.SeedAccount{Username: username, PasswordHash: hash, Role: string(RoleAdmin)}, nil
}
