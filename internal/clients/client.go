// ABOUTME: Client aggregate: profile and billing halves of one logical client
// ABOUTME: Stored across client_info and client_financial, always read and written together

package clients

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/generated/Chill-Man/internal/store"
)

// Profile holds the contact half of a client. LastName and FirstName are
// mandatory; callers validate them (see Profile.Validate) before Add.
type Profile struct {
	LastName   string
	FirstName  string
	MiddleName string
	BirthDate  *time.Time
	Phone      string
	Email      string
	Address    string
}

// Validate reports a KindValidation fault when a mandatory name is blank.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.LastName) == "" {
		return store.Validation("clients.validate", "last name is required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return store.Validation("clients.validate", "first name is required")
	}
	return nil
}

// Billing holds the financial half of a client.
type Billing struct {
	Tariff  string
	Balance decimal.Decimal
}

// withDefaults fills the tariff default.
func (b Billing) withDefaults() Billing {
	if strings.TrimSpace(b.Tariff) == "" {
		b.Tariff = store.DefaultTariff
	}
	return b
}

// Client is the merged view of a client_info row and its client_financial row.
type Client struct {
	ID      int64
	Profile Profile
	Billing Billing

	// Call audit fields, written only by RecordCall.
	LastCall   *time.Time
	LastCaller string
	LastOffer  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName renders "Last First Middle".
func (c Client) FullName() string {
	parts := []string{c.Profile.LastName, c.Profile.FirstName}
	if c.Profile.MiddleName != "" {
		parts = append(parts, c.Profile.MiddleName)
	}
	return strings.Join(parts, " ")
}

// ParseBalance parses a money amount, accepting a comma decimal separator.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}
