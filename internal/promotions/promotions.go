// ABOUTME: Read-only promotion catalog consulted when recording a call
// ABOUTME: Offers are seeded once; calls snapshot the offer text, not its id

package promotions

import (
	"context"
	"fmt"

	"github.com/generated/Chill-Man/internal/store"
)

// DefaultOffers is the starter catalog seeded into an empty promotions table.
var DefaultOffers = []string{
	"20% discount for 3 months",
	"2% cashback forever",
	"Bring a friend - get a month free",
	"Free tariff upgrade for 6 months",
	"Double loyalty points for a year",
}

// Promotion is one catalog entry.
type Promotion struct {
	ID        int64
	OfferText string
}

// Catalog reads the promotion catalog.
type Catalog struct {
	store *store.Store
}

// NewCatalog creates a Catalog over st.
func NewCatalog(st *store.Store) *Catalog {
	return &Catalog{store: st}
}

// List returns every offer in id order.
func (c *Catalog) List(ctx context.Context) ([]Promotion, error) {
	var promos []Promotion
	err := c.store.WithScope(ctx, "promotions.list", func(sc store.Scope) error {
		rows, err := sc.QueryContext(ctx, `SELECT id, offer_text FROM promotions ORDER BY id`)
		if err != nil {
			return fmt.Errorf("listing promotions: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var p Promotion
			if err := rows.Scan(&p.ID, &p.OfferText); err != nil {
				return fmt.Errorf("scanning promotion: %w", err)
			}
			promos = append(promos, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if promos == nil {
		promos = []Promotion{}
	}
	return promos, nil
}

// Get returns one offer by id, or a KindNotFound fault.
func (c *Catalog) Get(ctx context.Context, id int64) (*Promotion, error) {
	var p Promotion
	err := c.store.WithScope(ctx, "promotions.get", func(sc store.Scope) error {
		return sc.QueryRowContext(ctx, `SELECT id, offer_text FROM promotions WHERE id = ?`, id).
			Scan(&p.ID, &p.OfferText)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
