package promotions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generated/Chill-Man/internal/store"
)

func setupTestCatalog(t *testing.T, offers []string) *Catalog {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Bootstrap(context.Background(), store.Seed{Offers: offers}))
	return NewCatalog(st)
}

func TestList_SeededDefaults(t *testing.T) {
	catalog := setupTestCatalog(t, DefaultOffers)

	promos, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, promos, len(DefaultOffers))
	for i, p := range promos {
		assert.Equal(t, DefaultOffers[i], p.OfferText)
		assert.EqualValues(t, i+1, p.ID)
	}
}

func TestList_Empty(t *testing.T) {
	catalog := setupTestCatalog(t, nil)

	promos, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, promos)
	assert.Empty(t, promos)
}

func TestGet(t *testing.T) {
	catalog := setupTestCatalog(t, DefaultOffers)
	ctx := context.Background()

	p, err := catalog.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "2% cashback forever", p.OfferText)

	_, err = catalog.Get(ctx, 99)
	assert.True(t, store.IsNotFound(err))
}
