// ABOUTME: Tests for the client ledger
// ABOUTME: Covers the profile/billing pairing, cascade delete, search, update and call recording

package clients

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generated/Chill-Man/internal/store"
)

var testNow = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

func setupTestLedger(t *testing.T) (*Ledger, *store.Store, *time.Time) {
	t.Helper()
	now := testNow
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Bootstrap(context.Background(), store.Seed{
		Offers: []string{"20% discount for 3 months"},
	}))
	return NewLedger(st), st, &now
}

func countRows(t *testing.T, st *store.Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, st.WithScope(context.Background(), "test.count", func(sc store.Scope) error {
		return sc.QueryRowContext(context.Background(), query, args...).Scan(&n)
	}))
	return n
}

func assertPaired(t *testing.T, st *store.Store) {
	t.Helper()
	orphans := countRows(t, st, `
		SELECT COUNT(*) FROM client_info ci
		WHERE (SELECT COUNT(*) FROM client_financial cf WHERE cf.client_id = ci.id) != 1
	`)
	assert.Zero(t, orphans, "every client_info row needs exactly one client_financial row")
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAdd_DefaultsAndPairing(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.NoError(t, err)
	assert.Positive(t, id)
	assertPaired(t, st)

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Smith", c.Profile.LastName)
	assert.Equal(t, "Jane", c.Profile.FirstName)
	assert.Equal(t, store.DefaultTariff, c.Billing.Tariff)
	assert.True(t, c.Billing.Balance.IsZero())
	assert.Nil(t, c.Profile.BirthDate)
	assert.Nil(t, c.LastCall)
	assert.Empty(t, c.LastCaller)
	assert.True(t, testNow.Equal(c.CreatedAt))
	assert.True(t, testNow.Equal(c.UpdatedAt))
}

func TestAdd_FullProfile(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := context.Background()

	p := Profile{
		LastName:   "Иванов",
		FirstName:  "Иван",
		MiddleName: "Иванович",
		BirthDate:  date(1985, time.March, 15),
		Phone:      "+7 900 123-45-67",
		Email:      "ivanov@example.ru",
		Address:    "Москва, ул. Ленина, 1",
	}
	b := Billing{Tariff: "Premium", Balance: decimal.RequireFromString("150.75")}

	id, err := ledger.Add(ctx, p, b)
	require.NoError(t, err)

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, p.MiddleName, c.Profile.MiddleName)
	require.NotNil(t, c.Profile.BirthDate)
	assert.True(t, p.BirthDate.Equal(*c.Profile.BirthDate))
	assert.Equal(t, p.Address, c.Profile.Address)
	assert.Equal(t, "Premium", c.Billing.Tariff)
	assert.Equal(t, "150.75", c.Billing.Balance.StringFixed(2))
	assert.Equal(t, "Иванов Иван Иванович", c.FullName())
}

func TestAdd_DoesNotValidateNames(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)

	_, err := ledger.Add(context.Background(), Profile{}, Billing{})
	require.NoError(t, err)

	assert.True(t, store.IsValidation(Profile{FirstName: "Jane"}.Validate()))
	assert.True(t, store.IsValidation(Profile{LastName: "Smith", FirstName: " "}.Validate()))
	assert.NoError(t, Profile{LastName: "Smith", FirstName: "Jane"}.Validate())
}

func TestAdd_RollsBackProfileWhenBillingFails(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	// Make the client_financial insert fail after client_info succeeded.
	require.NoError(t, st.WithScope(ctx, "test.trigger", func(sc store.Scope) error {
		_, err := sc.ExecContext(ctx, `
			CREATE TRIGGER reject_billing BEFORE INSERT ON client_financial
			BEGIN SELECT RAISE(ABORT, 'billing rejected'); END
		`)
		return err
	}))

	_, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.Error(t, err)
	assert.True(t, store.IsStorage(err))

	assert.Zero(t, countRows(t, st, `SELECT COUNT(*) FROM client_info`))
	assert.Zero(t, countRows(t, st, `SELECT COUNT(*) FROM audit_log`))
}

func TestGet_NotFound(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)

	_, err := ledger.Get(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestGet_MissingBillingIsIntegrityFault(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	require.NoError(t, st.WithScope(ctx, "test.orphan", func(sc store.Scope) error {
		_, err := sc.ExecContext(ctx, `INSERT INTO client_info (id, last_name, first_name) VALUES (50, 'Orphan', 'Row')`)
		return err
	}))

	_, err := ledger.Get(ctx, 50)
	require.Error(t, err)
	assert.True(t, store.IsStorage(err))
	assert.Contains(t, err.Error(), "no client_financial row")
}

func TestList_Ordering(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := context.Background()

	for _, n := range [][2]string{{"Smith", "Jane"}, {"Adams", "Zed"}, {"Adams", "Amy"}} {
		_, err := ledger.Add(ctx, Profile{LastName: n[0], FirstName: n[1]}, Billing{})
		require.NoError(t, err)
	}

	cs, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, "Adams Amy", cs[0].FullName())
	assert.Equal(t, "Adams Zed", cs[1].FullName())
	assert.Equal(t, "Smith Jane", cs[2].FullName())
}

func TestList_Empty(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)

	cs, err := ledger.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cs)
	assert.Empty(t, cs)
}

func TestUpdate_OverwritesWholesale(t *testing.T) {
	ledger, st, now := setupTestLedger(t)
	ctx := context.Background()

	id, err := ledger.Add(ctx, Profile{
		LastName: "Smith", FirstName: "Jane", Phone: "555-0100", Email: "jane@example.com",
	}, Billing{Tariff: "Premium", Balance: decimal.NewFromInt(10)})
	require.NoError(t, err)

	*now = testNow.Add(time.Hour)
	err = ledger.Update(ctx, id, Profile{
		LastName: "Smith", FirstName: "Janet", Phone: "555-0199",
	}, Billing{Tariff: "Basic", Balance: decimal.RequireFromString("2.50")})
	require.NoError(t, err)
	assertPaired(t, st)

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Janet", c.Profile.FirstName)
	assert.Equal(t, "555-0199", c.Profile.Phone)
	assert.Empty(t, c.Profile.Email, "fields not supplied are cleared")
	assert.Equal(t, "Basic", c.Billing.Tariff)
	assert.Equal(t, "2.50", c.Billing.Balance.StringFixed(2))
	assert.True(t, testNow.Equal(c.CreatedAt))
	assert.True(t, now.Equal(c.UpdatedAt))

	var billingUpdated string
	require.NoError(t, st.WithScope(ctx, "test.billing_ts", func(sc store.Scope) error {
		return sc.QueryRowContext(ctx, `SELECT updated_at FROM client_financial WHERE client_id = ?`, id).Scan(&billingUpdated)
	}))
	ts, err := store.ParseTimestamp(billingUpdated)
	require.NoError(t, err)
	assert.True(t, now.Equal(ts))
}

func TestUpdate_UnknownID(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)

	err := ledger.Update(context.Background(), 404, Profile{LastName: "No", FirstName: "Body"}, Billing{})
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
	assert.Zero(t, countRows(t, st, `SELECT COUNT(*) FROM client_info`))
}

func TestUpdate_MissingBillingRollsBackProfile(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	require.NoError(t, st.WithScope(ctx, "test.orphan", func(sc store.Scope) error {
		_, err := sc.ExecContext(ctx, `INSERT INTO client_info (id, last_name, first_name) VALUES (8, 'Before', 'Edit')`)
		return err
	}))

	err := ledger.Update(ctx, 8, Profile{LastName: "After", FirstName: "Edit"}, Billing{})
	require.Error(t, err)
	assert.True(t, store.IsStorage(err))

	assert.Equal(t, 1, countRows(t, st, `SELECT COUNT(*) FROM client_info WHERE last_name = 'Before'`))
}

func TestDelete_CascadesBilling(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, id))

	assert.Zero(t, countRows(t, st, `SELECT COUNT(*) FROM client_financial WHERE client_id = ?`, id))
	_, err = ledger.Get(ctx, id)
	assert.True(t, store.IsNotFound(err))
}

func TestDelete_UnknownIDSucceeds(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)

	require.NoError(t, ledger.Delete(context.Background(), 12345))
	assert.Zero(t, countRows(t, st, `SELECT COUNT(*) FROM audit_log`))
}

func TestSearch(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := context.Background()

	clients := []struct {
		p Profile
		b Billing
	}{
		{Profile{LastName: "Smith", FirstName: "Jane", Email: "jane@example.com"}, Billing{}},
		{Profile{LastName: "Иванов", FirstName: "Пётр", Phone: "+7 900 111-22-33"}, Billing{Tariff: "Premium"}},
		{Profile{LastName: "Brown", FirstName: "Bob", Address: "50% Street"}, Billing{}},
		{Profile{LastName: "Green", FirstName: "Gail", MiddleName: "Ann"}, Billing{Tariff: "Basic"}},
	}
	for _, c := range clients {
		_, err := ledger.Add(ctx, c.p, c.b)
		require.NoError(t, err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"smith", []string{"Smith"}},
		{"SMI", []string{"Smith"}},
		{"иванов", []string{"Иванов"}},
		{"ИВАН", []string{"Иванов"}},
		{"111-22", []string{"Иванов"}},
		{"EXAMPLE.COM", []string{"Smith"}},
		{"premium", []string{"Иванов"}},
		{"standard", []string{"Brown", "Smith"}},
		{"ann", []string{"Green"}},
		{"50%", []string{"Brown"}},
		{"%", []string{"Brown"}},
		{"_", nil},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ledger.Search(ctx, tt.query)
			require.NoError(t, err)
			var names []string
			for _, c := range got {
				names = append(names, c.Profile.LastName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSearch_EmptyQueryMatchesList(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ledger.Add(ctx, Profile{LastName: fmt.Sprintf("Last%d", i), FirstName: "F"}, Billing{})
		require.NoError(t, err)
	}

	all, err := ledger.List(ctx)
	require.NoError(t, err)
	found, err := ledger.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, all, found)
}

func TestRecordCall(t *testing.T) {
	ledger, st, now := setupTestLedger(t)
	ctx := store.WithActor(context.Background(), "worker1")

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane", Phone: "555"}, Billing{Balance: decimal.NewFromInt(5)})
	require.NoError(t, err)
	before, err := ledger.Get(ctx, id)
	require.NoError(t, err)

	*now = testNow.Add(2 * time.Hour)
	require.NoError(t, ledger.RecordCall(ctx, id, "worker1", "20% discount for 3 months"))

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c.LastCall)
	assert.True(t, now.Equal(*c.LastCall))
	assert.Equal(t, "worker1", c.LastCaller)
	assert.Equal(t, "20% discount for 3 months", c.LastOffer)

	// Only the call fields changed.
	assert.Equal(t, before.Profile, c.Profile)
	assert.Equal(t, before.Billing.Tariff, c.Billing.Tariff)
	assert.True(t, before.Billing.Balance.Equal(c.Billing.Balance))
	assert.True(t, before.UpdatedAt.Equal(c.UpdatedAt))
	assertPaired(t, st)
}

func TestRecordCall_WithoutOfferKeepsPrevious(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := context.Background()

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.NoError(t, err)

	require.NoError(t, ledger.RecordCall(ctx, id, "anna", "2% cashback forever"))
	require.NoError(t, ledger.RecordCall(ctx, id, "boris", ""))

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "boris", c.LastCaller)
	assert.Equal(t, "2% cashback forever", c.LastOffer)
}

func TestRecordCall_CallerFallsBackToActor(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)
	ctx := store.WithActor(context.Background(), "olga")

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.NoError(t, err)
	require.NoError(t, ledger.RecordCall(ctx, id, "", ""))

	c, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "olga", c.LastCaller)
}

func TestRecordCall_UnknownID(t *testing.T) {
	ledger, _, _ := setupTestLedger(t)

	err := ledger.RecordCall(context.Background(), 77, "anna", "")
	assert.True(t, store.IsNotFound(err))
}

func TestCallHistory(t *testing.T) {
	ledger, _, now := setupTestLedger(t)
	ctx := store.WithActor(context.Background(), "anna")

	id, err := ledger.Add(ctx, Profile{LastName: "Smith", FirstName: "Jane"}, Billing{})
	require.NoError(t, err)
	other, err := ledger.Add(ctx, Profile{LastName: "Brown", FirstName: "Bob"}, Billing{})
	require.NoError(t, err)

	*now = testNow.Add(time.Minute)
	require.NoError(t, ledger.RecordCall(ctx, id, "anna", "first offer"))
	*now = testNow.Add(2 * time.Minute)
	require.NoError(t, ledger.RecordCall(ctx, other, "anna", ""))
	*now = testNow.Add(3 * time.Minute)
	require.NoError(t, ledger.RecordCall(ctx, id, "anna", ""))

	calls, err := ledger.CallHistory(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.True(t, now.Equal(calls[0].Timestamp))
	assert.Nil(t, calls[0].Detail["offer"])
	assert.Equal(t, "first offer", calls[1].Detail["offer"])

	// History outlives the client.
	require.NoError(t, ledger.Delete(ctx, id))
	calls, err = ledger.CallHistory(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, calls, 2)
}

func TestLegacyRowsDecode(t *testing.T) {
	ledger, st, _ := setupTestLedger(t)
	ctx := context.Background()

	// Values as the desktop program wrote them.
	require.NoError(t, st.WithScope(ctx, "test.legacy", func(sc store.Scope) error {
		if _, err := sc.ExecContext(ctx, `
			INSERT INTO client_info (id, last_name, first_name, birth_date, last_call, last_caller, created_at, updated_at)
			VALUES (3, 'Petrova', 'Anna', '15.03.1985', '01.09.2024 14:05:00', 'admin', '2024-01-01 08:00:00', '2024-01-01 08:00:00')
		`); err != nil {
			return err
		}
		_, err := sc.ExecContext(ctx, `INSERT INTO client_financial (client_id, tariff, balance) VALUES (3, 'Standard', '10,50')`)
		return err
	}))

	c, err := ledger.Get(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, c.Profile.BirthDate)
	assert.Equal(t, 1985, c.Profile.BirthDate.Year())
	assert.Equal(t, time.March, c.Profile.BirthDate.Month())
	require.NotNil(t, c.LastCall)
	assert.Equal(t, 14, c.LastCall.Hour())
	assert.Equal(t, "10.50", c.Billing.Balance.StringFixed(2))
}

func TestParseBalance(t *testing.T) {
	tests := map[string]string{
		"":        "0.00",
		"10":      "10.00",
		"2,5":     "2.50",
		" 100.00": "100.00",
		"3.14159": "3.14",
		"1e+3":    "1000.00",
	}
	for in, want := range tests {
		got, err := ParseBalance(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.StringFixed(2), in)
	}

	_, err := ParseBalance("ten")
	assert.Error(t, err)
}
