package gormstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/installpay/adapters/gormstore"
	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/settings"
	"github.com/artpar/installpay/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) gormstore.Stores {
	t.Helper()

	ctx := context.Background()
	db, err := gormstore.Open(ctx, gormstore.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "installpay-test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(ctx, db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gormstore.NewStores(db)
}

func day(s string) time.Time {
	d, err := invoice.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seed(t *testing.T, store *gormstore.InvoiceStore) {
	t.Helper()
	paidAt := day("2024-01-09")
	n, err := store.Upsert(context.Background(), []invoice.Invoice{
		{ID: "i3", UserID: "u1", Month: "TV (3/3)", DueDate: day("2024-03-10"), Amount: decimal.RequireFromString("300.10"), Status: invoice.StatusOpen},
		{ID: "i1", UserID: "u1", Month: "TV (1/3)", DueDate: day("2024-01-10"), Amount: decimal.RequireFromString("300.10"), Status: invoice.StatusPaid, PaymentID: "old", PaymentDate: &paidAt},
		{ID: "i2", UserID: "u1", Month: "TV (2/3)", DueDate: day("2024-02-10"), Amount: decimal.RequireFromString("300.10"), Status: invoice.StatusOpen, PurchaseGroupID: "pg-1", Notes: "n"},
		{ID: "x1", UserID: "u2", Month: "Avulso", DueDate: day("2024-02-01"), Amount: decimal.NewFromInt(10), Status: invoice.StatusOpen},
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := gormstore.Open(context.Background(), gormstore.Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := gormstore.Open(ctx, gormstore.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)

	require.NoError(t, gormstore.Migrate(ctx, db))
	require.NoError(t, gormstore.Migrate(ctx, db))
}

func TestInvoiceStore_ListAndGet(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()
	seed(t, stores.Invoices)

	list, err := stores.Invoices.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2", "i3"}, invoice.IDs(list))

	inv, err := stores.Invoices.Get(ctx, "i2")
	require.NoError(t, err)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("300.10")), "amount = %s", inv.Amount)
	assert.Equal(t, "pg-1", inv.PurchaseGroupID)
	assert.Equal(t, "n", inv.Notes)
	assert.Equal(t, "2024-02-10", invoice.FormatDate(inv.DueDate))

	_, err = stores.Invoices.Get(ctx, "nope")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	many, err := stores.Invoices.GetMany(ctx, []string{"i3", "x1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "i3"}, invoice.IDs(many))
}

func TestInvoiceStore_UpsertReplaces(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()
	seed(t, stores.Invoices)

	inv, err := stores.Invoices.Get(ctx, "i3")
	require.NoError(t, err)
	inv.Amount = decimal.NewFromInt(250)
	inv.Notes = "ajustado"

	_, err = stores.Invoices.Upsert(ctx, []invoice.Invoice{inv})
	require.NoError(t, err)

	got, err := stores.Invoices.Get(ctx, "i3")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "ajustado", got.Notes)

	_, err = stores.Invoices.Upsert(ctx, []invoice.Invoice{{UserID: "u1"}})
	assert.Error(t, err)
}

func TestInvoiceStore_MarkPaid(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()
	seed(t, stores.Invoices)
	at := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)

	require.NoError(t, stores.Invoices.MarkSlipIssued(ctx, []string{"i2"}, "https://slip", "2379"))
	require.NoError(t, stores.Invoices.MarkPaid(ctx, []string{"i1", "i2", "i3"}, "pay-1", at))

	i1, _ := stores.Invoices.Get(ctx, "i1")
	assert.Equal(t, "old", i1.PaymentID, "invoice paid by another payment must not be overwritten")

	for _, id := range []string{"i2", "i3"} {
		inv, err := stores.Invoices.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, invoice.StatusPaid, inv.Status)
		assert.Equal(t, "pay-1", inv.PaymentID)
		require.NotNil(t, inv.PaymentDate)
		assert.True(t, inv.PaymentDate.Equal(at))
		assert.Empty(t, inv.BoletoURL)
	}
}

func TestInvoiceStore_MarkSlipIssued(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()
	seed(t, stores.Invoices)

	require.NoError(t, stores.Invoices.MarkSlipIssued(ctx, []string{"i2", "i3"}, "https://slip", "2379"))

	inv, err := stores.Invoices.Get(ctx, "i3")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSlipIssued, inv.Status)
	assert.Equal(t, "https://slip", inv.BoletoURL)
	assert.Equal(t, "2379", inv.BoletoBarcode)

	err = stores.Invoices.MarkSlipIssued(ctx, []string{"i1"}, "https://slip", "2379")
	assert.ErrorIs(t, err, ports.ErrNotFound, "paid invoices are skipped")
}

func TestProfileStore(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()

	_, err := stores.Profiles.Get(ctx, "u1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	p := ports.Profile{
		UserID: "u1", Name: "Ana", Email: "ana@example.com", TaxID: "12345678909",
		Address: ports.Address{Street: "Rua A", Number: "10", City: "São Paulo", State: "SP", PostalCode: "01001000"},
	}
	require.NoError(t, stores.Profiles.Upsert(ctx, p))

	p.Name = "Ana Souza"
	require.NoError(t, stores.Profiles.Upsert(ctx, p))

	got, err := stores.Profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", got.Name)
	assert.Equal(t, "São Paulo", got.Address.City)

	assert.Error(t, stores.Profiles.Upsert(ctx, ports.Profile{}))
}

func TestSettingsStore(t *testing.T) {
	stores := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, stores.Settings.Set(ctx, settings.KeyNegotiationInterest, "12.5", false))
	require.NoError(t, stores.Settings.SetBatch(ctx, settings.Settings{
		settings.KeyPaymentProvider:        "stripe",
		settings.KeyPaymentStripeSecretKey: "sk_test_1",
	}))

	s, err := stores.Settings.Get(ctx, settings.KeyPaymentStripeSecretKey)
	require.NoError(t, err)
	assert.True(t, s.Encrypted)

	all, err := stores.Settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12.5", all[settings.KeyNegotiationInterest])

	payment, err := stores.Settings.GetByPrefix(ctx, "payment.")
	require.NoError(t, err)
	assert.Len(t, payment, 2)

	require.NoError(t, stores.Settings.Delete(ctx, settings.KeyPaymentProvider))
	_, err = stores.Settings.Get(ctx, settings.KeyPaymentProvider)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
