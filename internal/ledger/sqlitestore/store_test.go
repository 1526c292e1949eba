package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"swisscluster/camt-import/internal/ledger"
	"swisscluster/camt-import/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const account = "CH9300762011623852957"

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func sampleTx(ref string) models.NormalizedTransaction {
	return models.NormalizedTransaction{
		Date:            time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Deposit:         decimal.RequireFromString("150.00"),
		Currency:        "CHF",
		Description:     "test payment",
		ReferenceNumber: ref,
		PartyType:       "Customer",
		Party:           "CUST-A",
	}
}

func TestCreateAndFindByReference(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	name, err := store.Create(ctx, account, sampleTx("REF-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	rec, err := store.FindByReference(ctx, account, "REF-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, name, rec.Name)
	assert.Equal(t, account, rec.BankAccountID)
	assert.Equal(t, "REF-1", rec.ReferenceNumber)
	assert.True(t, rec.Deposit.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, rec.Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestFindByReference_AbsentIsNilNil(t *testing.T) {
	store := openStore(t)

	rec, err := store.FindByReference(context.Background(), account, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = store.FindByReference(context.Background(), account, "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreate_DuplicateReference(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, account, sampleTx("REF-DUP"))
	require.NoError(t, err)

	_, err = store.Create(ctx, account, sampleTx("REF-DUP"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
}

func TestCreate_SameReferenceDifferentAccount(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, account, sampleTx("REF-1"))
	require.NoError(t, err)

	_, err = store.Create(ctx, "OTHER-ACCOUNT", sampleTx("REF-1"))
	assert.NoError(t, err)
}

func TestCreate_EmptyReferencesDoNotCollide(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, account, sampleTx(""))
	require.NoError(t, err)
	tx := sampleTx("")
	tx.Date = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	_, err = store.Create(ctx, account, tx)
	assert.NoError(t, err)
}

func TestFindByAmountDate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, account, sampleTx("REF-1"))
	require.NoError(t, err)

	rec, err := store.FindByAmountDate(ctx, account,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("150.00"), decimal.Zero)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "REF-1", rec.ReferenceNumber)

	rec, err = store.FindByAmountDate(ctx, account,
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("150.00"), decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
