package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

func TestAccountSummaryAndDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.accounts.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	f.importRows(t,
		vbRow("28.02.2024", "Vermieter", "Miete", "-800,00", "1.200,00"),
		vbRow("01.03.2024", "Arbeitgeber", "Gehalt", "2.500,00", "3.700,00"),
		vbRow("02.03.2024", "REWE", "Einkauf", "-50,00", "3.650,00"),
	)

	overview, err := f.accounts.Summary(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, overview.AccountCount)
	sum := overview.Accounts[0]
	require.NotNil(t, sum.Balance)
	assert.True(t, sum.Balance.Equal(dec("3650")), "balance is taken from the latest booking")
	assert.Equal(t, 3, sum.TransactionCount)
	assert.True(t, sum.IncomeMonth.Equal(dec("2500")))
	assert.True(t, sum.ExpensesMonth.Equal(dec("50")))
	assert.True(t, overview.TotalBalance.Equal(dec("3650")))

	detail, err := f.accounts.Get(ctx, sum.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.FirstBooking)
	assert.Equal(t, "2024-02-28", detail.FirstBooking.String())
	assert.Equal(t, "2024-03-02", detail.LastBooking.String())
}

func TestPatchAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.importRows(t, vbRow("01.03.2024", "REWE", "Einkauf", "-1,00", ""))
	accounts, err := f.accounts.List(ctx, false, nil)
	require.NoError(t, err)
	id := accounts[0].ID
	anna, err := f.profiles.Create(ctx, "Anna", "")
	require.NoError(t, err)

	acc, err := f.accounts.Patch(ctx, id, AccountPatch{Name: ptr("Gemeinschaftskonto"), IsActive: ptr(false), ProfileID: &anna.ID})
	require.NoError(t, err)
	assert.Equal(t, "Gemeinschaftskonto", acc.Name)
	assert.False(t, acc.IsActive)
	assert.Equal(t, anna.ID, *acc.ProfileID)

	active, err := f.accounts.List(ctx, false, nil)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.accounts.List(ctx, true, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	acc, err = f.accounts.Patch(ctx, id, AccountPatch{ProfileID: ptr(int64(0))})
	require.NoError(t, err)
	assert.Nil(t, acc.ProfileID)

	_, err = f.accounts.Patch(ctx, id, AccountPatch{ProfileID: ptr(int64(999))})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.accounts.Patch(ctx, id, AccountPatch{Name: ptr(" ")})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.accounts.Get(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
