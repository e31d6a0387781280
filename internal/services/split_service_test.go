package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

func TestSplit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	home := f.category(t, "Haushalt", nil)
	txs := f.importRows(t, vbRow("01.03.2024", "Kaufland", "Wocheneinkauf", "-60,00", ""))
	parent := txs[0]
	_, err := f.transactions.Patch(ctx, parent.ID, TransactionPatch{CategoryID: ptr(food.ID)})
	require.NoError(t, err)

	children, err := f.splits.Split(ctx, parent.ID, []SplitPart{
		{Amount: dec("40.00"), CategoryID: food.ID},
		{Amount: dec("20.00"), CategoryID: home.ID, Notes: "Putzmittel"},
	})
	require.NoError(t, err)
	require.Len(t, children, 2)

	assert.True(t, children[0].Amount.Equal(dec("-40")), "children keep the parent's sign")
	assert.True(t, children[1].Amount.Equal(dec("-20")))
	assert.Equal(t, "[Split] Wocheneinkauf", children[0].Purpose)
	assert.Equal(t, "Putzmittel", children[1].Notes)
	assert.NotEqual(t, children[0].ImportHash, children[1].ImportHash)
	pid, ok := children[0].ParentID()
	require.True(t, ok)
	assert.Equal(t, parent.ID, pid)

	detail, err := f.transactions.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsSplitParent())
	assert.Nil(t, detail.CategoryID)
	assert.Len(t, detail.SplitChildren, 2)

	page, err := f.transactions.List(ctx, TransactionQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total, "split parents are hidden from listings")
}

func TestSplitRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	txs := f.importRows(t, vbRow("01.03.2024", "Kaufland", "Einkauf", "-60,00", ""))
	id := txs[0].ID

	tests := []struct {
		name  string
		parts []SplitPart
	}{
		{"no parts", nil},
		{"sum mismatch", []SplitPart{{Amount: dec("30"), CategoryID: food.ID}, {Amount: dec("20"), CategoryID: food.ID}}},
		{"negative part", []SplitPart{{Amount: dec("-60"), CategoryID: food.ID}}},
		{"unknown category", []SplitPart{{Amount: dec("60"), CategoryID: 999}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.splits.Split(ctx, id, tt.parts)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	children, err := f.splits.Split(ctx, id, []SplitPart{{Amount: dec("59.99"), CategoryID: food.ID}})
	require.NoError(t, err, "a difference within one cent is accepted")

	_, err = f.splits.Split(ctx, id, []SplitPart{{Amount: dec("60"), CategoryID: food.ID}})
	assert.ErrorIs(t, err, core.ErrValidation, "already split")
	_, err = f.splits.Split(ctx, children[0].ID, []SplitPart{{Amount: dec("60"), CategoryID: food.ID}})
	assert.ErrorIs(t, err, core.ErrValidation, "children cannot be split")
}

func TestDeleteSplitParts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	txs := f.importRows(t, vbRow("01.03.2024", "Kaufland", "Einkauf", "-60,00", ""))
	parentID := txs[0].ID

	children, err := f.splits.Split(ctx, parentID, []SplitPart{
		{Amount: dec("30"), CategoryID: food.ID},
		{Amount: dec("30"), CategoryID: food.ID},
	})
	require.NoError(t, err)

	require.NoError(t, f.splits.Delete(ctx, children[0].ID))
	parent, err := f.transactions.Get(ctx, parentID)
	require.NoError(t, err)
	assert.True(t, parent.IsSplitParent(), "one part remains")

	require.NoError(t, f.splits.Delete(ctx, children[1].ID))
	parent, err = f.transactions.Get(ctx, parentID)
	require.NoError(t, err)
	assert.True(t, parent.IsLeaf(), "the last part turns the parent back into a leaf")
	assert.Nil(t, parent.CategoryID)
}

func TestDeleteSplitParentCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	txs := f.importRows(t, vbRow("01.03.2024", "Kaufland", "Einkauf", "-60,00", ""))

	children, err := f.splits.Split(ctx, txs[0].ID, []SplitPart{{Amount: dec("60"), CategoryID: food.ID}})
	require.NoError(t, err)

	require.NoError(t, f.splits.Delete(ctx, txs[0].ID))
	_, err = f.transactions.Get(ctx, children[0].ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSplitToleranceBoundary(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"60.009", true},
		{"59.991", true},
		{"59.99", true},
		{"60.01", true},
		{"60.02", false},
		{"59.98", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			food := f.category(t, "Lebensmittel", nil)
			txs := f.importRows(t, vbRow("01.03.2024", "Kaufland", "Einkauf", "-60,00", ""))

			_, err := f.splits.Split(ctx, txs[0].ID, []SplitPart{{Amount: dec(tt.amount), CategoryID: food.ID}})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrValidation)
			}
		})
	}
}
