package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

func TestCategoryTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	bakery := f.category(t, "Bäckerei", &food.ID)
	f.category(t, "Wohnen", nil)

	assert.Equal(t, "Lebensmittel:Bäckerei", bakery.FullPath)

	tree, err := f.categories.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Lebensmittel", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, bakery.ID, tree[0].Children[0].ID)

	flat, err := f.categories.Flat(ctx)
	require.NoError(t, err)
	assert.Len(t, flat, 3)
}

func TestCreateCategoryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	bakery := f.category(t, "Bäckerei", &food.ID)

	tests := []struct {
		name string
		in   CategoryInput
	}{
		{"blank name", CategoryInput{Name: "  "}},
		{"separator in name", CategoryInput{Name: "A:B"}},
		{"duplicate sibling", CategoryInput{Name: "Lebensmittel"}},
		{"third level", CategoryInput{Name: "Brötchen", ParentID: &bakery.ID}},
		{"missing parent", CategoryInput{Name: "X", ParentID: ptr(int64(999))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.categories.Create(ctx, tt.in)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	_, err := f.categories.Create(ctx, CategoryInput{Name: "Bäckerei"})
	assert.NoError(t, err, "the same name is allowed under another parent")
}

func TestUpdateCategoryRefreshesPaths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	bakery := f.category(t, "Bäckerei", &food.ID)
	other := f.category(t, "Einkauf", nil)

	_, err := f.categories.Update(ctx, food.ID, CategoryPatch{Name: ptr("Essen"), BudgetMonthly: ptr(dec("400"))})
	require.NoError(t, err)
	got, err := f.categories.Get(ctx, bakery.ID)
	require.NoError(t, err)
	assert.Equal(t, "Essen:Bäckerei", got.FullPath)

	moved, err := f.categories.Update(ctx, bakery.ID, CategoryPatch{ParentID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, "Einkauf:Bäckerei", moved.FullPath)

	top, err := f.categories.Update(ctx, bakery.ID, CategoryPatch{ParentID: ptr(int64(0))})
	require.NoError(t, err)
	assert.Nil(t, top.ParentID)
	assert.Equal(t, "Bäckerei", top.FullPath)

	cleared, err := f.categories.Update(ctx, food.ID, CategoryPatch{ClearBudget: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.BudgetMonthly)

	_, err = f.categories.Update(ctx, food.ID, CategoryPatch{ParentID: &food.ID})
	assert.ErrorIs(t, err, core.ErrValidation, "own parent")
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	bakery := f.category(t, "Bäckerei", &food.ID)
	misc := f.category(t, "Sonstiges", nil)
	_, err := f.categorization.CreateRule(ctx, core.Rule{MatchPurpose: "%Brot%", AssignCategoryID: bakery.ID, IsActive: true})
	require.NoError(t, err)

	txs := f.importRows(t, vbRow("01.03.2024", "Bäcker", "Brot", "-3,00", ""))
	_, err = f.transactions.BulkCategorize(ctx, []int64{txs[0].ID}, bakery.ID)
	require.NoError(t, err)

	err = f.categories.Delete(ctx, food.ID, nil)
	assert.ErrorIs(t, err, core.ErrValidation, "categories with children cannot be deleted")

	err = f.categories.Delete(ctx, bakery.ID, ptr(bakery.ID))
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, f.categories.Delete(ctx, bakery.ID, &misc.ID))

	tx, err := f.transactions.Get(ctx, txs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, misc.ID, *tx.CategoryID)

	rules, err := f.categorization.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules, "rules of the deleted category are removed")

	assert.ErrorIs(t, f.categories.Delete(ctx, bakery.ID, nil), core.ErrNotFound)
}

func TestInitDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	count, created, err := f.categories.InitDefaults(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.EqualValues(t, 37, count)

	tree, err := f.categories.Tree(ctx)
	require.NoError(t, err)
	assert.Len(t, tree, 8)

	count, created, err = f.categories.InitDefaults(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.EqualValues(t, 37, count)
}
