package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

func TestApplyToAllUncategorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	fuel := f.category(t, "Tanken", nil)

	_, err := f.categorization.CreateRule(ctx, core.Rule{
		Name: "Supermarkt", MatchCounterpartName: "%REWE%", AssignCategoryID: food.ID, IsActive: true,
	})
	require.NoError(t, err)
	_, err = f.categorization.CreateRule(ctx, core.Rule{
		Name: "Tankstelle", MatchPurpose: "%tanken%", AssignCategoryID: fuel.ID, AssignShared: true,
		Priority: 10, IsActive: true,
	})
	require.NoError(t, err)

	f.importRows(t,
		vbRow("01.03.2024", "REWE Markt GmbH", "Einkauf", "-12,50", ""),
		vbRow("02.03.2024", "Shell", "Tanken Station 4", "-60,00", ""),
		vbRow("03.03.2024", "Unbekannt", "Sonstiges", "-5,00", ""),
	)

	n, err := f.categorization.ApplyToAllUncategorized(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	again, err := f.categorization.ApplyToAllUncategorized(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "a second run changes nothing")

	page, err := f.transactions.List(ctx, TransactionQuery{SharedOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Shell", page.Items[0].CounterpartName)
	assert.Equal(t, fuel.ID, *page.Items[0].CategoryID)

	uncat, err := f.transactions.List(ctx, TransactionQuery{UncategorizedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, uncat.Total)
}

func TestApplyToOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	_, err := f.categorization.CreateRule(ctx, core.Rule{
		MatchCounterpartName: "%REWE%", AssignCategoryID: food.ID, IsActive: true,
	})
	require.NoError(t, err)
	txs := f.importRows(t, vbRow("01.03.2024", "REWE Markt GmbH", "Einkauf", "-12,50", ""))

	applied, err := f.categorization.ApplyToOne(ctx, txs[0].ID)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = f.categorization.ApplyToOne(ctx, txs[0].ID)
	require.NoError(t, err)
	assert.False(t, applied, "already categorized")
}

func TestCreateRuleValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)

	tests := []struct {
		name string
		rule core.Rule
	}{
		{"no criteria", core.Rule{AssignCategoryID: food.ID}},
		{"missing category", core.Rule{MatchPurpose: "%x%", AssignCategoryID: 999}},
		{"min above max", core.Rule{
			MatchAmountMin: ptr(dec("50")), MatchAmountMax: ptr(dec("10")), AssignCategoryID: food.ID,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.categorization.CreateRule(ctx, tt.rule)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	r, err := f.categorization.CreateRule(ctx, core.Rule{MatchPurpose: "%x%", AssignCategoryID: food.ID})
	require.NoError(t, err)
	assert.Equal(t, unnamedRuleName, r.Name)
}

func TestUpdateRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	r, err := f.categorization.CreateRule(ctx, core.Rule{
		Name: "Supermarkt", MatchCounterpartName: "%REWE%", MatchAmountMax: ptr(dec("100")),
		AssignCategoryID: food.ID, IsActive: true,
	})
	require.NoError(t, err)

	updated, err := f.categorization.UpdateRule(ctx, r.ID, RulePatch{
		Priority:       ptr(5),
		MatchPurpose:   ptr("  %Einkauf%  "),
		ClearAmountMax: true,
		IsActive:       ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Priority)
	assert.Equal(t, "%Einkauf%", updated.MatchPurpose)
	assert.Nil(t, updated.MatchAmountMax)
	assert.False(t, updated.IsActive)

	_, err = f.categorization.UpdateRule(ctx, r.ID, RulePatch{
		MatchCounterpartName: ptr(""),
		MatchPurpose:         ptr(""),
	})
	assert.ErrorIs(t, err, core.ErrValidation, "clearing every criterion is rejected")

	require.NoError(t, f.categorization.DeleteRule(ctx, r.ID))
	_, err = f.categorization.GetRule(ctx, r.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateRuleFromTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	txs := f.importRows(t, vbRow("01.03.2024", "REWE Markt GmbH", "Einkauf", "-12,50", ""))

	r, err := f.categorization.CreateRuleFromTransaction(ctx, txs[0].ID, food.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "%REWE%", r.MatchCounterpartName)
	assert.Equal(t, food.ID, r.AssignCategoryID)
	assert.True(t, r.IsActive)

	_, err = f.categorization.CreateRuleFromTransaction(ctx, txs[0].ID, food.ID, "weekday")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.categorization.CreateRuleFromTransaction(ctx, 999, food.ID, "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
