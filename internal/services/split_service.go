package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/importer"
	"finanzen/internal/storage"
)

// SplitPart is one categorized share of a split. Amount is a positive
// magnitude; its sign follows the parent.
type SplitPart struct {
	Amount     decimal.Decimal `json:"amount"`
	CategoryID int64           `json:"category_id"`
	Notes      string          `json:"notes,omitempty"`
}

// SplitService divides transactions into categorized parts and removes them
// again.
type SplitService struct {
	storage *storage.SQLiteRepository
}

func NewSplitService(storage *storage.SQLiteRepository) *SplitService {
	return &SplitService{storage: storage}
}

// Split replaces a leaf transaction by one child per part. The parent keeps
// its amount but loses its category; the children must add up to it within
// one cent.
func (s *SplitService) Split(ctx context.Context, txID int64, parts []SplitPart) ([]core.Transaction, error) {
	if len(parts) == 0 {
		return nil, core.Invalid("parts", "at least one part is required")
	}
	total := decimal.Zero
	for i, p := range parts {
		if !p.Amount.IsPositive() {
			return nil, core.Invalid(fmt.Sprintf("parts[%d].amount", i), "must be positive")
		}
		total = total.Add(p.Amount)
	}

	var children []core.Transaction
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		parent, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if parent.IsSplitParent() {
			return core.Invalid("", "transaction %d is already split", txID)
		}
		if _, ok := parent.ParentID(); ok {
			return core.Invalid("", "transaction %d is part of a split and cannot be split again", txID)
		}

		original := parent.Amount.Abs()
		if total.Sub(original).Abs().GreaterThan(core.SplitTolerance) {
			return core.Invalid("parts", "parts add up to %s, expected %s", total.StringFixed(2), original.StringFixed(2))
		}
		for i, p := range parts {
			if err := requireCategory(ctx, q, fmt.Sprintf("parts[%d].category_id", i), p.CategoryID); err != nil {
				return err
			}
		}

		parent.Role = core.SplitParent{}
		parent.CategoryID = nil
		if err := q.UpdateTransaction(ctx, parent); err != nil {
			return fmt.Errorf("mark split parent: %w", err)
		}

		for i, p := range parts {
			child, err := q.CreateTransaction(ctx, splitChild(parent, i, p))
			if err != nil {
				return fmt.Errorf("create split part %d: %w", i, err)
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Split transaction", "transaction_id", txID, "parts", len(children))
	return children, nil
}

func splitChild(parent core.Transaction, i int, p SplitPart) core.Transaction {
	amount := p.Amount
	if parent.IsExpense() {
		amount = amount.Neg()
	}
	purpose := core.SplitPurposeTag
	if parent.Purpose != "" {
		purpose = core.SplitPurposeTag + " " + parent.Purpose
	}
	categoryID := p.CategoryID

	return core.Transaction{
		ImportHash:      importer.SplitChildHash(parent.ImportHash, i),
		AccountID:       parent.AccountID,
		AccountName:     parent.AccountName,
		AccountIBAN:     parent.AccountIBAN,
		AccountBIC:      parent.AccountBIC,
		BankName:        parent.BankName,
		BookingDate:     parent.BookingDate,
		ValueDate:       parent.ValueDate,
		CounterpartName: parent.CounterpartName,
		CounterpartIBAN: parent.CounterpartIBAN,
		CounterpartBIC:  parent.CounterpartBIC,
		BookingType:     parent.BookingType,
		Purpose:         purpose,
		Amount:          amount,
		Currency:        parent.Currency,
		CategoryID:      &categoryID,
		Role:            core.SplitChild{ParentID: parent.ID},
		Notes:           strings.TrimSpace(p.Notes),
	}
}

// Delete removes a transaction. Deleting a split parent removes its parts;
// deleting the last part of a split turns the parent back into a plain
// transaction without restoring its old category.
func (s *SplitService) Delete(ctx context.Context, txID int64) error {
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}

		if tx.IsSplitParent() {
			if _, err := q.DeleteChildTransactions(ctx, tx.ID); err != nil {
				return fmt.Errorf("delete split parts: %w", err)
			}
		}
		if err := q.DeleteTransaction(ctx, tx.ID); err != nil {
			return err
		}

		parentID, ok := tx.ParentID()
		if !ok {
			return nil
		}
		remaining, err := q.CountChildTransactions(ctx, parentID)
		if err != nil {
			return fmt.Errorf("count split parts: %w", err)
		}
		if remaining > 0 {
			return nil
		}
		parent, err := q.GetTransaction(ctx, parentID)
		if err != nil {
			return err
		}
		parent.Role = core.Leaf{}
		return q.UpdateTransaction(ctx, parent)
	})
}
