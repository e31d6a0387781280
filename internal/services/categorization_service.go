package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/rules"
	"finanzen/internal/storage"
)

// CategorizationService applies and manages categorization rules.
type CategorizationService struct {
	storage *storage.SQLiteRepository
}

func NewCategorizationService(storage *storage.SQLiteRepository) *CategorizationService {
	return &CategorizationService{storage: storage}
}

// ApplyToAllUncategorized runs the active rules over every uncategorized
// transaction in one unit of work and returns how many were categorized.
// Running it twice changes nothing the second time.
func (s *CategorizationService) ApplyToAllUncategorized(ctx context.Context) (int, error) {
	changed := 0
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		active, err := q.ListActiveRules(ctx)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		if len(active) == 0 {
			return nil
		}
		rules.SortByPriority(active)

		txs, err := q.ListUncategorizedTransactions(ctx)
		if err != nil {
			return fmt.Errorf("list uncategorized transactions: %w", err)
		}
		for i := range txs {
			if !rules.Apply(active, &txs[i]) {
				continue
			}
			if err := q.UpdateTransaction(ctx, txs[i]); err != nil {
				return fmt.Errorf("update transaction %d: %w", txs[i].ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Applied categorization rules", "categorized", changed)
	return changed, nil
}

// ApplyToOne categorizes a single transaction. It reports false when the
// transaction is already categorized, is a split parent, or no rule matches.
func (s *CategorizationService) ApplyToOne(ctx context.Context, txID int64) (bool, error) {
	applied := false
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if tx.IsCategorized() || tx.IsSplitParent() {
			return nil
		}
		active, err := q.ListActiveRules(ctx)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		rules.SortByPriority(active)
		if !rules.Apply(active, &tx) {
			return nil
		}
		applied = true
		return q.UpdateTransaction(ctx, tx)
	})
	return applied, err
}

// CreateRuleFromTransaction drafts a rule from an existing transaction and
// stores it.
func (s *CategorizationService) CreateRuleFromTransaction(ctx context.Context, txID, categoryID int64, matchType string) (core.Rule, error) {
	m, err := rules.ParseMatchType(matchType)
	if err != nil {
		return core.Rule{}, err
	}

	var created core.Rule
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if err := requireCategory(ctx, q, "category_id", categoryID); err != nil {
			return err
		}
		r := rules.FromTransaction(tx, categoryID, m)
		if !r.HasCriteria() {
			return core.Invalid("match_type", "transaction has no %s to match on", m)
		}
		created, err = q.CreateRule(ctx, r)
		return err
	})
	if err != nil {
		return core.Rule{}, err
	}
	return created, nil
}

func (s *CategorizationService) ListRules(ctx context.Context) ([]core.Rule, error) {
	return s.storage.Queries().ListRules(ctx)
}

func (s *CategorizationService) GetRule(ctx context.Context, id int64) (core.Rule, error) {
	return s.storage.Queries().GetRule(ctx, id)
}

// CreateRule validates and stores r. A rule needs at least one criterion and
// an existing category; a blank name gets a placeholder.
func (s *CategorizationService) CreateRule(ctx context.Context, r core.Rule) (core.Rule, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = unnamedRuleName
	}
	if err := validateRule(r); err != nil {
		return core.Rule{}, err
	}

	var created core.Rule
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if err := requireCategory(ctx, q, "assign_category_id", r.AssignCategoryID); err != nil {
			return err
		}
		var err error
		created, err = q.CreateRule(ctx, r)
		return err
	})
	return created, err
}

// RulePatch is a partial rule update. Nil fields are left unchanged; an
// empty match string clears that criterion.
type RulePatch struct {
	Name                 *string
	Priority             *int
	MatchCounterpartName *string
	MatchCounterpartIBAN *string
	MatchPurpose         *string
	MatchBookingType     *string
	MatchAmountMin       *decimal.Decimal
	MatchAmountMax       *decimal.Decimal
	ClearAmountMin       bool
	ClearAmountMax       bool
	AssignCategoryID     *int64
	AssignShared         *bool
	IsActive             *bool
}

func (s *CategorizationService) UpdateRule(ctx context.Context, id int64, p RulePatch) (core.Rule, error) {
	var updated core.Rule
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		r, err := q.GetRule(ctx, id)
		if err != nil {
			return err
		}

		if p.Name != nil {
			if r.Name = strings.TrimSpace(*p.Name); r.Name == "" {
				r.Name = unnamedRuleName
			}
		}
		if p.Priority != nil {
			r.Priority = *p.Priority
		}
		setString(&r.MatchCounterpartName, p.MatchCounterpartName)
		setString(&r.MatchCounterpartIBAN, p.MatchCounterpartIBAN)
		setString(&r.MatchPurpose, p.MatchPurpose)
		setString(&r.MatchBookingType, p.MatchBookingType)
		switch {
		case p.ClearAmountMin:
			r.MatchAmountMin = nil
		case p.MatchAmountMin != nil:
			r.MatchAmountMin = p.MatchAmountMin
		}
		switch {
		case p.ClearAmountMax:
			r.MatchAmountMax = nil
		case p.MatchAmountMax != nil:
			r.MatchAmountMax = p.MatchAmountMax
		}
		if p.AssignCategoryID != nil {
			if err := requireCategory(ctx, q, "assign_category_id", *p.AssignCategoryID); err != nil {
				return err
			}
			r.AssignCategoryID = *p.AssignCategoryID
		}
		if p.AssignShared != nil {
			r.AssignShared = *p.AssignShared
		}
		if p.IsActive != nil {
			r.IsActive = *p.IsActive
		}

		if err := validateRule(r); err != nil {
			return err
		}
		if err := q.UpdateRule(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	return updated, err
}

func (s *CategorizationService) DeleteRule(ctx context.Context, id int64) error {
	return s.storage.Queries().DeleteRule(ctx, id)
}

const unnamedRuleName = "Regel: Unbenannt"

func validateRule(r core.Rule) error {
	if !r.HasCriteria() {
		return core.Invalid("", "at least one match criterion is required")
	}
	if r.MatchAmountMin != nil && r.MatchAmountMax != nil && r.MatchAmountMin.GreaterThan(*r.MatchAmountMax) {
		return core.Invalid("match_amount_min", "must not exceed match_amount_max")
	}
	return nil
}

// requireCategory turns a missing category into a validation error on field.
func requireCategory(ctx context.Context, q *storage.Queries, field string, id int64) error {
	if _, err := q.GetCategory(ctx, id); err != nil {
		if isNotFound(err) {
			return core.Invalid(field, "category %d does not exist", id)
		}
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
