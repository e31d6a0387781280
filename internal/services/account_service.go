package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/storage"
)

// AccountPatch is a partial account update. A ProfileID of 0 unassigns the
// account.
type AccountPatch struct {
	Name      *string
	IsActive  *bool
	ProfileID *int64
}

// AccountService reads and edits bank accounts.
type AccountService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewAccountService(storage *storage.SQLiteRepository) *AccountService {
	return &AccountService{storage: storage, now: time.Now}
}

// List returns accounts ordered by name, active only unless includeInactive.
func (s *AccountService) List(ctx context.Context, includeInactive bool, profileID *int64) ([]core.Account, error) {
	accounts, err := s.storage.Queries().ListAccounts(ctx, includeInactive, profileID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	return accounts, nil
}

// Summary returns the active accounts with balance, booking count and this
// month's income and expenses, plus the sum of all known balances.
func (s *AccountService) Summary(ctx context.Context, profileID *int64) (core.AccountsOverview, error) {
	q := s.storage.Queries()
	accounts, err := q.ListAccounts(ctx, false, profileID)
	if err != nil {
		return core.AccountsOverview{}, fmt.Errorf("list accounts: %w", err)
	}

	monthStart := startOfMonth(core.DateOf(s.now()))
	overview := core.AccountsOverview{
		Accounts:     make([]core.AccountSummary, 0, len(accounts)),
		TotalBalance: decimal.Zero,
	}
	for _, acc := range accounts {
		f, err := q.AccountFigures(ctx, acc.ID, monthStart)
		if err != nil {
			return core.AccountsOverview{}, fmt.Errorf("account %d figures: %w", acc.ID, err)
		}
		sum := core.AccountSummary{
			Account:          acc,
			Balance:          core.DecimalPtr(f.BalanceCents),
			TransactionCount: f.TransactionCount,
			IncomeMonth:      core.FromCents(f.IncomeCents),
			ExpensesMonth:    core.FromCents(f.ExpensesCents),
		}
		if sum.Balance != nil {
			overview.TotalBalance = overview.TotalBalance.Add(*sum.Balance)
		}
		overview.Accounts = append(overview.Accounts, sum)
	}
	overview.AccountCount = len(overview.Accounts)
	return overview, nil
}

// Get returns one account with its balance and booking date range.
func (s *AccountService) Get(ctx context.Context, id int64) (core.AccountDetail, error) {
	q := s.storage.Queries()
	acc, err := q.GetAccount(ctx, id)
	if err != nil {
		return core.AccountDetail{}, err
	}
	f, err := q.AccountFigures(ctx, id, startOfMonth(core.DateOf(s.now())))
	if err != nil {
		return core.AccountDetail{}, fmt.Errorf("account %d figures: %w", id, err)
	}
	return core.AccountDetail{
		Account:          acc,
		Balance:          core.DecimalPtr(f.BalanceCents),
		TransactionCount: f.TransactionCount,
		FirstBooking:     f.FirstBooking,
		LastBooking:      f.LastBooking,
	}, nil
}

func (s *AccountService) Patch(ctx context.Context, id int64, p AccountPatch) (core.Account, error) {
	var updated core.Account
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		acc, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return core.Invalid("name", "must not be empty")
			}
			acc.Name = name
		}
		if p.IsActive != nil {
			acc.IsActive = *p.IsActive
		}
		if p.ProfileID != nil {
			if *p.ProfileID == 0 {
				acc.ProfileID = nil
			} else {
				if _, err := q.GetProfile(ctx, *p.ProfileID); err != nil {
					if isNotFound(err) {
						return core.Invalid("profile_id", "profile %d does not exist", *p.ProfileID)
					}
					return err
				}
				profileID := *p.ProfileID
				acc.ProfileID = &profileID
			}
		}
		if err := q.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	return updated, err
}
