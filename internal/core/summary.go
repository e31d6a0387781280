package core

import "github.com/shopspring/decimal"

// UncategorizedLabel and UncategorizedColor describe the bucket of
// transactions without a category in statistics.
const (
	UncategorizedLabel = "Unkategorisiert"
	UncategorizedColor = "#888888"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID    int64           `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	CategoryColor string          `json:"category_color,omitempty"`
	Total         decimal.Decimal `json:"total"`
}

// DashboardSummary is the overview shown on the start page.
type DashboardSummary struct {
	CurrentBalance        *decimal.Decimal `json:"current_balance"`
	IncomeCurrentMonth    decimal.Decimal  `json:"income_current_month"`
	ExpensesCurrentMonth  decimal.Decimal  `json:"expenses_current_month"`
	IncomePreviousMonth   decimal.Decimal  `json:"income_previous_month"`
	ExpensesPreviousMonth decimal.Decimal  `json:"expenses_previous_month"`
	UncategorizedCount    int              `json:"uncategorized_count"`
	TopCategories         []CategoryAmount `json:"top_categories"`
	RecentTransactions    []Transaction    `json:"recent_transactions"`
}

// CategoryStats is one row of the per-category statistics. CategoryID is nil
// for the uncategorized bucket.
type CategoryStats struct {
	CategoryID       *int64          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	CategoryColor    string          `json:"category_color,omitempty"`
	Total            decimal.Decimal `json:"total"`
	AverageMonthly   decimal.Decimal `json:"average_monthly"`
	TransactionCount int             `json:"transaction_count"`
}

type StatsByCategory struct {
	Categories    []CategoryStats `json:"categories"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
}

type TimeSeriesPoint struct {
	Date     string          `json:"date"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type StatsOverTime struct {
	Data          []TimeSeriesPoint `json:"data"`
	TotalIncome   decimal.Decimal   `json:"total_income"`
	TotalExpenses decimal.Decimal   `json:"total_expenses"`
}

// AccountSummary is an account with its derived figures.
type AccountSummary struct {
	Account
	Balance          *decimal.Decimal `json:"balance"`
	TransactionCount int              `json:"transaction_count"`
	IncomeMonth      decimal.Decimal  `json:"income_this_month"`
	ExpensesMonth    decimal.Decimal  `json:"expenses_this_month"`
}

type AccountsOverview struct {
	Accounts     []AccountSummary `json:"accounts"`
	TotalBalance decimal.Decimal  `json:"total_balance"`
	AccountCount int              `json:"account_count"`
}

// AccountDetail adds the booking date range to an account.
type AccountDetail struct {
	Account
	Balance          *decimal.Decimal `json:"balance"`
	TransactionCount int              `json:"transaction_count"`
	FirstBooking     *Date            `json:"first_transaction"`
	LastBooking      *Date            `json:"last_transaction"`
}
