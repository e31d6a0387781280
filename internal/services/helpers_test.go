package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
	"finanzen/internal/storage"
)

const volksbankHeader = "Bezeichnung Auftragskonto;IBAN Auftragskonto;BIC Auftragskonto;Bankname Auftragskonto;Buchungstag;Valutadatum;Name Zahlungsbeteiligter;IBAN Zahlungsbeteiligter;BIC (SWIFT-Code) Zahlungsbeteiligter;Buchungstext;Verwendungszweck;Betrag;Waehrung;Saldo nach Buchung;Bemerkung;Kategorie;Steuerrelevant;Glaeubiger ID;Mandatsreferenz"

const testAccountIBAN = "DE02120300000000202051"

// vbRow renders one Volksbank export line.
func vbRow(date, counterpart, purpose, amount, balance string) string {
	return strings.Join([]string{
		"Girokonto", testAccountIBAN, "GENODEF1XXX", "Volksbank Musterstadt",
		date, date, counterpart, "DE89370400440532013000", "COBADEFFXXX",
		"Lastschrift", purpose, amount, "EUR", balance, "", "", "", "", "",
	}, ";")
}

func volksbankCSV(rows ...string) string {
	return volksbankHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

type fixture struct {
	dbPath         string
	repo           *storage.SQLiteRepository
	imports        *ImportService
	categorization *CategorizationService
	splits         *SplitService
	transactions   *TransactionService
	categories     *CategoryService
	profiles       *ProfileService
	accounts       *AccountService
	stats          *StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "finanzen.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return &fixture{
		dbPath:         dbPath,
		repo:           repo,
		imports:        NewImportService(repo, nil, nil),
		categorization: NewCategorizationService(repo),
		splits:         NewSplitService(repo),
		transactions:   NewTransactionService(repo),
		categories:     NewCategoryService(repo),
		profiles:       NewProfileService(repo),
		accounts:       NewAccountService(repo),
		stats:          NewStatsService(repo, time.Minute),
	}
}

func (f *fixture) category(t *testing.T, name string, parent *int64) core.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), CategoryInput{Name: name, ParentID: parent})
	require.NoError(t, err)
	return c
}

// importRows imports a Volksbank file and returns the stored transactions,
// newest first.
func (f *fixture) importRows(t *testing.T, rows ...string) []core.Transaction {
	t.Helper()
	ctx := context.Background()
	_, err := f.imports.Import(ctx, volksbankCSV(rows...), "umsaetze.csv", "volksbank")
	require.NoError(t, err)
	page, err := f.transactions.List(ctx, TransactionQuery{PerPage: 200})
	require.NoError(t, err)
	return page.Items
}

// execSQL runs statements on a separate connection to the fixture database,
// for schema tweaks the repository does not expose.
func (f *fixture) execSQL(t *testing.T, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite", f.dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(stmt)
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}
