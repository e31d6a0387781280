package google

import (
	"strings"

	"finanzen/internal/core"
)

var header = []string{
	"Buchungstag",
	"Betrag",
	"Auftraggeber/Empfänger",
	"Verwendungszweck",
	"Buchungstext",
	"Konto IBAN",
	"Import-Hash",
}

// lastColumn is the spreadsheet column of the last header field.
const lastColumn = "G"

func headerRow() []any {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}

// hasHeader reports whether the first row of values already carries the
// export header.
func hasHeader(values [][]any) bool {
	if len(values) == 0 || len(values[0]) == 0 {
		return false
	}
	first, _ := values[0][0].(string)
	return strings.EqualFold(strings.TrimSpace(first), header[0])
}

// transactionRow renders tx in header order. The amount is written with a
// dot as decimal separator so Sheets parses it as a number.
func transactionRow(tx core.Transaction) []any {
	return []any{
		tx.BookingDate.Format("02.01.2006"),
		tx.Amount.StringFixed(2),
		tx.CounterpartName,
		tx.Purpose,
		tx.BookingType,
		tx.AccountIBAN,
		tx.ImportHash,
	}
}
