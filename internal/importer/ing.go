package importer

import (
	"strings"

	"finanzen/internal/core"
)

const (
	ingHeaderLines = 13
	ingDataPrefix  = "Buchung;Wertstellungsdatum;"
)

var ingColumns = map[string]field{
	"Buchung":                fieldBookingDate,
	"Wertstellungsdatum":     fieldValueDate,
	"Auftraggeber/Empfänger": fieldCounterpartName,
	"Buchungstext":           fieldBookingType,
	"Verwendungszweck":       fieldPurpose,
	"Saldo":                  fieldBalanceAfter,
	"Betrag":                 fieldAmount,
}

// ingAccount is the account block at the top of an ING export.
type ingAccount struct {
	IBAN     string
	Name     string
	Bank     string
	Customer string
}

// INGParser reads the ING export: key;value metadata lines, then the table
// starting at the "Buchung;Wertstellungsdatum;" header.
type INGParser struct{}

func (INGParser) Format() Format { return FormatING }

func (INGParser) Parse(content string) ([]Row, error) {
	content = stripBOM(content)
	lines := strings.Split(content, "\n")
	account := parseINGHeader(lines)

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, ingDataPrefix) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	records, err := readRecords(strings.Join(lines[start:], "\n"))
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row, ok := mapRow(rec, ingColumns)
		if !ok {
			continue
		}
		row.AccountIBAN = account.IBAN
		row.AccountName = account.Name
		row.BankName = account.Bank
		row.Currency = core.DefaultCurrency
		rows = append(rows, row)
	}
	return rows, nil
}

func parseINGHeader(lines []string) ingAccount {
	var acc ingAccount
	for i, line := range lines {
		if i >= ingHeaderLines {
			break
		}
		key, value, ok := strings.Cut(line, ";")
		if !ok {
			continue
		}
		value, _, _ = strings.Cut(value, ";")
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "IBAN":
			acc.IBAN = strings.ReplaceAll(value, " ", "")
		case "Kontoname":
			acc.Name = value
		case "Bank":
			acc.Bank = value
		case "Kunde":
			acc.Customer = value
		}
	}
	return acc
}
