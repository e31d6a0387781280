package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"finanzen/internal/core"
)

const delimiter = ';'

// record is one data line keyed by column header.
type record map[string]string

// readRecords reads delimited text whose first line is the header.
func readRecords(content string) ([]record, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, core.Invalid("file", "read header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var out []record
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, core.Invalid("file", "row %d: %v", line, err)
		}
		rec := make(record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = strings.TrimSpace(fields[i])
			}
		}
		out = append(out, rec)
	}
}

// field is where a column value lands in a Row.
type field int

const (
	fieldAccountName field = iota
	fieldAccountIBAN
	fieldAccountBIC
	fieldBankName
	fieldBookingDate
	fieldValueDate
	fieldCounterpartName
	fieldCounterpartIBAN
	fieldCounterpartBIC
	fieldBookingType
	fieldPurpose
	fieldAmount
	fieldCurrency
	fieldBalanceAfter
	fieldOriginalCategory
	fieldCreditorID
	fieldMandateReference
)

// mapRow applies a column layout to rec. Rows without a booking date or an
// amount are reported as not ok.
func mapRow(rec record, columns map[string]field) (Row, bool) {
	var (
		row       Row
		hasDate   bool
		hasAmount bool
	)
	for col, f := range columns {
		v := rec[col]
		switch f {
		case fieldBookingDate:
			d, ok, err := core.ParseGermanDate(v)
			if err == nil && ok {
				row.BookingDate, hasDate = d, true
			}
		case fieldValueDate:
			if d, ok, err := core.ParseGermanDate(v); err == nil && ok {
				row.ValueDate = &d
			}
		case fieldAmount:
			d, ok, err := core.ParseGermanDecimal(v)
			if err == nil && ok {
				row.Amount, hasAmount = d, true
			}
		case fieldBalanceAfter:
			if d, ok, err := core.ParseGermanDecimal(v); err == nil && ok {
				row.BalanceAfter = &d
			}
		default:
			*row.text(f) = v
		}
	}
	return row, hasDate && hasAmount
}

func (r *Row) text(f field) *string {
	switch f {
	case fieldAccountName:
		return &r.AccountName
	case fieldAccountIBAN:
		return &r.AccountIBAN
	case fieldAccountBIC:
		return &r.AccountBIC
	case fieldBankName:
		return &r.BankName
	case fieldCounterpartName:
		return &r.CounterpartName
	case fieldCounterpartIBAN:
		return &r.CounterpartIBAN
	case fieldCounterpartBIC:
		return &r.CounterpartBIC
	case fieldBookingType:
		return &r.BookingType
	case fieldPurpose:
		return &r.Purpose
	case fieldCurrency:
		return &r.Currency
	case fieldOriginalCategory:
		return &r.OriginalCategory
	case fieldCreditorID:
		return &r.CreditorID
	case fieldMandateReference:
		return &r.MandateReference
	}
	panic(fmt.Sprintf("importer: field %d is not a text column", f))
}
