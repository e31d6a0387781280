package importer

// volksbankColumns maps the Volksbank/Atruvia export header to row fields.
var volksbankColumns = map[string]field{
	"Bezeichnung Auftragskonto":            fieldAccountName,
	"IBAN Auftragskonto":                   fieldAccountIBAN,
	"BIC Auftragskonto":                    fieldAccountBIC,
	"Bankname Auftragskonto":               fieldBankName,
	"Buchungstag":                          fieldBookingDate,
	"Valutadatum":                          fieldValueDate,
	"Name Zahlungsbeteiligter":             fieldCounterpartName,
	"IBAN Zahlungsbeteiligter":             fieldCounterpartIBAN,
	"BIC (SWIFT-Code) Zahlungsbeteiligter": fieldCounterpartBIC,
	"Buchungstext":                         fieldBookingType,
	"Verwendungszweck":                     fieldPurpose,
	"Betrag":                               fieldAmount,
	"Waehrung":                             fieldCurrency,
	"Saldo nach Buchung":                   fieldBalanceAfter,
	"Kategorie":                            fieldOriginalCategory,
	"Glaeubiger ID":                        fieldCreditorID,
	"Mandatsreferenz":                      fieldMandateReference,
}

// VolksbankParser reads the Volksbank export: one header line followed by
// data rows that carry the account columns themselves.
type VolksbankParser struct{}

func (VolksbankParser) Format() Format { return FormatVolksbank }

func (VolksbankParser) Parse(content string) ([]Row, error) {
	records, err := readRecords(stripBOM(content))
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if row, ok := mapRow(rec, volksbankColumns); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
