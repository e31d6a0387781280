package google

import (
	"testing"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
)

func TestTransactionRow(t *testing.T) {
	tx := core.Transaction{
		ImportHash:      "abc123",
		AccountIBAN:     "DE02120300000000202051",
		BookingDate:     core.NewDate(2024, 3, 5),
		CounterpartName: "Stadtwerke Musterstadt",
		BookingType:     "Lastschrift",
		Purpose:         "Abschlag Strom",
		Amount:          decimal.RequireFromString("-84.5"),
	}

	row := transactionRow(tx)
	if len(row) != len(header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(header))
	}
	want := []any{"05.03.2024", "-84.50", "Stadtwerke Musterstadt", "Abschlag Strom", "Lastschrift", "DE02120300000000202051", "abc123"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d (%s): got %v, want %v", i, header[i], row[i], want[i])
		}
	}
}

func TestHasHeader(t *testing.T) {
	tests := []struct {
		name   string
		values [][]any
		want   bool
	}{
		{"empty sheet", nil, false},
		{"empty first row", [][]any{{}}, false},
		{"header present", [][]any{headerRow()}, true},
		{"header with other case", [][]any{{" buchungstag "}}, true},
		{"data in first row", [][]any{{"05.03.2024", "-84.50"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasHeader(tt.values); got != tt.want {
				t.Errorf("hasHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}
