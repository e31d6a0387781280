package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
)

const (
	hashLength       = 32
	hashPurposeRunes = 50
)

// ImportHash fingerprints a statement line from its booking date, amount,
// counterpart IBAN and the first 50 characters of its purpose. The amount is
// rendered with two decimals so "-12,5" and "-12,50" hash alike.
func ImportHash(bookingDate core.Date, amount decimal.Decimal, counterpartIBAN, purpose string) string {
	input := bookingDate.String() + "|" +
		amount.StringFixed(2) + "|" +
		counterpartIBAN + "|" +
		truncateRunes(purpose, hashPurposeRunes)
	return digest(input)
}

// SplitChildHash derives the fingerprint of the i-th split child.
func SplitChildHash(parentHash string, i int) string {
	return digest(parentHash + ":split:" + strconv.Itoa(i))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLength]
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
