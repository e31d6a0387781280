package importer

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrUndecodable = errors.New("file encoding not supported")
	ErrNotCSV      = errors.New("only .csv files are supported")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// fallbackCharsets are tried in order once UTF-8 has failed.
var fallbackCharsets = []*charmap.Charmap{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// DecodeUpload decodes raw upload bytes trying UTF-8 with BOM, UTF-8,
// Latin-1 and Windows-1252 in that order.
func DecodeUpload(raw []byte) (string, error) {
	if rest, ok := bytes.CutPrefix(raw, utf8BOM); ok && utf8.Valid(rest) {
		return string(rest), nil
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	for _, cs := range fallbackCharsets {
		out, err := cs.NewDecoder().Bytes(raw)
		if err == nil {
			return string(out), nil
		}
	}
	return "", ErrUndecodable
}

// CheckFilename rejects uploads that are not CSV files.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return ErrNotCSV
	}
	return nil
}
