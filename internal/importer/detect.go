package importer

import (
	"strings"

	"finanzen/internal/core"
)

const (
	volksbankMarker = "Bezeichnung Auftragskonto"
	ingMarker       = "Umsatzanzeige"
	ingDateMarker   = "Datei erstellt am"
)

// Detect classifies content by its first line.
func Detect(content string) Format {
	first, _, _ := strings.Cut(stripBOM(content), "\n")

	if strings.Contains(first, volksbankMarker) {
		return FormatVolksbank
	}
	if strings.Contains(first, ingMarker) && strings.Contains(first, ingDateMarker) {
		return FormatING
	}
	return FormatUnknown
}

// ParseFormat validates a user-supplied format. An empty value means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatVolksbank, FormatING:
		return f, nil
	default:
		return "", core.Invalid("format", "unsupported format %q, use auto, volksbank or ing", s)
	}
}

// Resolve picks the parser for content. An explicit override skips
// detection; unknown content degrades to the Volksbank layout.
func (r *Registry) Resolve(content, override string) (Parser, error) {
	f, err := ParseFormat(override)
	if err != nil {
		return nil, err
	}
	if f == FormatAuto {
		f = Detect(content)
		if f == FormatUnknown {
			f = FormatVolksbank
		}
	}
	p, ok := r.Get(f)
	if !ok {
		return nil, core.Invalid("format", "no parser registered for %q", f)
	}
	return p, nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
