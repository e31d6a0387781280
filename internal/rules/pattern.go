// Package rules evaluates categorization rules against transactions.
package rules

import (
	"regexp"
	"strings"
	"sync"
)

// compiled caches regex compilation results by expression; nil marks an
// expression that does not compile.
var compiled sync.Map

// Pattern is a parsed match pattern: RegexPattern, WildcardPattern or PlainPattern.
type Pattern interface {
	Match(text string) bool
}

// RegexPattern is written as /expr/flags; the "i" flag ignores case.
// Raw holds the whole pattern for the fallback used when Expr does not compile.
type RegexPattern struct {
	Expr            string
	CaseInsensitive bool
	Raw             string
}

// WildcardPattern is a pattern containing "*" or "%". The wildcards are
// removed and the rest is matched as a substring.
type WildcardPattern struct {
	Needle string
}

// PlainPattern matches as a case-insensitive substring.
type PlainPattern struct {
	Needle string
}

// ParsePattern classifies raw. Regex syntax wins over wildcards.
func ParsePattern(raw string) Pattern {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "/") && strings.Contains(raw[1:], "/") {
		last := strings.LastIndex(raw, "/")
		return RegexPattern{
			Expr:            raw[1:last],
			CaseInsensitive: strings.Contains(raw[last+1:], "i"),
			Raw:             raw,
		}
	}
	if strings.ContainsAny(raw, "*%") {
		return WildcardPattern{Needle: strings.NewReplacer("*", "", "%", "").Replace(raw)}
	}
	return PlainPattern{Needle: raw}
}

func (p RegexPattern) Match(text string) bool {
	expr := p.Expr
	if p.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re := compile(expr)
	if re == nil {
		return containsFold(text, p.Raw)
	}
	return re.MatchString(text)
}

func (p WildcardPattern) Match(text string) bool {
	return containsFold(text, p.Needle)
}

func (p PlainPattern) Match(text string) bool {
	return containsFold(text, p.Needle)
}

// MatchPattern reports whether text matches pattern. Blank text or a blank
// pattern never match.
func MatchPattern(text, pattern string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.TrimSpace(pattern) == "" {
		return false
	}
	return ParsePattern(pattern).Match(text)
}

func compile(expr string) *regexp.Regexp {
	if v, ok := compiled.Load(expr); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	compiled.Store(expr, re)
	return re
}

func containsFold(text, needle string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}
