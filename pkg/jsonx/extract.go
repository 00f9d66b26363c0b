// Package jsonx recovers structured JSON payloads from free-form model
// output. Models routinely wrap valid JSON in explanatory prose or markdown
// code fences, so extraction runs a layered ladder of fallbacks: direct
// parse, fenced blocks, a quote-aware bracket scan, regex candidates, and a
// first-open/last-close span.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*\n(.*?)\n```"),
	regexp.MustCompile("(?s)```\\s*\n(.*?)\n```"),
	regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```"),
	regexp.MustCompile("(?s)```\\s*(.*?)\\s*```"),
}

var spanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\[.*?\]`),
	regexp.MustCompile(`(?s)\{.*?\}`),
	regexp.MustCompile(`(?s)\[.+\]`),
	regexp.MustCompile(`(?s)\{.+\}`),
}

// Leading and trailing phrases models wrap around a requested payload.
var (
	stripPrefixes = []string{
		"here's the json:",
		"here is the json:",
		"the json response is:",
		"json:",
		"```json",
		"```",
	}
	stripSuffixes = []string{
		"```",
		"hope this helps!",
		"let me know if you need anything else.",
	}
)

// Validate reports whether text contains a well-formed JSON object or array.
//
// The first return is tri-state: true when a payload was recovered, false
// when none could be, and nil when text is empty and no structure was
// expected ("not applicable"). The second return is the minimal recovered
// payload, empty when none was found.
//
// When expectJSON is set and extraction fails, common prose wrappers are
// stripped and extraction runs once more before giving up.
func Validate(text string, expectJSON bool) (*bool, string) {
	if strings.TrimSpace(text) == "" {
		if expectJSON {
			return boolPtr(false), ""
		}
		return nil, ""
	}

	if payload, ok := Extract(text); ok {
		return boolPtr(true), payload
	}

	if expectJSON {
		if stripped := stripWrappers(text); stripped != text {
			if payload, ok := Extract(stripped); ok {
				return boolPtr(true), payload
			}
		}
	}

	return boolPtr(false), ""
}

// Extract attempts to recover a JSON object or array from text, returning
// the payload and whether one was found. Fallbacks run in order of
// decreasing precision; the first success wins except in the regex stage,
// where the longest valid candidate wins.
func Extract(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	// Direct parse of the whole (trimmed) text.
	if isStructured(trimmed) {
		return trimmed, true
	}

	// Fenced code blocks, in document order.
	for _, pat := range fencePatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if isStructured(candidate) {
				return candidate, true
			}
		}
	}

	// Quote-aware bracket matching from the first opener of each kind.
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		if candidate, ok := scanBrackets(trimmed, pair[0], pair[1]); ok {
			return candidate, true
		}
	}

	// Regex candidates: among everything that parses, the longest string is
	// assumed the most complete.
	var best string
	for _, pat := range spanPatterns {
		for _, candidate := range pat.FindAllString(text, -1) {
			if len(candidate) > len(best) && isStructured(candidate) {
				best = candidate
			}
		}
	}
	if best != "" {
		return best, true
	}

	// Last resort: first opener of either kind to the last matching closer
	// anywhere in the text.
	if candidate, ok := widestSpan(text); ok {
		return candidate, true
	}

	return "", false
}

// isStructured reports whether s parses as a JSON object or array. Bare
// scalars are deliberately rejected.
func isStructured(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	return json.Valid([]byte(s))
}

// scanBrackets walks from the first open bracket tracking string and escape
// state until the matching close at nesting depth zero, then tries to parse
// that span. If the span does not parse, or the brackets never balance, the
// last close bracket of that kind in the text serves as a fallback boundary.
func scanBrackets(text string, open, closing byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if isStructured(candidate) {
					return candidate, true
				}
				// First balanced close did not parse; fall through to the
				// last-close boundary below.
				i = len(text)
			}
		}
	}

	if end := strings.LastIndexByte(text, closing); end > start {
		candidate := text[start : end+1]
		if isStructured(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// widestSpan takes the earliest opener of either kind and the last closer of
// the matching kind and attempts one parse of the enclosed span.
func widestSpan(text string) (string, bool) {
	brace := strings.IndexByte(text, '{')
	bracket := strings.IndexByte(text, '[')

	if bracket >= 0 && (brace < 0 || bracket < brace) {
		if end := strings.LastIndexByte(text, ']'); end > bracket {
			candidate := text[bracket : end+1]
			if isStructured(candidate) {
				return candidate, true
			}
		}
	}
	if brace >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > brace {
			candidate := text[brace : end+1]
			if isStructured(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// stripWrappers removes a known introductory phrase before the payload and a
// closing pleasantry after it.
func stripWrappers(text string) string {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)
	for _, prefix := range stripPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			s = strings.TrimSpace(strings.TrimPrefix(s, ":"))
			lower = strings.ToLower(s)
		}
	}
	for _, suffix := range stripSuffixes {
		if strings.HasSuffix(lower, suffix) {
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			lower = strings.ToLower(s)
		}
	}
	return s
}

func boolPtr(b bool) *bool { return &b }
