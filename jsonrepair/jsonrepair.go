// Package jsonrepair recovers JSON objects from model output. Judge
// replies frequently arrive wrapped in prose or markdown fences, with
// trailing commas or truncated closing braces; this package extracts
// the object and applies conservative textual repairs before decoding.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoObject reports that the text contains no JSON object at all.
	ErrNoObject = errors.New("no JSON object found in text")

	fencePattern         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the JSON object embedded in text: fence contents
// when a markdown code fence is present, otherwise the span from the
// first '{' to the last '}'. Returns ErrNoObject when neither exists.
func ExtractJSON(text string) (string, error) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return "", ErrNoObject
	}
	end := strings.LastIndex(text, "}")
	if end > start {
		return strings.TrimSpace(text[start : end+1]), nil
	}
	// No closing brace at all. Keep the tail and let Repair balance it.
	return strings.TrimSpace(text[start:]), nil
}

// Repair applies textual fixes that cover the common ways model output
// deviates from strict JSON: trailing commas, an unterminated string,
// and missing closing braces or brackets.
func Repair(text string) string {
	text = trailingCommaPattern.ReplaceAllString(text, "$1")

	if quotes := countUnescapedQuotes(text); quotes%2 != 0 {
		text += `"`
	}

	openBraces, openBrackets := countUnclosed(text)
	text += strings.Repeat("]", openBrackets)
	text += strings.Repeat("}", openBraces)
	return text
}

// Parse extracts, decodes, and if necessary repairs and re-decodes the
// JSON object in text into v.
func Parse(text string, v any) error {
	candidate, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if json.Unmarshal([]byte(candidate), v) == nil {
		return nil
	}
	repaired := Repair(candidate)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return err
	}
	return nil
}

func countUnescapedQuotes(text string) int {
	count := 0
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			count++
		}
	}
	return count
}

// countUnclosed counts open braces and brackets outside string
// literals.
func countUnclosed(text string) (braces, brackets int) {
	inString := false
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{':
			braces++
		case r == '}':
			if braces > 0 {
				braces--
			}
		case r == '[':
			brackets++
		case r == ']':
			if brackets > 0 {
				brackets--
			}
		}
	}
	return braces, brackets
}
