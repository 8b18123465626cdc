package form

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MaxInputLength = 500
	// MinInputLength is kept for the message; no input is shorter than 0.
	MinInputLength = 0
)

var lengthMessage = fmt.Sprintf("Input must be between %d and %d characters", MinInputLength, MaxInputLength)

var lengthRule = validation.Length(MinInputLength, MaxInputLength).Error(lengthMessage)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize trims surrounding whitespace, drops every '<' and '>' and caps
// the result at MaxInputLength characters. The result never starts or ends
// with whitespace, so Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	s = strings.TrimFunc(angleBrackets.Replace(s), IsTrimSpace)
	return strings.TrimRightFunc(truncate(s, MaxInputLength), IsTrimSpace)
}

// IsTrimSpace reports whether Sanitize trims r: the space separators plus
// tab, line breaks, U+2028, U+2029 and the byte order mark U+FEFF. Unlike
// unicode.IsSpace it keeps U+0085.
func IsTrimSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// Validate reports whether s is within the accepted length bounds.
func Validate(s string) bool {
	return validation.Validate(s, lengthRule) == nil
}

// Length counts characters the way the bounds do.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}

func validateDraft(d Fields) map[string]string {
	errs := validation.Errors{
		FieldOne: validation.Validate(d.VariableOne, lengthRule),
		FieldTwo: validation.Validate(d.VariableTwo, lengthRule),
	}.Filter()
	if errs == nil {
		return nil
	}

	out := map[string]string{}
	for field, err := range errs.(validation.Errors) {
		out[field] = err.Error()
	}
	return out
}
