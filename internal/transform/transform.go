// Package transform applies the ordered string normalizations configured on
// extraction rules.
package transform

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mvp-joe/archextract/internal/rules"
)

// step is one enabled stage of the pipeline.
type step func(string) string

// Apply runs every enabled step of t over value in the fixed order
// stripSuffix, stripPrefix, toLowerCase, toUpperCase, kebabToPascal,
// pascalToKebab. A nil transform returns value unchanged.
func Apply(value string, t *rules.Transform) string {
	for _, s := range steps(t) {
		value = s(value)
	}
	return value
}

func steps(t *rules.Transform) []step {
	if t == nil {
		return nil
	}

	var out []step
	if t.StripSuffix != nil {
		suffix := *t.StripSuffix
		out = append(out, func(s string) string { return strings.TrimSuffix(s, suffix) })
	}
	if t.StripPrefix != nil {
		prefix := *t.StripPrefix
		out = append(out, func(s string) string { return strings.TrimPrefix(s, prefix) })
	}
	if t.ToLowerCase {
		out = append(out, strings.ToLower)
	}
	if t.ToUpperCase {
		out = append(out, strings.ToUpper)
	}
	if t.KebabToPascal {
		out = append(out, KebabToPascal)
	}
	if t.PascalToKebab {
		out = append(out, PascalToKebab)
	}
	return out
}

// KebabToPascal converts "order-created" to "OrderCreated". Only the first
// rune of each segment is changed; empty segments from repeated or edge
// dashes disappear.
func KebabToPascal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// PascalToKebab converts "OrderCreated" to "order-created". A dash is only
// inserted between a lower-case letter and an upper-case one, so
// "HTTPServer" becomes "httpserver" and "Order2Created" becomes
// "order2created". This is not the exact inverse of KebabToPascal.
func PascalToKebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	prevLower := false
	for _, r := range s {
		if prevLower && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		prevLower = unicode.IsLower(r)
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
