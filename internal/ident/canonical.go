// Package ident implements identifier canonicalization for the
// simulation core: every cross-variable reference, dependency edge,
// and offset-table key is compared and stored in canonical form.
package ident

import "strings"

// MiddleDot is the canonical stand-in for a literal '.' in a source
// identifier (used to separate a module instance from its output,
// e.g. "inner1.out" canonicalizes to "inner1·out").
const MiddleDot = '·'

// Canonical lower-cases a name, maps space to underscore, and maps '.'
// to U+00B7 MIDDLE DOT. It is a pure function: canonicalization is a
// syntactic rule, not Unicode normalization, so no case-folding table
// or locale is consulted.
func Canonical(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '.':
			b.WriteRune(MiddleDot)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether a and b canonicalize to the same identifier.
func Equal(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Join builds the canonical dotted path used for module-qualified
// variable names (e.g. a stock "pop" inside module instance "inner1"
// becomes "inner1·pop").
func Join(parts ...string) string {
	canon := make([]string, len(parts))
	for i, p := range parts {
		canon[i] = Canonical(p)
	}
	return strings.Join(canon, string(MiddleDot))
}
