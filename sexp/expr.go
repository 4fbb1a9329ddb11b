// Package sexp parses the soccer server's parenthesised text format.
//
// A message such as "(see 100 (b) 12.5 -3)" becomes a list whose elements are
// atoms (strings, integers, floats) or nested lists. The parser keeps no state
// between calls and is safe for concurrent use.
package sexp

import (
	"strconv"
	"strings"
)

// Kind identifies what an Expr holds.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Expr is one parsed element: an atom or a list of elements.
type Expr struct {
	kind   Kind
	text   string // atom source text (unquoted for quoted atoms)
	quoted bool
	i      int64
	f      float64
	items  []Expr
}

// String returns a string atom.
func String(s string) Expr { return Expr{kind: KindString, text: s} }

// Quoted returns a string atom that serializes with surrounding quotes.
func Quoted(s string) Expr { return Expr{kind: KindString, text: s, quoted: true} }

// Int returns an integer atom.
func Int(v int64) Expr { return Expr{kind: KindInt, text: strconv.FormatInt(v, 10), i: v} }

// Float returns a float atom.
func Float(v float64) Expr {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return Expr{kind: KindFloat, text: text, f: v}
}

// List returns a list of the given elements.
func List(items ...Expr) Expr {
	if items == nil {
		items = []Expr{}
	}
	return Expr{kind: KindList, items: items}
}

func (e Expr) Kind() Kind     { return e.kind }
func (e Expr) IsList() bool   { return e.kind == KindList }
func (e Expr) IsAtom() bool   { return e.kind != KindList }
func (e Expr) IsQuoted() bool { return e.quoted }

// Len is the number of list elements, or 0 for atoms.
func (e Expr) Len() int { return len(e.items) }

// At returns the i-th list element. Out of range returns the zero Expr
// (an empty string atom) and false.
func (e Expr) At(i int) (Expr, bool) {
	if i < 0 || i >= len(e.items) {
		return Expr{}, false
	}
	return e.items[i], true
}

// Items returns the list elements. The slice must not be modified.
func (e Expr) Items() []Expr { return e.items }

// Atom returns the atom's text as it appeared on the wire (quotes removed).
// Lists return "".
func (e Expr) Atom() string {
	if e.kind == KindList {
		return ""
	}
	return e.text
}

// Float returns the numeric value of an int or float atom.
func (e Expr) Float() (float64, bool) {
	switch e.kind {
	case KindInt:
		return float64(e.i), true
	case KindFloat:
		return e.f, true
	default:
		return 0, false
	}
}

// Int returns the value of an integer atom.
func (e Expr) Int() (int64, bool) {
	if e.kind != KindInt {
		return 0, false
	}
	return e.i, true
}

// Tag returns the leading atom of a list, which the server uses as the
// message or field name.
func (e Expr) Tag() (string, bool) {
	if e.kind != KindList || len(e.items) == 0 || e.items[0].kind == KindList {
		return "", false
	}
	return e.items[0].text, true
}

// String serializes the expression back into wire form.
func (e Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e Expr) write(b *strings.Builder) {
	switch e.kind {
	case KindList:
		b.WriteByte('(')
		for i, it := range e.items {
			if i > 0 {
				b.WriteByte(' ')
			}
			it.write(b)
		}
		b.WriteByte(')')
	default:
		if e.quoted {
			b.WriteByte('"')
			b.WriteString(e.text)
			b.WriteByte('"')
			return
		}
		b.WriteString(e.text)
	}
}

// Equal reports whether two expressions have the same structure and values.
func Equal(a, b Expr) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.text == b.text
	}
	if len(a.items) != len(b.items) {
		return false
	}
	for i := range a.items {
		if !Equal(a.items[i], b.items[i]) {
			return false
		}
	}
	return true
}

// Format joins several top-level expressions with single spaces.
func Format(exprs []Expr) string {
	var b strings.Builder
	for i, e := range exprs {
		if i > 0 {
			b.WriteByte(' ')
		}
		e.write(&b)
	}
	return b.String()
}
