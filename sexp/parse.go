package sexp

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnbalanced reports a ')' without an open list, or lists still open
	// at end of input.
	ErrUnbalanced = errors.New("unbalanced parentheses")
	// ErrUnterminatedQuote reports a quoted atom with no closing quote.
	ErrUnterminatedQuote = errors.New("unterminated quoted atom")
)

// SyntaxError locates a malformed input. The expressions parsed before the
// fault are still returned by Parse.
type SyntaxError struct {
	Offset int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sexp: %v at offset %d", e.Err, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse splits text into its top-level expressions.
//
// On malformed input Parse returns every expression completed so far, with
// open lists closed implicitly, together with a *SyntaxError.
func Parse(text string) ([]Expr, error) {
	// stack[0] collects top-level expressions; stack[len-1] is the list
	// currently being filled.
	stack := make([][]Expr, 1, 8)
	stack[0] = make([]Expr, 0, 1)

	start := -1 // start of the pending atom, -1 when none
	var synErr error

	flush := func(end int) {
		if start < 0 {
			return
		}
		top := len(stack) - 1
		stack[top] = append(stack[top], atom(text[start:end]))
		start = -1
	}

	i := 0
scan:
	for i < len(text) {
		c := text[i]
		switch {
		case c == '(':
			flush(i)
			stack = append(stack, make([]Expr, 0, 4))
		case c == ')':
			flush(i)
			if len(stack) == 1 {
				synErr = &SyntaxError{Offset: i, Err: ErrUnbalanced}
				break scan
			}
			closeList(&stack)
		case isSpace(c):
			flush(i)
		case c == '"' && start < 0:
			end := indexQuote(text, i+1)
			if end < 0 {
				top := len(stack) - 1
				stack[top] = append(stack[top], Quoted(text[i+1:]))
				synErr = &SyntaxError{Offset: i, Err: ErrUnterminatedQuote}
				i = len(text)
				break scan
			}
			top := len(stack) - 1
			stack[top] = append(stack[top], Quoted(text[i+1:end]))
			i = end + 1
			continue
		default:
			if start < 0 {
				start = i
			}
		}
		i++
	}
	flush(i)

	if len(stack) > 1 && synErr == nil {
		synErr = &SyntaxError{Offset: len(text), Err: ErrUnbalanced}
	}
	for len(stack) > 1 {
		closeList(&stack)
	}
	return stack[0], synErr
}

// ParseOne parses text that must hold exactly one list expression.
func ParseOne(text string) (Expr, error) {
	exprs, err := Parse(text)
	if err != nil {
		return Expr{}, err
	}
	if len(exprs) != 1 {
		return Expr{}, fmt.Errorf("sexp: expected 1 expression, got %d", len(exprs))
	}
	return exprs[0], nil
}

func closeList(stack *[][]Expr) {
	s := *stack
	top := len(s) - 1
	list := List(s[top]...)
	s = s[:top]
	s[top-1] = append(s[top-1], list)
	*stack = s
}

func indexQuote(text string, from int) int {
	for j := from; j < len(text); j++ {
		if text[j] == '"' {
			return j
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == 0
}

// atom classifies a raw token. Integer parse is tried first, then float;
// anything else stays a string.
func atom(tok string) Expr {
	if !numericCandidate(tok) {
		return String(tok)
	}
	if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Expr{kind: KindInt, text: tok, i: v}
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return Expr{kind: KindFloat, text: tok, f: v}
	}
	return String(tok)
}

// numericCandidate rejects tokens strconv would accept but the server never
// means as numbers (inf, nan, hex floats).
func numericCandidate(tok string) bool {
	digit := false
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return digit
}
