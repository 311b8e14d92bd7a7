// Package token defines the parse tree produced by the parser: a single
// generic node type carrying a syntactic kind, an optional parsed value, a
// source span, and ordered children.
package token

import "fmt"

// Kind identifies the syntactic role of a Token.
type Kind int

const (
	Invalid Kind = iota
	Block
	Skip
	Literal
	Reference
	MemberRef
	Binary
	Unary
	Increment
	ExplicitConversion
	Function
	Constructor
	Index
	Setter
)

func (k Kind) String() string {
	switch k {
	case Block:
		return "Block"
	case Skip:
		return "Skip"
	case Literal:
		return "Literal"
	case Reference:
		return "Reference"
	case MemberRef:
		return "MemberRef"
	case Binary:
		return "Binary"
	case Unary:
		return "Unary"
	case Increment:
		return "Increment"
	case ExplicitConversion:
		return "ExplicitConversion"
	case Function:
		return "Function"
	case Constructor:
		return "Constructor"
	case Index:
		return "Index"
	case Setter:
		return "Setter"
	default:
		return "Invalid"
	}
}

// Span is a (start, length) byte-offset range into the original input text.
// It is used for error reporting, and as a fallback for recovering a
// token's lexeme when Value is unset.
type Span struct {
	Start  int
	Length int
}

// End returns the byte offset immediately after the span.
func (s Span) End() int {
	return s.Start + s.Length
}

// Text recovers the lexeme covered by this span from the original input.
func (s Span) Text(input string) string {
	end := s.End()
	if s.Start < 0 || end > len(input) || s.Start > end {
		return ""
	}
	return input[s.Start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("%d+%d", s.Start, s.Length)
}

// Token is a node in the parse tree.
//
// Invariants (enforced by the parser, see package parser):
//   - every Literal has a non-nil Value whose type is a supported primitive
//   - every Reference, MemberRef, ExplicitConversion, and Constructor
//     carries its identifier as Value
//   - every Binary, Unary, Increment, and Setter leaf carries its own
//     operator lexeme as Value, so the compiler can resolve an operator
//     name without access to the original source text
//   - a Function or Index token's Children is its argument list, in source
//     order; a Function's may be empty, an Index always has at least one
//   - a Block with exactly one child never appears in the final tree (it
//     collapses to that child)
//   - Skip tokens never appear in the final tree
type Token struct {
	Kind     Kind
	Value    any
	Span     Span
	Children []*Token
}

// Lexeme recovers this token's source text, preferring Value when the
// token carries one and falling back to re-slicing input by Span
// otherwise.
func (t *Token) Lexeme(input string) string {
	if s, ok := t.Value.(string); ok {
		return s
	}
	return t.Span.Text(input)
}

// NewLiteral returns a Literal token wrapping a parsed primitive value.
func NewLiteral(value any, span Span) *Token {
	return &Token{Kind: Literal, Value: value, Span: span}
}

// NewReference returns a Reference token for the given identifier name.
func NewReference(name string, span Span) *Token {
	return &Token{Kind: Reference, Value: name, Span: span}
}
