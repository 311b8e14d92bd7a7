package errz

import "fmt"

// SourceLocation pinpoints a byte offset (and, when known, a resolved
// line/column) into the expression text an error refers to. Every parser
// and compiler error type in this package carries one; the evaluator
// errors (InvalidLeftSide, HostInvocationFailed) do not.
type SourceLocation struct {
	Offset int    // byte offset into the expression text
	Line   int    // 1-based line number, 0 if not resolved
	Column int    // 1-based column number, 0 if not resolved
	Source string // the line of source text, if resolved
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.Line > 0 {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("offset %d", s.Offset)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Offset == 0 && s.Line == 0 && s.Column == 0
}

// AtOffset returns a SourceLocation carrying only a byte offset, the
// normal case for parser/compiler errors, which have the full expression
// text available to resolve to line/column only if the host asks for it
// (see Resolve).
func AtOffset(offset int) SourceLocation {
	return SourceLocation{Offset: offset}
}

// Resolve fills in Line, Column, and Source for a SourceLocation given the
// original input text, so a host rendering an error message can show the
// caller where in a multi-line expression the problem is, despite the
// engine itself tracking only byte offsets during parsing/compilation.
func Resolve(loc SourceLocation, input string) SourceLocation {
	line, col := 1, 1
	lineStart := 0
	for i := 0; i < loc.Offset && i < len(input); i++ {
		if input[i] == '\n' {
			line++
			col = 1
			lineStart = i + 1
		} else {
			col++
		}
	}
	lineEnd := len(input)
	for i := lineStart; i < len(input); i++ {
		if input[i] == '\n' {
			lineEnd = i
			break
		}
	}
	loc.Line = line
	loc.Column = col
	loc.Source = input[lineStart:lineEnd]
	return loc
}

// StackFrame represents a single frame of evaluator call context, attached
// to HostInvocationFailed errors so a host can see which instruction
// triggered the failing host call.
type StackFrame struct {
	Instruction int
	Description string
}

func (f StackFrame) String() string {
	return fmt.Sprintf("at instruction %d (%s)", f.Instruction, f.Description)
}
