package lexer

import "fmt"

// Position locates a byte of the source. Line and Column start at 1,
// Offset at 0.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String formats the position as line:column, the form used in diagnostics
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Shift returns the position n bytes further on the same line
func (p Position) Shift(n int) Position {
	return Position{Line: p.Line, Column: p.Column + n, Offset: p.Offset + n}
}

// NewPosition creates a position
func NewPosition(line, column, offset int) Position {
	return Position{
		Line:   line,
		Column: column,
		Offset: offset,
	}
}
