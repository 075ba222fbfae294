// Package diag attaches source spans to runtime errors and renders them.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"sibs/pkg/ast"
	"sibs/pkg/color"
)

// LinkedError is an error raised while interpreting the node at Span.
type LinkedError struct {
	Span ast.Span
	Err  error
}

func (e *LinkedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Span, e.Err)
}

func (e *LinkedError) Unwrap() error {
	return e.Err
}

// Link wraps err with span unless it already carries one.
func Link(span ast.Span, err error) error {
	if err == nil {
		return nil
	}
	var linked *LinkedError
	if errors.As(err, &linked) {
		return err
	}
	return &LinkedError{Span: span, Err: err}
}

// Render formats err for the terminal. When src is given, the offending
// source line is printed under the message with a caret at the column.
func Render(err error, src string) string {
	var linked *LinkedError
	if !errors.As(err, &linked) {
		return color.Error(err.Error())
	}

	line, col := linked.Span.From.Line, linked.Span.From.Column
	return color.ErrorWithPosition(line, col, linked.Err.Error(), excerpt(src, line, col))
}

func excerpt(src string, line, col int) string {
	if src == "" || line < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return ""
	}

	text := strings.TrimRight(lines[line-1], "\r")
	if col < 1 {
		col = 1
	}
	return text + "\n" + strings.Repeat(" ", col-1) + "^"
}
