package parser

import (
	"errors"
	"fmt"
	"sibs/pkg/color"
	"sibs/pkg/lexer"
)

// errBailout aborts parsing after the first syntax error; Parse recovers it.
var errBailout = errors.New("parser bailout")

// SyntaxError is a parse failure at a source position.
type SyntaxError struct {
	Pos lexer.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Msg, e.Pos.Line, e.Pos.Column)
}

// fail records an error at the current token and unwinds the parse
func (p *Parser) fail(msg string) {
	p.failAt(p.currentToken.Pos, msg)
}

func (p *Parser) failAt(pos lexer.Position, msg string) {
	p.addError(pos, msg)
	panic(errBailout)
}

// failExpected reports that expected was required at the current token
func (p *Parser) failExpected(expected lexer.TokenType) {
	p.fail(p.categorizeError(expected, p.currentToken))
}

// addError records a parsing error with location
func (p *Parser) addError(pos lexer.Position, msg string) {
	p.errors = append(p.errors, &SyntaxError{Pos: pos, Msg: msg})
}

// Errors returns the list of parsing errors, formatted for a terminal
func (p *Parser) Errors() []string {
	out := make([]string, len(p.errors))
	for i, e := range p.errors {
		out[i] = color.RedText(e.Msg) + " at " + color.YellowText(fmt.Sprintf("Line: %d, Column %d", e.Pos.Line, e.Pos.Column))
	}
	return out
}

// Err returns the first syntax error, or nil
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return p.errors[0]
}

// categorizeError provides a specific error message based on expected symbol and current token
func (p *Parser) categorizeError(expected lexer.TokenType, current lexer.Token) string {
	if current.Type == lexer.EOF {
		return fmt.Sprintf("Unexpected end of input, expected '%s'", expected)
	}

	switch expected {
	case lexer.RPAREN:
		return "Missing closing parenthesis"
	case lexer.RBRACE:
		return "Missing closing brace"
	case lexer.RSBRACE:
		return "Missing closing bracket"
	case lexer.LBRACE:
		return "Missing opening brace"
	case lexer.ASSIGN:
		return "Missing assignment operator"
	case lexer.LPAREN:
		if current.Type == lexer.LBRACE {
			return "Wrong bracket type - expected parenthesis"
		}
		return "Missing opening parenthesis"
	case lexer.ID:
		if current.Type.GetCategory() == lexer.KEYWORD {
			return "Cannot use reserved keyword as identifier"
		}
		return "Expected identifier"
	case lexer.STRING:
		if current.Type == lexer.ID {
			return "Missing quotes around string"
		}
		return "Expected string"
	}

	return fmt.Sprintf("Syntax error: expected '%s', found '%s'", expected, current.Lexeme)
}
