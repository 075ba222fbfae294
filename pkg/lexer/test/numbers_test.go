package lexer_test

import (
	"sibs/pkg/lexer"
	"testing"
)

func TestNumbers(t *testing.T) {
	tests := []struct {
		input       string
		expected    lexer.TokenType
		description string
	}{
		{"42", lexer.NUM, "integer"},
		{"0", lexer.NUM, "zero"},

		{"3.14", lexer.NUM, "simple float"},
		{"0.5", lexer.NUM, "float starting with zero"},
		{"123.456", lexer.NUM, "multi-digit float"},

		{"1e5", lexer.NUM, "scientific notation with e"},
		{"1e+5", lexer.NUM, "scientific notation with e+"},
		{"1e-5", lexer.NUM, "scientific notation with e-"},
		{"2.5e10", lexer.NUM, "float with scientific notation"},
		{"3.14e-2", lexer.NUM, "float with negative exponent"},
		{"1.23e+10", lexer.NUM, "float with positive exponent"},

		{"1E5", lexer.NUM, "scientific notation with E"},
		{"1E+5", lexer.NUM, "scientific notation with E+"},
		{"1E-5", lexer.NUM, "scientific notation with E-"},
		{"2.5E10", lexer.NUM, "float with scientific notation E"},
		{"3.14E-2", lexer.NUM, "float with negative exponent E"},
		{"1.23E+10", lexer.NUM, "float with positive exponent E"},

		{"0.0", lexer.NUM, "zero as float"},
		{"0e0", lexer.NUM, "zero in scientific notation"},
		{"1000000", lexer.NUM, "large integer"},
		{"1e6", lexer.NUM, "large number in scientific"},
	}

	for _, test := range tests {
		tokenType, lexeme, matched := lexer.MatchToken(test.input)
		if !matched {
			t.Errorf("Failed to match %s (%s)", test.input, test.description)
		}
		if tokenType != test.expected {
			t.Errorf("Input %s (%s): expected %s, got %s", test.input, test.description, test.expected, tokenType)
		}
		if lexeme != test.input {
			t.Errorf("Input %s (%s): expected lexeme %s, got %s", test.input, test.description, test.input, lexeme)
		}
	}
}

func TestRangesAreNotDecimals(t *testing.T) {
	tests := []struct {
		input    string
		expected []lexer.TokenType
		literals []string
	}{
		{"1..3", []lexer.TokenType{lexer.NUM, lexer.DOTDOT, lexer.NUM}, []string{"1", "..", "3"}},
		{"1.5..3", []lexer.TokenType{lexer.NUM, lexer.DOTDOT, lexer.NUM}, []string{"1.5", "..", "3"}},
		{"0..n", []lexer.TokenType{lexer.NUM, lexer.DOTDOT, lexer.ID}, []string{"0", "..", "n"}},
		{"(1..3)[2]", []lexer.TokenType{lexer.LPAREN, lexer.NUM, lexer.DOTDOT, lexer.NUM, lexer.RPAREN, lexer.LSBRACE, lexer.NUM, lexer.RSBRACE}, nil},
	}

	for _, test := range tests {
		l := lexer.NewLexer(test.input)
		for i, expected := range test.expected {
			tok := l.NextToken()
			if tok.Type != expected {
				t.Errorf("%s, token %d: expected %s, got %s", test.input, i, expected, tok.Type)
				continue
			}
			if test.literals != nil && tok.Lexeme != test.literals[i] {
				t.Errorf("%s, token %d: expected lexeme %s, got %s", test.input, i, test.literals[i], tok.Lexeme)
			}
		}
		if tok := l.NextToken(); tok.Type != lexer.EOF {
			t.Errorf("%s: expected end of input, got %s", test.input, tok)
		}
	}
}

func TestShiftStaysOnLine(t *testing.T) {
	pos := lexer.NewPosition(3, 5, 40).Shift(4)
	if pos.Line != 3 || pos.Column != 9 || pos.Offset != 44 {
		t.Errorf("unexpected position %s (offset %d)", pos, pos.Offset)
	}
	if pos.String() != "3:9" {
		t.Errorf("expected 3:9, got %s", pos)
	}
}
