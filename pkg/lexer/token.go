package lexer

import (
	"fmt"
)

type TokenType int
type TokenCategory int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from source code
	Literal string    // Literal value (if applicable), empty string if not
	Pos     Position  // Position in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, Pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     Pos,
	}
}

const (
	NONE TokenCategory = iota
	KEYWORD
	IDENTIFIER
	LITERAL
	OPERATOR
	DELIMITER
)

const (
	EOF TokenType = iota // End of file

	LET       // let
	FN        // fn
	TASK      // task
	COMPONENT // component
	RETURN    // return
	IF        // if
	ELSE      // else
	WHILE     // while
	LOOP      // loop
	FOR       // for
	IN        // in
	EACH      // each
	BREAK     // break
	CONTINUE  // continue
	JOIN      // join
	TRUE      // true
	FALSE     // false

	ID      // id (identifier, may contain :: module separators)
	NUM     // num (number)
	STRING  // string literal
	COMMAND // `command`

	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	PLUS         // +
	MINUS        // -
	MULT         // *
	DIV          // /
	LT           // <
	GT           // >
	LE           // <=
	GE           // >=
	EQ           // ==
	NE           // !=
	AND          // &&
	OR           // ||
	NOT          // !
	DOTDOT       // ..
	DOT          // .
	ARROW        // ->
	PIPE         // |

	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LSBRACE   // [
	RSBRACE   // ]

	ILLEGAL // illegal token
)

var Keywords = map[string]TokenType{
	"let":       LET,
	"fn":        FN,
	"task":      TASK,
	"component": COMPONENT,
	"return":    RETURN,
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"loop":      LOOP,
	"for":       FOR,
	"in":        IN,
	"each":      EACH,
	"break":     BREAK,
	"continue":  CONTINUE,
	"join":      JOIN,
	"true":      TRUE,
	"false":     FALSE,
}

var tokenNames = map[TokenType]string{
	LET:          "let",
	FN:           "fn",
	TASK:         "task",
	COMPONENT:    "component",
	RETURN:       "return",
	IF:           "if",
	ELSE:         "else",
	WHILE:        "while",
	LOOP:         "loop",
	FOR:          "for",
	IN:           "in",
	EACH:         "each",
	BREAK:        "break",
	CONTINUE:     "continue",
	JOIN:         "join",
	TRUE:         "true",
	FALSE:        "false",
	ASSIGN:       "=",
	PLUS_ASSIGN:  "+=",
	MINUS_ASSIGN: "-=",
	PLUS:         "+",
	MINUS:        "-",
	MULT:         "*",
	DIV:          "/",
	LT:           "<",
	GT:           ">",
	LE:           "<=",
	GE:           ">=",
	EQ:           "==",
	NE:           "!=",
	AND:          "&&",
	OR:           "||",
	NOT:          "!",
	DOTDOT:       "..",
	DOT:          ".",
	ARROW:        "->",
	PIPE:         "|",
	SEMICOLON:    ";",
	COMMA:        ",",
	COLON:        ":",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACE:       "{",
	RBRACE:       "}",
	LSBRACE:      "[",
	RSBRACE:      "]",
	ID:           "id",
	NUM:          "num",
	STRING:       "string",
	COMMAND:      "command",
	ILLEGAL:      "illegal",
	EOF:          "$",
}

// TokenToString converts a TokenType to its string representation
func (t Token) TokenToString() (string, bool) {
	str, ok := tokenNames[t.Type]
	return str, ok
}

// String returns a string representation of the Token
func (t Token) String() string {
	if t.Literal == "" {
		return fmt.Sprintf("T_{%s, %v, nil, %s}",
			t.Type, t.Lexeme, t.Pos.String())
	}

	return fmt.Sprintf("T_{%s, %v, %q, %s}",
		t.Type, t.Lexeme, t.Literal, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := (Token{Type: t}).TokenToString(); ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// GetCategory returns the category of the token
func (t TokenType) GetCategory() TokenCategory {
	switch t {
	case LET, FN, TASK, COMPONENT, RETURN, IF, ELSE, WHILE, LOOP, FOR, IN, EACH, BREAK, CONTINUE, JOIN, TRUE, FALSE:
		return KEYWORD
	case ID:
		return IDENTIFIER
	case NUM, STRING, COMMAND:
		return LITERAL
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, PLUS, MINUS, MULT, DIV, LT, GT, LE, GE, EQ, NE, AND, OR, NOT, DOTDOT, DOT, ARROW, PIPE:
		return OPERATOR
	case SEMICOLON, COMMA, COLON, LPAREN, RPAREN, LBRACE, RBRACE, LSBRACE, RSBRACE:
		return DELIMITER
	default:
		return NONE
	}
}

// IsKeyword checks if the given identifier is a keyword and returns its TokenType if it is
func IsKeyword(identifier string) (TokenType, bool) {
	tokenType, ok := Keywords[identifier]
	return tokenType, ok
}
