package lexer

import (
	"regexp"
)

type tokenRegex struct {
	Pattern *regexp.Regexp
	Raw     string
}

func rx(raw string) tokenRegex {
	return tokenRegex{regexp.MustCompile(raw), raw}
}

// Token regex patterns
var tokenRegexes = map[TokenType]tokenRegex{
	LE:           rx(`^<=`),
	GE:           rx(`^>=`),
	EQ:           rx(`^==`),
	NE:           rx(`^!=`),
	AND:          rx(`^&&`),
	OR:           rx(`^\|\|`),
	PLUS_ASSIGN:  rx(`^\+=`),
	MINUS_ASSIGN: rx(`^-=`),
	DOTDOT:       rx(`^\.\.`),
	ARROW:        rx(`^->`),

	LET:       rx(`^let\b`),
	FN:        rx(`^fn\b`),
	TASK:      rx(`^task\b`),
	COMPONENT: rx(`^component\b`),
	RETURN:    rx(`^return\b`),
	IF:        rx(`^if\b`),
	ELSE:      rx(`^else\b`),
	WHILE:     rx(`^while\b`),
	LOOP:      rx(`^loop\b`),
	FOR:       rx(`^for\b`),
	IN:        rx(`^in\b`),
	EACH:      rx(`^each\b`),
	BREAK:     rx(`^break\b`),
	CONTINUE:  rx(`^continue\b`),
	JOIN:      rx(`^join\b`),
	TRUE:      rx(`^true\b`),
	FALSE:     rx(`^false\b`),

	ASSIGN: rx(`^=`),
	PLUS:   rx(`^\+`),
	MINUS:  rx(`^-`),
	MULT:   rx(`^\*`),
	DIV:    rx(`^/`),
	LT:     rx(`^<`),
	GT:     rx(`^>`),
	NOT:    rx(`^!`),
	DOT:    rx(`^\.`),
	PIPE:   rx(`^\|`),

	SEMICOLON: rx(`^;`),
	COMMA:     rx(`^,`),
	COLON:     rx(`^:`),
	LPAREN:    rx(`^\(`),
	RPAREN:    rx(`^\)`),
	LBRACE:    rx(`^\{`),
	RBRACE:    rx(`^\}`),
	LSBRACE:   rx(`^\[`),
	RSBRACE:   rx(`^\]`),

	NUM:     rx(`^\d+(\.\d+)?([eE][+-]?\d+)?`),
	STRING:  rx(`^"([^"\\]|\\.)*"`),
	COMMAND: rx("^`([^`\\\\]|\\\\.)*`"),
	ID:      rx(`^[a-zA-Z_][a-zA-Z0-9_]*(::[a-zA-Z_][a-zA-Z0-9_]*)*`),
}

var (
	whitespaceRegex = regexp.MustCompile(`^\s+`)
	commentRegex    = regexp.MustCompile(`^//[^\n]*`)
)

// Token precedence order for matching (keywords before identifiers, longer operators first)
var tokenPrecedenceOrder = []TokenType{
	COMPONENT, CONTINUE, RETURN, BREAK, FALSE, WHILE, ELSE, EACH, JOIN, LOOP, TASK,
	TRUE, LET, FOR, FN, IF, IN,
	LE, GE, EQ, NE, AND, OR, PLUS_ASSIGN, MINUS_ASSIGN, DOTDOT, ARROW,
	ASSIGN, PLUS, MINUS, MULT, DIV, LT, GT, NOT, DOT, PIPE,
	SEMICOLON, COMMA, COLON, LPAREN, RPAREN, LBRACE, RBRACE, LSBRACE, RSBRACE,
	NUM, STRING, COMMAND, ID,
}

// Get the regex pattern for a token type
func (t TokenType) Regex() *regexp.Regexp {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Pattern
	}

	return nil
}

// Get the raw regex string for a token type
func (t TokenType) RawRegex() string {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Raw
	}

	return ""
}

// MatchToken matches the first token at the start of the string.
// Whitespace and comments are reported as EOF with the skipped lexeme.
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	} else if match := whitespaceRegex.FindString(s); match != "" {
		return EOF, match, true
	} else if match := commentRegex.FindString(s); match != "" {
		return EOF, match, true
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok {
			if match := regex.Pattern.FindString(s); match != "" {
				return tokenType, match, true
			}
		}
	}

	return ILLEGAL, string(s[0]), false
}

// Check if a byte is a digit
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
