package parser

import (
	"sibs/pkg/ast"
	"sibs/pkg/lexer"
	"sibs/pkg/value"
)

type Parser struct {
	lexer        *lexer.Lexer   // lexer instance
	currentToken lexer.Token    // current token
	peekToken    lexer.Token    // one token of lookahead
	prevToken    lexer.Token    // last consumed token, closes node spans
	errors       []*SyntaxError // list of errors
}

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:  l,
		errors: []*SyntaxError{},
	}

	// Initialize current and lookahead tokens
	p.peekToken = p.lexer.NextToken()
	p.nextToken()

	return p
}

// Parse parses a whole script: either a sequence of components and
// functions, or a single bare block. It returns nil when parsing failed;
// see Errors and Err.
func (p *Parser) Parse() (script *ast.Script) {
	defer p.recoverBailout(func() { script = nil })

	start := p.currentToken.Pos
	script = &ast.Script{}

	if p.currentToken.Type == lexer.LBRACE {
		script.Main = p.parseBlock()
		p.accept(lexer.SEMICOLON)
	} else {
		for p.currentToken.Type != lexer.EOF {
			switch p.currentToken.Type {
			case lexer.COMPONENT:
				script.Components = append(script.Components, p.parseComponent())
			case lexer.FN:
				script.Fns = append(script.Fns, p.parseFn())
			default:
				p.fail("Expected component or fn declaration")
			}
		}
	}

	if p.currentToken.Type != lexer.EOF {
		p.fail("Unexpected token '" + p.currentToken.Lexeme + "' at end of input")
	}

	script.Meta = ast.NewMeta(start, p.prevToken.Pos)
	return script
}

// ParseStatements parses a sequence of statements up to the end of input,
// as typed at an interactive prompt.
func (p *Parser) ParseStatements() (block *ast.Block) {
	defer p.recoverBailout(func() { block = nil })

	start := p.currentToken.Pos
	var stmts []ast.Node
	for p.currentToken.Type != lexer.EOF {
		stmts = append(stmts, p.parseStatement())
		for p.accept(lexer.SEMICOLON) {
		}
	}

	return &ast.Block{Meta: ast.NewMeta(start, p.prevToken.Pos), Stmts: stmts}
}

// ParseSource is a convenience wrapper lexing and parsing src.
func ParseSource(src string) (*ast.Script, error) {
	p := NewParser(lexer.NewLexer(src))
	script := p.Parse()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return script, nil
}

func (p *Parser) recoverBailout(onFail func()) {
	if r := recover(); r != nil {
		if r != errBailout {
			panic(r)
		}
		onFail()
	}
}

// nextToken advances to the next token from the lexer
func (p *Parser) nextToken() {
	p.prevToken = p.currentToken
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// expect consumes a token of the given type or fails
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	if p.currentToken.Type != tt {
		p.failExpected(tt)
	}
	tok := p.currentToken
	p.nextToken()
	return tok
}

// accept consumes the current token if it has the given type
func (p *Parser) accept(tt lexer.TokenType) bool {
	if p.currentToken.Type != tt {
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) meta(start lexer.Position) ast.Meta {
	return ast.NewMeta(start, p.prevToken.Pos)
}

// component := 'component' ID ('(' STRING ')')? '{' (fn | task)* '}'
func (p *Parser) parseComponent() *ast.Component {
	start := p.expect(lexer.COMPONENT).Pos
	c := &ast.Component{Name: p.expect(lexer.ID).Literal}

	if p.accept(lexer.LPAREN) {
		c.Cwd = unescape(p.expect(lexer.STRING).Literal)
		p.expect(lexer.RPAREN)
	}

	p.expect(lexer.LBRACE)
	for p.currentToken.Type != lexer.RBRACE {
		switch p.currentToken.Type {
		case lexer.TASK:
			c.Tasks = append(c.Tasks, p.parseTask())
		case lexer.FN:
			c.Fns = append(c.Fns, p.parseFn())
		default:
			p.fail("Expected task or fn declaration inside component")
		}
	}
	p.expect(lexer.RBRACE)

	c.Meta = p.meta(start)
	return c
}

// task := 'task' ID '(' params ')' block
func (p *Parser) parseTask() *ast.Task {
	start := p.expect(lexer.TASK).Pos
	name := p.expect(lexer.ID).Literal
	params := p.parseParams(lexer.LPAREN, lexer.RPAREN)
	body := p.parseBlock()

	return &ast.Task{Meta: p.meta(start), Name: name, Params: params, Body: body}
}

// fn := 'fn' ID '(' params ')' ('->' type)? block
func (p *Parser) parseFn() *ast.FnDecl {
	start := p.expect(lexer.FN).Pos
	name := p.expect(lexer.ID).Literal
	params := p.parseParams(lexer.LPAREN, lexer.RPAREN)

	ret := value.TyAny
	if p.accept(lexer.ARROW) {
		ret = p.parseType()
	}
	body := p.parseBlock()

	return &ast.FnDecl{Meta: p.meta(start), Name: name, Params: params, Ret: ret, Body: body}
}

// params := (ID (':' type)? (',' ID (':' type)?)*)? between open and close
func (p *Parser) parseParams(open, close lexer.TokenType) []ast.Param {
	p.expect(open)

	var params []ast.Param
	for p.currentToken.Type != close {
		param := ast.Param{Name: p.expect(lexer.ID).Literal, Ty: value.TyAny}
		if p.accept(lexer.COLON) {
			param.Ty = p.parseType()
		}
		params = append(params, param)

		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(close)

	return params
}

func (p *Parser) parseType() value.Ty {
	tok := p.expect(lexer.ID)
	ty, ok := value.ParseTy(tok.Literal)
	if !ok {
		p.failAt(tok.Pos, "Unknown type '"+tok.Literal+"'")
	}
	return ty
}

// block := '{' (stmt ';'*)* '}'
func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(lexer.LBRACE).Pos

	var stmts []ast.Node
	for p.currentToken.Type != lexer.RBRACE {
		if p.currentToken.Type == lexer.EOF {
			p.failExpected(lexer.RBRACE)
		}
		stmts = append(stmts, p.parseStatement())
		for p.accept(lexer.SEMICOLON) {
		}
	}
	p.expect(lexer.RBRACE)

	return &ast.Block{Meta: p.meta(start), Stmts: stmts}
}

func (p *Parser) parseStatement() ast.Node {
	start := p.currentToken.Pos

	switch p.currentToken.Type {
	case lexer.LET:
		return p.parseLet()

	case lexer.ID:
		switch p.peekToken.Type {
		case lexer.ASSIGN, lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN:
			return p.parseAssign()
		}

	case lexer.BREAK:
		p.nextToken()
		return &ast.Break{Meta: p.meta(start)}

	case lexer.CONTINUE:
		p.nextToken()
		return &ast.Continue{Meta: p.meta(start)}

	case lexer.RETURN:
		p.nextToken()
		ret := &ast.Return{}
		switch p.currentToken.Type {
		case lexer.SEMICOLON, lexer.RBRACE, lexer.EOF:
		default:
			ret.Value = p.parseExpression()
		}
		ret.Meta = p.meta(start)
		return ret
	}

	return p.parseExpression()
}

// let := 'let' ID (':' type)? '=' expr
func (p *Parser) parseLet() ast.Node {
	start := p.expect(lexer.LET).Pos
	let := &ast.Let{Name: p.expect(lexer.ID).Literal, Ty: value.TyAny}

	if p.accept(lexer.COLON) {
		let.Ty = p.parseType()
	}
	p.expect(lexer.ASSIGN)
	let.Value = p.parseExpression()

	let.Meta = p.meta(start)
	return let
}

// assign := ID ('=' | '+=' | '-=') expr
func (p *Parser) parseAssign() ast.Node {
	name := p.expect(lexer.ID)
	assign := &ast.Assign{Name: name.Literal}

	opTok := p.currentToken
	p.nextToken()
	switch opTok.Type {
	case lexer.PLUS_ASSIGN:
		assign.Op = &ast.Operator{Meta: ast.NewMeta(opTok.Pos, opTok.Pos), Val: value.BinaryOp(value.OpAdd)}
	case lexer.MINUS_ASSIGN:
		assign.Op = &ast.Operator{Meta: ast.NewMeta(opTok.Pos, opTok.Pos), Val: value.BinaryOp(value.OpSub)}
	}

	assign.Value = p.parseExpression()
	assign.Meta = p.meta(name.Pos)
	return assign
}
