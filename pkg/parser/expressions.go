package parser

import (
	"strconv"
	"strings"

	"sibs/pkg/ast"
	"sibs/pkg/lexer"
	"sibs/pkg/value"
)

var comparisonOperators = map[lexer.TokenType]value.ComparisonOperator{
	lexer.EQ: value.OpEq,
	lexer.NE: value.OpNe,
	lexer.LT: value.OpLt,
	lexer.LE: value.OpLe,
	lexer.GT: value.OpGt,
	lexer.GE: value.OpGe,
}

func (p *Parser) parseExpression() ast.Node {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Node {
	left := p.parseAnd()
	for p.currentToken.Type == lexer.OR {
		op := p.operator(value.LogicalOp(value.OpOr))
		right := p.parseAnd()
		left = &ast.Logical{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Node {
	left := p.parseComparison()
	for p.currentToken.Type == lexer.AND {
		op := p.operator(value.LogicalOp(value.OpAnd))
		right := p.parseComparison()
		left = &ast.Logical{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), Left: left, Op: op, Right: right}
	}
	return left
}

// comparisons do not chain: `a < b < c` is a syntax error
func (p *Parser) parseComparison() ast.Node {
	left := p.parseRange()
	cmp, ok := comparisonOperators[p.currentToken.Type]
	if !ok {
		return left
	}

	op := p.operator(value.ComparisonOp(cmp))
	right := p.parseRange()
	if _, chained := comparisonOperators[p.currentToken.Type]; chained {
		p.fail("Comparison operators cannot be chained")
	}

	return &ast.Binary{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), Left: left, Op: op, Right: right}
}

func (p *Parser) parseRange() ast.Node {
	left := p.parseAdditive()
	if p.currentToken.Type != lexer.DOTDOT {
		return left
	}

	p.nextToken()
	right := p.parseAdditive()
	return &ast.RangeExpr{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), From: left, To: right}
}

func (p *Parser) parseAdditive() ast.Node {
	left := p.parseMultiplicative()
	for {
		var op value.BinaryOperator
		switch p.currentToken.Type {
		case lexer.PLUS:
			op = value.OpAdd
		case lexer.MINUS:
			op = value.OpSub
		default:
			return left
		}

		opNode := p.operator(value.BinaryOp(op))
		right := p.parseMultiplicative()
		left = &ast.Binary{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), Left: left, Op: opNode, Right: right}
	}
}

func (p *Parser) parseMultiplicative() ast.Node {
	left := p.parseUnary()
	for {
		var op value.BinaryOperator
		switch p.currentToken.Type {
		case lexer.MULT:
			op = value.OpMul
		case lexer.DIV:
			op = value.OpDiv
		default:
			return left
		}

		opNode := p.operator(value.BinaryOp(op))
		right := p.parseUnary()
		left = &ast.Binary{Meta: ast.NewMeta(left.Span().From, p.prevToken.Pos), Left: left, Op: opNode, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Node {
	start := p.currentToken.Pos

	switch p.currentToken.Type {
	case lexer.NOT:
		p.nextToken()
		expr := p.parseUnary()
		return &ast.Not{Meta: p.meta(start), Expr: expr}
	case lexer.MINUS:
		p.nextToken()
		expr := p.parseUnary()
		return &ast.Neg{Meta: p.meta(start), Expr: expr}
	}

	return p.parsePostfix(p.parsePrimary())
}

// postfix := primary ('.' ID '(' args ')' | '[' expr ']')*
func (p *Parser) parsePostfix(expr ast.Node) ast.Node {
	for {
		switch p.currentToken.Type {
		case lexer.DOT:
			p.nextToken()
			name := p.expect(lexer.ID).Literal
			args := p.parseArgs()
			expr = &ast.Call{Meta: ast.NewMeta(expr.Span().From, p.prevToken.Pos), Name: name, Args: args, Receiver: expr}

		case lexer.LSBRACE:
			p.nextToken()
			idx := p.parseExpression()
			p.expect(lexer.RSBRACE)
			expr = &ast.Index{Meta: ast.NewMeta(expr.Span().From, p.prevToken.Pos), Target: expr, Idx: idx}

		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Node {
	tok := p.currentToken
	start := tok.Pos

	switch tok.Type {
	case lexer.NUM:
		p.nextToken()
		n, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.failAt(start, "Invalid number '"+tok.Literal+"'")
		}
		return &ast.Literal{Meta: p.meta(start), Val: value.Num(n)}

	case lexer.TRUE, lexer.FALSE:
		p.nextToken()
		return &ast.Literal{Meta: p.meta(start), Val: value.Bool(tok.Type == lexer.TRUE)}

	case lexer.STRING:
		p.nextToken()
		parts := p.parseInterpolation(tok)
		if len(parts) == 1 {
			if lit, ok := parts[0].(*ast.Literal); ok {
				return lit
			}
		}
		return &ast.Interpolated{Meta: p.meta(start), Parts: parts}

	case lexer.COMMAND:
		p.nextToken()
		return &ast.Command{Meta: p.meta(start), Parts: p.parseInterpolation(tok)}

	case lexer.ID:
		p.nextToken()
		if p.currentToken.Type == lexer.LPAREN {
			args := p.parseArgs()
			return &ast.Call{Meta: p.meta(start), Name: tok.Literal, Args: args}
		}
		return &ast.Ident{Meta: p.meta(start), Name: tok.Literal}

	case lexer.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(lexer.RPAREN)
		return expr

	case lexer.LSBRACE:
		p.nextToken()
		var items []ast.Node
		for p.currentToken.Type != lexer.RSBRACE {
			items = append(items, p.parseExpression())
			if !p.accept(lexer.COMMA) {
				break
			}
		}
		p.expect(lexer.RSBRACE)
		return &ast.VecLit{Meta: p.meta(start), Items: items}

	case lexer.LBRACE:
		return p.parseBlock()

	case lexer.PIPE:
		params := p.parseParams(lexer.PIPE, lexer.PIPE)
		body := p.parseBlock()
		return &ast.Closure{Meta: p.meta(start), Params: params, Body: body}

	case lexer.OR:
		// `|| { ... }` is a closure without parameters
		p.nextToken()
		body := p.parseBlock()
		return &ast.Closure{Meta: p.meta(start), Body: body}

	case lexer.COLON:
		p.nextToken()
		component := p.expect(lexer.ID).Literal
		p.expect(lexer.COLON)
		task := p.expect(lexer.ID).Literal
		args := p.parseArgs()
		return &ast.TaskCall{Meta: p.meta(start), Component: component, Task: task, Args: args}

	case lexer.JOIN:
		p.nextToken()
		items := p.parseArgs()
		return &ast.Join{Meta: p.meta(start), Items: items}

	case lexer.IF:
		return p.parseIf()

	case lexer.WHILE:
		p.nextToken()
		cond := p.parseExpression()
		body := p.parseBlock()
		return &ast.While{Meta: p.meta(start), Cond: cond, Body: body}

	case lexer.LOOP:
		p.nextToken()
		body := p.parseBlock()
		return &ast.Loop{Meta: p.meta(start), Body: body}

	case lexer.FOR:
		p.nextToken()
		name := p.expect(lexer.ID).Literal
		p.expect(lexer.IN)
		over := p.parseExpression()
		body := p.parseBlock()
		return &ast.For{Meta: p.meta(start), Var: name, Over: over, Body: body}

	case lexer.EACH:
		p.nextToken()
		p.expect(lexer.LPAREN)
		each := &ast.Each{Item: p.expect(lexer.ID).Literal}
		if p.accept(lexer.COMMA) {
			each.Index = p.expect(lexer.ID).Literal
		}
		p.expect(lexer.SEMICOLON)
		each.Over = p.parseExpression()
		p.expect(lexer.RPAREN)
		each.Body = p.parseBlock()
		each.Meta = p.meta(start)
		return each
	}

	if tok.Type == lexer.EOF {
		p.fail("Unexpected end of input, expected expression")
	}
	if tok.Type == lexer.SEMICOLON || tok.Type == lexer.RPAREN {
		p.fail("Missing expression")
	}
	p.fail("Unexpected token '" + tok.Lexeme + "'")
	return nil
}

// if := 'if' expr block ('else' (if | block))?
func (p *Parser) parseIf() ast.Node {
	start := p.expect(lexer.IF).Pos
	node := &ast.If{Cond: p.parseExpression()}
	node.Then = p.parseBlock()

	if p.accept(lexer.ELSE) {
		if p.currentToken.Type == lexer.IF {
			node.Else = p.parseIf()
		} else {
			node.Else = p.parseBlock()
		}
	}

	node.Meta = p.meta(start)
	return node
}

// args := '(' ((ID ':' expr | expr) (',' ...)*)? ')'
func (p *Parser) parseArgs() []ast.Node {
	p.expect(lexer.LPAREN)

	var args []ast.Node
	for p.currentToken.Type != lexer.RPAREN {
		if p.currentToken.Type == lexer.ID && p.peekToken.Type == lexer.COLON {
			start := p.currentToken.Pos
			name := p.expect(lexer.ID).Literal
			p.expect(lexer.COLON)
			val := p.parseExpression()
			args = append(args, &ast.NamedArg{Meta: p.meta(start), Name: name, Value: val})
		} else {
			args = append(args, p.parseExpression())
		}

		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN)

	return args
}

func (p *Parser) operator(val value.RtValue) *ast.Operator {
	tok := p.currentToken
	p.nextToken()
	return &ast.Operator{Meta: ast.NewMeta(tok.Pos, tok.Pos), Val: val}
}

// parseInterpolation splits a string or command literal into literal and
// `{expr}` parts. Braces are escaped with a backslash.
func (p *Parser) parseInterpolation(tok lexer.Token) []ast.Node {
	raw := tok.Literal
	var (
		parts []ast.Node
		text  strings.Builder
	)

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, &ast.Literal{Meta: ast.NewMeta(tok.Pos, tok.Pos), Val: value.Str(text.String())})
			text.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch == '\\' && i+1 < len(raw):
			i++
			text.WriteString(unescapeChar(raw[i]))

		case ch == '{':
			end := matchingBrace(raw, i)
			if end < 0 {
				p.failAt(tok.Pos, "Unterminated interpolation in "+tok.Type.String())
			}
			flush()
			// +1 accounts for the opening quote or backtick
			at := tok.Pos.Shift(i + 2)
			parts = append(parts, p.parseFragment(raw[i+1:end], at))
			i = end

		default:
			text.WriteByte(ch)
		}
	}
	flush()

	if len(parts) == 0 {
		parts = append(parts, &ast.Literal{Meta: ast.NewMeta(tok.Pos, tok.Pos), Val: value.Str("")})
	}
	return parts
}

// parseFragment parses an interpolated expression with its own lexer
func (p *Parser) parseFragment(src string, at lexer.Position) ast.Node {
	sub := NewParser(lexer.NewLexerAt(src, at))
	var expr ast.Node
	func() {
		defer sub.recoverBailout(func() { expr = nil })
		expr = sub.parseExpression()
		if sub.currentToken.Type != lexer.EOF {
			sub.fail("Unexpected token '" + sub.currentToken.Lexeme + "' in interpolation")
		}
	}()

	if expr == nil {
		p.errors = append(p.errors, sub.errors...)
		panic(errBailout)
	}
	return expr
}

func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func unescapeChar(ch byte) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	default:
		return string(ch)
	}
}

// unescape resolves backslash escapes in a literal without interpolation
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteString(unescapeChar(s[i]))
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
