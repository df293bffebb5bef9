// Package parser turns a token stream into an expression tree. It is a
// Pratt-style precedence-climbing descent, generalising the recursive
// descent shape of informatter-nilan's own parser (peek/previous/advance,
// an isMatch helper, one method per grammar rule) to this language's flatter
// grammar, where almost everything — blocks, if, while, fn, assignment — is
// itself an expression rather than a separate statement form.
//
// The parser is fail-fast: the first syntax error aborts parsing entirely,
// matching spec's explicit non-goal of error recovery during parsing.
package parser

import (
	"fmt"

	"github.com/aoclang/aoclang/aocerr"
	"github.com/aoclang/aoclang/ast"
	"github.com/aoclang/aoclang/token"
)

// Parser walks a fixed token slice produced by the scanner.
type Parser struct {
	tokens []token.Token
	pos    int
	source string
}

// Parse consumes every token and returns the top-level sequence of
// expressions making up a program (one file, or one REPL entry). source is
// kept only for error snippet rendering.
func Parse(tokens []token.Token, source string) ([]ast.Expr, error) {
	p := &Parser{tokens: tokens, source: source}
	var prog []ast.Expr
	p.skipEOL()
	for !p.atEnd() {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		prog = append(prog, e)
		if !p.atEnd() && !p.check(token.EOL) {
			return nil, p.errorAt(p.peek(), "expected end of line after expression")
		}
		p.skipEOL()
	}
	return prog, nil
}

// --- token stream primitives, in the same shape as informatter-nilan's ---

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx < 0 || idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	if !p.atEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) check(t token.Type) bool {
	return p.peek().Type == t
}

func (p *Parser) checkNext(t token.Type) bool {
	return p.peekAt(1).Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.Type, msg string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorAt(p.peek(), msg)
}

// skipEOL consumes zero or more EOL tokens — used between statements and
// between comma-separated elements, so literal lists may straddle newlines;
// it is never called mid-expression, which is what keeps EOL significant as
// a statement terminator there.
func (p *Parser) skipEOL() {
	for p.check(token.EOL) {
		p.advance()
	}
}

func (p *Parser) errorAt(tok token.Token, msg string) *aocerr.Error {
	return aocerr.New(aocerr.Syntax, msg).WithFrame(aocerr.Frame{Span: tok.Span, Source: p.source})
}

func span(start, end int) token.Span { return token.Span{Start: start, End: end} }

// --- grammar ---

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssignment()
}

var compoundAssignOps = map[token.Type]ast.BinOp{
	token.PLUS_EQ:    ast.OpAdd,
	token.MINUS_EQ:   ast.OpSub,
	token.STAR_EQ:    ast.OpMul,
	token.SLASH_EQ:   ast.OpDiv,
	token.PERCENT_EQ: ast.OpMod,
}

// parseAssignment implements right-associative `=`/`+=`/... sitting above
// every binary-operator level: it parses the left side once, then (if an
// assignment operator follows) recurses on itself for the right side before
// converting the left expression into an AssignTarget.
func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseLevel(0)
	if err != nil {
		return nil, err
	}
	if p.check(token.ASSIGN) {
		eq := p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		target, err := exprToTarget(left, eq)
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(span(left.Span().Start, value.Span().End), target, value), nil
	}
	if op, ok := compoundAssignOps[p.peek().Type]; ok {
		eq := p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		target, err := exprToTarget(left, eq)
		if err != nil {
			return nil, err
		}
		return ast.NewAssignOp(span(left.Span().Start, value.Span().End), op, target, value), nil
	}
	return left, nil
}

// exprToTarget converts an already-parsed expression into the assignment
// target it denotes. Only identifiers, single-index subscripts, and vector
// literals (destructuring patterns) are valid; anything else is a syntax
// error, e.g. `1 + 2 = 3`.
func exprToTarget(e ast.Expr, eq token.Token) (ast.AssignTarget, error) {
	switch n := e.(type) {
	case *ast.Identifier:
		return ast.NameTarget{Name: n.Name, Span: n.Span()}, nil
	case *ast.VecGet:
		if len(n.Indices) != 1 {
			return nil, aocerr.New(aocerr.Syntax, "cannot assign to a slice").
				WithFrame(aocerr.Frame{Span: eq.Span})
		}
		return ast.IndexTarget{Vec: n.Vec, Index: n.Indices[0]}, nil
	case *ast.VecDef:
		elems := make([]ast.AssignTarget, len(n.Elems))
		for i, sub := range n.Elems {
			t, err := exprToTarget(sub, eq)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return ast.PatternTarget{Elems: elems, Span: n.Span()}, nil
	default:
		return nil, aocerr.New(aocerr.Syntax, "invalid assignment target").
			WithFrame(aocerr.Frame{Span: eq.Span})
	}
}

// levelOps is the fixed precedence table from spec.md §4.2, low to high.
// parseLevel recurses through it one level at a time before falling through
// to unary/postfix/atom parsing.
var levelOps = [][]struct {
	tok token.Type
	op  ast.BinOp
}{
	{{token.OR_OR, ast.OpOr}},
	{{token.CARET, ast.OpXor}},
	{{token.AND_AND, ast.OpAnd}},
	{
		{token.LT, ast.OpLt}, {token.LT_EQ, ast.OpLeq},
		{token.GT, ast.OpGt}, {token.GT_EQ, ast.OpGeq},
		{token.EQ_EQ, ast.OpEq}, {token.BANG_EQ, ast.OpNeq},
	},
	{{token.LTLT, ast.OpLShift}, {token.GTGT, ast.OpRShift}},
	{{token.PLUS, ast.OpAdd}, {token.MINUS, ast.OpSub}},
	{{token.STAR, ast.OpMul}, {token.SLASH, ast.OpDiv}, {token.PERCENT, ast.OpMod}},
}

func (p *Parser) parseLevel(level int) (ast.Expr, error) {
	if level >= len(levelOps) {
		return p.parseUnary()
	}
	left, err := p.parseLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := matchLevel(p.peek().Type, levelOps[level])
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseLevel(level + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(span(left.Span().Start, right.Span().End), op, left, right)
	}
}

func matchLevel(t token.Type, ops []struct {
	tok token.Type
	op  ast.BinOp
}) (ast.BinOp, bool) {
	for _, e := range ops {
		if e.tok == t {
			return e.op, true
		}
	}
	return 0, false
}

// parseUnary handles the prefix operators `-`, `+`, `!`, which bind tighter
// than any binary operator but looser than postfix call/index/member forms.
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.peek().Type {
	case token.MINUS:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(span(tok.Span.Start, operand.Span().End), ast.OpNegate, operand), nil
	case token.PLUS:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(span(tok.Span.Start, operand.Span().End), ast.OpUnaryPlus, operand), nil
	case token.BANG:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(span(tok.Span.Start, operand.Span().End), ast.OpNot, operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix parses call `(...)`, index/slice `[...]`, and member `.name`
// suffixes, which bind tighter than unary and left-associate onto whatever
// atom precedes them.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case token.LPAREN:
			p.advance()
			args, err := p.parseCommaSeparated(token.RPAREN)
			if err != nil {
				return nil, err
			}
			e = ast.NewFnCall(span(e.Span().Start, p.previous().Span.End), e, args)
		case token.LBRACKET:
			p.advance()
			first, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			indices := []ast.Expr{first}
			if p.match(token.COLON) {
				second, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				indices = append(indices, second)
			}
			if _, err := p.consume(token.RBRACKET, "expected ']'"); err != nil {
				return nil, err
			}
			e = ast.NewVecGet(span(e.Span().Start, p.previous().Span.End), e, indices)
		case token.DOT:
			p.advance()
			name, err := p.consume(token.IDENTIFIER, "expected field name after '.'")
			if err != nil {
				return nil, err
			}
			key := ast.NewStr(name.Span, name.Lexeme)
			e = ast.NewVecGet(span(e.Span().Start, name.Span.End), e, []ast.Expr{key})
		default:
			return e, nil
		}
	}
}

// parseCommaSeparated parses a comma-separated list of expressions up to
// (and consuming) terminator, skipping EOL around both commas and the list
// itself so call arguments and literals may straddle newlines.
func (p *Parser) parseCommaSeparated(terminator token.Type) ([]ast.Expr, error) {
	var elems []ast.Expr
	p.skipEOL()
	if p.check(terminator) {
		p.advance()
		return elems, nil
	}
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		p.skipEOL()
		if p.match(token.COMMA) {
			p.skipEOL()
			if p.check(terminator) { // allow a trailing comma
				break
			}
			continue
		}
		break
	}
	p.skipEOL()
	if _, err := p.consume(terminator, fmt.Sprintf("expected %q", terminator.String())); err != nil {
		return nil, err
	}
	return elems, nil
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case token.NIL:
		p.advance()
		return ast.NewNil(tok.Span), nil
	case token.INT:
		p.advance()
		return ast.NewInt(tok.Span, tok.Literal.(int64)), nil
	case token.FLOAT:
		p.advance()
		return ast.NewFloat(tok.Span, tok.Literal.(float64)), nil
	case token.STRING:
		p.advance()
		return ast.NewStr(tok.Span, tok.Literal.(string)), nil
	case token.IDENTIFIER:
		p.advance()
		return ast.NewIdentifier(tok.Span, tok.Lexeme), nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACKET:
		p.advance()
		elems, err := p.parseCommaSeparated(token.RBRACKET)
		if err != nil {
			return nil, err
		}
		return ast.NewVecDef(span(tok.Span.Start, p.previous().Span.End), elems), nil
	case token.LBRACE:
		p.advance()
		return p.parseBraceExpr(tok.Span)
	case token.IF:
		return p.parseIf(tok)
	case token.WHILE:
		return p.parseWhile(tok)
	case token.FOR:
		return p.parseFor(tok)
	case token.FN:
		return p.parseFnDef(tok)
	case token.PRINT:
		return p.parsePrint(tok)
	case token.READ:
		p.advance()
		return ast.NewRead(tok.Span), nil
	case token.RETURN:
		return p.parseReturn(tok)
	case token.USE:
		return p.parseUse(tok)
	}
	return nil, p.errorAt(tok, fmt.Sprintf("unexpected token %s", tok.Type))
}

// parseBraceExpr disambiguates the three things a leading `{` can start:
// the empty object literal `{=}`, a non-empty object literal (a `key: value`
// pair follows the first sub-expression), and a block (anything else).
func (p *Parser) parseBraceExpr(start token.Span) (ast.Expr, error) {
	if p.check(token.ASSIGN) && p.checkNext(token.RBRACE) {
		p.advance()
		p.advance()
		return ast.NewObjectDef(span(start.Start, p.previous().Span.End), nil, nil), nil
	}
	p.skipEOL()
	if p.check(token.RBRACE) {
		p.advance()
		return ast.NewBlock(span(start.Start, p.previous().Span.End), nil), nil
	}

	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.check(token.COLON) {
		return p.parseObjectDef(start, first)
	}
	return p.parseBlockTail(start, first)
}

func (p *Parser) parseObjectDef(start token.Span, firstKey ast.Expr) (ast.Expr, error) {
	p.advance() // ':'
	firstVal, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	keys := []ast.Expr{firstKey}
	values := []ast.Expr{firstVal}
	p.skipEOL()
	for p.match(token.COMMA) {
		p.skipEOL()
		if p.check(token.RBRACE) {
			break
		}
		k, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' in object literal"); err != nil {
			return nil, err
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		values = append(values, v)
		p.skipEOL()
	}
	if _, err := p.consume(token.RBRACE, "expected '}' to close object literal"); err != nil {
		return nil, err
	}
	return ast.NewObjectDef(span(start.Start, p.previous().Span.End), keys, values), nil
}

func (p *Parser) parseBlockTail(start token.Span, first ast.Expr) (ast.Expr, error) {
	exprs := []ast.Expr{first}
	for {
		if p.check(token.RBRACE) {
			break
		}
		if !p.check(token.EOL) {
			return nil, p.errorAt(p.peek(), "expected end of line inside block")
		}
		p.skipEOL()
		if p.check(token.RBRACE) {
			break
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if _, err := p.consume(token.RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return ast.NewBlock(span(start.Start, p.previous().Span.End), exprs), nil
}

func (p *Parser) parseIf(tok token.Token) (ast.Expr, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var els ast.Expr
	end := then.Span().End
	if p.match(token.ELSE) {
		els, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
		end = els.Span().End
	}
	return ast.NewIf(span(tok.Span.Start, end), cond, then, els), nil
}

func (p *Parser) parseWhile(tok token.Token) (ast.Expr, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(span(tok.Span.Start, body.Span().End), cond, body), nil
}

// parseFor parses `for init cond step body` and immediately desugars it to
// `{ init; while cond { body; step } }`, per spec.md §4.2 — there is no
// dedicated For node in the ast package because the compiler never needs
// one. The three clauses are separated by EOL (a newline or `;`), the same
// token the scanner already produces for both, so a C-style
// `for i = 0; i < n; i = i + 1 { ... }` reads the way it looks.
func (p *Parser) parseFor(tok token.Token) (ast.Expr, error) {
	p.advance()
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' or newline after for-loop initializer"); err != nil {
		return nil, err
	}
	p.skipEOL()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EOL, "expected ';' or newline after for-loop condition"); err != nil {
		return nil, err
	}
	p.skipEOL()
	step, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	loopBody := ast.NewBlock(span(body.Span().Start, step.Span().End), []ast.Expr{body, step})
	loop := ast.NewWhile(span(cond.Span().Start, step.Span().End), cond, loopBody)
	return ast.NewBlock(span(tok.Span.Start, step.Span().End), []ast.Expr{init, loop}), nil
}

func (p *Parser) parseFnDef(tok token.Token) (ast.Expr, error) {
	p.advance()
	if _, err := p.consume(token.LPAREN, "expected '(' after fn"); err != nil {
		return nil, err
	}
	var params []string
	p.skipEOL()
	if !p.check(token.RPAREN) {
		for {
			name, err := p.consume(token.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, name.Lexeme)
			p.skipEOL()
			if p.match(token.COMMA) {
				p.skipEOL()
				continue
			}
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameter list"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewFnDef(span(tok.Span.Start, body.Span().End), params, body), nil
}

func (p *Parser) parsePrint(tok token.Token) (ast.Expr, error) {
	p.advance()
	if _, err := p.consume(token.LPAREN, "expected '(' after print"); err != nil {
		return nil, err
	}
	args, err := p.parseCommaSeparated(token.RPAREN)
	if err != nil {
		return nil, err
	}
	return ast.NewPrint(span(tok.Span.Start, p.previous().Span.End), args), nil
}

// parseReturn parses `return expr`; the operand is optional — if the
// statement terminator (or a closing brace/EOF) follows immediately, the
// return value is Nil.
func (p *Parser) parseReturn(tok token.Token) (ast.Expr, error) {
	p.advance()
	if p.check(token.EOL) || p.check(token.RBRACE) || p.atEnd() {
		return ast.NewReturn(tok.Span, nil), nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewReturn(span(tok.Span.Start, value.Span().End), value), nil
}

func (p *Parser) parseUse(tok token.Token) (ast.Expr, error) {
	p.advance()
	path, err := p.consume(token.STRING, "expected a string path after use")
	if err != nil {
		return nil, err
	}
	return ast.NewUse(span(tok.Span.Start, path.Span.End), path.Literal.(string)), nil
}
