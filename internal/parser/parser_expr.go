package parser

import (
	"strconv"
	"strings"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/lexer"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// precedence levels, low to high.
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

func binPrec(k token.Kind) int {
	switch k {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NEQ:
		return precEquality
	case token.LT, token.LTE, token.GT, token.GTE, token.MATCHES:
		return precComparison
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.STAR, token.SLASH:
		return precMultiplicative
	default:
		return precLowest
	}
}

func (p *Parser) parseExpr() ast.Expr { return p.parseBinary(precLowest) }

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec := binPrec(p.cur().Kind)
		if prec <= minPrec || prec == precLowest {
			break
		}
		if p.at(token.MATCHES) {
			pos := p.advance().Span.Start
			typ := p.parseTypeName()
			left = &ast.MatchesExpr{X: left, Type: typ, Pos: pos}
			continue
		}
		opTok := p.advance()
		right := p.parseBinary(prec)
		left = &ast.BinaryExpr{Op: opTok.Literal, X: left, Y: right, Pos: opTok.Span.Start}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.at(token.NOT) || p.at(token.MINUS) {
		opTok := p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: opTok.Literal, X: x, Pos: opTok.Span.Start}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			nameTok, _ := p.expect(token.IDENT)
			x = &ast.FieldAccess{X: x, Field: nameTok.Literal, Pos: nameTok.Span.Start}
		case token.LPAREN:
			x = p.parseCallArgs(x, nil)
		case token.LBRACKET:
			// Generic call type arguments: callee[T, …](args…).
			save := p.pos
			typeArgs, ok := p.tryParseTypeArgList()
			if ok && p.at(token.LPAREN) {
				x = p.parseCallArgs(x, typeArgs)
			} else {
				p.pos = save
				return x
			}
		default:
			return x
		}
	}
}

func (p *Parser) tryParseTypeArgList() ([]*ast.TypeName, bool) {
	if !p.at(token.LBRACKET) {
		return nil, false
	}
	p.advance()
	var args []*ast.TypeName
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		if !p.at(token.IDENT) {
			return nil, false
		}
		args = append(args, p.parseTypeName())
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if !p.at(token.RBRACKET) {
		return nil, false
	}
	p.advance()
	return args, true
}

func (p *Parser) parseCallArgs(callee ast.Expr, typeArgs []*ast.TypeName) ast.Expr {
	pos := p.cur().Span.Start
	p.advance() // `(`
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return &ast.CallExpr{Callee: callee, TypeArgs: typeArgs, Args: args, Pos: pos}
}

// startsStructLit reports whether a capitalized identifier followed by
// `{` or `[` should be parsed as a struct literal rather than a bare
// identifier.
func startsStructLit(name string, next token.Kind) bool {
	if name == "" || !isUpper(name[0]) {
		return false
	}
	return next == token.LBRACE || next == token.LBRACKET
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur().Kind {
	case token.INT:
		t := p.advance()
		v, _ := strconv.ParseInt(t.Literal, 10, 64)
		return &ast.IntLit{Value: v, Pos: t.Span.Start}
	case token.STRING:
		t := p.advance()
		return p.parseStringLiteral(t)
	case token.TRUE:
		t := p.advance()
		return &ast.BoolLit{Value: true, Pos: t.Span.Start}
	case token.FALSE:
		t := p.advance()
		return &ast.BoolLit{Value: false, Pos: t.Span.Start}
	case token.NIL:
		t := p.advance()
		return &ast.NilLit{Pos: t.Span.Start}
	case token.SELF:
		t := p.advance()
		return &ast.Identifier{Name: "self", Pos: t.Span.Start}
	case token.LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return x
	case token.IF:
		return p.parseIfExpr()
	case token.MATCH:
		return p.parseMatchExpr()
	case token.PRINT, token.ABORT, token.ASSERT:
		t := p.advance()
		ident := &ast.Identifier{Name: t.Kind.String(), Pos: t.Span.Start}
		if p.at(token.LPAREN) {
			return p.parseCallArgs(ident, nil)
		}
		return ident
	case token.IDENT:
		t := p.advance()
		if startsStructLit(t.Literal, p.cur().Kind) {
			return p.parseStructLitBody(t.Literal, t.Span.Start)
		}
		return &ast.Identifier{Name: t.Literal, Pos: t.Span.Start}
	default:
		start := p.cur().Span.Start
		p.errorf(diag.PAR001, start, "expected an expression, found %s", p.cur().Kind)
		p.synchronize()
		return &ast.NilLit{Pos: start}
	}
}

func (p *Parser) parseStructLitBody(name string, start token.Pos) ast.Expr {
	nt := &ast.NamedType{Name: name, Pos: start}
	if p.at(token.LBRACKET) {
		p.advance()
		for !p.at(token.RBRACKET) && !p.at(token.EOF) {
			nt.Args = append(nt.Args, p.parseTypeName())
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.RBRACKET)
	}
	typ := &ast.TypeName{Members: []*ast.NamedType{nt}, Pos: start}
	lit := &ast.StructLit{Type: typ, Pos: start}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fstart := p.cur().Span.Start
		fnameTok, _ := p.expect(token.IDENT)
		p.expect(token.COLON)
		val := p.parseExpr()
		lit.Fields = append(lit.Fields, &ast.StructLitField{Name: fnameTok.Literal, Value: val, Pos: fstart})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBRACE)
	return lit
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.advance().Span.Start // `if`
	cond := p.parseExpr()
	then := p.parseBlock()
	ie := &ast.IfExpr{Cond: cond, Then: then, Pos: start}
	if p.at(token.ELSE) {
		p.advance()
		if p.at(token.IF) {
			ie.Else = p.parseIfExpr()
		} else {
			ie.Else = p.parseBlock()
		}
	}
	return ie
}

func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.advance().Span.Start // `match`
	subject := p.parseExpr()
	m := &ast.MatchExpr{Subject: subject, Pos: start}
	p.expect(token.LBRACE)
	p.skipTerminators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		arm := p.parseMatchArm()
		m.Arms = append(m.Arms, arm)
		p.resetBoundary()
		if p.at(token.COMMA) {
			p.advance()
		}
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
	return m
}

func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.cur().Span.Start
	pat := p.parsePattern()
	p.expect(token.FARROW)
	body := p.parseExpr()
	return &ast.MatchArm{Pattern: pat, Body: body, Pos: start}
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.cur().Span.Start
	if !p.at(token.IDENT) {
		p.errorf(diag.PAR007, start, "expected a pattern, found %s", p.cur().Kind)
		return &ast.TypePattern{Type: &ast.TypeName{Pos: start}, Pos: start}
	}
	first := p.advance().Literal

	if p.at(token.DOT) {
		p.advance()
		variantTok, _ := p.expect(token.IDENT)
		return &ast.QualifiedPattern{Enum: first, Variant: variantTok.Literal, Pos: start}
	}

	if p.at(token.COLON) {
		p.advance()
		typ := p.parseTypeNameNoArgsCheck()
		return &ast.BindingPattern{Name: first, Type: typ, Pos: start}
	}

	// Bare type pattern. Type arguments are not supported in pattern
	// position.
	if p.at(token.LBRACKET) {
		p.errorf(diag.PAR011, p.cur().Span.Start, "type arguments are not allowed in pattern position")
		// Skip the bracketed group defensively.
		depth := 0
		for {
			k := p.cur().Kind
			if k == token.LBRACKET {
				depth++
			} else if k == token.RBRACKET {
				depth--
				p.advance()
				if depth == 0 {
					break
				}
				continue
			} else if k == token.EOF {
				break
			}
			p.advance()
		}
	}
	return &ast.TypePattern{Type: &ast.TypeName{Members: []*ast.NamedType{{Name: first, Pos: start}}, Pos: start}, Pos: start}
}

// parseTypeNameNoArgsCheck parses a type name for binding-pattern
// position; type arguments are syntactically permitted here (e.g.
// `items: List[Int64]`) since they annotate the binding's type, not
// the pattern's discriminator.
func (p *Parser) parseTypeNameNoArgsCheck() *ast.TypeName { return p.parseTypeName() }

func (p *Parser) parseBlock() *ast.Block {
	start, _ := p.expect(token.LBRACE)
	b := &ast.Block{Pos: start.Span.Start}
	p.skipTerminators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		s := p.parseStmt()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
		p.resetBoundary()
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case token.RETURN:
		start := p.advance().Span.Start
		if p.at(token.TERMINATOR) || p.at(token.RBRACE) || p.at(token.EOF) {
			return &ast.ReturnStmt{Pos: start}
		}
		return &ast.ReturnStmt{Value: p.parseExpr(), Pos: start}
	case token.BREAK:
		return &ast.BreakStmt{Pos: p.advance().Span.Start}
	case token.CONTINUE:
		return &ast.ContinueStmt{Pos: p.advance().Span.Start}
	case token.WHILE:
		start := p.advance().Span.Start
		cond := p.parseExpr()
		body := p.parseBlock()
		return &ast.WhileStmt{Cond: cond, Body: body, Pos: start}
	case token.IDENT:
		if p.cur().Literal == "mutable" && p.peek(1).Kind == token.IDENT {
			return p.parseVarDecl(true)
		}
		if p.peek(1).Kind == token.DEFINE {
			return p.parseVarDecl(false)
		}
		if p.peek(1).Kind == token.ASSIGNOP {
			start := p.cur().Span.Start
			name := p.advance().Literal
			p.advance() // `=`
			val := p.parseExpr()
			return &ast.AssignStmt{Name: name, Value: val, Pos: start}
		}
		fallthrough
	default:
		start := p.cur().Span.Start
		x := p.parseExpr()
		return &ast.ExprStmt{X: x, Pos: start}
	}
}

func (p *Parser) parseVarDecl(mutable bool) ast.Stmt {
	start := p.cur().Span.Start
	if mutable {
		p.advance() // `mutable`
	}
	nameTok, _ := p.expect(token.IDENT)
	decl := &ast.VarDecl{Mutable: mutable, Name: nameTok.Literal, Pos: start}
	if p.at(token.COLON) && p.peek(1).Kind != token.DEFINE {
		p.advance()
		decl.Type = p.parseTypeName()
	}
	p.expect(token.DEFINE)
	decl.Value = p.parseExpr()
	return decl
}

// parseStringLiteral splits a lexed string token's literal on `{…}`
// interpolation markers, sub-lexing and sub-parsing each embedded
// expression. Returns a plain *ast.StringLit when no interpolation is
// present.
func (p *Parser) parseStringLiteral(t token.Token) ast.Expr {
	text := t.Literal
	if !strings.ContainsAny(text, "{}") {
		return &ast.StringLit{Value: text, Pos: t.Span.Start}
	}
	var parts []ast.InterpPart
	i := 0
	for i < len(text) {
		j := strings.IndexByte(text[i:], '{')
		if j < 0 {
			parts = append(parts, ast.InterpPart{Text: text[i:]})
			break
		}
		if j > 0 {
			parts = append(parts, ast.InterpPart{Text: text[i : i+j]})
		}
		rest := text[i+j+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			p.errorf(diag.PAR001, t.Span.Start, "unterminated interpolation expression")
			break
		}
		exprSrc := rest[:end]
		subToks, _ := lexer.Tokenize([]byte(exprSrc), p.file)
		sub := New(subToks, p.file, p.sink)
		parts = append(parts, ast.InterpPart{Expr: sub.parseExpr()})
		i = i + j + 1 + end + 1
	}
	return &ast.InterpString{Parts: parts, Pos: t.Span.Start}
}
