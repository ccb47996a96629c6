package parser

import (
	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

func (p *Parser) parseTypeDecl(public bool, doc string) ast.Decl {
	start := p.advance().Span.Start // `type`
	nameTok, _ := p.expect(token.IDENT)
	d := &ast.TypeDecl{Public: public, Doc: doc, Name: nameTok.Literal, Pos: start}
	d.TypeParams = p.parseTypeParams()

	if !p.at(token.DCOLON) {
		// A bare `type Name` with no body is a forward-declared struct
		// shell; fields/methods may be filled by a later pass.
		d.Kind = ast.StructKind
		return d
	}
	p.advance() // `::`

	switch p.cur().Kind {
	case token.STRUCT:
		p.advance()
		d.Kind = ast.StructKind
		d.Implements = p.parseImplements()
		p.parseStructBody(d)
	case token.ENUM:
		p.advance()
		d.Kind = ast.EnumKind
		p.parseEnumBody(d)
	case token.INTERFACE:
		p.advance()
		d.Kind = ast.InterfaceKind
		p.parseInterfaceBody(d)
	case token.UNION:
		p.advance()
		d.Kind = ast.UnionKind
		d.Union = append(d.Union, p.parseUnionMember())
		for p.at(token.PIPE) {
			p.advance()
			d.Union = append(d.Union, p.parseUnionMember())
		}
	default:
		p.errorf(diag.PAR003, p.cur().Span.Start, "expected struct, enum, interface, or union")
	}
	return d
}

// parseUnionMember parses a single `|`-separated member of a union type
// declaration as its own TypeName, so each member keeps its own
// generic arguments without swallowing the surrounding `|` chain
// (that chain is the outer union, handled by the caller).
func (p *Parser) parseUnionMember() *ast.TypeName {
	start := p.cur().Span.Start
	nt := p.parseNamedType()
	return &ast.TypeName{Members: []*ast.NamedType{nt}, Pos: start}
}

func (p *Parser) parseImplements() []*ast.TypeName {
	if !p.at(token.IMPLEMENTS) {
		return nil
	}
	p.advance()
	var impls []*ast.TypeName
	impls = append(impls, p.parseTypeName())
	for p.at(token.COMMA) {
		p.advance()
		impls = append(impls, p.parseTypeName())
	}
	return impls
}

func (p *Parser) parseStructBody(d *ast.TypeDecl) {
	p.expect(token.LBRACE)
	p.skipTerminators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		if p.at(token.FUNCTION) {
			d.Methods = append(d.Methods, p.parseMethod())
		} else {
			d.Fields = append(d.Fields, p.parseFieldDecl())
		}
		p.resetBoundary()
		if p.at(token.COMMA) {
			p.advance()
		}
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
}

func (p *Parser) parseFieldDecl() *ast.FieldDecl {
	start := p.cur().Span.Start
	nameTok, _ := p.expect(token.IDENT)
	p.expect(token.COLON)
	typ := p.parseTypeName()
	return &ast.FieldDecl{Name: nameTok.Literal, Type: typ, Pos: start}
}

func (p *Parser) parseMethod() *ast.MethodDecl {
	start := p.advance().Span.Start // `function`
	nameTok, _ := p.expect(token.IDENT)
	m := &ast.MethodDecl{Name: nameTok.Literal, Pos: start}
	p.expect(token.LPAREN)
	if p.at(token.IDENT) && p.cur().Literal == "mutable" && p.peek(1).Kind == token.SELF {
		m.SelfMutable = true
		p.advance()
	}
	p.expect(token.SELF)
	for p.at(token.COMMA) {
		p.advance()
		pstart := p.cur().Span.Start
		pname, _ := p.expect(token.IDENT)
		p.expect(token.COLON)
		ptyp := p.parseTypeName()
		m.Params = append(m.Params, &ast.Param{Name: pname.Literal, Type: ptyp, Pos: pstart})
	}
	p.expect(token.RPAREN)
	p.expect(token.ARROW)
	m.Result = p.parseTypeName()
	m.Body = p.parseBlock()
	return m
}

func (p *Parser) parseEnumBody(d *ast.TypeDecl) {
	p.expect(token.LBRACE)
	p.skipTerminators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		start := p.cur().Span.Start
		nameTok, _ := p.expect(token.IDENT)
		d.Variants = append(d.Variants, &ast.EnumVariant{Name: nameTok.Literal, Pos: start})
		if p.at(token.COMMA) {
			p.advance()
		}
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
}

func (p *Parser) parseInterfaceBody(d *ast.TypeDecl) {
	p.expect(token.LBRACE)
	p.skipTerminators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		if !p.at(token.FUNCTION) {
			p.errorf(diag.PAR001, p.cur().Span.Start, "expected %s, found %s", token.FUNCTION, p.cur().Kind)
			p.synchronize()
			p.skipTerminators()
			continue
		}
		start := p.advance().Span.Start // `function`
		nameTok, _ := p.expect(token.IDENT)
		im := &ast.IfaceMethod{Name: nameTok.Literal, Pos: start}
		p.expect(token.LPAREN)
		if p.at(token.IDENT) && p.cur().Literal == "mutable" && p.peek(1).Kind == token.SELF {
			im.SelfMutable = true
			p.advance()
		}
		p.expect(token.SELF)
		for p.at(token.COMMA) {
			p.advance()
			pstart := p.cur().Span.Start
			pname, _ := p.expect(token.IDENT)
			p.expect(token.COLON)
			ptyp := p.parseTypeName()
			im.Params = append(im.Params, &ast.Param{Name: pname.Literal, Type: ptyp, Pos: pstart})
		}
		p.expect(token.RPAREN)
		p.expect(token.ARROW)
		im.Result = p.parseTypeName()
		d.IfaceMethods = append(d.IfaceMethods, im)
		p.resetBoundary()
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
}

func (p *Parser) parseConstantDecl(public bool, doc string) ast.Decl {
	start := p.advance().Span.Start // `constant`
	nameTok, _ := p.expect(token.IDENT)
	d := &ast.ConstantDecl{Public: public, Doc: doc, Name: nameTok.Literal, Pos: start}
	if p.at(token.DCOLON) {
		p.advance()
		d.Type = p.parseTypeName()
	}
	p.expect(token.ASSIGNOP)
	d.Value = p.parseExpr()
	return d
}

func (p *Parser) parseFunctionDecl(public bool, doc string) ast.Decl {
	start := p.advance().Span.Start // `function`
	nameTok, _ := p.expect(token.IDENT)
	d := &ast.FunctionDecl{Public: public, Doc: doc, Name: nameTok.Literal, Pos: start}
	d.TypeParams = p.parseTypeParams()
	d.Params = p.parseParams()
	p.expect(token.ARROW)
	d.Result = p.parseTypeName()
	d.Body = p.parseBlock()
	return d
}

func (p *Parser) parseImportDecl() ast.Decl {
	start := p.advance().Span.Start // `import`
	pathTok, _ := p.expect(token.STRING)
	d := &ast.ImportDecl{PackagePath: pathTok.Literal, Pos: start}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		bstart := p.cur().Span.Start
		nameTok, _ := p.expect(token.IDENT)
		b := &ast.ImportBinding{Imported: nameTok.Literal, Local: nameTok.Literal, Pos: bstart}
		if p.at(token.AS) {
			p.advance()
			localTok, _ := p.expect(token.IDENT)
			b.Local = localTok.Literal
		}
		d.Bindings = append(d.Bindings, b)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBRACE)
	return d
}

func (p *Parser) parseExportsDecl() ast.Decl {
	start := p.advance().Span.Start // `exports`
	d := &ast.ExportsDecl{Pos: start}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		nameTok, _ := p.expect(token.IDENT)
		d.Names = append(d.Names, nameTok.Literal)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBRACE)
	return d
}
