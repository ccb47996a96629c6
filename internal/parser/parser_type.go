package parser

import (
	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// parseTypeName parses `Name[TypeArg, …] | Name[…] | …`.
func (p *Parser) parseTypeName() *ast.TypeName {
	start := p.cur().Span.Start
	members := []*ast.NamedType{p.parseNamedType()}
	for p.at(token.PIPE) {
		p.advance()
		members = append(members, p.parseNamedType())
	}
	return &ast.TypeName{Members: members, Pos: start}
}

func (p *Parser) parseNamedType() *ast.NamedType {
	start := p.cur().Span.Start
	if !p.at(token.IDENT) && !p.at(token.NIL) {
		p.errorf(diag.PAR003, start, "expected a type name, found %s", p.cur().Kind)
		return &ast.NamedType{Name: "<error>", Pos: start}
	}
	name := p.advance().Literal
	if name == "nil" {
		name = "Nil"
	}
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
	return nt
}

func (p *Parser) parseTypeParams() []*ast.TypeParam {
	if !p.at(token.LBRACKET) {
		return nil
	}
	p.advance()
	var params []*ast.TypeParam
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		start := p.cur().Span.Start
		if !p.at(token.IDENT) {
			p.errorf(diag.PAR010, start, "expected a type parameter name, found %s", p.cur().Kind)
			p.advance()
			continue
		}
		name := p.advance().Literal
		tp := &ast.TypeParam{Name: name, Pos: start}
		if p.at(token.COLON) {
			p.advance()
			tp.Constraint = p.parseTypeName()
		}
		params = append(params, tp)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBRACKET)
	return params
}

func (p *Parser) parseParams() []*ast.Param {
	p.expect(token.LPAREN)
	var params []*ast.Param
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		start := p.cur().Span.Start
		if !p.at(token.IDENT) {
			p.errorf(diag.PAR004, start, "expected a parameter name, found %s", p.cur().Kind)
			p.advance()
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		name := p.advance().Literal
		p.expect(token.COLON)
		typ := p.parseTypeName()
		params = append(params, &ast.Param{Name: name, Type: typ, Pos: start})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return params
}
