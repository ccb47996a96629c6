// Package parser implements a recursive-descent, Pratt-precedence
// parser over the normalized token stream produced by internal/lexer.
package parser

import (
	"fmt"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/lexer"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// Parser holds the token cursor and deferred-diagnostic sink for one
// file's parse.
type Parser struct {
	toks []token.Token
	pos  int
	file string
	sink *diag.Sink

	// suppressed is set while recovering from an inner expression
	// failure, so that at most one leaf diagnostic is reported per
	// failed expression; deferred diagnostics flush at expression
	// boundaries.
	suppressed bool
}

// ParseFile lexes and parses src in one call, returning the syntax
// tree (possibly partial, after recovery) and every diagnostic
// collected along the way.
func ParseFile(src []byte, file string) (*ast.File, []*diag.Report) {
	toks, lexReports := lexer.Tokenize(src, file)
	sink := &diag.Sink{}
	for _, r := range lexReports {
		sink.Add(r)
	}
	p := New(toks, file, sink)
	f := p.parseFile()
	return f, sink.Reports()
}

// New constructs a Parser over an already-tokenized stream.
func New(toks []token.Token, file string, sink *diag.Sink) *Parser {
	return &Parser{toks: toks, file: file, sink: sink}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

// skipTerminators consumes zero or more TERMINATOR tokens, used where
// the grammar allows (but does not require) a statement boundary.
func (p *Parser) skipTerminators() {
	for p.at(token.TERMINATOR) {
		p.advance()
	}
}

func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf(diag.PAR001, p.cur().Span.Start, "expected %s, found %s", k, p.cur().Kind)
	return p.cur(), false
}

func (p *Parser) errorf(code string, pos token.Pos, format string, args ...any) {
	if p.suppressed {
		return
	}
	p.suppressed = true
	msg := fmt.Sprintf(format, args...)
	p.sink.Add(diag.New(code, diag.PhaseParse, p.file, msg, token.Span{Start: pos, End: pos}))
}

// resetBoundary clears the suppression flag; called at statement and
// top-level declaration boundaries so the next failure can report
// again.
func (p *Parser) resetBoundary() { p.suppressed = false }

// synchronize advances past tokens until a safe recovery point:
// a statement terminator, a list separator, a closing bracket, or the
// next top-level declaration keyword.
func (p *Parser) synchronize() {
	depth := 0
	for {
		switch p.cur().Kind {
		case token.EOF:
			return
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			if depth > 0 {
				depth--
			} else {
				return
			}
		case token.RBRACE:
			if depth > 0 {
				depth--
			} else {
				return
			}
		case token.TERMINATOR, token.COMMA:
			if depth == 0 {
				return
			}
		case token.TYPE, token.CONSTANT, token.FUNCTION, token.IMPORT,
			token.EXPORTS, token.PUBLIC:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{Path: p.file}
	if len(p.toks) > 0 {
		f.Pos = p.toks[0].Span.Start
	}
	p.skipTerminators()
	for !p.at(token.EOF) {
		doc := p.collectDocComment()
		d := p.parseDecl(doc)
		if d != nil {
			f.Decls = append(f.Decls, d)
		}
		p.resetBoundary()
		p.skipTerminators()
	}
	return f
}

// collectDocComment gathers consecutive leading `///` comments and
// verifies they are line-adjacent to the declaration that follows;
// an orphan doc comment (not immediately followed by a declaration on
// the next line) is reported as PAR008 and discarded.
func (p *Parser) collectDocComment() string {
	if !p.at(token.DOC_COMMENT) {
		return ""
	}
	var lines []string
	lastLine := -1
	for p.at(token.DOC_COMMENT) {
		t := p.advance()
		lines = append(lines, t.Literal)
		lastLine = t.Span.Start.Line
	}
	p.skipTerminators()
	next := p.cur()
	if next.Kind == token.EOF || next.Span.Start.Line != lastLine+1 {
		p.errorf(diag.PAR008, next.Span.Start, "orphan doc comment: not immediately followed by a declaration")
		return ""
	}
	doc := lines[0]
	for _, l := range lines[1:] {
		doc += "\n" + l
	}
	return doc
}

func (p *Parser) parseDecl(doc string) ast.Decl {
	public := false
	if p.at(token.PUBLIC) {
		public = true
		p.advance()
	}
	switch p.cur().Kind {
	case token.TYPE:
		return p.parseTypeDecl(public, doc)
	case token.CONSTANT:
		return p.parseConstantDecl(public, doc)
	case token.FUNCTION:
		return p.parseFunctionDecl(public, doc)
	case token.IMPORT:
		if public {
			p.errorf(diag.PAR005, p.cur().Span.Start, "import declaration cannot be public")
		}
		return p.parseImportDecl()
	case token.EXPORTS:
		if public {
			p.errorf(diag.PAR006, p.cur().Span.Start, "exports declaration cannot be public")
		}
		return p.parseExportsDecl()
	default:
		p.errorf(diag.PAR001, p.cur().Span.Start, "expected a declaration, found %s", p.cur().Kind)
		p.synchronize()
		return nil
	}
}
