// Package syntax implements the structural lints that run directly on
// the parsed tree, independent of type information: naming
// conventions, file-role legality, and opaque autofix edits.
package syntax

import (
	"unicode"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// Edit is an opaque autofix candidate: a text replacement over a span
// in one file. The core never interprets Edit.Replacement; it only
// carries it to the driver for merging into canonical-source output.
type Edit struct {
	Path        string
	Span        token.Span
	Replacement string
	RuleCode    string
}

// Check runs every C3 structural lint over one parsed file and returns
// its diagnostics plus any autofix edits it can propose.
func Check(f *ast.File, role workspace.Role) ([]*diag.Report, []Edit) {
	c := &checker{file: f}
	c.checkNaming()
	c.checkFileRole(role)
	return c.reports, c.edits
}

type checker struct {
	file    *ast.File
	reports []*diag.Report
	edits   []Edit
}

func (c *checker) report(code string, pos token.Pos, msg string) {
	c.reports = append(c.reports, diag.New(code, diag.PhaseSyntax, c.file.Path, msg, token.Span{Start: pos, End: pos}))
}

// proposeRename emits an autofix edit replacing an identifier with its
// case-corrected spelling. Only callers whose node position is the
// identifier token itself may use it: the span end is derived from the
// name's byte length (identifiers are ASCII).
func (c *checker) proposeRename(code string, pos token.Pos, name, replacement string) {
	if replacement == name || replacement == "" {
		return
	}
	end := token.Pos{Offset: pos.Offset + len(name), Line: pos.Line, Column: pos.Column + len(name)}
	c.edits = append(c.edits, Edit{
		Path:        c.file.Path,
		Span:        token.Span{Start: pos, End: end},
		Replacement: replacement,
		RuleCode:    code,
	})
}

// lowerFirst converts a name's leading letter run to camelCase form.
func lowerFirst(s string) string {
	trimmed := trimIgnorePrefix(s)
	if trimmed == "" || !unicode.IsUpper(rune(trimmed[0])) {
		return ""
	}
	fixed := string(unicode.ToLower(rune(trimmed[0]))) + trimmed[1:]
	if trimmed != s {
		return "_" + fixed
	}
	return fixed
}

func isPascalCase(s string) bool {
	if s == "" || !unicode.IsUpper(rune(s[0])) {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isCamelCase(s string) bool {
	s = trimIgnorePrefix(s)
	if s == "" {
		return true
	}
	if !unicode.IsLower(rune(s[0])) {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isUpperSnakeCase(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '_' {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// trimIgnorePrefix strips the single leading `_` that signals
// ignore-if-unused; the remainder is what the camelCase rule checks.
func trimIgnorePrefix(s string) string {
	if len(s) > 0 && s[0] == '_' {
		return s[1:]
	}
	return s
}

func (c *checker) checkNaming() {
	for _, d := range c.file.Decls {
		switch v := d.(type) {
		case *ast.TypeDecl:
			if !isPascalCase(v.Name) {
				c.report(diag.SYN001, v.Pos, "type name \""+v.Name+"\" must be PascalCase")
			}
			for _, f := range v.Fields {
				if !isCamelCase(f.Name) {
					c.report(diag.SYN002, f.Pos, "field name \""+f.Name+"\" must be camelCase")
					c.proposeRename(diag.SYN002, f.Pos, f.Name, lowerFirst(f.Name))
				}
			}
			for _, m := range v.Methods {
				c.checkFunctionLikeNaming(m.Name, m.Pos, m.Params)
			}
			for _, m := range v.IfaceMethods {
				c.checkFunctionLikeNaming(m.Name, m.Pos, m.Params)
			}
		case *ast.ConstantDecl:
			if !isUpperSnakeCase(v.Name) {
				c.report(diag.SYN003, v.Pos, "constant name \""+v.Name+"\" must be UPPER_SNAKE_CASE")
			}
		case *ast.FunctionDecl:
			c.checkFunctionLikeNaming(v.Name, v.Pos, v.Params)
			c.checkBlockNaming(v.Body)
		}
	}
}

func (c *checker) checkFunctionLikeNaming(name string, pos token.Pos, params []*ast.Param) {
	if !isCamelCase(name) {
		c.report(diag.SYN002, pos, "function name \""+name+"\" must be camelCase")
	}
	for _, p := range params {
		if !isCamelCase(p.Name) {
			c.report(diag.SYN002, p.Pos, "parameter name \""+p.Name+"\" must be camelCase")
			c.proposeRename(diag.SYN002, p.Pos, p.Name, lowerFirst(p.Name))
		}
	}
}

// checkBlockNaming walks a function body looking for local variable
// declarations with non-camelCase names and for uses of an
// ignore-if-unused (`_`-prefixed) binding, an error in its own right
// rather than merely an unused-name waiver.
func (c *checker) checkBlockNaming(b *ast.Block) {
	if b == nil {
		return
	}
	declared := map[string]token.Pos{}
	for _, s := range b.Stmts {
		if vd, ok := s.(*ast.VarDecl); ok {
			if !isCamelCase(vd.Name) {
				c.report(diag.SYN002, vd.Pos, "variable name \""+vd.Name+"\" must be camelCase")
				if !vd.Mutable {
					// Pos is the name token only for the short form.
					c.proposeRename(diag.SYN002, vd.Pos, vd.Name, lowerFirst(vd.Name))
				}
			}
			if len(vd.Name) > 0 && vd.Name[0] == '_' {
				declared[vd.Name] = vd.Pos
			}
		}
		c.checkStmtIgnoredUse(s, declared)
	}
}

func (c *checker) checkStmtIgnoredUse(s ast.Stmt, declared map[string]token.Pos) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		c.checkExprIgnoredUse(v.X, declared)
	case *ast.VarDecl:
		c.checkExprIgnoredUse(v.Value, declared)
	case *ast.AssignStmt:
		c.checkExprIgnoredUse(v.Value, declared)
	case *ast.ReturnStmt:
		if v.Value != nil {
			c.checkExprIgnoredUse(v.Value, declared)
		}
	case *ast.WhileStmt:
		c.checkExprIgnoredUse(v.Cond, declared)
		c.checkBlockNaming(v.Body)
	}
}

func (c *checker) checkExprIgnoredUse(e ast.Expr, declared map[string]token.Pos) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return
	}
	if _, wasDeclaredIgnored := declared[id.Name]; wasDeclaredIgnored {
		c.report(diag.SYN004, id.Pos, "binding \""+id.Name+"\" is marked ignore-if-unused and must not be used")
	}
}

// checkFileRole enforces per-role structural restrictions.
func (c *checker) checkFileRole(role workspace.Role) {
	switch role {
	case workspace.RoleBinary:
		if !hasMain(c.file) {
			c.report(diag.SYN005, c.file.Pos, "binary-entry file must declare \"main\"")
		}
	case workspace.RoleManifest:
		for _, d := range c.file.Decls {
			if _, ok := d.(*ast.ExportsDecl); ok {
				continue
			}
			if _, ok := d.(*ast.ImportDecl); ok {
				continue
			}
			c.report(diag.SYN006, d.Position(), "manifest file may only contain import and exports declarations")
		}
	}
}

func hasMain(f *ast.File) bool {
	for _, d := range f.Decls {
		if fn, ok := d.(*ast.FunctionDecl); ok && fn.Name == "main" {
			return true
		}
	}
	return false
}
