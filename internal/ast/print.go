package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a File as canonical source text. Re-parsing Print's
// output and printing again yields byte-identical text.
func Print(f *File) string {
	p := &printer{}
	for i, d := range f.Decls {
		if i > 0 {
			p.nl()
		}
		p.decl(d)
	}
	return p.b.String()
}

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) nl() { p.b.WriteByte('\n') }

func (p *printer) line(s string) {
	p.b.WriteString(strings.Repeat("  ", p.indent))
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

func (p *printer) raw(s string) { p.b.WriteString(s) }

func (p *printer) decl(d Decl) {
	switch v := d.(type) {
	case *TypeDecl:
		p.typeDecl(v)
	case *ConstantDecl:
		p.constantDecl(v)
	case *FunctionDecl:
		p.functionDecl(v)
	case *ImportDecl:
		p.importDecl(v)
	case *ExportsDecl:
		p.exportsDecl(v)
	}
}

func (p *printer) doc(doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		p.line("/// " + line)
	}
}

func typeParamsStr(tps []*TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	parts := make([]string, len(tps))
	for i, tp := range tps {
		if tp.Constraint != nil {
			parts[i] = tp.Name + ": " + tp.Constraint.String()
		} else {
			parts[i] = tp.Name
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func implementsStr(impls []*TypeName) string {
	if len(impls) == 0 {
		return ""
	}
	parts := make([]string, len(impls))
	for i, im := range impls {
		parts[i] = im.String()
	}
	return " implements " + strings.Join(parts, ", ")
}

func (p *printer) typeDecl(d *TypeDecl) {
	p.doc(d.Doc)
	prefix := ""
	if d.Public {
		prefix = "public "
	}
	head := fmt.Sprintf("%stype %s%s", prefix, d.Name, typeParamsStr(d.TypeParams))
	switch d.Kind {
	case StructKind:
		p.line(head + " :: struct" + implementsStr(d.Implements) + " {")
		p.indent++
		for _, f := range d.Fields {
			p.line(f.Name + ": " + f.Type.String())
		}
		for _, m := range d.Methods {
			p.method(m)
		}
		p.indent--
		p.line("}")
	case EnumKind:
		names := make([]string, len(d.Variants))
		for i, v := range d.Variants {
			names[i] = v.Name
		}
		p.line(head + " :: enum { " + strings.Join(names, ", ") + " }")
	case InterfaceKind:
		p.line(head + " :: interface {")
		p.indent++
		for _, m := range d.IfaceMethods {
			p.line(ifaceMethodSig(m))
		}
		p.indent--
		p.line("}")
	case UnionKind:
		parts := make([]string, len(d.Union))
		for i, u := range d.Union {
			parts[i] = u.String()
		}
		p.line(head + " :: union " + strings.Join(parts, " | "))
	}
}

func paramsStr(params []*Param) string {
	parts := make([]string, len(params))
	for i, pr := range params {
		parts[i] = pr.Name + ": " + pr.Type.String()
	}
	return strings.Join(parts, ", ")
}

func ifaceMethodSig(m *IfaceMethod) string {
	self := "self"
	if m.SelfMutable {
		self = "mutable self"
	}
	args := self
	if len(m.Params) > 0 {
		args += ", " + paramsStr(m.Params)
	}
	return fmt.Sprintf("function %s(%s) -> %s", m.Name, args, m.Result.String())
}

func (p *printer) method(m *MethodDecl) {
	p.doc(m.Doc)
	self := "self"
	if m.SelfMutable {
		self = "mutable self"
	}
	args := self
	if len(m.Params) > 0 {
		args += ", " + paramsStr(m.Params)
	}
	p.line(fmt.Sprintf("function %s(%s) -> %s {", m.Name, args, m.Result.String()))
	p.indent++
	p.block(m.Body)
	p.indent--
	p.line("}")
}

func (p *printer) constantDecl(d *ConstantDecl) {
	p.doc(d.Doc)
	prefix := ""
	if d.Public {
		prefix = "public "
	}
	typ := ""
	if d.Type != nil {
		typ = " :: " + d.Type.String()
	}
	p.line(fmt.Sprintf("%sconstant %s%s = %s", prefix, d.Name, typ, exprStr(d.Value)))
}

func (p *printer) functionDecl(d *FunctionDecl) {
	p.doc(d.Doc)
	prefix := ""
	if d.Public {
		prefix = "public "
	}
	p.line(fmt.Sprintf("%sfunction %s%s(%s) -> %s {", prefix, d.Name, typeParamsStr(d.TypeParams), paramsStr(d.Params), d.Result.String()))
	p.indent++
	p.block(d.Body)
	p.indent--
	p.line("}")
}

func (p *printer) importDecl(d *ImportDecl) {
	parts := make([]string, len(d.Bindings))
	for i, b := range d.Bindings {
		if b.Local != "" && b.Local != b.Imported {
			parts[i] = b.Imported + " as " + b.Local
		} else {
			parts[i] = b.Imported
		}
	}
	p.line(fmt.Sprintf("import %q { %s }", d.PackagePath, strings.Join(parts, ", ")))
}

func (p *printer) exportsDecl(d *ExportsDecl) {
	p.line("exports { " + strings.Join(d.Names, ", ") + " }")
}

func (p *printer) block(b *Block) {
	for _, s := range b.Stmts {
		p.stmt(s)
	}
}

func (p *printer) stmt(s Stmt) {
	switch v := s.(type) {
	case *ExprStmt:
		if ifx, ok := v.X.(*IfExpr); ok {
			p.ifStmt(ifx)
			return
		}
		p.line(exprStr(v.X))
	case *VarDecl:
		kw := ""
		if v.Mutable {
			kw = "mutable "
		}
		typ := ""
		if v.Type != nil {
			typ = ": " + v.Type.String()
		}
		p.line(fmt.Sprintf("%s%s%s := %s", kw, v.Name, typ, exprStr(v.Value)))
	case *AssignStmt:
		p.line(fmt.Sprintf("%s = %s", v.Name, exprStr(v.Value)))
	case *ReturnStmt:
		if v.Value != nil {
			p.line("return " + exprStr(v.Value))
		} else {
			p.line("return")
		}
	case *BreakStmt:
		p.line("break")
	case *ContinueStmt:
		p.line("continue")
	case *WhileStmt:
		p.line("while " + exprStr(v.Cond) + " {")
		p.indent++
		p.block(v.Body)
		p.indent--
		p.line("}")
	}
}

// ifStmt renders a statement-position if chain in multi-line form, so
// multi-statement branches survive a reparse (the inline form can only
// carry a single statement per block).
func (p *printer) ifStmt(ifx *IfExpr) {
	p.line("if " + exprStr(ifx.Cond) + " {")
	p.indent++
	p.block(ifx.Then)
	p.indent--
	if ifx.Else == nil {
		p.line("}")
		return
	}
	p.elseTail(ifx.Else)
}

func (p *printer) elseTail(n Node) {
	switch e := n.(type) {
	case *IfExpr:
		p.line("} else if " + exprStr(e.Cond) + " {")
		p.indent++
		p.block(e.Then)
		p.indent--
		if e.Else != nil {
			p.elseTail(e.Else)
			return
		}
		p.line("}")
	case *Block:
		p.line("} else {")
		p.indent++
		p.block(e)
		p.indent--
		p.line("}")
	}
}

// exprStr renders an expression as a single line. Blocks embedded in
// if/match expressions are rendered with their own multi-line form by
// the caller where needed; the single-line forms here cover the rest
// of the expression grammar.
func exprStr(e Expr) string {
	switch v := e.(type) {
	case *Identifier:
		return v.Name
	case *IntLit:
		return strconv.FormatInt(v.Value, 10)
	case *StringLit:
		return strconv.Quote(v.Value)
	case *InterpString:
		var b strings.Builder
		b.WriteByte('"')
		for _, part := range v.Parts {
			if part.Expr != nil {
				b.WriteByte('{')
				b.WriteString(exprStr(part.Expr))
				b.WriteByte('}')
			} else {
				b.WriteString(part.Text)
			}
		}
		b.WriteByte('"')
		return b.String()
	case *BoolLit:
		if v.Value {
			return "true"
		}
		return "false"
	case *NilLit:
		return "nil"
	case *UnaryExpr:
		return v.Op + " " + exprStr(v.X)
	case *BinaryExpr:
		return exprStr(v.X) + " " + v.Op + " " + exprStr(v.Y)
	case *MatchesExpr:
		return exprStr(v.X) + " matches " + v.Type.String()
	case *CallExpr:
		targs := ""
		if len(v.TypeArgs) > 0 {
			parts := make([]string, len(v.TypeArgs))
			for i, t := range v.TypeArgs {
				parts[i] = t.String()
			}
			targs = "[" + strings.Join(parts, ", ") + "]"
		}
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = exprStr(a)
		}
		return exprStr(v.Callee) + targs + "(" + strings.Join(args, ", ") + ")"
	case *FieldAccess:
		return exprStr(v.X) + "." + v.Field
	case *StructLit:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Name + ": " + exprStr(f.Value)
		}
		return v.Type.String() + " { " + strings.Join(parts, ", ") + " }"
	case *IfExpr:
		s := "if " + exprStr(v.Cond) + " { " + blockInline(v.Then) + " }"
		if v.Else != nil {
			s += " else " + elseStr(v.Else)
		}
		return s
	case *MatchExpr:
		parts := make([]string, len(v.Arms))
		for i, a := range v.Arms {
			parts[i] = patternStr(a.Pattern) + " => " + exprStr(a.Body)
		}
		return "match " + exprStr(v.Subject) + " { " + strings.Join(parts, ", ") + " }"
	}
	return "<?expr?>"
}

func elseStr(n Node) string {
	switch v := n.(type) {
	case *IfExpr:
		return exprStr(v)
	case *Block:
		return "{ " + blockInline(v) + " }"
	}
	return "{}"
}

func blockInline(b *Block) string {
	parts := make([]string, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		parts = append(parts, stmtInline(s))
	}
	return strings.Join(parts, "; ")
}

func stmtInline(s Stmt) string {
	switch v := s.(type) {
	case *ExprStmt:
		return exprStr(v.X)
	case *ReturnStmt:
		if v.Value != nil {
			return "return " + exprStr(v.Value)
		}
		return "return"
	case *BreakStmt:
		return "break"
	case *ContinueStmt:
		return "continue"
	case *VarDecl:
		kw := ""
		if v.Mutable {
			kw = "mutable "
		}
		return fmt.Sprintf("%s%s := %s", kw, v.Name, exprStr(v.Value))
	case *AssignStmt:
		return fmt.Sprintf("%s = %s", v.Name, exprStr(v.Value))
	case *WhileStmt:
		return "while " + exprStr(v.Cond) + " { " + blockInline(v.Body) + " }"
	}
	return ""
}

func patternStr(p Pattern) string {
	switch v := p.(type) {
	case *TypePattern:
		return v.Type.String()
	case *BindingPattern:
		return v.Name + ": " + v.Type.String()
	case *QualifiedPattern:
		return v.Enum + "." + v.Variant
	}
	return "<?pattern?>"
}
