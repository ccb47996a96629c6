package types

import (
	"fmt"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// builtins are the names call resolution recognizes before falling
// back to a user-defined function or value.
var builtins = map[string]bool{"print": true, "abort": true, "string": true, "assert": true}

// valueEntry is one value-scope binding.
type valueEntry struct {
	typ     *Type
	mutable bool
	used    bool
	pos     token.Pos
}

// Analyzer runs per-file type analysis: nominal assignability
// checking against declared signatures, with explicit scope stacks
// and diagnostic accumulation rather than unification.
type Analyzer struct {
	reg  *Registry
	pkg  string
	path string

	// imports is the analyzed file's name environment beyond its own
	// package: local alias -> (declared name, target package), from
	// the file's resolved import declarations.
	imports map[string]ImportBinding

	reports []*diag.Report

	typeParamScopes []map[string]*TypeParamInfo
	valueScopes     []map[string]*valueEntry
	loopDepth       int

	// resultType is the enclosing function/method's declared result,
	// checked against every `return` value inside its body.
	resultType *Type

	callTargets map[uint64]CallTarget
	structRefs  map[uint64]StructReference
	exprTypes   map[uint64]*Type

	// declaredTypes records each local variable declaration's final
	// type — the explicit annotation when one is written, otherwise the
	// initializer's inferred type — keyed by the VarDecl's own
	// position (VarDecl is a Stmt, not an Expr, so it has no
	// ExpressionId to key exprTypes by). The backend uses this to know
	// a binding's declared (possibly union/interface) type at every
	// later assignment, for boxing.
	declaredTypes map[token.Pos]*Type

	// usedNames collects every bare name this file actually looked up —
	// identifiers (typeIdentifier) and type names (resolveType) alike —
	// regardless of whether the lookup resolved successfully. The
	// driver cross-references this against each ResolvedImport binding's
	// LocalName to report IMP005 ("unused import").
	usedNames map[string]bool
}

func newAnalyzer(reg *Registry, pkg, path string) *Analyzer {
	return &Analyzer{
		reg: reg, pkg: pkg, path: path,
		callTargets:   map[uint64]CallTarget{},
		structRefs:    map[uint64]StructReference{},
		exprTypes:     map[uint64]*Type{},
		declaredTypes: map[token.Pos]*Type{},
		usedNames:     map[string]bool{},
	}
}

// resolveType resolves a written type name against the registry,
// recording every leaf name it mentions (including union members and
// generic type arguments) as used — see usedNames.
func (a *Analyzer) resolveType(tn *ast.TypeName) *Type {
	a.recordTypeNameUsage(tn)
	return a.reg.resolveTypeName(a.pkg, a.path, tn, a.activeTypeParams(), a.imports, &a.reports)
}

func (a *Analyzer) recordTypeNameUsage(tn *ast.TypeName) {
	if tn == nil {
		return
	}
	for _, m := range tn.Members {
		a.usedNames[m.Name] = true
		for _, arg := range m.Args {
			a.recordTypeNameUsage(arg)
		}
	}
}

// AnalyzeFile type-checks one file's semantic IR against the shared
// registry and the file's own import bindings, the only two sources a
// name may resolve through. Declaration shapes and signatures (local
// and imported) are already in reg from Build; this pass checks, in
// order, interface conformance, struct bodies and their methods,
// function bodies, and constants against their declared types.
func AnalyzeFile(path string, pkg string, f *ast.File, reg *Registry, imports []ImportBinding) (*TypeAnnotatedFile, []*diag.Report) {
	a := newAnalyzer(reg, pkg, path)
	a.imports = bindingMap(imports)
	a.pushTypeParamScope(nil)
	a.pushValueScope()

	// Steps 1-2: local type declarations are already seeded into reg by
	// C6's indexDeclShapes/resolveDeclSignatures pass, which runs before
	// AnalyzeFile and already handles mutual recursion across the whole
	// package set (imports included, since reg is shared).
	a.checkInterfaceConformance(f)

	out := &TypeAnnotatedFile{
		Path:        path,
		Package:     pkg,
		Signatures:  map[string]*FunctionSignatureInfo{},
		Structs:     map[string]*StructInfo{},
		CallTargets:   a.callTargets,
		StructRefs:    a.structRefs,
		ExprTypes:     a.exprTypes,
		DeclaredTypes: a.declaredTypes,
		UsedNames:     a.usedNames,
	}

	for _, d := range f.Decls {
		switch v := d.(type) {
		case *ast.TypeDecl:
			if v.Kind == ast.StructKind {
				if si := reg.Structs[pkg][v.Name]; si != nil {
					out.Structs[v.Name] = si
				}
				a.checkStructBody(v)
			}
		}
	}

	for _, d := range f.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		fi := reg.Functions[pkg][fn.Name]
		if fi == nil || fi.Doc != fn {
			continue // duplicate declaration, reported during indexing
		}
		out.Functions = append(out.Functions, fn)
		out.Signatures[fn.Name] = &FunctionSignatureInfo{
			Name: fn.Name, TypeParamCount: len(fi.TypeParams), ParamCount: len(fi.Params),
			ReturnsNil: fi.Result != nil && fi.Result.Kind == KindPrimitive && fi.Result.Prim == Nil,
		}
		a.checkFunctionBody(fn, fi)
	}

	for _, d := range f.Decls {
		cd, ok := d.(*ast.ConstantDecl)
		if !ok {
			continue
		}
		ci := reg.Constants[pkg][cd.Name]
		if ci == nil {
			continue // duplicate declaration, reported during indexing
		}
		if cd.Type != nil {
			declared := a.resolveType(cd.Type)
			if ci.Type != nil && !a.assignable(ci.Type, declared) {
				a.errorf(diag.TYP005, cd.Pos, "constant %q initializer has type %s, not assignable to declared type %s",
					cd.Name, ci.Type, declared)
			}
		}
	}

	return out, a.reports
}

func (a *Analyzer) errorf(code string, pos token.Pos, format string, args ...any) {
	a.reports = append(a.reports, diag.New(code, diag.PhaseTypeCheck, a.path, fmt.Sprintf(format, args...), token.Span{Start: pos, End: pos}))
}

// --- scopes ---

func (a *Analyzer) pushTypeParamScope(names []*TypeParamInfo) {
	m := map[string]*TypeParamInfo{}
	for _, n := range names {
		m[n.Name] = n
	}
	a.typeParamScopes = append(a.typeParamScopes, m)
}

func (a *Analyzer) popTypeParamScope() {
	a.typeParamScopes = a.typeParamScopes[:len(a.typeParamScopes)-1]
}

func (a *Analyzer) activeTypeParams() map[string]bool {
	merged := map[string]bool{}
	for _, s := range a.typeParamScopes {
		for k := range s {
			merged[k] = true
		}
	}
	return merged
}

// lookupTypeParam finds an active type parameter by name, innermost
// scope first.
func (a *Analyzer) lookupTypeParam(name string) *TypeParamInfo {
	for i := len(a.typeParamScopes) - 1; i >= 0; i-- {
		if tp, ok := a.typeParamScopes[i][name]; ok {
			return tp
		}
	}
	return nil
}

func (a *Analyzer) pushValueScope() { a.valueScopes = append(a.valueScopes, map[string]*valueEntry{}) }
func (a *Analyzer) popValueScope()  { a.valueScopes = a.valueScopes[:len(a.valueScopes)-1] }

func (a *Analyzer) declareLocal(name string, t *Type, mutable bool, pos token.Pos) {
	top := a.valueScopes[len(a.valueScopes)-1]
	if _, dup := top[name]; dup {
		a.errorf(diag.TYP001, pos, "%q is already declared in this scope", name)
		return
	}
	top[name] = &valueEntry{typ: t, mutable: mutable, pos: pos}
}

func (a *Analyzer) lookupLocal(name string) *valueEntry {
	for i := len(a.valueScopes) - 1; i >= 0; i-- {
		if e, ok := a.valueScopes[i][name]; ok {
			return e
		}
	}
	return nil
}

// narrowEntry temporarily re-types an existing binding (flow-sensitive
// narrowing), returning an undo function that restores the prior type
// recorded as (scope index, name, original type). A
// caller that wants the narrowing to persist (the fallthrough case in
// checkIfStatement) simply discards the returned undo. name=="" or a
// nil t means the condition wasn't a narrowable form; this is then a
// no-op.
func (a *Analyzer) narrowEntry(name string, t *Type) func() {
	if name == "" || t == nil {
		return func() {}
	}
	for i := len(a.valueScopes) - 1; i >= 0; i-- {
		if e, ok := a.valueScopes[i][name]; ok {
			original := e.typ
			e.typ = t
			return func() { e.typ = original }
		}
	}
	return func() {}
}

// --- declarations ---

func (a *Analyzer) checkInterfaceConformance(f *ast.File) {
	for _, d := range f.Decls {
		td, ok := d.(*ast.TypeDecl)
		if !ok || td.Kind != ast.StructKind {
			continue
		}
		si := a.reg.Structs[a.pkg][td.Name]
		if si == nil {
			continue
		}
		for _, ifaceName := range si.Implements {
			iface := a.reg.Interfaces[a.pkg][ifaceName]
			if iface == nil {
				a.errorf(diag.TYP003, td.Pos, "unknown interface %q", ifaceName)
				continue
			}
			for _, mname := range iface.MethodOrder {
				want := iface.Methods[mname]
				got := si.Methods[mname]
				if got == nil {
					a.errorf(diag.TYP019, td.Pos, "struct %q does not implement method %q of interface %q", td.Name, mname, ifaceName)
					continue
				}
				if got.SelfMutable != want.SelfMutable || len(got.Params) != len(want.Params) || !got.Result.Equal(want.Result) {
					a.errorf(diag.TYP019, td.Pos, "struct %q method %q does not match interface %q signature", td.Name, mname, ifaceName)
					continue
				}
				for i := range got.Params {
					if !got.Params[i].Equal(want.Params[i]) {
						a.errorf(diag.TYP019, td.Pos, "struct %q method %q parameter %d does not match interface %q signature", td.Name, mname, i, ifaceName)
						break
					}
				}
			}
		}
	}
}

func (a *Analyzer) checkStructBody(td *ast.TypeDecl) {
	si := a.reg.Structs[a.pkg][td.Name]
	if si == nil || si.Doc != td {
		return
	}
	seenFields := map[string]bool{}
	for _, fd := range td.Fields {
		if seenFields[fd.Name] {
			a.errorf(diag.TYP001, fd.Pos, "duplicate field %q in struct %q", fd.Name, td.Name)
		}
		seenFields[fd.Name] = true
	}
	seenMethods := map[string]bool{}
	for _, m := range td.Methods {
		if seenMethods[m.Name] {
			a.errorf(diag.TYP001, m.Pos, "duplicate method %q on struct %q", m.Name, td.Name)
		}
		seenMethods[m.Name] = true
		a.checkMethodBody(td, si, m)
	}
}

func (a *Analyzer) checkMethodBody(td *ast.TypeDecl, si *StructInfo, m *ast.MethodDecl) {
	tpNames := si.TypeParams
	a.pushTypeParamScope(tpNames)
	defer a.popTypeParamScope()
	a.pushValueScope()
	defer a.popValueScope()

	selfType := NewNamed(a.pkg, td.Name)
	if len(tpNames) > 0 {
		args := make([]*Type, len(tpNames))
		for i, tp := range tpNames {
			args[i] = NewTypeParameter(tp.Name)
		}
		selfType = &Type{Kind: KindApplied, Generic: selfType, Args: args}
	}
	a.declareLocal("self", selfType, m.SelfMutable, m.Pos)
	ms := si.Methods[m.Name]
	for i, p := range m.Params {
		a.declareLocal(p.Name, ms.Params[i], false, p.Pos)
	}

	prevResult := a.resultType
	a.resultType = ms.Result
	defer func() { a.resultType = prevResult }()
	a.checkBlock(m.Body)
	a.checkReturnCoverage(m.Body, ms.Result, m.Pos)
}

func (a *Analyzer) checkFunctionBody(fn *ast.FunctionDecl, fi *FunctionInfo) {
	a.pushTypeParamScope(fi.TypeParams)
	defer a.popTypeParamScope()
	a.pushValueScope()
	defer a.popValueScope()

	for i, p := range fn.Params {
		a.declareLocal(p.Name, fi.Params[i], false, p.Pos)
	}
	prevResult := a.resultType
	a.resultType = fi.Result
	defer func() { a.resultType = prevResult }()
	a.checkBlock(fn.Body)
	a.checkReturnCoverage(fn.Body, fi.Result, fn.Pos)
}

// checkReturnCoverage reports TYP009 when a function/method whose
// result type is not Nil/Never can fall off the end of its body
// without returning. This is a conservative, syntactic check: a block
// "covers" if its last statement is a return, or a terminating
// if/else where both branches cover.
func (a *Analyzer) checkReturnCoverage(body *ast.Block, result *Type, pos token.Pos) {
	if result != nil && result.Kind == KindPrimitive && (result.Prim == Nil || result.Prim == Never) {
		return
	}
	if !blockCovers(body) {
		a.errorf(diag.TYP009, pos, "missing return in function/method with non-Nil result type %s", result)
	}
}

func blockCovers(b *ast.Block) bool {
	if b == nil || len(b.Stmts) == 0 {
		return false
	}
	last := b.Stmts[len(b.Stmts)-1]
	switch v := last.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.ExprStmt:
		if ifx, ok := v.X.(*ast.IfExpr); ok {
			return ifExprCovers(ifx)
		}
		return isAbortCall(v.X)
	}
	return false
}

// isAbortCall reports whether e is a direct call to the `abort`
// builtin, which never returns and therefore covers/terminates the
// same way a `return` does.
func isAbortCall(e ast.Expr) bool {
	c, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	id, ok := c.Callee.(*ast.Identifier)
	return ok && id.Name == "abort"
}

func ifExprCovers(ifx *ast.IfExpr) bool {
	if ifx.Else == nil {
		return false
	}
	if !blockCovers(ifx.Then) {
		return false
	}
	switch e := ifx.Else.(type) {
	case *ast.Block:
		return blockCovers(e)
	case *ast.IfExpr:
		return ifExprCovers(e)
	}
	return false
}

// --- statements ---

func (a *Analyzer) checkBlock(b *ast.Block) {
	if b == nil {
		return
	}
	terminated := false
	for _, s := range b.Stmts {
		if terminated {
			a.errorf(diag.TYP008, s.Position(), "unreachable code after a terminating statement")
			break
		}
		if a.checkStmt(s) {
			terminated = true
		}
	}
}

// checkStmt type-checks one statement and reports whether it
// terminates the enclosing block (all control flow from here on exits
// via return/break/continue). Computed per-statement so checkBlock can
// both flag unreachable code and, for if-statements, let
// checkIfStatement's fallthrough narrowing take effect.
func (a *Analyzer) checkStmt(s ast.Stmt) (terminates bool) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		if ifx, ok := v.X.(*ast.IfExpr); ok {
			return a.checkIfStatement(ifx)
		}
		a.typeExpr(v.X)
	case *ast.VarDecl:
		t := a.typeExpr(v.Value)
		if v.Type != nil {
			declared := a.resolveType(v.Type)
			if !a.assignable(t, declared) {
				a.errorf(diag.TYP005, v.Pos, "cannot assign %s to declared type %s", t, declared)
			}
			t = declared
		}
		a.declaredTypes[v.Pos] = t
		a.declareLocal(v.Name, t, v.Mutable, v.Pos)
	case *ast.AssignStmt:
		e := a.lookupLocal(v.Name)
		if e == nil {
			a.errorf(diag.TYP002, v.Pos, "unknown name %q", v.Name)
			return false
		}
		if !e.mutable {
			a.errorf(diag.TYP012, v.Pos, "cannot assign to immutable binding %q", v.Name)
		}
		t := a.typeExpr(v.Value)
		if !a.assignable(t, e.typ) {
			a.errorf(diag.TYP005, v.Pos, "cannot assign %s to %q of type %s", t, v.Name, e.typ)
		}
	case *ast.ReturnStmt:
		if v.Value != nil {
			t := a.typeExpr(v.Value)
			if a.resultType != nil && !a.assignable(t, a.resultType) {
				a.errorf(diag.TYP005, v.Pos, "cannot return %s from a function with result type %s", t, a.resultType)
			}
		} else if a.resultType != nil && a.resultType != Unknown && !isPrimitive(a.resultType, Nil) && !isPrimitive(a.resultType, Never) {
			a.errorf(diag.TYP005, v.Pos, "bare return in a function with result type %s", a.resultType)
		}
		return true
	case *ast.BreakStmt:
		if a.loopDepth == 0 {
			a.errorf(diag.TYP013, v.Pos, "break used outside a loop")
			return false
		}
		return true
	case *ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.errorf(diag.TYP013, v.Pos, "continue used outside a loop")
			return false
		}
		return true
	case *ast.WhileStmt:
		t := a.typeExpr(v.Cond)
		if !isPrimitive(t, Boolean) {
			a.errorf(diag.TYP005, v.Pos, "while condition must be Boolean, got %s", t)
		}
		a.loopDepth++
		a.pushValueScope()
		a.checkBlock(v.Body)
		a.popValueScope()
		a.loopDepth--
	}
	return false
}

func isPrimitive(t *Type, p Primitive) bool {
	return t != nil && t.Kind == KindPrimitive && t.Prim == p
}

// --- expressions ---

// typeExpr types e and records the result against e's ExpressionId in
// a.exprTypes, so later phases (C8/C9) can recover the resolved type
// of any expression — in particular to decide when an assignment
// needs union/interface boxing, which the IR produced here does not
// itself carry.
func (a *Analyzer) typeExpr(e ast.Expr) *Type {
	t := a.typeExprInner(e)
	if e != nil && e.ExprID() != 0 {
		a.exprTypes[e.ExprID()] = t
	}
	return t
}

func (a *Analyzer) typeExprInner(e ast.Expr) *Type {
	if e == nil {
		return Unknown
	}
	switch v := e.(type) {
	case *ast.IntLit:
		return NewPrimitive(Int64)
	case *ast.StringLit:
		return NewPrimitive(String)
	case *ast.BoolLit:
		return NewPrimitive(Boolean)
	case *ast.NilLit:
		return NewPrimitive(Nil)
	case *ast.Identifier:
		return a.typeIdentifier(v)
	case *ast.UnaryExpr:
		return a.typeUnary(v)
	case *ast.BinaryExpr:
		return a.typeBinary(v)
	case *ast.MatchesExpr:
		return a.typeMatches(v)
	case *ast.CallExpr:
		return a.typeCall(v)
	case *ast.FieldAccess:
		return a.typeFieldAccess(v)
	case *ast.StructLit:
		return a.typeStructLit(v)
	case *ast.IfExpr:
		return a.typeIfExpr(v)
	case *ast.MatchExpr:
		return a.typeMatchExpr(v)
	default:
		return Unknown
	}
}

func (a *Analyzer) typeIdentifier(id *ast.Identifier) *Type {
	a.usedNames[id.Name] = true
	if e := a.lookupLocal(id.Name); e != nil {
		e.used = true
		return e.typ
	}
	if ci := a.findConstant(id.Name); ci != nil {
		if ci.Type == nil {
			return Unknown
		}
		return ci.Type
	}
	if fi := a.findFunction(id.Name); fi != nil {
		if len(fi.TypeParams) > 0 {
			a.errorf(diag.TYP017, id.Pos, "generic function %q cannot be referenced as a value", id.Name)
			return Unknown
		}
		return &Type{Kind: KindFunction, Params: fi.Params, Result: fi.Result}
	}
	a.errorf(diag.TYP002, id.Pos, "unknown name %q", id.Name)
	return Unknown
}

// findConstant resolves a constant name: the analyzer's own package
// first, then the file's import bindings (following a `b as c` alias
// through to the declared name in the target package). Constants of
// packages the file never imported are not in scope.
func (a *Analyzer) findConstant(name string) *ConstantInfo {
	if ci := a.reg.Constants[a.pkg][name]; ci != nil {
		return ci
	}
	if b, ok := a.imports[name]; ok {
		if ci := a.reg.Constants[b.PackagePath][b.ImportedName]; ci != nil && ci.Public {
			return ci
		}
	}
	return nil
}

// findFunction resolves a function name the same way findConstant
// resolves a constant name.
func (a *Analyzer) findFunction(name string) *FunctionInfo {
	if fi := a.reg.Functions[a.pkg][name]; fi != nil {
		return fi
	}
	if b, ok := a.imports[name]; ok {
		if fi := a.reg.Functions[b.PackagePath][b.ImportedName]; fi != nil && fi.Public {
			return fi
		}
	}
	return nil
}

// findEnum resolves an enum type name, local package first, then the
// file's import bindings.
func (a *Analyzer) findEnum(name string) *EnumInfo {
	if ei := a.reg.Enums[a.pkg][name]; ei != nil {
		return ei
	}
	if b, ok := a.imports[name]; ok {
		if ei := a.reg.Enums[b.PackagePath][b.ImportedName]; ei != nil && ei.Public {
			return ei
		}
	}
	return nil
}

func (a *Analyzer) typeUnary(u *ast.UnaryExpr) *Type {
	t := a.typeExpr(u.X)
	switch u.Op {
	case "not":
		if !isPrimitive(t, Boolean) && t != Unknown {
			a.errorf(diag.TYP005, u.Pos, "'not' requires Boolean, got %s", t)
		}
		return NewPrimitive(Boolean)
	case "-":
		if !isPrimitive(t, Int64) && t != Unknown {
			a.errorf(diag.TYP005, u.Pos, "unary '-' requires Int64, got %s", t)
		}
		return NewPrimitive(Int64)
	default:
		return Unknown
	}
}

func (a *Analyzer) typeBinary(b *ast.BinaryExpr) *Type {
	x := a.typeExpr(b.X)
	y := a.typeExpr(b.Y)
	switch b.Op {
	case "+":
		if isPrimitive(x, String) && isPrimitive(y, String) {
			return NewPrimitive(String)
		}
		if !isPrimitive(x, Int64) && x != Unknown {
			a.errorf(diag.TYP005, b.Pos, "'+' requires Int64 or String operands, got %s", x)
		}
		if !isPrimitive(y, Int64) && y != Unknown {
			a.errorf(diag.TYP005, b.Pos, "'+' requires Int64 or String operands, got %s", y)
		}
		return NewPrimitive(Int64)
	case "-", "*", "/":
		if !isPrimitive(x, Int64) && x != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Int64 operands, got %s", b.Op, x)
		}
		if !isPrimitive(y, Int64) && y != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Int64 operands, got %s", b.Op, y)
		}
		return NewPrimitive(Int64)
	case "<", "<=", ">", ">=":
		if !isPrimitive(x, Int64) && x != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Int64 operands, got %s", b.Op, x)
		}
		if !isPrimitive(y, Int64) && y != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Int64 operands, got %s", b.Op, y)
		}
		return NewPrimitive(Boolean)
	case "==", "!=":
		if !a.assignable(x, y) && !a.assignable(y, x) {
			a.errorf(diag.TYP005, b.Pos, "%q requires comparable operands, got %s and %s", b.Op, x, y)
		}
		return NewPrimitive(Boolean)
	case "and", "or":
		if !isPrimitive(x, Boolean) && x != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Boolean operands, got %s", b.Op, x)
		}
		if !isPrimitive(y, Boolean) && y != Unknown {
			a.errorf(diag.TYP005, b.Pos, "%q requires Boolean operands, got %s", b.Op, y)
		}
		return NewPrimitive(Boolean)
	default:
		return Unknown
	}
}

func (a *Analyzer) typeMatches(m *ast.MatchesExpr) *Type {
	a.typeExpr(m.X)
	target := a.resolveType(m.Type)
	if target.IsUnion() {
		a.errorf(diag.TYP005, m.Pos, "'matches' target must be a concrete type, got union %s", target)
	}
	return NewPrimitive(Boolean)
}

func (a *Analyzer) typeFieldAccess(fa *ast.FieldAccess) *Type {
	// `Enum.Variant` in expression position is a variant value of the
	// enum's nominal type, not a field access on a value.
	if id, ok := fa.X.(*ast.Identifier); ok && a.lookupLocal(id.Name) == nil {
		if ei := a.findEnum(id.Name); ei != nil {
			a.usedNames[id.Name] = true
			for _, variant := range ei.Variants {
				if variant == fa.Field {
					return NewNamed(ei.PackagePath, ei.Name)
				}
			}
			a.errorf(diag.TYP002, fa.Pos, "enum %q has no variant %q", id.Name, fa.Field)
			return Unknown
		}
	}
	xt := a.typeExpr(fa.X)
	if xt == Unknown {
		return Unknown
	}
	pkg, name := xt.NamedKey()
	if pkg == "" {
		a.errorf(diag.TYP004, fa.Pos, "cannot access field %q on non-struct type %s", fa.Field, xt)
		return Unknown
	}
	si := a.reg.Structs[pkg][name]
	if si == nil {
		a.errorf(diag.TYP004, fa.Pos, "cannot access field %q on non-struct type %s", fa.Field, xt)
		return Unknown
	}
	ft, ok := si.Fields[fa.Field]
	if !ok {
		a.errorf(diag.TYP004, fa.Pos, "struct %q has no field %q", name, fa.Field)
		return Unknown
	}
	if xt.Kind == KindApplied {
		sub := substitution(si.TypeParams, xt.Args)
		ft = substituteType(ft, sub)
	}
	return ft
}

func (a *Analyzer) typeStructLit(sl *ast.StructLit) *Type {
	if len(sl.Type.Members) != 1 {
		a.errorf(diag.TYP003, sl.Pos, "struct literal type must not be a union")
		return Unknown
	}
	nt := sl.Type.Members[0]
	a.usedNames[nt.Name] = true
	pkg, declName, ok := a.reg.findTypeSymbol(a.pkg, nt.Name, a.imports)
	if !ok {
		a.errorf(diag.TYP003, sl.Pos, "unknown type %q", nt.Name)
		return Unknown
	}
	si := a.reg.Structs[pkg][declName]
	if si == nil {
		a.errorf(diag.TYP005, sl.Pos, "%q is not a struct type", nt.Name)
		return Unknown
	}

	var args []*Type
	for _, arg := range nt.Args {
		args = append(args, a.resolveType(arg))
	}
	var sub map[string]*Type
	if len(si.TypeParams) > 0 {
		if len(args) != len(si.TypeParams) {
			a.errorf(diag.TYP005, sl.Pos, "generic struct %q requires %d type argument(s), got %d", nt.Name, len(si.TypeParams), len(args))
		} else {
			sub = substitution(si.TypeParams, args)
		}
	}

	seen := map[string]bool{}
	for _, field := range sl.Fields {
		declaredType, ok := si.Fields[field.Name]
		if !ok {
			a.errorf(diag.TYP016, field.Pos, "struct %q has no field %q", nt.Name, field.Name)
			a.typeExpr(field.Value)
			continue
		}
		if seen[field.Name] {
			a.errorf(diag.TYP001, field.Pos, "duplicate field %q in struct literal", field.Name)
		}
		seen[field.Name] = true
		if sub != nil {
			declaredType = substituteType(declaredType, sub)
		}
		vt := a.typeExpr(field.Value)
		if !a.assignable(vt, declaredType) {
			a.errorf(diag.TYP005, field.Pos, "field %q expects %s, got %s", field.Name, declaredType, vt)
		}
	}
	for _, name := range si.FieldOrder {
		if !seen[name] {
			a.errorf(diag.TYP014, sl.Pos, "struct literal for %q is missing field %q", nt.Name, name)
		}
	}

	result := NewNamed(pkg, declName)
	if args != nil {
		result = &Type{Kind: KindApplied, Generic: result, Args: args}
	}
	ref := StructReference{PackagePath: pkg, SymbolName: declName, Args: args}
	a.structRefs[sl.ExprID()] = ref
	return result
}

// typeIfExpr handles an `if` reached as a nested expression (not a
// direct block statement) — e.g. as an operand. Narrowing is scoped to
// each branch only; there is no enclosing statement list for a
// fallthrough narrowing to flow into, so it is applied and undone
// around each branch exactly as checkIfStatement does for its own
// then/else checking.
func (a *Analyzer) typeIfExpr(ifx *ast.IfExpr) *Type {
	condT := a.typeExpr(ifx.Cond)
	if !isPrimitive(condT, Boolean) && condT != Unknown {
		a.errorf(diag.TYP005, ifx.Pos, "if condition must be Boolean, got %s", condT)
	}

	cn := a.deriveConditionNarrowing(ifx.Cond)

	undo := a.narrowEntry(cn.name, cn.whenTrue)
	a.pushValueScope()
	a.checkBlock(ifx.Then)
	a.popValueScope()
	undo()

	undoElse := a.narrowEntry(cn.name, cn.whenFalse)
	switch e := ifx.Else.(type) {
	case *ast.Block:
		a.pushValueScope()
		a.checkBlock(e)
		a.popValueScope()
	case *ast.IfExpr:
		a.typeIfExpr(e)
	}
	undoElse()

	return NewPrimitive(Nil)
}

// checkIfStatement type-checks an `if`/`else if`/`else` chain occurring
// directly in a block's statement list. When exactly one of the
// then/else branches terminates (all paths return or abort), the
// complementary narrowing is applied to the live binding with no undo:
// it persists for the rest of the enclosing scope exactly like any
// other narrowing mutation, rather than being restored when this
// statement finishes. The chain's own terminates value (needed by an
// enclosing if's fallthrough decision, for `else if`) is then/else
// terminating together.
func (a *Analyzer) checkIfStatement(ifx *ast.IfExpr) (terminates bool) {
	condT := a.typeExpr(ifx.Cond)
	if !isPrimitive(condT, Boolean) && condT != Unknown {
		a.errorf(diag.TYP005, ifx.Pos, "if condition must be Boolean, got %s", condT)
	}

	cn := a.deriveConditionNarrowing(ifx.Cond)

	undoThen := a.narrowEntry(cn.name, cn.whenTrue)
	a.pushValueScope()
	a.checkBlock(ifx.Then)
	a.popValueScope()
	thenTerminates := blockTerminates(ifx.Then)
	undoThen()

	undoElse := a.narrowEntry(cn.name, cn.whenFalse)
	var elseTerminates bool
	switch e := ifx.Else.(type) {
	case *ast.Block:
		a.pushValueScope()
		a.checkBlock(e)
		a.popValueScope()
		elseTerminates = blockTerminates(e)
	case *ast.IfExpr:
		elseTerminates = a.checkIfStatement(e)
	}
	undoElse()

	switch {
	case thenTerminates && !elseTerminates:
		a.narrowEntry(cn.name, cn.whenFalse)
	case elseTerminates && !thenTerminates:
		a.narrowEntry(cn.name, cn.whenTrue)
	}

	return thenTerminates && elseTerminates
}

// blockTerminates reports whether every path through b ends in a
// return/break/continue (or a nested terminating if-chain), the same
// notion checkStmt's own return value computes for a single statement,
// applied to a block's last statement.
func blockTerminates(b *ast.Block) bool {
	if b == nil || len(b.Stmts) == 0 {
		return false
	}
	switch v := b.Stmts[len(b.Stmts)-1].(type) {
	case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt:
		return true
	case *ast.ExprStmt:
		if ifx, ok := v.X.(*ast.IfExpr); ok {
			return ifExprCovers(ifx)
		}
		return isAbortCall(v.X)
	}
	return false
}

// conditionNarrowing is the variable name and its two branch-specific
// retypings derived from an `if`/`matches` condition, or the zero value
// when the condition isn't a narrowable form ("name" left empty —
// narrowEntry treats that as a no-op).
type conditionNarrowing struct {
	name                string
	whenTrue, whenFalse *Type
}

// deriveConditionNarrowing computes the flow-sensitive narrowing for
// `x == nil`, `x != nil`, and `x matches T` conditions.
func (a *Analyzer) deriveConditionNarrowing(cond ast.Expr) conditionNarrowing {
	switch c := cond.(type) {
	case *ast.BinaryExpr:
		if c.Op != "==" && c.Op != "!=" {
			return conditionNarrowing{}
		}
		id, isID := c.X.(*ast.Identifier)
		isNilTest := false
		if isID {
			_, isNilTest = c.Y.(*ast.NilLit)
		} else if id, isID = c.Y.(*ast.Identifier); isID {
			_, isNilTest = c.X.(*ast.NilLit)
		}
		if !isID || !isNilTest {
			return conditionNarrowing{}
		}
		e := a.lookupLocal(id.Name)
		if e == nil {
			return conditionNarrowing{}
		}
		nonNil := removeFromUnion(e.typ, NewPrimitive(Nil))
		if c.Op == "==" {
			return conditionNarrowing{name: id.Name, whenTrue: NewPrimitive(Nil), whenFalse: nonNil}
		}
		return conditionNarrowing{name: id.Name, whenTrue: nonNil, whenFalse: NewPrimitive(Nil)}
	case *ast.MatchesExpr:
		id, isID := c.X.(*ast.Identifier)
		if !isID {
			return conditionNarrowing{}
		}
		e := a.lookupLocal(id.Name)
		if e == nil {
			return conditionNarrowing{}
		}
		target := a.resolveType(c.Type)
		return conditionNarrowing{name: id.Name, whenTrue: target, whenFalse: removeFromUnion(e.typ, target)}
	default:
		return conditionNarrowing{}
	}
}

func removeFromUnion(t *Type, remove *Type) *Type {
	if !t.IsUnion() {
		return t
	}
	var remaining []*Type
	for _, m := range t.Members {
		if !m.Equal(remove) {
			remaining = append(remaining, m)
		}
	}
	if len(remaining) == 1 {
		return remaining[0]
	}
	return &Type{Kind: KindUnion, Members: remaining}
}

func (a *Analyzer) typeMatchExpr(m *ast.MatchExpr) *Type {
	subjectType := a.typeExpr(m.Subject)
	var results []*Type
	covered := map[string]bool{}
	for _, arm := range m.Arms {
		a.pushValueScope()
		a.checkPattern(arm.Pattern, subjectType, covered)
		results = append(results, a.typeExpr(arm.Body))
		a.popValueScope()
	}
	if subjectType.IsUnion() {
		for _, member := range subjectType.Members {
			if !covered[member.String()] {
				a.errorf(diag.TYP007, m.Pos, "match over %s is not exhaustive: missing %s", subjectType, member)
			}
		}
	}
	if len(results) == 0 {
		return Unknown
	}
	first := results[0]
	for _, r := range results[1:] {
		if !first.Equal(r) {
			a.errorf(diag.TYP005, m.Pos, "match arms have incompatible result types %s and %s", first, r)
		}
	}
	return first
}

func (a *Analyzer) checkPattern(p ast.Pattern, subjectType *Type, covered map[string]bool) {
	switch v := p.(type) {
	case *ast.TypePattern:
		t := a.resolveType(v.Type)
		a.checkPatternBelongsToTarget(t, subjectType, v.Pos)
		covered[t.String()] = true
	case *ast.BindingPattern:
		t := a.resolveType(v.Type)
		a.checkPatternBelongsToTarget(t, subjectType, v.Pos)
		a.declareLocal(v.Name, t, false, v.Pos)
		covered[t.String()] = true
	case *ast.QualifiedPattern:
		a.usedNames[v.Enum] = true
		ei := a.findEnum(v.Enum)
		if ei == nil {
			a.errorf(diag.TYP003, v.Pos, "unknown enum %q", v.Enum)
			return
		}
		found := false
		for _, variant := range ei.Variants {
			if variant == v.Variant {
				found = true
				break
			}
		}
		if !found {
			a.errorf(diag.TYP002, v.Pos, "enum %q has no variant %q", v.Enum, v.Variant)
		}
		covered[NewNamed(ei.PackagePath, ei.Name).String()] = true
	}
}

func (a *Analyzer) checkPatternBelongsToTarget(patternType, subjectType *Type, pos token.Pos) {
	if subjectType == Unknown || patternType == Unknown {
		return
	}
	if subjectType.Equal(patternType) {
		return
	}
	if subjectType.IsUnion() && subjectType.UnionContains(patternType) {
		return
	}
	a.errorf(diag.TYP005, pos, "pattern type %s does not belong to matched type %s", patternType, subjectType)
}

func (a *Analyzer) typeCall(c *ast.CallExpr) *Type {
	if id, ok := c.Callee.(*ast.Identifier); ok {
		if builtins[id.Name] && a.lookupLocal(id.Name) == nil {
			a.callTargets[c.ExprID()] = CallTarget{Kind: CallBuiltin, Builtin: id.Name}
			if len(c.Args) != 1 {
				a.errorf(diag.TYP005, c.Pos, "%q expects 1 argument, got %d", id.Name, len(c.Args))
			}
			for _, arg := range c.Args {
				a.typeExpr(arg)
			}
			switch id.Name {
			case "print", "assert":
				return NewPrimitive(Nil)
			case "abort":
				return NewPrimitive(Never)
			case "string":
				return NewPrimitive(String)
			}
		}
		if fi := a.findFunction(id.Name); fi != nil && a.lookupLocal(id.Name) == nil {
			a.usedNames[id.Name] = true
			return a.typeFunctionCall(c, fi, id.Pos)
		}
	}
	if fa, ok := c.Callee.(*ast.FieldAccess); ok {
		return a.typeMethodCall(c, fa)
	}
	// Fall back to a value of function type.
	ft := a.typeExpr(c.Callee)
	if ft == Unknown {
		return Unknown
	}
	if ft.Kind != KindFunction {
		a.errorf(diag.TYP005, c.Pos, "cannot call non-function type %s", ft)
		return Unknown
	}
	if len(c.Args) != len(ft.Params) {
		a.errorf(diag.TYP005, c.Pos, "call expects %d argument(s), got %d", len(ft.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		at := a.typeExpr(arg)
		if i < len(ft.Params) && !a.assignable(at, ft.Params[i]) {
			a.errorf(diag.TYP005, arg.Position(), "argument %d expects %s, got %s", i, ft.Params[i], at)
		}
	}
	a.callTargets[c.ExprID()] = CallTarget{Kind: CallValue}
	return ft.Result
}

func (a *Analyzer) typeFunctionCall(c *ast.CallExpr, fi *FunctionInfo, pos token.Pos) *Type {
	sub := map[string]*Type{}
	if len(fi.TypeParams) > 0 {
		var args []*Type
		for _, ta := range c.TypeArgs {
			args = append(args, a.resolveType(ta))
		}
		if len(args) == 0 && len(c.Args) == len(fi.Params) {
			// Arity match without explicit type arguments: leave
			// unconstrained type parameters unresolved (reported as
			// mismatches only where they flow into a concrete check).
		} else if len(args) != len(fi.TypeParams) {
			a.errorf(diag.TYP005, pos, "function %q requires %d type argument(s), got %d", fi.Name, len(fi.TypeParams), len(args))
		}
		for i, tp := range fi.TypeParams {
			if i < len(args) {
				sub[tp.Name] = args[i]
				if tp.Constraint != "" {
					a.checkConstraintSatisfied(args[i], tp.Constraint, pos)
				}
			}
		}
	}
	if len(c.Args) != len(fi.Params) {
		a.errorf(diag.TYP005, pos, "function %q expects %d argument(s), got %d", fi.Name, len(fi.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		at := a.typeExpr(arg)
		if i < len(fi.Params) {
			expected := substituteType(fi.Params[i], sub)
			if !a.assignable(at, expected) {
				a.errorf(diag.TYP005, arg.Position(), "argument %d to %q expects %s, got %s", i, fi.Name, expected, at)
			}
		}
	}
	var recordedArgs []*Type
	for _, tp := range fi.TypeParams {
		if t, ok := sub[tp.Name]; ok {
			recordedArgs = append(recordedArgs, t)
		}
	}
	a.callTargets[c.ExprID()] = CallTarget{Kind: CallFunction, PackagePath: fi.PackagePath, SymbolName: fi.Name, TypeArgs: recordedArgs}
	return substituteType(fi.Result, sub)
}

func (a *Analyzer) checkConstraintSatisfied(t *Type, ifaceName string, pos token.Pos) {
	pkg, name := t.NamedKey()
	if pkg == "" {
		a.errorf(diag.TYP011, pos, "type argument %s does not implement interface %q", t, ifaceName)
		return
	}
	si := a.reg.Structs[pkg][name]
	if si == nil {
		a.errorf(diag.TYP011, pos, "type argument %s does not implement interface %q", t, ifaceName)
		return
	}
	for _, impl := range si.Implements {
		if impl == ifaceName {
			return
		}
	}
	a.errorf(diag.TYP011, pos, "type argument %s does not implement interface %q", t, ifaceName)
}

func (a *Analyzer) typeMethodCall(c *ast.CallExpr, fa *ast.FieldAccess) *Type {
	recvType := a.typeExpr(fa.X)
	if recvType == Unknown {
		return Unknown
	}
	if recvType.SymbolName == "List" || (recvType.Kind == KindApplied && recvType.Generic.SymbolName == "List") {
		// Built-in List[T].length always types as Int64.
		if fa.Field == "length" {
			return NewPrimitive(Int64)
		}
	}
	if recvType.Kind == KindTypeParameter {
		return a.typeWitnessMethodCall(c, fa, recvType)
	}
	pkg, name := recvType.NamedKey()
	if ii := a.reg.Interfaces[pkg][name]; ii != nil {
		return a.typeInterfaceMethodCall(c, fa, ii)
	}
	si := a.reg.Structs[pkg][name]
	if si == nil {
		a.errorf(diag.TYP002, fa.Pos, "unknown method %q on %s", fa.Field, recvType)
		return Unknown
	}
	ms := si.Methods[fa.Field]
	if ms == nil {
		// A function-typed field called through field access is a value
		// call, not a method call.
		if ft, ok := si.Fields[fa.Field]; ok && ft != nil && ft.Kind == KindFunction {
			if fa.ExprID() != 0 {
				a.exprTypes[fa.ExprID()] = ft
			}
			if len(c.Args) != len(ft.Params) {
				a.errorf(diag.TYP005, c.Pos, "call expects %d argument(s), got %d", len(ft.Params), len(c.Args))
			}
			for i, arg := range c.Args {
				at := a.typeExpr(arg)
				if i < len(ft.Params) && !a.assignable(at, ft.Params[i]) {
					a.errorf(diag.TYP005, arg.Position(), "argument %d expects %s, got %s", i, ft.Params[i], at)
				}
			}
			a.callTargets[c.ExprID()] = CallTarget{Kind: CallValue}
			return ft.Result
		}
		a.errorf(diag.TYP002, fa.Pos, "struct %q has no method %q", name, fa.Field)
		return Unknown
	}
	if ms.SelfMutable {
		id, isID := fa.X.(*ast.Identifier)
		if !isID {
			a.errorf(diag.TYP012, fa.Pos, "mutating method %q requires a mutable named receiver", fa.Field)
		} else if e := a.lookupLocal(id.Name); e == nil || !e.mutable {
			a.errorf(diag.TYP012, fa.Pos, "mutating method %q requires a mutable named receiver", fa.Field)
		}
	}
	var sub map[string]*Type
	if recvType.Kind == KindApplied {
		sub = substitution(si.TypeParams, recvType.Args)
	}
	if len(c.Args) != len(ms.Params) {
		a.errorf(diag.TYP005, c.Pos, "method %q expects %d argument(s), got %d", fa.Field, len(ms.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		at := a.typeExpr(arg)
		if i < len(ms.Params) {
			expected := ms.Params[i]
			if sub != nil {
				expected = substituteType(expected, sub)
			}
			if !a.assignable(at, expected) {
				a.errorf(diag.TYP005, arg.Position(), "argument %d to %q expects %s, got %s", i, fa.Field, expected, at)
			}
		}
	}
	a.callTargets[c.ExprID()] = CallTarget{Kind: CallMethod, PackagePath: pkg, SymbolName: name, MethodName: fa.Field}
	result := ms.Result
	if sub != nil {
		result = substituteType(result, sub)
	}
	return result
}

// typeInterfaceMethodCall types a call whose receiver is an
// interface-typed value; dispatch is through the value's vtable.
func (a *Analyzer) typeInterfaceMethodCall(c *ast.CallExpr, fa *ast.FieldAccess, ii *InterfaceInfo) *Type {
	ms := ii.Methods[fa.Field]
	if ms == nil {
		a.errorf(diag.TYP002, fa.Pos, "interface %q has no method %q", ii.Name, fa.Field)
		return Unknown
	}
	a.checkMethodArgs(c, fa.Field, ms, nil)
	a.callTargets[c.ExprID()] = CallTarget{Kind: CallInterface, PackagePath: ii.PackagePath, SymbolName: ii.Name, MethodName: fa.Field}
	return ms.Result
}

// typeWitnessMethodCall types a call whose receiver's type is a
// constrained type parameter; dispatch is through the witness table
// passed as the enclosing function's trailing parameter.
func (a *Analyzer) typeWitnessMethodCall(c *ast.CallExpr, fa *ast.FieldAccess, recvType *Type) *Type {
	tp := a.lookupTypeParam(recvType.ParamName)
	if tp == nil || tp.Constraint == "" {
		a.errorf(diag.TYP002, fa.Pos, "type parameter %q has no interface constraint providing method %q", recvType.ParamName, fa.Field)
		return Unknown
	}
	ii := a.findInterface(tp.Constraint)
	if ii == nil {
		a.errorf(diag.TYP003, fa.Pos, "unknown interface %q", tp.Constraint)
		return Unknown
	}
	ms := ii.Methods[fa.Field]
	if ms == nil {
		a.errorf(diag.TYP002, fa.Pos, "interface %q has no method %q", ii.Name, fa.Field)
		return Unknown
	}
	a.checkMethodArgs(c, fa.Field, ms, nil)
	a.callTargets[c.ExprID()] = CallTarget{
		Kind: CallWitness, PackagePath: ii.PackagePath, SymbolName: ii.Name,
		MethodName: fa.Field, TypeParamName: recvType.ParamName,
	}
	return ms.Result
}

// findInterface resolves an interface name, local package first, then
// the file's import bindings.
func (a *Analyzer) findInterface(name string) *InterfaceInfo {
	if ii := a.reg.Interfaces[a.pkg][name]; ii != nil {
		return ii
	}
	if b, ok := a.imports[name]; ok {
		if ii := a.reg.Interfaces[b.PackagePath][b.ImportedName]; ii != nil && ii.Public {
			return ii
		}
	}
	return nil
}

// checkMethodArgs checks a call's arguments against a method
// signature, with an optional type substitution applied per parameter.
func (a *Analyzer) checkMethodArgs(c *ast.CallExpr, name string, ms *MethodSig, sub map[string]*Type) {
	if len(c.Args) != len(ms.Params) {
		a.errorf(diag.TYP005, c.Pos, "method %q expects %d argument(s), got %d", name, len(ms.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		at := a.typeExpr(arg)
		if i < len(ms.Params) {
			expected := ms.Params[i]
			if sub != nil {
				expected = substituteType(expected, sub)
			}
			if !a.assignable(at, expected) {
				a.errorf(diag.TYP005, arg.Position(), "argument %d to %q expects %s, got %s", i, name, expected, at)
			}
		}
	}
}

// --- assignability & substitution ---

// assignable reports whether a value of type x can be used where y is
// expected: equality, union membership/widening, interface
// implementation, or Unknown on either side.
func (a *Analyzer) assignable(x, y *Type) bool {
	return assignable(a.reg, x, y)
}

func assignable(reg *Registry, x, y *Type) bool {
	if x == Unknown || y == Unknown {
		return true
	}
	if x.Equal(y) {
		return true
	}
	if y.IsUnion() {
		for _, m := range y.Members {
			if assignable(reg, x, m) {
				return true
			}
		}
	}
	if x.IsUnion() {
		for _, m := range x.Members {
			if !assignable(reg, m, y) {
				return false
			}
		}
		return true
	}
	pkg, name := x.NamedKey()
	if pkg != "" {
		if ipkg, iname := y.NamedKey(); iname != "" {
			if si := reg.Structs[pkg][name]; si != nil {
				for _, impl := range si.Implements {
					implPkg := pkg
					if reg.Interfaces[implPkg][impl] == nil {
						implPkg = ipkg
					}
					if impl == iname && reg.Interfaces[implPkg] != nil && reg.Interfaces[implPkg][impl] != nil {
						return true
					}
				}
			}
		}
	}
	return false
}

func substitution(params []*TypeParamInfo, args []*Type) map[string]*Type {
	sub := map[string]*Type{}
	for i, p := range params {
		if i < len(args) {
			sub[p.Name] = args[i]
		}
	}
	return sub
}

func substituteType(t *Type, sub map[string]*Type) *Type {
	if t == nil || len(sub) == 0 {
		return t
	}
	switch t.Kind {
	case KindTypeParameter:
		if repl, ok := sub[t.ParamName]; ok {
			return repl
		}
		return t
	case KindApplied:
		args := make([]*Type, len(t.Args))
		for i, arg := range t.Args {
			args[i] = substituteType(arg, sub)
		}
		return &Type{Kind: KindApplied, Generic: t.Generic, Args: args}
	case KindUnion:
		members := make([]*Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = substituteType(m, sub)
		}
		return &Type{Kind: KindUnion, Members: members}
	case KindFunction:
		params := make([]*Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = substituteType(p, sub)
		}
		return &Type{Kind: KindFunction, Params: params, Result: substituteType(t.Result, sub)}
	default:
		return t
	}
}
