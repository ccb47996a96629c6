package types

import (
	"fmt"
	"sort"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// TypedPublicSymbolTable holds every public declaration across the
// package set, indexed and, for constants, typed by dependency-ordered
// fixed-point iteration.
type TypedPublicSymbolTable struct {
	Registry *Registry
}

// Build constructs the TypedPublicSymbolTable for a package set:
// index declarations, resolve signatures, then type constants in
// Tarjan SCC topological order, each component iterated to a bounded
// fixed point.
func Build(units []*workspace.PackageUnit) (*TypedPublicSymbolTable, []*diag.Report) {
	reg := newRegistry()
	var reports []*diag.Report

	for _, u := range units {
		indexDeclShapes(reg, u, &reports)
	}
	for _, u := range units {
		resolveDeclSignatures(reg, u, &reports)
	}

	order, sccErr := constantTopoOrder(reg)
	reports = append(reports, sccErr...)

	for _, component := range order {
		// A singleton component with no self-dependency converges in
		// one pass: the authoritative pass below is its only analysis.
		if len(component) == 1 {
			k := component[0]
			ci := reg.Constants[k.pkg][k.name]
			if !collectConstRefs(reg, k.pkg, ci.Imports, ci.Value)[k] {
				ci.Type = typeConstantExpr(reg, ci, &reports)
				checkConstantOverflow(reg, ci, &reports)
				continue
			}
		}
		// Iterate to a fixed point with diagnostics discarded; only the
		// final authoritative pass below reports, so a constant that
		// needed several rounds to settle is not diagnosed once per
		// round.
		rounds := len(component) + 1
		for round := 0; round < rounds; round++ {
			changed := false
			var scratch []*diag.Report
			for _, key := range component {
				ci := reg.Constants[key.pkg][key.name]
				before := ci.Type
				ci.Type = typeConstantExpr(reg, ci, &scratch)
				if before == nil || !before.Equal(ci.Type) {
					changed = true
				}
			}
			if !changed && round > 0 {
				break
			}
		}
		for _, key := range component {
			ci := reg.Constants[key.pkg][key.name]
			ci.Type = typeConstantExpr(reg, ci, &reports)
			checkConstantOverflow(reg, ci, &reports)
		}
	}

	return &TypedPublicSymbolTable{Registry: reg}, reports
}

// indexDeclShapes registers every declaration's name and shape
// (fields/methods/signatures left unresolved to *Type until the second
// pass, so mutually recursive types and functions can see each other).
func indexDeclShapes(reg *Registry, u *workspace.PackageUnit, reports *[]*diag.Report) {
	pkg := string(u.Package)
	if u.Syntax == nil {
		return
	}
	fileImports := bindingMap(BindingsFromFile(u.Syntax))
	if reg.Structs[pkg] == nil {
		reg.Structs[pkg] = map[string]*StructInfo{}
		reg.Interfaces[pkg] = map[string]*InterfaceInfo{}
		reg.Enums[pkg] = map[string]*EnumInfo{}
		reg.Unions[pkg] = map[string]*UnionInfo{}
		reg.Functions[pkg] = map[string]*FunctionInfo{}
		reg.Constants[pkg] = map[string]*ConstantInfo{}
	}
	declared := func(name string) bool {
		return reg.Structs[pkg][name] != nil || reg.Interfaces[pkg][name] != nil ||
			reg.Enums[pkg][name] != nil || reg.Unions[pkg][name] != nil ||
			reg.Functions[pkg][name] != nil || reg.Constants[pkg][name] != nil
	}
	for _, d := range u.Syntax.Decls {
		switch v := d.(type) {
		case *ast.TypeDecl:
			if declared(v.Name) {
				*reports = append(*reports, diag.New(diag.SYM001, diag.PhaseSymbols, u.Path,
					fmt.Sprintf("duplicate declaration of %q in package %q", v.Name, pkg), token.Span{Start: v.Pos, End: v.Pos}))
				continue
			}
			switch v.Kind {
			case ast.StructKind:
				reg.Structs[pkg][v.Name] = &StructInfo{
					PackagePath: pkg, Name: v.Name, Public: v.Public,
					Fields: map[string]*Type{}, Methods: map[string]*MethodSig{}, Doc: v,
				}
			case ast.InterfaceKind:
				reg.Interfaces[pkg][v.Name] = &InterfaceInfo{
					PackagePath: pkg, Name: v.Name, Public: v.Public, Methods: map[string]*MethodSig{}, Doc: v,
				}
			case ast.EnumKind:
				variants := make([]string, len(v.Variants))
				for i, ev := range v.Variants {
					variants[i] = ev.Name
				}
				reg.Enums[pkg][v.Name] = &EnumInfo{PackagePath: pkg, Name: v.Name, Public: v.Public, Variants: variants}
			case ast.UnionKind:
				reg.Unions[pkg][v.Name] = &UnionInfo{PackagePath: pkg, Name: v.Name, Public: v.Public, Doc: v}
			}
		case *ast.FunctionDecl:
			if declared(v.Name) {
				*reports = append(*reports, diag.New(diag.SYM001, diag.PhaseSymbols, u.Path,
					fmt.Sprintf("duplicate declaration of %q in package %q", v.Name, pkg), token.Span{Start: v.Pos, End: v.Pos}))
				continue
			}
			reg.Functions[pkg][v.Name] = &FunctionInfo{PackagePath: pkg, Name: v.Name, Public: v.Public, Doc: v}
		case *ast.ConstantDecl:
			if declared(v.Name) {
				*reports = append(*reports, diag.New(diag.SYM001, diag.PhaseSymbols, u.Path,
					fmt.Sprintf("duplicate declaration of %q in package %q", v.Name, pkg), token.Span{Start: v.Pos, End: v.Pos}))
				continue
			}
			reg.Constants[pkg][v.Name] = &ConstantInfo{PackagePath: pkg, Name: v.Name, Public: v.Public, Value: v.Value, Pos: v.Pos, Imports: fileImports}
		}
	}
}

// resolveDeclSignatures fills in the *Type-level shape of every
// declaration indexed by indexDeclShapes: struct fields, interface
// method signatures, union member sets, and function signatures. The
// declared signature is authoritative.
func resolveDeclSignatures(reg *Registry, u *workspace.PackageUnit, reports *[]*diag.Report) {
	pkg := string(u.Package)
	if u.Syntax == nil {
		return
	}
	fileImports := bindingMap(BindingsFromFile(u.Syntax))
	for _, d := range u.Syntax.Decls {
		switch v := d.(type) {
		case *ast.TypeDecl:
			switch v.Kind {
			case ast.StructKind:
				si := reg.Structs[pkg][v.Name]
				if si == nil || si.Doc != v {
					continue // duplicate declaration, reported during indexing
				}
				tpNames := map[string]bool{}
				for _, tp := range v.TypeParams {
					constraint := ""
					if tp.Constraint != nil && len(tp.Constraint.Members) == 1 {
						constraint = tp.Constraint.Members[0].Name
					}
					si.TypeParams = append(si.TypeParams, &TypeParamInfo{Name: tp.Name, Constraint: constraint})
					tpNames[tp.Name] = true
				}
				for _, f := range v.Fields {
					si.FieldOrder = append(si.FieldOrder, f.Name)
					si.Fields[f.Name] = reg.resolveTypeName(pkg, u.Path, f.Type, tpNames, fileImports, reports)
				}
				for _, m := range v.Methods {
					si.Methods[m.Name] = resolveMethodSig(reg, pkg, u.Path, m.Name, m.SelfMutable, m.Params, m.Result, tpNames, fileImports, reports)
				}
				for _, im := range v.Implements {
					if len(im.Members) == 1 {
						si.Implements = append(si.Implements, im.Members[0].Name)
					}
				}
			case ast.InterfaceKind:
				ii := reg.Interfaces[pkg][v.Name]
				if ii == nil || ii.Doc != v {
					continue
				}
				for _, m := range v.IfaceMethods {
					ii.MethodOrder = append(ii.MethodOrder, m.Name)
					ii.Methods[m.Name] = resolveMethodSig(reg, pkg, u.Path, m.Name, m.SelfMutable, m.Params, m.Result, nil, fileImports, reports)
				}
			case ast.UnionKind:
				ui := reg.Unions[pkg][v.Name]
				if ui == nil || ui.Doc != v {
					continue
				}
				members := make([]*Type, len(v.Union))
				for i, m := range v.Union {
					members[i] = reg.resolveTypeName(pkg, u.Path, m, nil, fileImports, reports)
				}
				ui.Union = (&Type{Kind: KindUnion, Members: members}).Normalize()
			}
		case *ast.FunctionDecl:
			fi := reg.Functions[pkg][v.Name]
			if fi == nil || fi.Doc != v {
				continue // duplicate declaration, reported during indexing
			}
			tpNames := map[string]bool{}
			for _, tp := range v.TypeParams {
				constraint := ""
				if tp.Constraint != nil && len(tp.Constraint.Members) == 1 {
					constraint = tp.Constraint.Members[0].Name
				}
				fi.TypeParams = append(fi.TypeParams, &TypeParamInfo{Name: tp.Name, Constraint: constraint})
				tpNames[tp.Name] = true
			}
			for _, p := range v.Params {
				fi.Params = append(fi.Params, reg.resolveTypeName(pkg, u.Path, p.Type, tpNames, fileImports, reports))
			}
			fi.Result = reg.resolveTypeName(pkg, u.Path, v.Result, tpNames, fileImports, reports)
		}
	}
}

func resolveMethodSig(reg *Registry, pkg, path, name string, selfMutable bool, params []*ast.Param, result *ast.TypeName, tpNames map[string]bool, imports map[string]ImportBinding, reports *[]*diag.Report) *MethodSig {
	ms := &MethodSig{Name: name, SelfMutable: selfMutable}
	for _, p := range params {
		ms.Params = append(ms.Params, reg.resolveTypeName(pkg, path, p.Type, tpNames, imports, reports))
	}
	ms.Result = reg.resolveTypeName(pkg, path, result, tpNames, imports, reports)
	return ms
}

type constKey struct{ pkg, name string }

// constantTopoOrder builds the constant-dependency graph (following
// local and cross-package constant references within each constant's
// initializer expression) and returns its strongly connected
// components in topological order. Tarjan rather than a plain DFS
// cycle check: unlike the package-import graph, a dependency cycle
// among constants must still produce an ordered, iterable component
// rather than a bare diagnostic, since each component is iterated to
// a fixed point, cyclic or not.
func constantTopoOrder(reg *Registry) ([][]constKey, []*diag.Report) {
	deps := map[constKey]map[constKey]bool{}
	var keys []constKey
	for pkg, consts := range reg.Constants {
		for name, ci := range consts {
			k := constKey{pkg, name}
			keys = append(keys, k)
			deps[k] = collectConstRefs(reg, pkg, ci.Imports, ci.Value)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pkg != keys[j].pkg {
			return keys[i].pkg < keys[j].pkg
		}
		return keys[i].name < keys[j].name
	})

	// Tarjan's SCC algorithm.
	index := 0
	indices := map[constKey]int{}
	lowlink := map[constKey]int{}
	onStack := map[constKey]bool{}
	var stack []constKey
	var components [][]constKey

	var strongconnect func(v constKey)
	strongconnect = func(v constKey) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		var ws []constKey
		for w := range deps[v] {
			ws = append(ws, w)
		}
		sort.Slice(ws, func(i, j int) bool {
			if ws[i].pkg != ws[j].pkg {
				return ws[i].pkg < ws[j].pkg
			}
			return ws[i].name < ws[j].name
		})
		for _, w := range ws {
			if _, ok := deps[w]; !ok {
				continue // unresolved reference; diagnosed elsewhere
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []constKey
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}

	for _, k := range keys {
		if _, seen := indices[k]; !seen {
			strongconnect(k)
		}
	}

	// Tarjan emits a component only after every component it depends on,
	// so components is already in dependency-first order for the
	// fixed-point pass.
	return components, nil
}

// collectConstRefs walks a constant's initializer expression and
// collects every constant name it references, looking through local
// names, imported names, struct literals, field access, calls, and
// match arms. A non-local name is followed only through the declaring
// file's import bindings (alias substituted through to the declared
// name in the target package).
func collectConstRefs(reg *Registry, pkg string, imports map[string]ImportBinding, e ast.Expr) map[constKey]bool {
	refs := map[constKey]bool{}
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *ast.Identifier:
			if _, ok := reg.Constants[pkg][v.Name]; ok {
				refs[constKey{pkg, v.Name}] = true
				return
			}
			if b, ok := imports[v.Name]; ok {
				if ci := reg.Constants[b.PackagePath][b.ImportedName]; ci != nil && ci.Public {
					refs[constKey{b.PackagePath, b.ImportedName}] = true
				}
			}
		case *ast.UnaryExpr:
			walk(v.X)
		case *ast.BinaryExpr:
			walk(v.X)
			walk(v.Y)
		case *ast.MatchesExpr:
			walk(v.X)
		case *ast.CallExpr:
			walk(v.Callee)
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.FieldAccess:
			walk(v.X)
		case *ast.StructLit:
			for _, f := range v.Fields {
				walk(f.Value)
			}
		case *ast.IfExpr:
			walk(v.Cond)
			for _, s := range v.Then.Stmts {
				walkStmt(s, walk)
			}
			switch e := v.Else.(type) {
			case *ast.IfExpr:
				walk(e)
			case *ast.Block:
				for _, s := range e.Stmts {
					walkStmt(s, walk)
				}
			}
		case *ast.MatchExpr:
			walk(v.Subject)
			for _, arm := range v.Arms {
				walk(arm.Body)
			}
		}
	}
	walk(e)
	return refs
}

func walkStmt(s ast.Stmt, walk func(ast.Expr)) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		walk(v.X)
	case *ast.VarDecl:
		walk(v.Value)
	case *ast.AssignStmt:
		walk(v.Value)
	case *ast.ReturnStmt:
		if v.Value != nil {
			walk(v.Value)
		}
	case *ast.WhileStmt:
		walk(v.Cond)
		for _, s2 := range v.Body.Stmts {
			walkStmt(s2, walk)
		}
	}
}

// typeConstantExpr computes one round's type for a constant's
// initializer, using a dedicated const-context analyzer instance with
// no local-variable scope (constants may only reference other
// constants and literals).
func typeConstantExpr(reg *Registry, ci *ConstantInfo, reports *[]*diag.Report) *Type {
	a := newAnalyzer(reg, ci.PackagePath, fmt.Sprintf("%s::%s", ci.PackagePath, ci.Name))
	a.imports = ci.Imports
	t := a.typeExpr(ci.Value)
	*reports = append(*reports, a.reports...)
	if t == nil {
		return Unknown
	}
	return t
}

// checkConstantOverflow folds an Int64-typed constant's initializer
// and diagnoses signed-64-bit overflow rather than silently wrapping.
// Non-foldable expressions (calls, match, non-constant names) are left
// to runtime semantics.
func checkConstantOverflow(reg *Registry, ci *ConstantInfo, reports *[]*diag.Report) {
	if ci.Type == nil || ci.Type.Kind != KindPrimitive || ci.Type.Prim != Int64 {
		return
	}
	visiting := map[constKey]bool{}
	if _, _, overflow := foldConstInt(reg, ci.PackagePath, ci.Imports, ci.Value, visiting); overflow {
		*reports = append(*reports, diag.New(diag.TYP018, diag.PhaseSymbols, ci.PackagePath,
			fmt.Sprintf("constant %q expression overflows a signed 64-bit integer", ci.Name),
			token.Span{Start: ci.Pos, End: ci.Pos}))
	}
}

// foldConstInt evaluates the integer-arithmetic subset of constant
// expressions. ok is false for forms it cannot fold; overflow is true
// when any folded step leaves the signed 64-bit range.
func foldConstInt(reg *Registry, pkg string, imports map[string]ImportBinding, e ast.Expr, visiting map[constKey]bool) (val int64, ok bool, overflow bool) {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Value, true, false
	case *ast.UnaryExpr:
		if v.Op != "-" {
			return 0, false, false
		}
		x, ok, ov := foldConstInt(reg, pkg, imports, v.X, visiting)
		if !ok || ov {
			return 0, ok, ov
		}
		if x == -9223372036854775808 {
			return 0, true, true
		}
		return -x, true, false
	case *ast.Identifier:
		ref := lookupBoundConstant(reg, pkg, imports, v.Name)
		if ref == nil {
			return 0, false, false
		}
		k := constKey{ref.PackagePath, ref.Name}
		if visiting[k] {
			return 0, false, false
		}
		visiting[k] = true
		defer delete(visiting, k)
		return foldConstInt(reg, ref.PackagePath, ref.Imports, ref.Value, visiting)
	case *ast.BinaryExpr:
		x, okX, ovX := foldConstInt(reg, pkg, imports, v.X, visiting)
		y, okY, ovY := foldConstInt(reg, pkg, imports, v.Y, visiting)
		if ovX || ovY {
			return 0, okX && okY, true
		}
		if !okX || !okY {
			return 0, false, false
		}
		switch v.Op {
		case "+":
			r := x + y
			return r, true, (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0)
		case "-":
			r := x - y
			return r, true, (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0)
		case "*":
			if x == 0 || y == 0 {
				return 0, true, false
			}
			if y == -1 {
				return -x, true, x == -9223372036854775808
			}
			r := x * y
			return r, true, r/y != x
		case "/":
			if y == 0 {
				return 0, false, false // runtime trap territory, not overflow
			}
			if x == -9223372036854775808 && y == -1 {
				return 0, true, true
			}
			return x / y, true, false
		default:
			return 0, false, false
		}
	default:
		return 0, false, false
	}
}

func lookupBoundConstant(reg *Registry, pkg string, imports map[string]ImportBinding, name string) *ConstantInfo {
	if ci := reg.Constants[pkg][name]; ci != nil {
		return ci
	}
	if b, ok := imports[name]; ok {
		if ci := reg.Constants[b.PackagePath][b.ImportedName]; ci != nil && ci.Public {
			return ci
		}
	}
	return nil
}
