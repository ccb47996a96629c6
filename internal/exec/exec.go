// Package exec lowers the per-file type-annotated outputs of the
// analyzer into one closed, package-agnostic executable program the
// code emitter consumes with no further name resolution.
package exec

import (
	"fmt"
	"sort"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// FunctionRef identifies the entrypoint by package path and name.
type FunctionRef struct {
	PackagePath string
	Name        string
}

// ParamDecl is one executable function/method parameter.
type ParamDecl struct {
	Name string
	Type *types.Type
}

// ConstantDecl is one closed, typed constant ready for the backend.
type ConstantDecl struct {
	PackagePath   string
	Name          string
	Type          *types.Type
	Value         ast.Expr
	CallTargets   map[uint64]types.CallTarget
	StructRefs    map[uint64]types.StructReference
	ExprTypes     map[uint64]*types.Type
	DeclaredTypes map[token.Pos]*types.Type
}

// FunctionDecl is one closed, typed top-level function.
type FunctionDecl struct {
	PackagePath   string
	Name          string
	TypeParams    []*types.TypeParamInfo
	Params        []ParamDecl
	Result        *types.Type
	Body          *ast.Block
	CallTargets   map[uint64]types.CallTarget
	StructRefs    map[uint64]types.StructReference
	ExprTypes     map[uint64]*types.Type
	DeclaredTypes map[token.Pos]*types.Type
}

// MethodDecl is one closed, typed struct method.
type MethodDecl struct {
	Name          string
	SelfMutable   bool
	Params        []ParamDecl
	Result        *types.Type
	Body          *ast.Block
	CallTargets   map[uint64]types.CallTarget
	StructRefs    map[uint64]types.StructReference
	ExprTypes     map[uint64]*types.Type
	DeclaredTypes map[token.Pos]*types.Type
}

// StructDecl is one closed struct declaration with its methods.
type StructDecl struct {
	PackagePath string
	Name        string
	TypeParams  []*types.TypeParamInfo
	FieldOrder  []string
	Fields      map[string]*types.Type
	Methods     []*MethodDecl
	Implements  []string
}

// InterfaceDecl is one closed interface declaration; MethodOrder fixes
// the vtable slot order the backend builds for it.
type InterfaceDecl struct {
	PackagePath string
	Name        string
	MethodOrder []string
	Methods     map[string]*types.MethodSig
}

// EnumDecl is one closed enum declaration; the backend derives each
// variant's runtime tag from the enum and variant names.
type EnumDecl struct {
	PackagePath string
	Name        string
	Variants    []string
}

// Program is a closed, package-agnostic tuple the backend consumes
// with no further name resolution needed.
type Program struct {
	Entrypoint FunctionRef
	Constants  []*ConstantDecl
	Interfaces []*InterfaceDecl
	Enums      []*EnumDecl
	Structs    []*StructDecl
	Functions  []*FunctionDecl
}

// Lower builds the ExecutableProgram from every successfully
// type-analyzed file in the package set, validating the backend's
// limitations: nil assigned to a struct field, a generic or
// parametered `main`, and a `main` that does not return Nil. The
// grammar has no list-literal syntax, so no empty-list check is made.
func Lower(reg *types.Registry, files []*types.TypeAnnotatedFile, binaryPkg workspace.PackageID) (*Program, []*diag.Report) {
	var reports []*diag.Report
	prog := &Program{}

	for _, f := range files {
		pkg := f.Package
		for _, fn := range f.Functions {
			fi := reg.Functions[pkg][fn.Name]
			if fi == nil {
				continue
			}
			params := make([]ParamDecl, len(fn.Params))
			for i, p := range fn.Params {
				params[i] = ParamDecl{Name: p.Name, Type: fi.Params[i]}
			}
			reports = append(reports, rejectNilStructFields(f, fn.Body)...)
			prog.Functions = append(prog.Functions, &FunctionDecl{
				PackagePath: pkg, Name: fn.Name, TypeParams: fi.TypeParams,
				Params: params, Result: fi.Result, Body: fn.Body,
				CallTargets: f.CallTargets, StructRefs: f.StructRefs, ExprTypes: f.ExprTypes,
				DeclaredTypes: f.DeclaredTypes,
			})
		}
		for _, si := range f.Structs {
			sd := &StructDecl{
				PackagePath: pkg, Name: si.Name, TypeParams: si.TypeParams,
				FieldOrder: si.FieldOrder, Fields: si.Fields, Implements: si.Implements,
			}
			if si.Doc != nil {
				for _, m := range si.Doc.Methods {
					ms := si.Methods[m.Name]
					params := make([]ParamDecl, len(m.Params))
					for i, p := range m.Params {
						params[i] = ParamDecl{Name: p.Name, Type: ms.Params[i]}
					}
					reports = append(reports, rejectNilStructFields(f, m.Body)...)
					sd.Methods = append(sd.Methods, &MethodDecl{
						Name: m.Name, SelfMutable: m.SelfMutable, Params: params, Result: ms.Result,
						Body: m.Body, CallTargets: f.CallTargets, StructRefs: f.StructRefs, ExprTypes: f.ExprTypes,
						DeclaredTypes: f.DeclaredTypes,
					})
				}
			}
			prog.Structs = append(prog.Structs, sd)
		}
	}

	for pkg, ifaces := range reg.Interfaces {
		for name, ii := range ifaces {
			prog.Interfaces = append(prog.Interfaces, &InterfaceDecl{
				PackagePath: pkg, Name: name, MethodOrder: ii.MethodOrder, Methods: ii.Methods,
			})
		}
	}
	sort.Slice(prog.Interfaces, func(i, j int) bool {
		if prog.Interfaces[i].PackagePath != prog.Interfaces[j].PackagePath {
			return prog.Interfaces[i].PackagePath < prog.Interfaces[j].PackagePath
		}
		return prog.Interfaces[i].Name < prog.Interfaces[j].Name
	})

	for pkg, enums := range reg.Enums {
		for name, ei := range enums {
			prog.Enums = append(prog.Enums, &EnumDecl{PackagePath: pkg, Name: name, Variants: ei.Variants})
		}
	}
	sort.Slice(prog.Enums, func(i, j int) bool {
		if prog.Enums[i].PackagePath != prog.Enums[j].PackagePath {
			return prog.Enums[i].PackagePath < prog.Enums[j].PackagePath
		}
		return prog.Enums[i].Name < prog.Enums[j].Name
	})

	var constKeys []string
	constByKey := map[string]*ConstantDecl{}
	for pkg, consts := range reg.Constants {
		for name, ci := range consts {
			key := pkg + "\x00" + name
			constKeys = append(constKeys, key)
			var ct map[uint64]types.CallTarget
			var sr map[uint64]types.StructReference
			var et map[uint64]*types.Type
			var dt map[token.Pos]*types.Type
			for _, f := range files {
				if f.Package == pkg {
					ct, sr, et, dt = f.CallTargets, f.StructRefs, f.ExprTypes, f.DeclaredTypes
					break
				}
			}
			constByKey[key] = &ConstantDecl{
				PackagePath: pkg, Name: name, Type: ci.Type, Value: ci.Value,
				CallTargets: ct, StructRefs: sr, ExprTypes: et, DeclaredTypes: dt,
			}
		}
	}
	sort.Strings(constKeys)
	for _, k := range constKeys {
		prog.Constants = append(prog.Constants, constByKey[k])
	}

	sort.Slice(prog.Functions, func(i, j int) bool {
		if prog.Functions[i].PackagePath != prog.Functions[j].PackagePath {
			return prog.Functions[i].PackagePath < prog.Functions[j].PackagePath
		}
		return prog.Functions[i].Name < prog.Functions[j].Name
	})
	sort.Slice(prog.Structs, func(i, j int) bool {
		if prog.Structs[i].PackagePath != prog.Structs[j].PackagePath {
			return prog.Structs[i].PackagePath < prog.Structs[j].PackagePath
		}
		return prog.Structs[i].Name < prog.Structs[j].Name
	})

	mainFI := reg.Functions[string(binaryPkg)]["main"]
	if mainFI == nil {
		reports = append(reports, diag.New(diag.XLW005, diag.PhaseExecLower, string(binaryPkg),
			"binary package has no \"main\" function", token.Span{}))
		return prog, reports
	}
	if len(mainFI.TypeParams) > 0 || len(mainFI.Params) > 0 {
		reports = append(reports, diag.New(diag.XLW003, diag.PhaseExecLower, string(binaryPkg),
			"\"main\" must be non-generic and take no parameters", token.Span{}))
	}
	if mainFI.Result == nil || mainFI.Result.Kind != types.KindPrimitive || mainFI.Result.Prim != types.Nil {
		reports = append(reports, diag.New(diag.XLW004, diag.PhaseExecLower, string(binaryPkg),
			"\"main\" must return Nil", token.Span{}))
	}
	prog.Entrypoint = FunctionRef{PackagePath: string(binaryPkg), Name: "main"}

	return prog, reports
}

// rejectNilStructFields walks a function/method body and reports every
// struct literal field whose value is a bare nil literal: the
// backend's flat 64-bit-slot struct layout has no tag to distinguish a
// boxed-nil payload from an absent field, so lowering rejects it
// outright rather than trying to represent it.
func rejectNilStructFields(f *types.TypeAnnotatedFile, b *ast.Block) []*diag.Report {
	var reports []*diag.Report
	var walkExpr func(ast.Expr)
	var walkStmt func(ast.Stmt)
	walkBlock := func(blk *ast.Block) {
		if blk == nil {
			return
		}
		for _, s := range blk.Stmts {
			walkStmt(s)
		}
	}
	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *ast.UnaryExpr:
			walkExpr(v.X)
		case *ast.BinaryExpr:
			walkExpr(v.X)
			walkExpr(v.Y)
		case *ast.MatchesExpr:
			walkExpr(v.X)
		case *ast.CallExpr:
			walkExpr(v.Callee)
			for _, a := range v.Args {
				walkExpr(a)
			}
		case *ast.FieldAccess:
			walkExpr(v.X)
		case *ast.StructLit:
			for _, field := range v.Fields {
				if _, isNil := field.Value.(*ast.NilLit); isNil {
					reports = append(reports, diag.New(diag.XLW002, diag.PhaseExecLower, f.Path,
						fmt.Sprintf("field %q of %s may not be initialized with a bare nil literal", field.Name, v.Type),
						token.Span{Start: field.Pos, End: field.Pos}))
				}
				walkExpr(field.Value)
			}
		case *ast.IfExpr:
			walkExpr(v.Cond)
			walkBlock(v.Then)
			switch e := v.Else.(type) {
			case *ast.IfExpr:
				walkExpr(e)
			case *ast.Block:
				walkBlock(e)
			}
		case *ast.MatchExpr:
			walkExpr(v.Subject)
			for _, arm := range v.Arms {
				walkExpr(arm.Body)
			}
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch v := s.(type) {
		case *ast.ExprStmt:
			walkExpr(v.X)
		case *ast.VarDecl:
			walkExpr(v.Value)
		case *ast.AssignStmt:
			walkExpr(v.Value)
		case *ast.ReturnStmt:
			if v.Value != nil {
				walkExpr(v.Value)
			}
		case *ast.WhileStmt:
			walkExpr(v.Cond)
			walkBlock(v.Body)
		}
	}
	walkBlock(b)
	return reports
}
