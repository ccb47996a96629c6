package types

import (
	"fmt"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// MethodSig is a resolved method signature, shared by struct methods
// and interface method requirements.
type MethodSig struct {
	Name        string
	SelfMutable bool
	Params      []*Type
	Result      *Type
}

// StructInfo is a resolved struct declaration.
type StructInfo struct {
	PackagePath string
	Name        string
	TypeParams  []*TypeParamInfo
	FieldOrder  []string
	Fields      map[string]*Type
	Methods     map[string]*MethodSig
	Implements  []string // interface SymbolNames this struct declares conformance to
	Public      bool
	Doc         *ast.TypeDecl
}

// TypeParamInfo is one generic type parameter with its optional
// interface constraint.
type TypeParamInfo struct {
	Name       string
	Constraint string // interface SymbolName, "" if unconstrained
}

// InterfaceInfo is a resolved interface declaration; MethodOrder is the
// declaration order used to build vtables (C9).
type InterfaceInfo struct {
	PackagePath string
	Name        string
	MethodOrder []string
	Methods     map[string]*MethodSig
	Public      bool
	Doc         *ast.TypeDecl
}

// EnumInfo is a resolved enum declaration.
type EnumInfo struct {
	PackagePath string
	Name        string
	Variants    []string
	Public      bool
}

// UnionInfo is a resolved named union declaration (`type X :: union A | B`).
type UnionInfo struct {
	PackagePath string
	Name        string
	Union       *Type
	Public      bool
	Doc         *ast.TypeDecl
}

// FunctionInfo is a resolved function signature.
type FunctionInfo struct {
	PackagePath string
	Name        string
	TypeParams  []*TypeParamInfo
	Params      []*Type
	Result      *Type
	Public      bool
	Doc         *ast.FunctionDecl
}

// ConstantInfo is a resolved constant; Type is filled in by C6's
// fixed-point iteration. Imports carries the declaring file's import
// bindings so the constant's initializer resolves names in that
// file's scope, not a global one.
type ConstantInfo struct {
	PackagePath string
	Name        string
	Type        *Type
	Value       ast.Expr
	Public      bool
	Pos         token.Pos
	Imports     map[string]ImportBinding
}

// Registry collects every public-symbol declaration across the
// package set being typed, keyed by (packagePath, name).
type Registry struct {
	Structs    map[string]map[string]*StructInfo
	Interfaces map[string]map[string]*InterfaceInfo
	Enums      map[string]map[string]*EnumInfo
	Unions     map[string]map[string]*UnionInfo
	Functions  map[string]map[string]*FunctionInfo
	Constants  map[string]map[string]*ConstantInfo
}

func newRegistry() *Registry {
	return &Registry{
		Structs:    map[string]map[string]*StructInfo{},
		Interfaces: map[string]map[string]*InterfaceInfo{},
		Enums:      map[string]map[string]*EnumInfo{},
		Unions:     map[string]map[string]*UnionInfo{},
		Functions:  map[string]map[string]*FunctionInfo{},
		Constants:  map[string]map[string]*ConstantInfo{},
	}
}

// LookupStruct finds a struct declaration by package path and name.
func (r *Registry) LookupStruct(pkg, name string) *StructInfo { return r.Structs[pkg][name] }

// LookupInterface finds an interface declaration by package path and name.
func (r *Registry) LookupInterface(pkg, name string) *InterfaceInfo { return r.Interfaces[pkg][name] }

// LookupEnum finds an enum declaration by package path and name.
func (r *Registry) LookupEnum(pkg, name string) *EnumInfo { return r.Enums[pkg][name] }

// LookupUnion finds a named union declaration by package path and name.
func (r *Registry) LookupUnion(pkg, name string) *UnionInfo { return r.Unions[pkg][name] }

// LookupFunction finds a function declaration by package path and name.
func (r *Registry) LookupFunction(pkg, name string) *FunctionInfo { return r.Functions[pkg][name] }

// LookupConstant finds a constant declaration by package path and name.
func (r *Registry) LookupConstant(pkg, name string) *ConstantInfo { return r.Constants[pkg][name] }

// resolveTypeName converts a written ast.TypeName into a *Type, given
// the active type-parameter scope (names that resolve to
// TypeParameter rather than a Named/Applied lookup) and the consuming
// file's import bindings. Unresolvable names produce Unknown plus a
// TYP003 diagnostic.
func (r *Registry) resolveTypeName(pkg, path string, tn *ast.TypeName, typeParams map[string]bool, imports map[string]ImportBinding, reports *[]*diag.Report) *Type {
	if tn == nil {
		return Unknown
	}
	if len(tn.Members) == 1 {
		return r.resolveNamedType(pkg, path, tn.Members[0], typeParams, imports, reports)
	}
	members := make([]*Type, len(tn.Members))
	for i, m := range tn.Members {
		members[i] = r.resolveNamedType(pkg, path, m, typeParams, imports, reports)
	}
	return (&Type{Kind: KindUnion, Members: members}).Normalize()
}

func (r *Registry) resolveNamedType(pkg, path string, nt *ast.NamedType, typeParams map[string]bool, imports map[string]ImportBinding, reports *[]*diag.Report) *Type {
	if typeParams[nt.Name] {
		if len(nt.Args) > 0 {
			*reports = append(*reports, diag.New(diag.TYP003, diag.PhaseTypeCheck, path,
				fmt.Sprintf("type parameter %q may not carry type arguments", nt.Name), token.Span{Start: nt.Pos, End: nt.Pos}))
		}
		return NewTypeParameter(nt.Name)
	}
	switch nt.Name {
	case "Int64", "Boolean", "String", "Nil", "Never":
		return NewPrimitive(Primitive(nt.Name))
	case "int64":
		return NewPrimitive(Int64)
	case "boolean":
		return NewPrimitive(Boolean)
	case "string":
		return NewPrimitive(String)
	case "nil":
		return NewPrimitive(Nil)
	case "never":
		return NewPrimitive(Never)
	}

	targetPkg, declName, ok := r.findTypeSymbol(pkg, nt.Name, imports)
	if !ok {
		*reports = append(*reports, diag.New(diag.TYP003, diag.PhaseTypeCheck, path,
			fmt.Sprintf("unknown type %q", nt.Name), token.Span{Start: nt.Pos, End: nt.Pos}))
		return Unknown
	}
	base := NewNamed(targetPkg, declName)
	if u := r.Unions[targetPkg][declName]; u != nil {
		base = u.Union
	}
	if len(nt.Args) == 0 {
		return base
	}
	args := make([]*Type, len(nt.Args))
	for i, a := range nt.Args {
		args[i] = r.resolveTypeName(pkg, path, a, typeParams, imports, reports)
	}
	return &Type{Kind: KindApplied, Generic: base, Args: args}
}

// hasTypeSymbol reports whether pkg declares a type-like symbol under
// the given name.
func (r *Registry) hasTypeSymbol(pkg, name string) bool {
	return r.Structs[pkg][name] != nil || r.Interfaces[pkg][name] != nil ||
		r.Enums[pkg][name] != nil || r.Unions[pkg][name] != nil
}

// findTypeSymbol resolves a written type name to its defining package
// and declared name: the asking package's own declarations first, then
// the asking file's import bindings (whose local alias may differ from
// the declared name). Names of packages the file never imported are
// out of scope.
func (r *Registry) findTypeSymbol(askingPkg, name string, imports map[string]ImportBinding) (string, string, bool) {
	if r.hasTypeSymbol(askingPkg, name) {
		return askingPkg, name, true
	}
	if b, ok := imports[name]; ok && r.hasTypeSymbol(b.PackagePath, b.ImportedName) {
		return b.PackagePath, b.ImportedName, true
	}
	return "", "", false
}
