package types

import (
	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// CallTargetKind distinguishes how a call expression's callee resolved.
type CallTargetKind int

const (
	CallBuiltin CallTargetKind = iota
	CallFunction
	CallMethod
	CallInterface // method call through an interface-typed receiver
	CallWitness   // method call through a constrained type-parameter receiver
	CallValue     // a call through a function-typed value
)

// CallTarget records what a CallExpr's callee resolved to, keyed by
// ExpressionId in TypeAnnotatedFile.CallTargets.
type CallTarget struct {
	Kind        CallTargetKind
	Builtin     string // CallBuiltin: "print" | "abort" | "string" | "assert"
	PackagePath string // CallFunction/CallMethod; CallInterface: interface's package
	SymbolName  string // CallFunction: function name; CallMethod: struct name; CallInterface/CallWitness: interface name
	MethodName  string // CallMethod/CallInterface/CallWitness
	// TypeArgs are the explicit type arguments written at a
	// CallFunction site, needed to pick witness tables for constrained
	// type parameters.
	TypeArgs []*Type
	// TypeParamName is the receiver's type-parameter name for a
	// CallWitness target, identifying which trailing witness parameter
	// carries the dispatch table.
	TypeParamName string
}

// StructReference records the resolved struct type (with any generic
// substitution applied) a StructLit expression builds, keyed by
// ExpressionId in TypeAnnotatedFile.StructRefs.
type StructReference struct {
	PackagePath string
	SymbolName  string
	Args        []*Type // concrete type arguments, empty for non-generic structs
}

// FunctionSignatureInfo is the per-function summary later phases
// need: type-parameter count, parameter count, and whether it returns
// Nil.
type FunctionSignatureInfo struct {
	Name          string
	TypeParamCount int
	ParamCount    int
	ReturnsNil    bool
}

// TypeAnnotatedFile is C7's output: the per-file typed result consumed
// by C8 (executable lowering).
type TypeAnnotatedFile struct {
	Path        string
	Package     string
	Signatures  map[string]*FunctionSignatureInfo
	Structs     map[string]*StructInfo
	Functions   []*ast.FunctionDecl
	CallTargets map[uint64]CallTarget
	StructRefs  map[uint64]StructReference
	// ExprTypes is every expression's resolved type, keyed by
	// ExpressionId. Lowering and the backend use it to decide when an
	// assignment crosses a union or interface boundary and needs
	// boxing.
	ExprTypes map[uint64]*Type
	// DeclaredTypes is every local variable declaration's final type
	// (annotation or inferred), keyed by the VarDecl's position. C9
	// uses it to know a binding's declared type at a later AssignStmt,
	// for boxing a reassigned value across a union/interface boundary.
	DeclaredTypes map[token.Pos]*Type
	// UsedNames is every bare identifier/type name this file actually
	// looked up during analysis. The driver cross-references it against
	// each ResolvedImport binding's LocalName to report IMP005 ("unused
	// import").
	UsedNames map[string]bool
}
