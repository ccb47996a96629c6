// Package types implements cross-file public-symbol typing and the
// per-file type analyzer.
package types

import (
	"sort"
	"strings"
)

// Kind distinguishes the tagged variants of Type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindFunction
	KindTypeParameter
	KindNamed
	KindApplied
	KindUnion
	// KindUnknown suppresses cascading diagnostics after an earlier
	// error; it is bidirectionally assignable to everything.
	KindUnknown
)

// Primitive names the built-in scalar types.
type Primitive string

const (
	Int64   Primitive = "Int64"
	Boolean Primitive = "Boolean"
	String  Primitive = "String"
	Nil     Primitive = "Nil"
	Never   Primitive = "Never"
)

// Type is a resolved nominal type, as opposed to ast.TypeName which is
// merely the written syntax.
type Type struct {
	Kind Kind

	// KindPrimitive
	Prim Primitive

	// KindFunction
	TypeParams []string
	Params     []*Type
	Result     *Type

	// KindTypeParameter
	ParamName string

	// KindNamed: a package-qualified struct/enum/interface/union
	// declaration with no type arguments applied (or a non-generic one).
	PackagePath string
	SymbolName  string

	// KindApplied: a generic Named type with concrete arguments.
	Generic *Type
	Args    []*Type

	// KindUnion
	Members []*Type
}

// NewPrimitive builds a primitive Type.
func NewPrimitive(p Primitive) *Type { return &Type{Kind: KindPrimitive, Prim: p} }

// NewTypeParameter builds the Type a type-parameter name resolves to.
func NewTypeParameter(name string) *Type { return &Type{Kind: KindTypeParameter, ParamName: name} }

// NewNamed builds a non-generic (or unapplied generic) nominal type.
func NewNamed(packagePath, symbolName string) *Type {
	return &Type{Kind: KindNamed, PackagePath: packagePath, SymbolName: symbolName}
}

// Unknown is the error-suppression sentinel type.
var Unknown = &Type{Kind: KindUnknown}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindPrimitive:
		return string(t.Prim)
	case KindTypeParameter:
		return t.ParamName
	case KindNamed:
		return t.SymbolName
	case KindApplied:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return t.Generic.String() + "[" + strings.Join(parts, ", ") + "]"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return strings.Join(parts, " | ")
	case KindFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "function(" + strings.Join(parts, ", ") + ") -> " + t.Result.String()
	default:
		return "Unknown"
	}
}

// Equal reports structural/nominal equality after normalization. Two
// KindUnion types are equal iff they contain the same member set
// regardless of written order.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind == KindUnknown || other.Kind == KindUnknown {
		return true
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Prim == other.Prim
	case KindTypeParameter:
		return t.ParamName == other.ParamName
	case KindNamed:
		return t.PackagePath == other.PackagePath && t.SymbolName == other.SymbolName
	case KindApplied:
		if !t.Generic.Equal(other.Generic) || len(t.Args) != len(other.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(other.Args[i]) {
				return false
			}
		}
		return true
	case KindUnion:
		if len(t.Members) != len(other.Members) {
			return false
		}
		used := make([]bool, len(other.Members))
		for _, m := range t.Members {
			found := false
			for i, om := range other.Members {
				if !used[i] && m.Equal(om) {
					used[i] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KindFunction:
		if len(t.Params) != len(other.Params) || !t.Result.Equal(other.Result) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(other.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsUnion reports whether t is a union type.
func (t *Type) IsUnion() bool { return t != nil && t.Kind == KindUnion }

// UnionContains reports whether a union type t has member equal to x.
func (t *Type) UnionContains(x *Type) bool {
	if !t.IsUnion() {
		return false
	}
	for _, m := range t.Members {
		if m.Equal(x) {
			return true
		}
	}
	return false
}

// Normalize canonicalizes a union: flattened (nested unions absorbed
// into their parent), de-duplicated by display key, and collapsed to
// its sole member when only one remains. Members are additionally
// sorted by display key so String() is stable regardless of the order
// a union's members were written or constructed in. Non-union types
// are returned unchanged.
func (t *Type) Normalize() *Type {
	if t == nil || t.Kind != KindUnion {
		return t
	}
	var flat []*Type
	seen := map[string]bool{}
	var flatten func(*Type)
	flatten = func(m *Type) {
		nm := m.Normalize()
		if nm.Kind == KindUnion {
			for _, mm := range nm.Members {
				flatten(mm)
			}
			return
		}
		key := nm.String()
		if seen[key] {
			return
		}
		seen[key] = true
		flat = append(flat, nm)
	}
	for _, m := range t.Members {
		flatten(m)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].String() < flat[j].String() })
	if len(flat) == 1 {
		return flat[0]
	}
	return &Type{Kind: KindUnion, Members: flat}
}

// NamedKey returns the symbol's PackagePath/SymbolName identity for a
// Named or Applied type (applied types key on their underlying
// generic), or ("", "") for non-nominal types.
func (t *Type) NamedKey() (string, string) {
	switch t.Kind {
	case KindNamed:
		return t.PackagePath, t.SymbolName
	case KindApplied:
		return t.Generic.NamedKey()
	default:
		return "", ""
	}
}
