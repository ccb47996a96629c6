// Package ast defines the syntax tree produced by the parser: ordered
// top-level declarations (type, constant, function, import, exports),
// each carrying the raw, unresolved type names written by the
// programmer.
package ast

import "github.com/isaacparker0/coppice-sub000/internal/token"

// Node is the base interface implemented by every syntax tree node.
type Node interface {
	Position() token.Pos
}

// Decl is a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// File is one parsed source file: an ordered list of declarations.
type File struct {
	Path  string
	Decls []Decl
	Pos   token.Pos
}

func (f *File) Position() token.Pos { return f.Pos }

// DeclKind tags which kind of type declaration a TypeDecl carries.
type DeclKind int

const (
	StructKind DeclKind = iota
	EnumKind
	InterfaceKind
	UnionKind
)

// TypeParam is a generic type parameter, optionally constrained by an
// interface (`T` or `T: Interface`).
type TypeParam struct {
	Name       string
	Constraint *TypeName // nil if unconstrained
	Pos        token.Pos
}

// TypeDecl is `[public] type Name[:: struct|enum|interface|union body]`.
type TypeDecl struct {
	Public      bool
	Doc         string
	Name        string
	TypeParams  []*TypeParam
	Kind        DeclKind
	Implements  []*TypeName
	Fields      []*FieldDecl     // StructKind
	Methods     []*MethodDecl    // StructKind
	Variants    []*EnumVariant   // EnumKind
	IfaceMethods []*IfaceMethod  // InterfaceKind
	Union       []*TypeName      // UnionKind, members joined by `|`
	Pos         token.Pos
}

func (d *TypeDecl) declNode()          {}
func (d *TypeDecl) Position() token.Pos { return d.Pos }

// FieldDecl is a single struct field.
type FieldDecl struct {
	Name string
	Type *TypeName
	Pos  token.Pos
}

func (f *FieldDecl) Position() token.Pos { return f.Pos }

// Param is a function or method parameter.
type Param struct {
	Name string
	Type *TypeName
	Pos  token.Pos
}

func (p *Param) Position() token.Pos { return p.Pos }

// MethodDecl is a struct method.
type MethodDecl struct {
	Doc         string
	Name        string
	SelfMutable bool
	Params      []*Param
	Result      *TypeName
	Body        *Block
	Pos         token.Pos
}

func (m *MethodDecl) Position() token.Pos { return m.Pos }

// IfaceMethod is an interface method signature (no body).
type IfaceMethod struct {
	Name        string
	SelfMutable bool
	Params      []*Param
	Result      *TypeName
	Pos         token.Pos
}

func (m *IfaceMethod) Position() token.Pos { return m.Pos }

// EnumVariant is a single named enum variant.
type EnumVariant struct {
	Name string
	Pos  token.Pos
}

func (e *EnumVariant) Position() token.Pos { return e.Pos }

// ConstantDecl is `[public] constant NAME [:: Type] = expr`.
type ConstantDecl struct {
	Public bool
	Doc    string
	Name   string
	Type   *TypeName // optional explicit annotation
	Value  Expr
	Pos    token.Pos
}

func (c *ConstantDecl) declNode()           {}
func (c *ConstantDecl) Position() token.Pos { return c.Pos }

// FunctionDecl is `[public] function name[TypeParams](params) -> Result { body }`.
type FunctionDecl struct {
	Public     bool
	Doc        string
	Name       string
	TypeParams []*TypeParam
	Params     []*Param
	Result     *TypeName
	Body       *Block
	Pos        token.Pos
}

func (f *FunctionDecl) declNode()           {}
func (f *FunctionDecl) Position() token.Pos { return f.Pos }

// ImportBinding is one `a` or `b as c` entry of an import list.
type ImportBinding struct {
	Imported string
	Local    string
	Pos      token.Pos
}

func (b *ImportBinding) Position() token.Pos { return b.Pos }

// ImportDecl is `import "pkg.path" { a, b as c }`.
type ImportDecl struct {
	PackagePath string
	Bindings    []*ImportBinding
	Pos         token.Pos
}

func (i *ImportDecl) declNode()           {}
func (i *ImportDecl) Position() token.Pos { return i.Pos }

// ExportsDecl is `exports { a, b, c }`.
type ExportsDecl struct {
	Names []string
	Pos   token.Pos
}

func (e *ExportsDecl) declNode()           {}
func (e *ExportsDecl) Position() token.Pos { return e.Pos }
