package ast

import "github.com/isaacparker0/coppice-sub000/internal/token"

// Pattern is a match-arm pattern.
type Pattern interface {
	Node
	patternNode()
}

// TypePattern matches any value of the named concrete type: `Name`.
type TypePattern struct {
	Type *TypeName
	Pos  token.Pos
}

func (p *TypePattern) patternNode()        {}
func (p *TypePattern) Position() token.Pos { return p.Pos }

// BindingPattern matches a value of the named type and binds it:
// `name: TypeName`.
type BindingPattern struct {
	Name string
	Type *TypeName
	Pos  token.Pos
}

func (p *BindingPattern) patternNode()        {}
func (p *BindingPattern) Position() token.Pos { return p.Pos }

// QualifiedPattern matches a specific enum variant: `Enum.Variant`.
type QualifiedPattern struct {
	Enum    string
	Variant string
	Pos     token.Pos
}

func (p *QualifiedPattern) patternNode()        {}
func (p *QualifiedPattern) Position() token.Pos { return p.Pos }
