package ast

import (
	"strings"

	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// NamedType is one `Name[TypeArg, …]` segment of a written type name.
type NamedType struct {
	Name string
	Args []*TypeName
	Pos  token.Pos
}

func (n *NamedType) Position() token.Pos { return n.Pos }

func (n *NamedType) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "[" + strings.Join(parts, ", ") + "]"
}

// TypeName is a written type expression: one or more NamedType members
// optionally joined by `|`.
type TypeName struct {
	Members []*NamedType
	Pos     token.Pos
}

func (t *TypeName) Position() token.Pos { return t.Pos }
func (t *TypeName) typeNameNode()       {}

func (t *TypeName) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

// IsUnion reports whether the written type name has more than one
// member joined by `|`.
func (t *TypeName) IsUnion() bool { return len(t.Members) > 1 }

// Single returns the single NamedType member when the written type
// name is not a union, or nil otherwise.
func (t *TypeName) Single() *NamedType {
	if len(t.Members) == 1 {
		return t.Members[0]
	}
	return nil
}
