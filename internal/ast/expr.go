package ast

import "github.com/isaacparker0/coppice-sub000/internal/token"

// Expr is any expression node. ExprID is assigned during semantic
// lowering (C5); it is zero on the raw syntax tree.
type Expr interface {
	Node
	exprNode()
	ExprID() uint64
	SetExprID(id uint64)
}

// exprBase centralizes the ExprID bookkeeping shared by every Expr.
type exprBase struct {
	id uint64
}

func (e *exprBase) ExprID() uint64      { return e.id }
func (e *exprBase) SetExprID(id uint64) { e.id = id }

// Identifier is a bare name reference.
type Identifier struct {
	exprBase
	Name string
	Pos  token.Pos
}

func (i *Identifier) exprNode()           {}
func (i *Identifier) Position() token.Pos { return i.Pos }

// IntLit is an integer literal (already range-checked by the lexer).
type IntLit struct {
	exprBase
	Value int64
	Pos   token.Pos
}

func (l *IntLit) exprNode()           {}
func (l *IntLit) Position() token.Pos { return l.Pos }

// StringLit is a non-interpolated string literal.
type StringLit struct {
	exprBase
	Value string
	Pos   token.Pos
}

func (l *StringLit) exprNode()           {}
func (l *StringLit) Position() token.Pos { return l.Pos }

// InterpPart is one piece of an interpolated string: either literal
// text or an embedded expression.
type InterpPart struct {
	Text string // set when Expr == nil
	Expr Expr   // set when this part is `{expr}`
}

// InterpString is `"…{expr}…"`, desugared by semantic lowering (C5)
// into a left-to-right `String + expr + String` chain.
type InterpString struct {
	exprBase
	Parts []InterpPart
	Pos   token.Pos
}

func (l *InterpString) exprNode()           {}
func (l *InterpString) Position() token.Pos { return l.Pos }

// BoolLit is `true`/`false`.
type BoolLit struct {
	exprBase
	Value bool
	Pos   token.Pos
}

func (l *BoolLit) exprNode()           {}
func (l *BoolLit) Position() token.Pos { return l.Pos }

// NilLit is the `nil` literal.
type NilLit struct {
	exprBase
	Pos token.Pos
}

func (l *NilLit) exprNode()           {}
func (l *NilLit) Position() token.Pos { return l.Pos }

// UnaryExpr is `not x` or `-x`.
type UnaryExpr struct {
	exprBase
	Op string
	X  Expr
	Pos token.Pos
}

func (u *UnaryExpr) exprNode()           {}
func (u *UnaryExpr) Position() token.Pos { return u.Pos }

// BinaryExpr is any infix operator expression (`or`, `and`, comparisons,
// additive, multiplicative).
type BinaryExpr struct {
	exprBase
	Op  string
	X, Y Expr
	Pos token.Pos
}

func (b *BinaryExpr) exprNode()           {}
func (b *BinaryExpr) Position() token.Pos { return b.Pos }

// MatchesExpr is `x matches T`.
type MatchesExpr struct {
	exprBase
	X    Expr
	Type *TypeName
	Pos  token.Pos
}

func (m *MatchesExpr) exprNode()           {}
func (m *MatchesExpr) Position() token.Pos { return m.Pos }

// CallExpr is `callee[TypeArgs…](args…)`.
type CallExpr struct {
	exprBase
	Callee   Expr
	TypeArgs []*TypeName
	Args     []Expr
	Pos      token.Pos
}

func (c *CallExpr) exprNode()           {}
func (c *CallExpr) Position() token.Pos { return c.Pos }

// FieldAccess is `x.field`.
type FieldAccess struct {
	exprBase
	X     Expr
	Field string
	Pos   token.Pos
}

func (f *FieldAccess) exprNode()           {}
func (f *FieldAccess) Position() token.Pos { return f.Pos }

// StructLitField is one `field: expr` entry of a struct literal.
type StructLitField struct {
	Name  string
	Value Expr
	Pos   token.Pos
}

// StructLit is `TypeName { field: expr, … }`.
type StructLit struct {
	exprBase
	Type   *TypeName
	Fields []*StructLitField
	Pos    token.Pos
}

func (s *StructLit) exprNode()           {}
func (s *StructLit) Position() token.Pos { return s.Pos }

// IfExpr is `if cond then_block [else else_block]`. Else may itself be
// an *IfExpr (else-if chaining) or nil.
type IfExpr struct {
	exprBase
	Cond Expr
	Then *Block
	Else Node // *Block, *IfExpr, or nil
	Pos  token.Pos
}

func (i *IfExpr) exprNode()           {}
func (i *IfExpr) Position() token.Pos { return i.Pos }

// MatchArm is `pattern => expr`.
type MatchArm struct {
	Pattern Pattern
	Body    Expr
	Pos     token.Pos
}

// MatchExpr is `match subject { arm, … }`.
type MatchExpr struct {
	exprBase
	Subject Expr
	Arms    []*MatchArm
	Pos     token.Pos
}

func (m *MatchExpr) exprNode()           {}
func (m *MatchExpr) Position() token.Pos { return m.Pos }
