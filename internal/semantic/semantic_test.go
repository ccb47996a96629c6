package semantic_test

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/semantic"
	"github.com/stretchr/testify/require"
)

func lowerOK(t *testing.T, src string) *ast.File {
	t.Helper()
	f, reports := parser.ParseFile([]byte(src), "t.cop")
	require.Empty(t, reports, "unexpected diagnostics: %v", reports)
	semantic.Lower(f)
	return f
}

func TestLowerInterpolationBecomesBinaryChain(t *testing.T) {
	f := lowerOK(t, `function greet(name: String) -> String {
  return "hi {name}!"
}
`)
	fn := f.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)

	// "hi " + name + "!"
	outer, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", outer.Op)

	bang, ok := outer.Y.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "!", bang.Value)

	inner, ok := outer.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", inner.Op)

	hi, ok := inner.X.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "hi ", hi.Value)

	name, ok := inner.Y.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "name", name.Name)
}

func TestLowerPlainStringUnaffected(t *testing.T) {
	f := lowerOK(t, `function f() -> String {
  return "no interpolation here"
}
`)
	fn := f.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	s, ok := ret.Value.(*ast.StringLit)
	require.True(t, ok)
	require.Equal(t, "no interpolation here", s.Value)
}

func TestLowerAssignsMonotonicExpressionIds(t *testing.T) {
	f := lowerOK(t, `function f() -> Int64 {
  x := 1 + 2
  return x
}
`)
	fn := f.Decls[0].(*ast.FunctionDecl)
	decl := fn.Body.Stmts[0].(*ast.VarDecl)
	bin := decl.Value.(*ast.BinaryExpr)

	require.NotZero(t, bin.ExprID())
	require.NotZero(t, bin.X.(*ast.IntLit).ExprID())
	require.NotZero(t, bin.Y.(*ast.IntLit).ExprID())

	// pre-order: parent id assigned before its children's ids
	require.True(t, bin.ExprID() < bin.X.(*ast.IntLit).ExprID())
	require.True(t, bin.X.(*ast.IntLit).ExprID() < bin.Y.(*ast.IntLit).ExprID())

	ret := fn.Body.Stmts[1].(*ast.ReturnStmt)
	require.NotZero(t, ret.Value.(*ast.Identifier).ExprID())
	require.True(t, bin.Y.(*ast.IntLit).ExprID() < ret.Value.(*ast.Identifier).ExprID())
}

func TestLowerInterpolationInsideExpressionGetsIds(t *testing.T) {
	f := lowerOK(t, `function f(n: Int64) -> String {
  return "value: {n}"
}
`)
	fn := f.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	bin := ret.Value.(*ast.BinaryExpr)
	require.NotZero(t, bin.ExprID())
	require.NotZero(t, bin.X.(*ast.StringLit).ExprID())
	require.NotZero(t, bin.Y.(*ast.Identifier).ExprID())
}
