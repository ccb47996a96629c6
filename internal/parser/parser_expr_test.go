package parser

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/stretchr/testify/require"
)

func parseExprOK(t *testing.T, src string) ast.Expr {
	t.Helper()
	f := parseOK(t, "function f() -> Int64 {\n  return "+src+"\n}\n")
	body := f.Decls[0].(*ast.FunctionDecl).Body
	ret := body.Stmts[0].(*ast.ReturnStmt)
	return ret.Value
}

func TestParseBinaryPrecedence(t *testing.T) {
	e := parseExprOK(t, "1 + 2 * 3").(*ast.BinaryExpr)
	require.Equal(t, "+", e.Op)
	require.Equal(t, int64(1), e.X.(*ast.IntLit).Value)
	mul := e.Y.(*ast.BinaryExpr)
	require.Equal(t, "*", mul.Op)
}

func TestParseComparisonBindsLooserThanAdditive(t *testing.T) {
	e := parseExprOK(t, "1 + 2 < 4").(*ast.BinaryExpr)
	require.Equal(t, "<", e.Op)
	require.Equal(t, "+", e.X.(*ast.BinaryExpr).Op)
}

func TestParseLogicalOperators(t *testing.T) {
	e := parseExprOK(t, "a and b or c").(*ast.BinaryExpr)
	require.Equal(t, "or", e.Op)
	require.Equal(t, "and", e.X.(*ast.BinaryExpr).Op)
}

func TestParseUnaryNot(t *testing.T) {
	e := parseExprOK(t, "not a").(*ast.UnaryExpr)
	require.Equal(t, "not", e.Op)
}

func TestParseMatchesExpr(t *testing.T) {
	e := parseExprOK(t, "x matches Int64").(*ast.MatchesExpr)
	require.Equal(t, "Int64", e.Type.Members[0].Name)
}

func TestParseFieldAccessAndCall(t *testing.T) {
	e := parseExprOK(t, "a.b.c(1, 2)").(*ast.CallExpr)
	fa := e.Callee.(*ast.FieldAccess)
	require.Equal(t, "c", fa.Field)
	require.Len(t, e.Args, 2)
}

func TestParseGenericCall(t *testing.T) {
	e := parseExprOK(t, "make[Int64](1)").(*ast.CallExpr)
	require.Len(t, e.TypeArgs, 1)
	require.Equal(t, "Int64", e.TypeArgs[0].Members[0].Name)
}

func TestParseStructLiteral(t *testing.T) {
	e := parseExprOK(t, "Point { x: 1, y: 2 }").(*ast.StructLit)
	require.Equal(t, "Point", e.Type.Members[0].Name)
	require.Len(t, e.Fields, 2)
}

func TestParseGenericStructLiteral(t *testing.T) {
	e := parseExprOK(t, "Box[Int64] { value: 1 }").(*ast.StructLit)
	nt := e.Type.Members[0]
	require.Equal(t, "Box", nt.Name)
	require.Len(t, nt.Args, 1)
	require.Equal(t, "Int64", nt.Args[0].Members[0].Name)
	require.Len(t, e.Fields, 1)
}

func TestParseBareIdentifierNotConfusedWithStructLit(t *testing.T) {
	e := parseExprOK(t, "a")
	_, isIdent := e.(*ast.Identifier)
	require.True(t, isIdent)
}

func TestParseIfElseExpr(t *testing.T) {
	e := parseExprOK(t, "if a { 1 } else { 2 }").(*ast.IfExpr)
	require.NotNil(t, e.Then)
	require.NotNil(t, e.Else)
}

func TestParseIfElseIfChain(t *testing.T) {
	e := parseExprOK(t, "if a { 1 } else if b { 2 } else { 3 }").(*ast.IfExpr)
	elseIf, ok := e.Else.(*ast.IfExpr)
	require.True(t, ok)
	require.NotNil(t, elseIf.Else)
}

func TestParseMatchExpr(t *testing.T) {
	e := parseExprOK(t, `match x {
    Color.Red => 1,
    y: Int64 => y,
    Nil => 0
  }`).(*ast.MatchExpr)
	require.Len(t, e.Arms, 3)
	qp := e.Arms[0].Pattern.(*ast.QualifiedPattern)
	require.Equal(t, "Color", qp.Enum)
	require.Equal(t, "Red", qp.Variant)
	bp := e.Arms[1].Pattern.(*ast.BindingPattern)
	require.Equal(t, "y", bp.Name)
	tp := e.Arms[2].Pattern.(*ast.TypePattern)
	require.Equal(t, "Nil", tp.Type.Members[0].Name)
}

func TestParsePatternTypeArgsRejected(t *testing.T) {
	_, reports := ParseFile([]byte(`function f() -> Int64 {
  return match x {
    List[Int64] => 1
  }
}
`), "t.cop")
	require.NotEmpty(t, reports)
	require.Equal(t, "PAR011", reports[0].Code)
}

func TestParseStringInterpolation(t *testing.T) {
	e := parseExprOK(t, `"hello {name}, you are {age + 1}"`).(*ast.InterpString)
	require.Len(t, e.Parts, 4)
	require.Equal(t, "hello ", e.Parts[0].Text)
	require.Equal(t, "name", e.Parts[1].Expr.(*ast.Identifier).Name)
	require.Equal(t, ", you are ", e.Parts[2].Text)
	bin := e.Parts[3].Expr.(*ast.BinaryExpr)
	require.Equal(t, "+", bin.Op)
}

func TestParsePlainStringNoInterpolation(t *testing.T) {
	e := parseExprOK(t, `"plain text"`).(*ast.StringLit)
	require.Equal(t, "plain text", e.Value)
}

func TestParseVarDeclAndAssign(t *testing.T) {
	f := parseOK(t, `function f() -> Int64 {
  count := 0
  mutable total := count
  total = total + 1
  return total
}
`)
	body := f.Decls[0].(*ast.FunctionDecl).Body
	vd := body.Stmts[0].(*ast.VarDecl)
	require.False(t, vd.Mutable)
	mvd := body.Stmts[1].(*ast.VarDecl)
	require.True(t, mvd.Mutable)
	as := body.Stmts[2].(*ast.AssignStmt)
	require.Equal(t, "total", as.Name)
}

func TestParseWhileLoop(t *testing.T) {
	f := parseOK(t, `function f() -> Int64 {
  mutable i := 0
  while i < 10 {
    i = i + 1
  }
  return i
}
`)
	body := f.Decls[0].(*ast.FunctionDecl).Body
	ws := body.Stmts[1].(*ast.WhileStmt)
	require.NotNil(t, ws.Cond)
	require.Len(t, ws.Body.Stmts, 1)
}

func TestParseBreakContinue(t *testing.T) {
	f := parseOK(t, `function f() -> Nil {
  while true {
    break
    continue
  }
  return
}
`)
	body := f.Decls[0].(*ast.FunctionDecl).Body
	ws := body.Stmts[0].(*ast.WhileStmt)
	require.IsType(t, &ast.BreakStmt{}, ws.Body.Stmts[0])
	require.IsType(t, &ast.ContinueStmt{}, ws.Body.Stmts[1])
}
