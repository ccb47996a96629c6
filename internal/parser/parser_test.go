package parser

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *ast.File {
	t.Helper()
	f, reports := ParseFile([]byte(src), "t.cop")
	require.Empty(t, reports, "unexpected diagnostics: %v", reports)
	return f
}

func TestParseStructDecl(t *testing.T) {
	f := parseOK(t, `public type Point :: struct {
  x: Int64, y: Int64

  function length(self) -> Int64 {
    return self.x
  }
}
`)
	require.Len(t, f.Decls, 1)
	d := f.Decls[0].(*ast.TypeDecl)
	require.True(t, d.Public)
	require.Equal(t, ast.StructKind, d.Kind)
	require.Len(t, d.Fields, 2)
	require.Equal(t, "x", d.Fields[0].Name)
	require.Len(t, d.Methods, 1)
	require.Equal(t, "length", d.Methods[0].Name)
}

func TestParseStructImplements(t *testing.T) {
	f := parseOK(t, `type Box :: struct implements Container {
  value: Int64
}
`)
	d := f.Decls[0].(*ast.TypeDecl)
	require.Len(t, d.Implements, 1)
	require.Equal(t, "Container", d.Implements[0].Members[0].Name)
}

func TestParseEnumDecl(t *testing.T) {
	f := parseOK(t, `type Color :: enum { Red, Green, Blue }
`)
	d := f.Decls[0].(*ast.TypeDecl)
	require.Equal(t, ast.EnumKind, d.Kind)
	require.Len(t, d.Variants, 3)
	require.Equal(t, "Blue", d.Variants[2].Name)
}

func TestParseInterfaceDecl(t *testing.T) {
	f := parseOK(t, `type Container :: interface {
  function length(self) -> Int64
  function put(mutable self, value: Int64) -> Nil
}
`)
	d := f.Decls[0].(*ast.TypeDecl)
	require.Equal(t, ast.InterfaceKind, d.Kind)
	require.Len(t, d.IfaceMethods, 2)
	require.True(t, d.IfaceMethods[1].SelfMutable)
}

func TestParseUnionDecl(t *testing.T) {
	f := parseOK(t, `type Maybe :: union Int64 | Nil
`)
	d := f.Decls[0].(*ast.TypeDecl)
	require.Equal(t, ast.UnionKind, d.Kind)
	require.Len(t, d.Union, 2)
	require.Equal(t, "Nil", d.Union[1].Members[0].Name)
}

func TestParseGenericTypeDecl(t *testing.T) {
	f := parseOK(t, `type Box[T] :: struct {
  value: T
}
`)
	d := f.Decls[0].(*ast.TypeDecl)
	require.Len(t, d.TypeParams, 1)
	require.Equal(t, "T", d.TypeParams[0].Name)
}

func TestParseConstantDecl(t *testing.T) {
	f := parseOK(t, `public constant MaxSize :: Int64 = 64
`)
	d := f.Decls[0].(*ast.ConstantDecl)
	require.True(t, d.Public)
	require.Equal(t, "MaxSize", d.Name)
	require.NotNil(t, d.Type)
}

func TestParseFunctionDecl(t *testing.T) {
	f := parseOK(t, `function add(a: Int64, b: Int64) -> Int64 {
  return a + b
}
`)
	d := f.Decls[0].(*ast.FunctionDecl)
	require.Equal(t, "add", d.Name)
	require.Len(t, d.Params, 2)
}

func TestParseImportAndExports(t *testing.T) {
	f := parseOK(t, `import "pkg/list" { List, Node as ListNode }
exports { add, Point }
`)
	imp := f.Decls[0].(*ast.ImportDecl)
	require.Equal(t, "pkg/list", imp.PackagePath)
	require.Len(t, imp.Bindings, 2)
	require.Equal(t, "ListNode", imp.Bindings[1].Local)

	exp := f.Decls[1].(*ast.ExportsDecl)
	require.Equal(t, []string{"add", "Point"}, exp.Names)
}

func TestParseDocComment(t *testing.T) {
	f := parseOK(t, `/// Adds two numbers.
function add(a: Int64, b: Int64) -> Int64 {
  return a + b
}
`)
	d := f.Decls[0].(*ast.FunctionDecl)
	require.Equal(t, "Adds two numbers.", d.Doc)
}

func TestParseOrphanDocCommentReported(t *testing.T) {
	_, reports := ParseFile([]byte("/// orphaned\n\nfunction f() -> Nil { return }\n"), "t.cop")
	require.Len(t, reports, 1)
	require.Equal(t, "PAR008", reports[0].Code)
}

func TestParseTypeDeclMissingBodyReportsPAR003(t *testing.T) {
	_, reports := ParseFile([]byte("type Weird :: 5\n"), "t.cop")
	require.NotEmpty(t, reports)
	require.Equal(t, "PAR003", reports[0].Code)
}
