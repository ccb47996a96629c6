package syntax_test

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/syntax"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
	"github.com/stretchr/testify/require"
)

func TestNamingTypeMustBePascalCase(t *testing.T) {
	f, reports := parser.ParseFile([]byte("type point :: struct { x: Int64 }\n"), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleLibrary)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN001", diags[0].Code)
}

func TestNamingConstantMustBeUpperSnake(t *testing.T) {
	f, reports := parser.ParseFile([]byte("constant maxSize :: Int64 = 1\n"), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleLibrary)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN003", diags[0].Code)
}

func TestNamingFunctionMustBeCamelCase(t *testing.T) {
	f, reports := parser.ParseFile([]byte("function DoThing() -> Nil { return }\n"), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleLibrary)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN002", diags[0].Code)
}

func TestNamingIgnorePrefixAllowedUnused(t *testing.T) {
	f, reports := parser.ParseFile([]byte("function f(_unused: Int64) -> Nil { return }\n"), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleLibrary)
	require.Empty(t, diags)
}

func TestNamingIgnorePrefixUsedIsError(t *testing.T) {
	f, reports := parser.ParseFile([]byte(`function f() -> Int64 {
  _skip := 1
  return _skip
}
`), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleLibrary)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN004", diags[0].Code)
}

func TestFileRoleBinaryRequiresMain(t *testing.T) {
	f, reports := parser.ParseFile([]byte("function helper() -> Nil { return }\n"), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleBinary)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN005", diags[0].Code)
}

func TestFileRoleManifestRejectsOtherDecls(t *testing.T) {
	f, reports := parser.ParseFile([]byte(`import "pkg/list" { List }
constant X :: Int64 = 1
`), "t.cop")
	require.Empty(t, reports)
	diags, _ := syntax.Check(f, workspace.RoleManifest)
	require.Len(t, diags, 1)
	require.Equal(t, "SYN006", diags[0].Code)
}

func TestCamelCaseRenameAutofixProposed(t *testing.T) {
	f, reports := parser.ParseFile([]byte("function f(Bad: Int64) -> Nil { return }\n"), "t.cop")
	require.Empty(t, reports)
	diags, edits := syntax.Check(f, workspace.RoleLibrary)
	require.Len(t, diags, 1)
	require.Len(t, edits, 1)
	require.Equal(t, "bad", edits[0].Replacement)
	require.Equal(t, "SYN002", edits[0].RuleCode)
	require.Equal(t, len("Bad"), edits[0].Span.End.Offset-edits[0].Span.Start.Offset)
}
