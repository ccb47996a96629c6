package types_test

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
	"github.com/stretchr/testify/require"
)

func unit(t *testing.T, pkg, path, src string) *workspace.PackageUnit {
	t.Helper()
	f, reports := parser.ParseFile([]byte(src), path)
	require.Empty(t, reports, "unexpected parse diagnostics: %v", reports)
	return &workspace.PackageUnit{Package: workspace.PackageID(pkg), Path: path, Syntax: f}
}

func TestBuildAndAnalyzeSimpleFunction(t *testing.T) {
	u := unit(t, "pkg/main", "pkg/main/main.cop", `public function add(a: Int64, b: Int64) -> Int64 {
  return a + b
}
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	out, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Empty(t, diags)
	require.Contains(t, out.Signatures, "add")
	require.Equal(t, 2, out.Signatures["add"].ParamCount)
	require.False(t, out.Signatures["add"].ReturnsNil)
}

func TestAnalyzeStructFieldAccess(t *testing.T) {
	u := unit(t, "pkg/shapes", "pkg/shapes/shapes.cop", `public type Point :: struct {
  x: Int64, y: Int64

  function sum(self) -> Int64 {
    return self.x + self.y
  }
}
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	out, diags := types.AnalyzeFile(u.Path, "pkg/shapes", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Empty(t, diags)
	require.Contains(t, out.Structs, "Point")
}

func TestAnalyzeMissingReturnReportsTYP009(t *testing.T) {
	u := unit(t, "pkg/main", "pkg/main/main.cop", `function broken() -> Int64 {
  x := 1
}
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	_, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Len(t, diags, 1)
	require.Equal(t, "TYP009", diags[0].Code)
}

func TestAnalyzeUnknownFieldReportsTYP016(t *testing.T) {
	u := unit(t, "pkg/shapes", "pkg/shapes/shapes.cop", `public type Point :: struct {
  x: Int64
}

function f() -> Point {
  return Point { x: 1, y: 2 }
}
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	_, diags := types.AnalyzeFile(u.Path, "pkg/shapes", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Len(t, diags, 1)
	require.Equal(t, "TYP016", diags[0].Code)
}

func TestAnalyzeBreakOutsideLoopReportsTYP013(t *testing.T) {
	u := unit(t, "pkg/main", "pkg/main/main.cop", `function f() -> Nil {
  break
}
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	_, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Len(t, diags, 1)
	require.Equal(t, "TYP013", diags[0].Code)
}

func TestConstantDependencyOrdering(t *testing.T) {
	u := unit(t, "pkg/main", "pkg/main/main.cop", `constant BASE :: Int64 = 10
constant DOUBLE :: Int64 = BASE + BASE
`)
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)

	base := table.Registry.LookupConstant("pkg/main", "BASE")
	double := table.Registry.LookupConstant("pkg/main", "DOUBLE")
	require.NotNil(t, base.Type)
	require.NotNil(t, double.Type)
	require.Equal(t, "Int64", base.Type.String())
	require.Equal(t, "Int64", double.Type.String())
}

func TestUnionNormalizeFlattensDedupsAndOrdersByDisplayKey(t *testing.T) {
	boolT := types.NewPrimitive(types.Boolean)
	intT := types.NewPrimitive(types.Int64)
	nested := &types.Type{Kind: types.KindUnion, Members: []*types.Type{boolT, intT}}
	u := &types.Type{Kind: types.KindUnion, Members: []*types.Type{intT, nested, intT}}

	norm := u.Normalize()
	require.Equal(t, "Boolean | Int64", norm.String())

	reordered := &types.Type{Kind: types.KindUnion, Members: []*types.Type{boolT, intT}}
	require.Equal(t, norm.String(), reordered.Normalize().String())
	require.Equal(t, norm.String(), norm.Normalize().String())
}

func TestUnionNormalizeSingletonCollapses(t *testing.T) {
	intT := types.NewPrimitive(types.Int64)
	u := &types.Type{Kind: types.KindUnion, Members: []*types.Type{intT, intT}}
	norm := u.Normalize()
	require.Equal(t, types.KindPrimitive, norm.Kind)
	require.Equal(t, "Int64", norm.String())
}
