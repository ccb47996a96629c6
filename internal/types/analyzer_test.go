package types_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/semantic"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

func analyzeOne(t *testing.T, pkg, path, src string) (*types.TypeAnnotatedFile, []*diag.Report) {
	t.Helper()
	f, reports := parser.ParseFile([]byte(src), path)
	require.Empty(t, reports, "unexpected parse diagnostics: %v", reports)
	semantic.Lower(f)
	u := &workspace.PackageUnit{Package: workspace.PackageID(pkg), Path: path, Syntax: f}
	table, buildReports := types.Build([]*workspace.PackageUnit{u})
	out, diags := types.AnalyzeFile(path, pkg, f, table.Registry, types.BindingsFromFile(f))
	return out, append(buildReports, diags...)
}

func TestNilNarrowingPermitsDirectReturn(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type IntOrNil :: union Int64 | Nil

function f(x: IntOrNil) -> Int64 {
  if x == nil {
    return 0
  }
  return x
}
`)
	require.Empty(t, diags, "narrowing should admit the union value as Int64 after the nil branch returns: %v", diags)
}

func TestMatchesNarrowingInThenBranch(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type IntOrBool :: union Int64 | Boolean

function f(x: IntOrBool) -> Int64 {
  if x matches Int64 {
    return x + 1
  }
  return 0
}
`)
	require.Empty(t, diags, "%v", diags)
}

func TestNonExhaustiveMatchReportsMissingMember(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type IntOrBool :: union Int64 | Boolean

function f(v: IntOrBool) -> Int64 {
  return match v {
    a: Int64 => 1
  }
}
`)
	require.Len(t, diags, 1)
	require.Equal(t, "TYP007", diags[0].Code)
	require.True(t, strings.Contains(diags[0].Message, "Boolean"), "missing member should be named: %s", diags[0].Message)
}

func TestMatchArmResultTypesMustUnify(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type IntOrBool :: union Int64 | Boolean

function f(v: IntOrBool) -> Int64 {
  return match v {
    a: Int64 => 1,
    b: Boolean => "no"
  }
}
`)
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "TYP005")
}

func TestGenericConstraintSatisfiedAndViolated(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `public type Addable :: interface {
  function add(self, other: Int64) -> Int64
}

public type Num :: struct implements Addable {
  value: Int64

  function add(self, other: Int64) -> Int64 {
    return self.value + other
  }
}

function sum[T: Addable](x: T) -> Int64 {
  return x.add(1)
}

function main() -> Nil {
  ok := sum[Num](Num { value: 2 })
  bad := sum[Int64](3)
  print(string(ok + bad))
}
`)
	require.Len(t, diags, 1)
	require.Equal(t, "TYP011", diags[0].Code)
	require.True(t, strings.Contains(diags[0].Message, "Addable"), "%s", diags[0].Message)
}

func TestGenericIdentityCall(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `function id[T](x: T) -> T {
  return x
}

function main() -> Nil {
  v := id[Int64](1)
  print(string(v))
}
`)
	require.Empty(t, diags, "%v", diags)
}

func TestInterfaceReceiverDispatch(t *testing.T) {
	out, diags := analyzeOne(t, "pkg/shapes", "pkg/shapes/shapes.cop", `public type Shape :: interface {
  function area(self) -> Int64
}

public type Square :: struct implements Shape {
  side: Int64

  function area(self) -> Int64 {
    return self.side * self.side
  }
}

function describe(s: Shape) -> Int64 {
  return s.area()
}
`)
	require.Empty(t, diags, "%v", diags)
	found := false
	for _, target := range out.CallTargets {
		if target.Kind == types.CallInterface {
			found = true
			require.Equal(t, "Shape", target.SymbolName)
			require.Equal(t, "area", target.MethodName)
		}
	}
	require.True(t, found, "interface-typed receiver call should resolve to CallInterface")
}

func TestEnumVariantExpressionAndMatch(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type Color :: enum { Red, Green, Blue }

function pick(c: Color) -> Int64 {
  return match c {
    Color.Red => 1,
    Color.Green => 2,
    Color.Blue => 3
  }
}

function mk() -> Color {
  return Color.Red
}
`)
	require.Empty(t, diags, "%v", diags)
}

func TestEnumUnknownVariant(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type Color :: enum { Red, Green }

function mk() -> Color {
  return Color.Purple
}
`)
	require.Len(t, diags, 1)
	require.Equal(t, "TYP002", diags[0].Code)
}

func TestReturnTypeMismatch(t *testing.T) {
	_, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `function f() -> Int64 {
  return "nope"
}
`)
	require.Len(t, diags, 1)
	require.Equal(t, "TYP005", diags[0].Code)
}

func TestConstantOverflowReportsTYP018(t *testing.T) {
	f, reports := parser.ParseFile([]byte(`constant BIG :: Int64 = 9223372036854775807
constant OVER :: Int64 = BIG + 1
`), "pkg/main/consts.cop")
	require.Empty(t, reports)
	semantic.Lower(f)
	u := &workspace.PackageUnit{Package: "pkg/main", Path: "pkg/main/consts.cop", Syntax: f}
	_, buildReports := types.Build([]*workspace.PackageUnit{u})
	var codes []string
	for _, r := range buildReports {
		codes = append(codes, r.Code)
	}
	require.Contains(t, codes, "TYP018")
}

func TestDuplicateDeclarationReportsSYM001(t *testing.T) {
	f, reports := parser.ParseFile([]byte(`function f() -> Nil { return }
function f() -> Nil { return }
`), "pkg/main/dup.cop")
	require.Empty(t, reports)
	u := &workspace.PackageUnit{Package: "pkg/main", Path: "pkg/main/dup.cop", Syntax: f}
	_, buildReports := types.Build([]*workspace.PackageUnit{u})
	require.Len(t, buildReports, 1)
	require.Equal(t, "SYM001", buildReports[0].Code)
}

func TestNarrowingRestoredAfterBranches(t *testing.T) {
	out, diags := analyzeOne(t, "pkg/main", "pkg/main/main.cop", `type IntOrNil :: union Int64 | Nil

function f(x: IntOrNil) -> IntOrNil {
  if x == nil {
    print("nil branch")
  } else {
    print("non-nil branch")
  }
  return x
}
`)
	require.Empty(t, diags, "%v", diags)
	// The return expression's type must be the restored union, not a
	// branch narrowing that leaked.
	want := (&types.Type{Kind: types.KindUnion, Members: []*types.Type{
		types.NewPrimitive(types.Int64), types.NewPrimitive(types.Nil),
	}}).Normalize()
	var got *types.Type
	for _, typ := range out.ExprTypes {
		if typ != nil && typ.Kind == types.KindUnion {
			got = typ
		}
	}
	require.NotNil(t, got)
	require.Empty(t, cmp.Diff(want, got.Normalize()))
}

// buildUnits parses each (pkg, path, src) triple into a PackageUnit
// and runs public-symbol typing over the whole set, returning its
// diagnostics for the caller to assert on.
func buildUnits(t *testing.T, files [][3]string) (*types.TypedPublicSymbolTable, map[string]*workspace.PackageUnit, []*diag.Report) {
	t.Helper()
	units := make([]*workspace.PackageUnit, 0, len(files))
	byPath := map[string]*workspace.PackageUnit{}
	for _, entry := range files {
		f, reports := parser.ParseFile([]byte(entry[2]), entry[1])
		require.Empty(t, reports, "unexpected parse diagnostics: %v", reports)
		semantic.Lower(f)
		u := &workspace.PackageUnit{Package: workspace.PackageID(entry[0]), Path: entry[1], Syntax: f}
		units = append(units, u)
		byPath[entry[1]] = u
	}
	table, buildReports := types.Build(units)
	return table, byPath, buildReports
}

const mathLibSrc = `public constant ANSWER :: Int64 = 42

public type Pair :: struct {
  left: Int64, right: Int64
}

public function double(x: Int64) -> Int64 {
  return x * 2
}
`

func TestAliasedImportResolvesThroughBinding(t *testing.T) {
	table, byPath, buildReports := buildUnits(t, [][3]string{
		{"pkg/math", "pkg/math/math.cop", mathLibSrc},
		{"pkg/main", "pkg/main/main.cop", `import "pkg/math" { double as twice, ANSWER as BEST, Pair as Duo }

function main() -> Nil {
  p := Duo { left: twice(BEST), right: 1 }
  print(string(p.left))
}
`},
	})
	require.Empty(t, buildReports, "%v", buildReports)
	u := byPath["pkg/main/main.cop"]
	out, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.Empty(t, diags, "aliased imports must resolve through the binding: %v", diags)

	// The call target carries the declared name in the defining
	// package, not the local alias.
	found := false
	for _, target := range out.CallTargets {
		if target.Kind == types.CallFunction && target.SymbolName == "double" {
			found = true
			require.Equal(t, "pkg/math", target.PackagePath)
		}
	}
	require.True(t, found, "call through alias should resolve to the declared function")
}

func TestUnimportedSymbolIsOutOfScope(t *testing.T) {
	table, byPath, buildReports := buildUnits(t, [][3]string{
		{"pkg/math", "pkg/math/math.cop", mathLibSrc},
		{"pkg/main", "pkg/main/main.cop", `function main() -> Nil {
  print(string(double(2)))
}
`},
	})
	require.Empty(t, buildReports, "%v", buildReports)
	u := byPath["pkg/main/main.cop"]
	_, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	require.NotEmpty(t, diags, "a public symbol of an un-imported package must not be in scope")
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "TYP002")
}

func TestUnimportedTypeIsOutOfScope(t *testing.T) {
	table, byPath, buildReports := buildUnits(t, [][3]string{
		{"pkg/math", "pkg/math/math.cop", mathLibSrc},
		{"pkg/main", "pkg/main/main.cop", `function f(p: Pair) -> Int64 {
  return p.left
}
`},
	})
	// The unknown type surfaces already while resolving the declared
	// signature in public-symbol typing.
	var codes []string
	for _, d := range buildReports {
		codes = append(codes, d.Code)
	}
	u := byPath["pkg/main/main.cop"]
	_, diags := types.AnalyzeFile(u.Path, "pkg/main", u.Syntax, table.Registry, types.BindingsFromFile(u.Syntax))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "TYP003", "an un-imported type name must not resolve: %v / %v", buildReports, diags)
}
