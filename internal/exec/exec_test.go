package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isaacparker0/coppice-sub000/internal/exec"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/semantic"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

func analyze(t *testing.T, pkg, path, src string) (*types.Registry, *types.TypeAnnotatedFile) {
	t.Helper()
	f, reports := parser.ParseFile([]byte(src), path)
	require.Empty(t, reports)
	semantic.Lower(f)
	u := &workspace.PackageUnit{Package: workspace.PackageID(pkg), Path: path, Syntax: f}
	table, reports := types.Build([]*workspace.PackageUnit{u})
	require.Empty(t, reports)
	out, diags := types.AnalyzeFile(path, pkg, f, table.Registry, types.BindingsFromFile(f))
	require.Empty(t, diags)
	return table.Registry, out
}

func TestLowerSimpleMain(t *testing.T) {
	reg, out := analyze(t, "pkg/main", "pkg/main/main.cop", `function main() -> Nil {
  print("hi")
}
`)
	prog, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/main")
	require.Empty(t, reports)
	require.Equal(t, exec.FunctionRef{PackagePath: "pkg/main", Name: "main"}, prog.Entrypoint)
	require.Len(t, prog.Functions, 1)
	require.Equal(t, "main", prog.Functions[0].Name)
}

func TestLowerRejectsGenericMain(t *testing.T) {
	reg, out := analyze(t, "pkg/main", "pkg/main/main.cop", `function main[T](x: T) -> Nil {
  return nil
}
`)
	_, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/main")
	require.Len(t, reports, 1)
	require.Equal(t, "XLW003", reports[0].Code)
}

func TestLowerRejectsNonNilMain(t *testing.T) {
	reg, out := analyze(t, "pkg/main", "pkg/main/main.cop", `function main() -> Int64 {
  return 0
}
`)
	_, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/main")
	require.Len(t, reports, 1)
	require.Equal(t, "XLW004", reports[0].Code)
}

func TestLowerMissingMain(t *testing.T) {
	reg, out := analyze(t, "pkg/main", "pkg/main/main.cop", `function helper() -> Nil {
  return nil
}
`)
	_, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/main")
	require.Len(t, reports, 1)
	require.Equal(t, "XLW005", reports[0].Code)
}

func TestLowerRejectsNilStructField(t *testing.T) {
	reg, out := analyze(t, "pkg/main", "pkg/main/main.cop", `public type Box :: struct {
  value: Int64 | Nil
}

function main() -> Nil {
  b := Box { value: nil }
  print("done")
}
`)
	_, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/main")
	var codes []string
	for _, r := range reports {
		codes = append(codes, r.Code)
	}
	require.Contains(t, codes, "XLW002")
}

func TestLowerGathersStructsAndMethods(t *testing.T) {
	reg, out := analyze(t, "pkg/shapes", "pkg/shapes/shapes.cop", `public type Point :: struct {
  x: Int64, y: Int64

  function length(self) -> Int64 {
    return self.x + self.y
  }
}

function main() -> Nil {
  return nil
}
`)
	prog, reports := exec.Lower(reg, []*types.TypeAnnotatedFile{out}, "pkg/shapes")
	require.Empty(t, reports)
	require.Len(t, prog.Structs, 1)
	require.Equal(t, "Point", prog.Structs[0].Name)
	require.Len(t, prog.Structs[0].Methods, 1)
	require.Equal(t, "length", prog.Structs[0].Methods[0].Name)
}
