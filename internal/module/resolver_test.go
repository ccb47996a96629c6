package module_test

import (
	"testing"

	"github.com/isaacparker0/coppice-sub000/internal/module"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
	"github.com/stretchr/testify/require"
)

func unit(t *testing.T, pkg, path, src string) *workspace.PackageUnit {
	t.Helper()
	f, reports := parser.ParseFile([]byte(src), path)
	require.Empty(t, reports)
	return &workspace.PackageUnit{Package: workspace.PackageID(pkg), Path: path, Syntax: f}
}

func TestResolveImportBindsLocalNames(t *testing.T) {
	listPkg := unit(t, "pkg/list", "pkg/list/list.cop", `public type List :: struct {
  length: Int64
}
`)
	mainPkg := unit(t, "pkg/main", "pkg/main/main.cop", `import "pkg/list" { List as MyList }
`)

	reg := module.NewRegistry([]*workspace.PackageUnit{listPkg, mainPkg})
	resolved, reports := module.Resolve(mainPkg.Path, mainPkg.Syntax, reg)
	require.Empty(t, reports)
	require.Len(t, resolved, 1)
	require.Equal(t, workspace.PackageID("pkg/list"), resolved[0].TargetPackageID)
	require.Equal(t, "MyList", resolved[0].Bindings[0].LocalName)
}

func TestResolveUnknownPackage(t *testing.T) {
	mainPkg := unit(t, "pkg/main", "pkg/main/main.cop", `import "pkg/missing" { Thing }
`)
	reg := module.NewRegistry([]*workspace.PackageUnit{mainPkg})
	_, reports := module.Resolve(mainPkg.Path, mainPkg.Syntax, reg)
	require.Len(t, reports, 1)
	require.Equal(t, "IMP001", reports[0].Code)
}

func TestResolveUnexportedSymbol(t *testing.T) {
	listPkg := unit(t, "pkg/list", "pkg/list/list.cop", `type List :: struct {
  length: Int64
}
`)
	mainPkg := unit(t, "pkg/main", "pkg/main/main.cop", `import "pkg/list" { List }
`)
	reg := module.NewRegistry([]*workspace.PackageUnit{listPkg, mainPkg})
	_, reports := module.Resolve(mainPkg.Path, mainPkg.Syntax, reg)
	require.Len(t, reports, 1)
	require.Equal(t, "IMP002", reports[0].Code)
}

func TestResolveDuplicateLocalBinding(t *testing.T) {
	listPkg := unit(t, "pkg/list", "pkg/list/list.cop", `public type List :: struct { length: Int64 }
public type Node :: struct { value: Int64 }
`)
	mainPkg := unit(t, "pkg/main", "pkg/main/main.cop", `import "pkg/list" { List, Node as List }
`)
	reg := module.NewRegistry([]*workspace.PackageUnit{listPkg, mainPkg})
	_, reports := module.Resolve(mainPkg.Path, mainPkg.Syntax, reg)
	require.Len(t, reports, 1)
	require.Equal(t, "IMP003", reports[0].Code)
}

func TestCheckCyclesDetectsCycle(t *testing.T) {
	a := unit(t, "pkg/a", "pkg/a/a.cop", `import "pkg/b" { Thing }
`)
	b := unit(t, "pkg/b", "pkg/b/b.cop", `import "pkg/a" { Other }
`)
	reg := module.NewRegistry([]*workspace.PackageUnit{a, b})
	reports := module.CheckCycles(reg)
	require.Len(t, reports, 1)
	require.Equal(t, "IMP004", reports[0].Code)
}

func TestCheckCyclesNoCycle(t *testing.T) {
	a := unit(t, "pkg/a", "pkg/a/a.cop", `import "pkg/b" { Thing }
`)
	b := unit(t, "pkg/b", "pkg/b/b.cop", `public type Thing :: struct { x: Int64 }
`)
	reg := module.NewRegistry([]*workspace.PackageUnit{a, b})
	reports := module.CheckCycles(reg)
	require.Empty(t, reports)
}
