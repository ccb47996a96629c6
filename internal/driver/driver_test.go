package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/isaacparker0/coppice-sub000/internal/driver"
)

func writeWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, driver.MarkerFileName), nil, 0o644))

	pkgDir := filepath.Join(root, "pkg", "main")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "main.cop"), []byte(`function main() -> Nil {
  return nil
}
`), 0o644))
	manifestYAML := `schema: coppice.manifest/v1
package: pkg/main
files:
  - path: main.cop
    role: binary
`
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, driver.ManifestFileName), []byte(manifestYAML), 0o644))
	return root
}

func TestAnalyzeTargetSucceedsOnCleanWorkspace(t *testing.T) {
	root := writeWorkspace(t)
	d := driver.New(nil)
	result, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	require.NotNil(t, result)
	require.Empty(t, result.Diagnostics)
	require.Contains(t, result.ResolvedDeclarations, "pkg/main/main.cop")
}

func TestAnalyzeTargetReportsMissingMarker(t *testing.T) {
	root := t.TempDir()
	d := driver.New(nil)
	_, failure := d.AnalyzeTarget(root, "", nil)
	require.NotNil(t, failure)
	require.Equal(t, driver.KindWorkspaceRootMissingManifest, failure.Kind)
}

func TestAnalyzeTargetRejectsOutOfScopeTarget(t *testing.T) {
	root := writeWorkspace(t)
	d := driver.New(nil)
	outside := t.TempDir()
	_, failure := d.AnalyzeTarget(outside, root, nil)
	require.NotNil(t, failure)
	require.Equal(t, driver.KindTargetOutsideWorkspace, failure.Kind)
}

func TestBuildBinaryProducesObject(t *testing.T) {
	root := writeWorkspace(t)
	d := driver.New(nil)
	obj, reports, failure := d.BuildBinary(root, root, "pkg/main", nil)
	require.Nil(t, failure)
	require.Empty(t, reports)
	require.NotNil(t, obj)
	require.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, obj.Bytes[:4])
}

func TestAnalyzeTargetDiagnosticsDeterministic(t *testing.T) {
	root := writeWorkspace(t)
	d := driver.New(nil)
	first, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	second, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	require.Empty(t, cmp.Diff(first.Diagnostics, second.Diagnostics))
	require.Empty(t, cmp.Diff(first.SourceText, second.SourceText))
}

func TestAnalyzeTargetReportsUnusedImport(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, driver.MarkerFileName), nil, 0o644))

	listDir := filepath.Join(root, "pkg", "list")
	require.NoError(t, os.MkdirAll(listDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(listDir, "list.cop"), []byte(`public function printLine(s: String) -> Nil {
  print(s)
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(listDir, driver.ManifestFileName), []byte(`schema: coppice.manifest/v1
package: pkg/list
files:
  - path: list.cop
`), 0o644))

	mainDir := filepath.Join(root, "pkg", "main")
	require.NoError(t, os.MkdirAll(mainDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, "main.cop"), []byte(`import "pkg/list" { printLine }

function main() -> Nil {
  return nil
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, driver.ManifestFileName), []byte(`schema: coppice.manifest/v1
package: pkg/main
files:
  - path: main.cop
    role: binary
`), 0o644))

	d := driver.New(nil)
	result, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	var codes []string
	for _, r := range result.Diagnostics {
		codes = append(codes, r.Code)
	}
	require.Contains(t, codes, "IMP005")
}

func TestBuildBinaryUnknownPackage(t *testing.T) {
	root := writeWorkspace(t)
	d := driver.New(nil)
	_, _, failure := d.BuildBinary(root, root, "pkg/missing", nil)
	require.NotNil(t, failure)
	require.Equal(t, driver.KindPackageNotFound, failure.Kind)
}

// writeTwoPackageWorkspace lays out a library package exporting
// printLine and a binary package whose main.cop body is supplied by
// the caller.
func writeTwoPackageWorkspace(t *testing.T, mainSrc string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, driver.MarkerFileName), nil, 0o644))

	libDir := filepath.Join(root, "pkg", "io")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "io.cop"), []byte(`public function printLine(s: String) -> Nil {
  print(s)
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, driver.ManifestFileName), []byte(`schema: coppice.manifest/v1
package: pkg/io
files:
  - path: io.cop
`), 0o644))

	mainDir := filepath.Join(root, "pkg", "main")
	require.NoError(t, os.MkdirAll(mainDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, "main.cop"), []byte(mainSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, driver.ManifestFileName), []byte(`schema: coppice.manifest/v1
package: pkg/main
files:
  - path: main.cop
    role: binary
`), 0o644))
	return root
}

func TestAnalyzeTargetResolvesAliasedImportCall(t *testing.T) {
	root := writeTwoPackageWorkspace(t, `import "pkg/io" { printLine as say }

function main() -> Nil {
  say("hi")
  return nil
}
`)
	d := driver.New(nil)
	result, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	require.Empty(t, result.Diagnostics, "calling an imported function by its alias must type-check: %v", result.Diagnostics)
}

func TestAnalyzeTargetRejectsUnimportedReference(t *testing.T) {
	root := writeTwoPackageWorkspace(t, `function main() -> Nil {
  printLine("hi")
  return nil
}
`)
	d := driver.New(nil)
	result, failure := d.AnalyzeTarget(root, root, nil)
	require.Nil(t, failure)
	var codes []string
	for _, r := range result.Diagnostics {
		codes = append(codes, r.Code)
	}
	require.Contains(t, codes, "TYP002", "a public symbol of an un-imported package must be out of scope: %v", result.Diagnostics)
}
