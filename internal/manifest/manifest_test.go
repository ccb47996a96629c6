package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isaacparker0/coppice-sub000/internal/manifest"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

func TestDecodeManifest(t *testing.T) {
	m, err := manifest.Decode([]byte(`schema: coppice.manifest/v1
package: pkg/list
files:
  - path: list.cop
  - path: main.cop
    role: binary
exports:
  - List
  - Node
`))
	require.NoError(t, err)
	require.Equal(t, "pkg/list", m.Package)
	require.Len(t, m.Files, 2)
	require.Equal(t, workspace.RoleLibrary, m.Files[0].Role)
	require.Equal(t, workspace.RoleBinary, m.Files[1].Role)
	require.Equal(t, []string{"List", "Node"}, m.Exports)
}

func TestDecodeDefaultsSchema(t *testing.T) {
	m, err := manifest.Decode([]byte("package: pkg/a\nfiles:\n  - path: a.cop\n"))
	require.NoError(t, err)
	require.Equal(t, manifest.SchemaVersion, m.Schema)
}

func TestDecodeRejectsUnknownRole(t *testing.T) {
	_, err := manifest.Decode([]byte("package: pkg/a\nfiles:\n  - path: a.cop\n    role: plugin\n"))
	require.Error(t, err)
}

func TestDecodeRejectsDuplicatePath(t *testing.T) {
	_, err := manifest.Decode([]byte("package: pkg/a\nfiles:\n  - path: a.cop\n  - path: a.cop\n"))
	require.Error(t, err)
}

func TestDecodeRejectsTwoBinaries(t *testing.T) {
	_, err := manifest.Decode([]byte("package: pkg/a\nfiles:\n  - path: a.cop\n    role: binary\n  - path: b.cop\n    role: binary\n"))
	require.Error(t, err)
}

func TestEncodeRoundTrips(t *testing.T) {
	m := &manifest.Manifest{
		Schema:  manifest.SchemaVersion,
		Package: "pkg/a",
		Files:   []manifest.FileEntry{{Path: "a.cop", Role: workspace.RoleBinary}},
	}
	data, err := m.Encode()
	require.NoError(t, err)
	back, err := manifest.Decode(data)
	require.NoError(t, err)
	require.Equal(t, m.Package, back.Package)
	require.Equal(t, m.Files, back.Files)
}
