// Package manifest decodes and validates package manifest files:
// YAML documents naming a package's identifier, its files' roles, and
// its re-exported names.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// SchemaVersion is the current manifest schema tag.
const SchemaVersion = "coppice.manifest/v1"

// FileEntry names one source file's on-disk path and role within the
// owning package.
type FileEntry struct {
	Path string
	Role workspace.Role
}

// fileEntryYAML is the wire shape; Role is decoded from its string tag
// via UnmarshalYAML on FileEntry.
type fileEntryYAML struct {
	Path string `yaml:"path"`
	Role string `yaml:"role"`
}

// UnmarshalYAML decodes a role tag ("library", "binary", "manifest")
// into workspace.Role.
func (e *FileEntry) UnmarshalYAML(value *yaml.Node) error {
	var raw fileEntryYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	e.Path = raw.Path
	switch raw.Role {
	case "", "library":
		e.Role = workspace.RoleLibrary
	case "binary":
		e.Role = workspace.RoleBinary
	case "manifest":
		e.Role = workspace.RoleManifest
	default:
		return fmt.Errorf("manifest: unknown file role %q for %q", raw.Role, raw.Path)
	}
	return nil
}

// MarshalYAML re-encodes the decoded Role back to its wire string.
func (e FileEntry) MarshalYAML() (any, error) {
	return fileEntryYAML{Path: e.Path, Role: e.Role.String()}, nil
}

// Manifest is one package's decoded manifest document.
type Manifest struct {
	Schema  string      `yaml:"schema"`
	Package string      `yaml:"package"`
	Files   []FileEntry `yaml:"files"`
	Exports []string    `yaml:"exports,omitempty"`
}

// Decode parses manifest YAML bytes, defaulting Schema when absent and
// validating the result.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse error: %w", err)
	}
	if m.Schema == "" {
		m.Schema = SchemaVersion
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode serializes the manifest back to YAML.
func (m *Manifest) Encode() ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate checks internal consistency of a decoded manifest.
func (m *Manifest) Validate() error {
	if m.Schema != SchemaVersion {
		return fmt.Errorf("manifest: unsupported schema %q (want %q)", m.Schema, SchemaVersion)
	}
	if m.Package == "" {
		return fmt.Errorf("manifest: missing package identifier")
	}
	seen := make(map[string]bool, len(m.Files))
	binaryCount := 0
	for _, f := range m.Files {
		if f.Path == "" {
			return fmt.Errorf("manifest: file entry missing path")
		}
		if seen[f.Path] {
			return fmt.Errorf("manifest: duplicate file path %q", f.Path)
		}
		seen[f.Path] = true
		if f.Role == workspace.RoleBinary {
			binaryCount++
		}
	}
	if binaryCount > 1 {
		return fmt.Errorf("manifest: a package may declare at most one binary-role file")
	}
	return nil
}

// ToPackage builds the workspace.Package this manifest describes.
func (m *Manifest) ToPackage() *workspace.Package {
	p := &workspace.Package{ID: workspace.PackageID(m.Package)}
	for _, f := range m.Files {
		p.Files = append(p.Files, &workspace.File{Path: f.Path, Role: f.Role})
	}
	return p
}
