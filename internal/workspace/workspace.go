// Package workspace defines the on-disk data model shared by import
// resolution, public-symbol typing, and the driver: workspaces,
// packages, package units, and file roles.
package workspace

import (
	"path"
	"path/filepath"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
)

// Role classifies a source file's legal position in a package.
type Role int

const (
	// RoleLibrary is an ordinary source file contributing declarations
	// to its package's public surface.
	RoleLibrary Role = iota
	// RoleBinary is an entry-point file; it must declare a zero-arg,
	// non-generic, Nil-returning `main`.
	RoleBinary
	// RoleManifest is a package manifest file; it is parsed but its
	// declaration set is syntactically restricted (exports only).
	RoleManifest
)

func (r Role) String() string {
	switch r {
	case RoleBinary:
		return "binary"
	case RoleManifest:
		return "manifest"
	default:
		return "library"
	}
}

// PackageID identifies a package by its workspace-relative path. It is
// the identity half of a NominalRef.
type PackageID string

// File is one source file's on-disk location and role within its
// package.
type File struct {
	Path string // workspace-relative path, forward-slash separated
	Role Role
}

// Package is an ordered set of source files sharing one package path.
type Package struct {
	ID    PackageID
	Files []*File
}

// Workspace is the root of a compilation: an ordered set of packages
// discovered beneath a marker-file directory (see internal/driver).
type Workspace struct {
	Root     string
	Packages []*Package
}

// FindPackage returns the package with the given ID, or nil.
func (w *Workspace) FindPackage(id PackageID) *Package {
	for _, p := range w.Packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PackageUnit pairs a package identity, one of its file paths, and
// that file's parsed (and later semantic) form.
type PackageUnit struct {
	Package PackageID
	Path    string
	Syntax  *ast.File
}

// CanonicalPackageID derives a package's workspace-relative ID from
// one of its file paths (the containing directory, slash-normalized).
func CanonicalPackageID(filePath string) PackageID {
	dir := path.Dir(filepath.ToSlash(filePath))
	if dir == "." {
		dir = ""
	}
	return PackageID(dir)
}
