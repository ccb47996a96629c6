package types

import "github.com/isaacparker0/coppice-sub000/internal/ast"

// ImportBinding is one locally-visible name bound by a file's import
// declaration: the local alias, the name as declared in the target
// package, and that package's path. Together with the file's own
// package, these bindings are the whole name environment type
// analysis may resolve through — a public symbol of a package the
// file never imported is not in scope.
type ImportBinding struct {
	LocalName    string
	ImportedName string
	PackagePath  string
}

// BindingsFromFile derives a file's import bindings straight from its
// parsed import declarations. Import resolution validates the same
// declarations against the target packages' export sets (and a file
// that fails it never reaches type analysis), so the mapping here only
// needs the syntactic local-name → declared-name pairing.
func BindingsFromFile(f *ast.File) []ImportBinding {
	if f == nil {
		return nil
	}
	var out []ImportBinding
	for _, d := range f.Decls {
		imp, ok := d.(*ast.ImportDecl)
		if !ok {
			continue
		}
		for _, b := range imp.Bindings {
			out = append(out, ImportBinding{
				LocalName:    b.Local,
				ImportedName: b.Imported,
				PackagePath:  imp.PackagePath,
			})
		}
	}
	return out
}

// bindingMap indexes bindings by their local alias for lookup during
// analysis. Duplicate aliases are an import-resolution error; the
// first wins here so analysis stays deterministic regardless.
func bindingMap(bindings []ImportBinding) map[string]ImportBinding {
	if len(bindings) == 0 {
		return nil
	}
	m := make(map[string]ImportBinding, len(bindings))
	for _, b := range bindings {
		if _, dup := m[b.LocalName]; !dup {
			m[b.LocalName] = b
		}
	}
	return m
}
