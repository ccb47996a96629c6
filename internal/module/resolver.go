// Package module implements C4: resolving each file's import
// declarations against the package registry, producing
// ResolvedImports, and detecting cycles in the package-import graph.
//
// The cycle search is a DFS with an explicit recursion-stack set,
// building the cycle's path for the diagnostic when a back-edge is
// found.
package module

import (
	"fmt"
	"sort"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// Binding is one resolved `a` or `b as c` entry.
type Binding struct {
	ImportedName string
	LocalName    string
	Span         token.Span
}

// ResolvedImport is one file's import declaration resolved against the
// package registry.
type ResolvedImport struct {
	SourceFile      string
	TargetPackageID workspace.PackageID
	Bindings        []Binding
}

// Registry maps a package ID to the set of names it exports publicly.
// A name is exported either because it is a public declaration in one
// of the package's files, or because the package's manifest
// re-exports it via an `exports { … }` declaration.
type Registry struct {
	exports map[workspace.PackageID]map[string]bool
	// importsOf records, for each package, which other packages its
	// files import — the edge set the cycle search walks.
	importsOf map[workspace.PackageID]map[workspace.PackageID]bool
}

// NewRegistry builds a Registry from every package unit's syntax tree.
func NewRegistry(units []*workspace.PackageUnit) *Registry {
	r := &Registry{
		exports:   map[workspace.PackageID]map[string]bool{},
		importsOf: map[workspace.PackageID]map[workspace.PackageID]bool{},
	}
	for _, u := range units {
		if u.Syntax == nil {
			continue
		}
		names := r.exports[u.Package]
		if names == nil {
			names = map[string]bool{}
			r.exports[u.Package] = names
		}
		for _, d := range u.Syntax.Decls {
			switch v := d.(type) {
			case *ast.TypeDecl:
				if v.Public {
					names[v.Name] = true
				}
			case *ast.ConstantDecl:
				if v.Public {
					names[v.Name] = true
				}
			case *ast.FunctionDecl:
				if v.Public {
					names[v.Name] = true
				}
			case *ast.ExportsDecl:
				for _, n := range v.Names {
					names[n] = true
				}
			}
		}
	}
	for _, u := range units {
		if u.Syntax == nil {
			continue
		}
		edges := r.importsOf[u.Package]
		if edges == nil {
			edges = map[workspace.PackageID]bool{}
			r.importsOf[u.Package] = edges
		}
		for _, d := range u.Syntax.Decls {
			if imp, ok := d.(*ast.ImportDecl); ok {
				edges[workspace.PackageID(imp.PackagePath)] = true
			}
		}
	}
	return r
}

// Resolve resolves every import declaration in one file against the
// registry, returning its ResolvedImports and any diagnostics.
func Resolve(path string, f *ast.File, reg *Registry) ([]ResolvedImport, []*diag.Report) {
	var out []ResolvedImport
	var reports []*diag.Report
	localNames := map[string]token.Pos{}

	for _, d := range f.Decls {
		imp, ok := d.(*ast.ImportDecl)
		if !ok {
			continue
		}
		target := workspace.PackageID(imp.PackagePath)
		exported, known := reg.exports[target]
		if !known {
			reports = append(reports, diag.New(diag.IMP001, diag.PhaseImport, path,
				fmt.Sprintf("imported package %q not found", imp.PackagePath), token.Span{Start: imp.Pos, End: imp.Pos}))
			continue
		}
		ri := ResolvedImport{SourceFile: path, TargetPackageID: target}
		for _, b := range imp.Bindings {
			if !exported[b.Imported] {
				reports = append(reports, diag.New(diag.IMP002, diag.PhaseImport, path,
					fmt.Sprintf("%q is not exported by package %q", b.Imported, imp.PackagePath),
					token.Span{Start: b.Pos, End: b.Pos}))
				continue
			}
			if prev, dup := localNames[b.Local]; dup {
				reports = append(reports, diag.New(diag.IMP003, diag.PhaseImport, path,
					fmt.Sprintf("%q is already bound by an earlier import (at %s)", b.Local, prev),
					token.Span{Start: b.Pos, End: b.Pos}))
				continue
			}
			localNames[b.Local] = b.Pos
			ri.Bindings = append(ri.Bindings, Binding{
				ImportedName: b.Imported,
				LocalName:    b.Local,
				Span:         token.Span{Start: b.Pos, End: b.Pos},
			})
		}
		out = append(out, ri)
	}
	return out, reports
}

// CheckCycles walks the package-import graph built into the Registry
// and reports every cycle it finds, at most once per distinct cycle
// entry point (the first package visited that closes a cycle).
func CheckCycles(reg *Registry) []*diag.Report {
	var reports []*diag.Report
	visited := map[workspace.PackageID]bool{}
	onStack := map[workspace.PackageID]bool{}
	var stack []workspace.PackageID

	var ids []workspace.PackageID
	for id := range reg.importsOf {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var dfs func(id workspace.PackageID) bool
	dfs = func(id workspace.PackageID) bool {
		if onStack[id] {
			reports = append(reports, cycleReport(stack, id))
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		var deps []workspace.PackageID
		for dep := range reg.importsOf[id] {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		found := false
		for _, dep := range deps {
			if dfs(dep) {
				found = true
				break
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return found
	}

	for _, id := range ids {
		if !visited[id] {
			dfs(id)
		}
	}
	return reports
}

func cycleReport(stack []workspace.PackageID, closing workspace.PackageID) *diag.Report {
	start := 0
	for i, id := range stack {
		if id == closing {
			start = i
			break
		}
	}
	cycle := append(append([]workspace.PackageID{}, stack[start:]...), closing)
	msg := "import cycle: "
	for i, id := range cycle {
		if i > 0 {
			msg += " -> "
		}
		msg += string(id)
	}
	return diag.New(diag.IMP004, diag.PhaseImport, string(cycle[0]), msg, token.Span{})
}
