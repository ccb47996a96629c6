// Package driver owns the compiler's only filesystem interaction:
// workspace-root discovery, package/manifest enumeration, phase-gated
// per-file execution across the analysis pipeline, diagnostic
// aggregation, and autofix-edit merging, exposed as
// Driver.AnalyzeTarget.
package driver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/manifest"
	"github.com/isaacparker0/coppice-sub000/internal/module"
	"github.com/isaacparker0/coppice-sub000/internal/parser"
	"github.com/isaacparker0/coppice-sub000/internal/semantic"
	"github.com/isaacparker0/coppice-sub000/internal/syntax"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// MarkerFileName is the workspace-root sentinel file: empty,
// presence-only.
const MarkerFileName = "coppice.workspace"

// ManifestFileName is the per-package manifest file, decoded by
// internal/manifest.
const ManifestFileName = "coppice.pkg.yaml"

// CompilerFailure kind tags.
const (
	KindReadSource                   = "read-source"
	KindInvalidAnalysisTarget        = "invalid-analysis-target"
	KindTargetOutsideWorkspace       = "target-outside-workspace"
	KindWorkspaceRootMissingManifest = "workspace-root-missing-manifest"
	KindPackageNotFound              = "package-not-found"
	KindBuildFailed                  = "build-failed"
)

// CompilerFailure aborts an analysis run with no partial result.
type CompilerFailure struct {
	Kind    string
	Message string
	Path    string
}

func (f *CompilerFailure) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Message, f.Path)
}

func fail(kind, path string, format string, args ...any) *CompilerFailure {
	return &CompilerFailure{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path}
}

// AnalyzedTarget is the result record for a successful analysis run
// over a target's in-scope package set.
type AnalyzedTarget struct {
	// Diagnostics is every in-scope diagnostic, sorted by path, then
	// line, column, message, phase.
	Diagnostics []*diag.Report
	// AllDiagnostics is every diagnostic (in- and out-of-scope-package)
	// keyed by workspace-relative file path.
	AllDiagnostics map[string][]*diag.Report
	// SourceText is the as-read source for every file the run touched.
	SourceText map[string]string
	// AutofixEditCounts is the number of accepted autofix edits the
	// driver would apply per file.
	AutofixEditCounts map[string]int
	// CanonicalSource holds, for files where autofix edits apply
	// cleanly, the edited source text.
	CanonicalSource map[string]string
	// ResolvedImports is the per-file import resolution result (C4).
	ResolvedImports map[string][]module.ResolvedImport
	// ResolvedDeclarations is the per-file type-annotated result (C7),
	// keyed by workspace-relative file path, present for every file
	// that reached and passed type analysis.
	ResolvedDeclarations map[string]*types.TypeAnnotatedFile
	// Registry is the cross-file public-symbol table (C6) the run
	// built, consumed directly by a subsequent Driver.BuildBinary call
	// so the pipeline is not re-run from scratch.
	Registry *types.Registry
}

// Driver runs the analysis pipeline against one workspace.
type Driver struct {
	log *slog.Logger
}

// New builds a Driver; logger may be nil to use slog's default.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{log: logger}
}

// fileState records whether one file has failed a phase, so a failure
// at an earlier phase excludes it from later ones without aborting
// the whole run. Only a single failed flag is kept; which phase failed
// is not recorded.
type fileState struct {
	unit   *workspace.PackageUnit
	role   workspace.Role
	source string
	failed bool
}

// AnalyzeTarget runs C1 through C7 over the workspace rooted either at
// workspaceRootOverride or discovered upward from targetPath, scoped
// to the package(s) targetPath names. sourceOverrides substitutes
// in-memory content for specific workspace-relative paths, letting
// callers analyze unsaved edits.
func (d *Driver) AnalyzeTarget(targetPath string, workspaceRootOverride string, sourceOverrides map[string]string) (*AnalyzedTarget, *CompilerFailure) {
	start := time.Now()
	root := workspaceRootOverride
	if root == "" {
		r, err := findWorkspaceRoot(targetPath)
		if err != nil {
			return nil, fail(KindWorkspaceRootMissingManifest, targetPath, "%v", err)
		}
		root = r
	}

	ws, cf := discoverWorkspace(root)
	if cf != nil {
		return nil, cf
	}

	scope, cf := resolveScope(ws, root, targetPath)
	if cf != nil {
		return nil, cf
	}

	d.log.Debug("workspace discovered", "root", root, "packages", len(ws.Packages))

	states := map[string]*fileState{}
	var units []*workspace.PackageUnit
	allDiags := map[string][]*diag.Report{}
	sourceText := map[string]string{}

	for _, pkg := range ws.Packages {
		for _, f := range pkg.Files {
			src, err := readSource(root, f.Path, sourceOverrides)
			if err != nil {
				return nil, fail(KindReadSource, f.Path, "%v", err)
			}
			sourceText[f.Path] = src

			file, reports := parser.ParseFile([]byte(src), f.Path)
			st := &fileState{role: f.Role, source: src}
			allDiags[f.Path] = append(allDiags[f.Path], reports...)
			if len(reports) > 0 {
				st.failed = true
				states[f.Path] = st
				continue
			}
			st.unit = &workspace.PackageUnit{Package: pkg.ID, Path: f.Path, Syntax: file}
			states[f.Path] = st
			units = append(units, st.unit)
		}
	}

	var edits []syntax.Edit
	for path, st := range states {
		if st.failed {
			continue
		}
		reports, fileEdits := syntax.Check(st.unit.Syntax, st.role)
		allDiags[path] = append(allDiags[path], reports...)
		edits = append(edits, fileEdits...)
		if len(reports) > 0 {
			st.failed = true
		}
	}

	for _, st := range states {
		if st.failed {
			continue
		}
		semantic.Lower(st.unit.Syntax)
	}

	importReg := module.NewRegistry(units)
	resolvedImports := map[string][]module.ResolvedImport{}
	for path, st := range states {
		if st.failed {
			continue
		}
		ri, reports := module.Resolve(path, st.unit.Syntax, importReg)
		allDiags[path] = append(allDiags[path], reports...)
		resolvedImports[path] = ri
		if len(reports) > 0 {
			st.failed = true
		}
	}
	for _, r := range module.CheckCycles(importReg) {
		allDiags[r.Path] = append(allDiags[r.Path], r)
	}

	var typedUnits []*workspace.PackageUnit
	for _, st := range states {
		if !st.failed {
			typedUnits = append(typedUnits, st.unit)
		}
	}
	table, reports := types.Build(typedUnits)
	for _, r := range reports {
		allDiags[r.Path] = append(allDiags[r.Path], r)
	}

	resolved := map[string]*types.TypeAnnotatedFile{}
	for path, st := range states {
		if st.failed {
			continue
		}
		// The file's resolved import bindings are its whole name
		// environment beyond its own package; type analysis must not
		// see symbols the file never imported.
		var bindings []types.ImportBinding
		for _, ri := range resolvedImports[path] {
			for _, b := range ri.Bindings {
				bindings = append(bindings, types.ImportBinding{
					LocalName:    b.LocalName,
					ImportedName: b.ImportedName,
					PackagePath:  string(ri.TargetPackageID),
				})
			}
		}
		out, diags := types.AnalyzeFile(path, string(st.unit.Package), st.unit.Syntax, table.Registry, bindings)
		allDiags[path] = append(allDiags[path], diags...)
		if len(diags) > 0 {
			st.failed = true
			continue
		}
		resolved[path] = out
	}

	for path, out := range resolved {
		for _, ri := range resolvedImports[path] {
			for _, b := range ri.Bindings {
				if out.UsedNames[b.LocalName] {
					continue
				}
				allDiags[path] = append(allDiags[path], diag.New(diag.IMP005, diag.PhaseImport, path,
					fmt.Sprintf("unused import %q", b.LocalName), b.Span))
			}
		}
	}

	inScope := map[string][]*diag.Report{}
	for path, reports := range allDiags {
		if scope[path] {
			inScope[path] = reports
		}
	}

	var flat []*diag.Report
	for _, reports := range inScope {
		flat = append(flat, reports...)
	}
	sortDiagnostics(flat)

	editCounts := map[string]int{}
	canonical := map[string]string{}
	byFile := map[string][]syntax.Edit{}
	for _, e := range edits {
		byFile[e.Path] = append(byFile[e.Path], e)
	}
	for path, es := range byFile {
		editCounts[path] = len(es)
		if applied, ok := applyEdits(sourceText[path], es); ok {
			canonical[path] = applied
		}
	}

	d.log.Debug("analysis complete", "files", len(states), "diagnostics", len(flat), "elapsed", time.Since(start))

	return &AnalyzedTarget{
		Diagnostics:          flat,
		AllDiagnostics:       allDiags,
		SourceText:           sourceText,
		AutofixEditCounts:    editCounts,
		CanonicalSource:      canonical,
		ResolvedImports:      resolvedImports,
		ResolvedDeclarations: resolved,
		Registry:             table.Registry,
	}, nil
}

// applyEdits merges non-overlapping autofix edits into src, sorted by
// span start descending so earlier offsets stay valid as later ones
// are applied; overlapping edits abort the merge, so canonical source
// is only offered when every edit applies cleanly.
func applyEdits(src string, edits []syntax.Edit) (string, bool) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].Span.Start.Offset > edits[j].Span.Start.Offset })
	out := []byte(src)
	lastStart := len(out) + 1
	for _, e := range edits {
		if int(e.Span.End.Offset) > lastStart {
			return "", false
		}
		if int(e.Span.Start.Offset) < 0 || int(e.Span.End.Offset) > len(out) {
			return "", false
		}
		out = append(out[:e.Span.Start.Offset], append([]byte(e.Replacement), out[e.Span.End.Offset:]...)...)
		lastStart = int(e.Span.Start.Offset)
	}
	return string(out), true
}

func sortDiagnostics(reports []*diag.Report) {
	sort.Slice(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Span.Start.Line != b.Span.Start.Line {
			return a.Span.Start.Line < b.Span.Start.Line
		}
		if a.Span.Start.Column != b.Span.Start.Column {
			return a.Span.Start.Column < b.Span.Start.Column
		}
		if a.Message != b.Message {
			return a.Message < b.Message
		}
		return a.Phase < b.Phase
	})
}

func readSource(root, path string, overrides map[string]string) (string, error) {
	if overrides != nil {
		if src, ok := overrides[path]; ok {
			return src, nil
		}
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// findWorkspaceRoot walks upward from targetPath's containing
// directory looking for MarkerFileName.
func findWorkspaceRoot(targetPath string) (string, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return "", err
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, MarkerFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found above %s", MarkerFileName, targetPath)
		}
		dir = parent
	}
}

// discoverWorkspace walks the workspace tree collecting every
// directory holding a ManifestFileName file into a workspace.Package.
func discoverWorkspace(root string) (*workspace.Workspace, *CompilerFailure) {
	if _, err := os.Stat(filepath.Join(root, MarkerFileName)); err != nil {
		return nil, fail(KindWorkspaceRootMissingManifest, root, "workspace root has no %s", MarkerFileName)
	}
	ws := &workspace.Workspace{Root: root}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ManifestFileName {
			return nil
		}
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return rerr
		}
		m, derr := manifest.Decode(data)
		if derr != nil {
			return derr
		}
		pkgDir := filepath.Dir(p)
		pkg := m.ToPackage()
		relDir, rerr := filepath.Rel(root, pkgDir)
		if rerr != nil {
			return rerr
		}
		for _, f := range pkg.Files {
			f.Path = filepath.ToSlash(filepath.Join(relDir, f.Path))
		}
		ws.Packages = append(ws.Packages, pkg)
		return nil
	})
	if err != nil {
		return nil, fail(KindReadSource, root, "%v", err)
	}
	sort.Slice(ws.Packages, func(i, j int) bool { return ws.Packages[i].ID < ws.Packages[j].ID })
	return ws, nil
}

// resolveScope determines which files are "in scope" for targetPath:
// every file, if targetPath is the workspace root; if targetPath is
// another directory, every file of each package whose ID equals that
// directory's workspace-relative path or lies beneath it; or, for a
// file, just that one file.
func resolveScope(ws *workspace.Workspace, root, targetPath string) (map[string]bool, *CompilerFailure) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fail(KindInvalidAnalysisTarget, targetPath, "%v", err)
	}
	rootAbs, _ := filepath.Abs(root)
	if !strings.HasPrefix(abs, rootAbs) {
		return nil, fail(KindTargetOutsideWorkspace, targetPath, "target lies outside workspace root %s", root)
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return nil, fail(KindInvalidAnalysisTarget, targetPath, "%v", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fail(KindInvalidAnalysisTarget, targetPath, "%v", err)
	}

	scope := map[string]bool{}
	if !info.IsDir() {
		scope[rel] = true
		return scope, nil
	}
	for _, pkg := range ws.Packages {
		pkgDir := string(pkg.ID)
		if rel == "" || pkgDir == rel || strings.HasPrefix(pkgDir, rel+"/") {
			for _, f := range pkg.Files {
				scope[f.Path] = true
			}
		}
	}
	return scope, nil
}

// FindPackageByID looks up a package in a discovered workspace,
// returning KindPackageNotFound when absent.
func FindPackageByID(ws *workspace.Workspace, id workspace.PackageID) (*workspace.Package, *CompilerFailure) {
	if p := ws.FindPackage(id); p != nil {
		return p, nil
	}
	return nil, fail(KindPackageNotFound, string(id), "package %q not found in workspace", id)
}
