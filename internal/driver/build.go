package driver

import (
	"time"

	"github.com/isaacparker0/coppice-sub000/internal/backend"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/exec"
	"github.com/isaacparker0/coppice-sub000/internal/types"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

// BuildBinary runs the full pipeline — AnalyzeTarget (C1–C7) followed
// by executable lowering (C8) and native object emission (C9) — for
// one binary-role package. It is the driver's entry point for the
// `build` CLI subcommand; `check` only needs AnalyzeTarget.
func (d *Driver) BuildBinary(targetPath, workspaceRootOverride string, binaryPackage workspace.PackageID, sourceOverrides map[string]string) (*backend.ObjectFile, []*diag.Report, *CompilerFailure) {
	start := time.Now()
	analyzed, cf := d.AnalyzeTarget(targetPath, workspaceRootOverride, sourceOverrides)
	if cf != nil {
		return nil, nil, cf
	}
	if len(analyzed.Diagnostics) > 0 {
		return nil, analyzed.Diagnostics, nil
	}

	known := false
	for _, f := range analyzed.ResolvedDeclarations {
		if f.Package == string(binaryPackage) {
			known = true
			break
		}
	}
	if !known {
		return nil, nil, fail(KindPackageNotFound, string(binaryPackage), "package %q not found in workspace", binaryPackage)
	}

	var files []*types.TypeAnnotatedFile
	for _, f := range analyzed.ResolvedDeclarations {
		files = append(files, f)
	}

	prog, reports := exec.Lower(analyzed.Registry, files, binaryPackage)
	if len(reports) > 0 {
		return nil, reports, nil
	}

	obj, reports := backend.Emit(prog)
	d.log.Debug("build complete", "package", binaryPackage, "elapsed", time.Since(start))
	return obj, reports, nil
}
