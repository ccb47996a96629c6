// Command coppice is a thin CLI front end over the driver: `check`
// analyzes a workspace target and prints its diagnostics; `build` also
// lowers and emits a native object for a binary package. Report
// formatting, exit-code taxonomies, and autofix application belong to
// external tooling; this binary only prints a minimal human-readable
// summary.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/driver"
	"github.com/isaacparker0/coppice-sub000/internal/workspace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var workspaceRoot string

	root := &cobra.Command{
		Use:   "coppice",
		Short: "coppice is an ahead-of-time compiler core for the coppice language",
	}
	root.PersistentFlags().StringVar(&workspaceRoot, "workspace", "", "workspace root override (defaults to the marker file discovered above the target)")

	root.AddCommand(newCheckCmd(&workspaceRoot))
	root.AddCommand(newBuildCmd(&workspaceRoot))
	return root
}

func newCheckCmd(workspaceRoot *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check [target]",
		Short: "analyze a file, package, or workspace and print its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := driver.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			result, failure := d.AnalyzeTarget(args[0], *workspaceRoot, nil)
			if failure != nil {
				fmt.Fprintf(os.Stderr, "coppice: %s\n", failure.Error())
				return failure
			}
			printDiagnostics(result.Diagnostics)
			if len(result.Diagnostics) > 0 {
				return fmt.Errorf("%d diagnostic(s)", len(result.Diagnostics))
			}
			return nil
		},
	}
}

func newBuildCmd(workspaceRoot *string) *cobra.Command {
	var binaryPackage string
	cmd := &cobra.Command{
		Use:   "build [target]",
		Short: "analyze a workspace and emit a native object for its binary package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if binaryPackage == "" {
				return fmt.Errorf("--package is required")
			}
			d := driver.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			obj, reports, failure := d.BuildBinary(args[0], *workspaceRoot, workspace.PackageID(binaryPackage), nil)
			if failure != nil {
				fmt.Fprintf(os.Stderr, "coppice: %s\n", failure.Error())
				return failure
			}
			printDiagnostics(reports)
			if len(reports) > 0 || obj == nil {
				return fmt.Errorf("build failed: %d diagnostic(s)", len(reports))
			}
			out := cmd.Flags().Lookup("out").Value.String()
			if out == "" {
				out = binaryPackage + ".o"
			}
			if err := os.WriteFile(out, obj.Bytes, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %s (build id %s)\n", out, obj.BuildID)
			return nil
		},
	}
	cmd.Flags().StringVar(&binaryPackage, "package", "", "workspace-relative package path of the binary to build")
	cmd.Flags().String("out", "", "output object file path (default: <package>.o)")
	return cmd
}

func printDiagnostics(reports []*diag.Report) {
	for _, r := range reports {
		fmt.Fprintf(os.Stdout, "%s:%d:%d: %s: %s\n", r.Path, r.Span.Start.Line, r.Span.Start.Column, r.Code, r.Message)
	}
}
