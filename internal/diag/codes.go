// Package diag provides the centralized, phase-tagged diagnostic code
// taxonomy and the structured Report type used by every phase of the
// analysis pipeline.
package diag

// Error codes are grouped by the phase that raises them. Each constant
// documents the specific condition it represents so diagnostics remain
// identifiable independent of their message text.
const (
	// ---------------------------------------------------------------
	// Lexer errors (LEX###)
	// ---------------------------------------------------------------

	// LEX001 indicates a string literal was never closed before end of line.
	LEX001 = "LEX001"
	// LEX002 indicates an integer literal does not fit in a signed 64-bit value.
	LEX002 = "LEX002"
	// LEX003 indicates an unrecognized byte sequence.
	LEX003 = "LEX003"

	// ---------------------------------------------------------------
	// Parser errors (PAR###)
	// ---------------------------------------------------------------

	// PAR001 indicates an unexpected token was encountered.
	PAR001 = "PAR001"
	// PAR002 indicates a missing closing delimiter.
	PAR002 = "PAR002"
	// PAR003 indicates an invalid type declaration.
	PAR003 = "PAR003"
	// PAR004 indicates an invalid function declaration.
	PAR004 = "PAR004"
	// PAR005 indicates an invalid import declaration.
	PAR005 = "PAR005"
	// PAR006 indicates an invalid exports declaration.
	PAR006 = "PAR006"
	// PAR007 indicates an invalid match arm.
	PAR007 = "PAR007"
	// PAR008 indicates an orphan doc comment not immediately preceding a declaration.
	PAR008 = "PAR008"
	// PAR009 indicates an invalid struct literal.
	PAR009 = "PAR009"
	// PAR010 indicates invalid type parameter syntax.
	PAR010 = "PAR010"
	// PAR011 indicates a type argument was used in pattern position.
	PAR011 = "PAR011"

	// ---------------------------------------------------------------
	// Syntax / file-role errors (SYN###)
	// ---------------------------------------------------------------

	// SYN001 indicates a type name is not PascalCase.
	SYN001 = "SYN001"
	// SYN002 indicates a function, parameter, or variable name is not camelCase.
	SYN002 = "SYN002"
	// SYN003 indicates a constant name is not UPPER_SNAKE_CASE.
	SYN003 = "SYN003"
	// SYN004 indicates a binding whose name starts with `_` was used.
	SYN004 = "SYN004"
	// SYN005 indicates a binary-entry file has no `main` function.
	SYN005 = "SYN005"
	// SYN006 indicates a manifest file contains a declaration it may not.
	SYN006 = "SYN006"

	// ---------------------------------------------------------------
	// Import resolution errors (IMP###)
	// ---------------------------------------------------------------

	// IMP001 indicates an imported package could not be found.
	IMP001 = "IMP001"
	// IMP002 indicates an imported symbol is not exported by its package.
	IMP002 = "IMP002"
	// IMP003 indicates a duplicate local binding name in one file's imports.
	IMP003 = "IMP003"
	// IMP004 indicates a cycle in the package import graph.
	IMP004 = "IMP004"
	// IMP005 indicates an imported name is never used in its file.
	IMP005 = "IMP005"

	// ---------------------------------------------------------------
	// Semantic lowering errors (SEM###)
	// ---------------------------------------------------------------

	// SEM001 indicates a malformed string interpolation expression.
	SEM001 = "SEM001"

	// ---------------------------------------------------------------
	// Public-symbol typing errors (SYM###)
	// ---------------------------------------------------------------

	// SYM001 indicates a duplicate public symbol name within a package.
	SYM001 = "SYM001"
	// SYM002 indicates a constant dependency could not be resolved.
	SYM002 = "SYM002"
	// SYM003 indicates a constant's typed entry failed to reach a fixed point.
	SYM003 = "SYM003"

	// ---------------------------------------------------------------
	// Type analysis errors (TYP###)
	// ---------------------------------------------------------------

	// TYP001 indicates a duplicate binding, field, variant, or method name.
	TYP001 = "TYP001"
	// TYP002 indicates a reference to an unknown name.
	TYP002 = "TYP002"
	// TYP003 indicates a reference to an unknown type.
	TYP003 = "TYP003"
	// TYP004 indicates a reference to an unknown struct field.
	TYP004 = "TYP004"
	// TYP005 indicates a type mismatch between expected and actual types.
	TYP005 = "TYP005"
	// TYP007 indicates a non-exhaustive match over a union type.
	TYP007 = "TYP007"
	// TYP008 indicates unreachable code after a terminating statement.
	TYP008 = "TYP008"
	// TYP009 indicates a function declared to return a non-nil type is missing a return.
	TYP009 = "TYP009"
	// TYP010 indicates a naming-rule violation surfaced during type analysis.
	TYP010 = "TYP010"
	// TYP011 indicates a generic type argument does not satisfy its interface constraint.
	TYP011 = "TYP011"
	// TYP012 indicates a mutating method was called on a non-mutable receiver.
	TYP012 = "TYP012"
	// TYP013 indicates `break`/`continue` used outside a loop.
	TYP013 = "TYP013"
	// TYP014 indicates a struct literal is missing a declared field.
	TYP014 = "TYP014"
	// TYP016 indicates a struct literal names an unknown field.
	TYP016 = "TYP016"
	// TYP017 indicates a generic function was referenced as a first-class value.
	TYP017 = "TYP017"
	// TYP018 indicates a constant expression overflows a signed 64-bit integer.
	TYP018 = "TYP018"
	// TYP019 indicates an interface is not fully implemented by a struct.
	TYP019 = "TYP019"

	// ---------------------------------------------------------------
	// Executable lowering errors (XLW###)
	// ---------------------------------------------------------------

	// XLW001 indicates an empty list literal, unsupported by the backend.
	XLW001 = "XLW001"
	// XLW002 indicates nil assigned to a struct field, unsupported by the backend.
	XLW002 = "XLW002"
	// XLW003 indicates `main` is generic or takes parameters.
	XLW003 = "XLW003"
	// XLW004 indicates `main` does not return nil.
	XLW004 = "XLW004"
	// XLW005 indicates the binary package has no `main` function.
	XLW005 = "XLW005"

	// ---------------------------------------------------------------
	// Backend errors (BAK###)
	// ---------------------------------------------------------------

	// BAK001 indicates an unsupported construct reached the backend.
	BAK001 = "BAK001"
	// BAK002 indicates a nested union type, which the backend rejects.
	BAK002 = "BAK002"

	// ---------------------------------------------------------------
	// Driver failures (DRV###)
	// ---------------------------------------------------------------

	// DRV001 indicates a source file could not be read.
	DRV001 = "DRV001"
	// DRV002 indicates the analysis target path is not a file, directory, or workspace.
	DRV002 = "DRV002"
	// DRV003 indicates the target path lies outside the workspace.
	DRV003 = "DRV003"
	// DRV004 indicates the workspace root has no marker/manifest file.
	DRV004 = "DRV004"
	// DRV005 indicates a named package could not be found in the workspace.
	DRV005 = "DRV005"
)
