package backend

import (
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/exec"
	"github.com/isaacparker0/coppice-sub000/internal/token"
)

// Emit runs the code emitter end to end: building vtables, lowering
// every constant, function, and method to the stack-machine IR,
// appending the exported entry point and the runtime support
// functions, encoding to x86-64, and assembling one ELF64 relocatable
// object. A non-nil []*diag.Report return does not necessarily mean
// obj is nil — lowering continues past any single unsupported
// construct, so partial output is still produced for the functions
// that did lower successfully.
func Emit(prog *exec.Program) (*ObjectFile, []*diag.Report) {
	vtables, vtErrs := BuildVTables(prog)
	var reports []*diag.Report
	for _, err := range vtErrs {
		reports = append(reports, diag.New(diag.BAK001, diag.PhaseBackend, string(prog.Entrypoint.PackagePath), err.Error(), token.Span{}))
	}

	mod, lowerReports := Lower(prog, vtables)
	reports = append(reports, lowerReports...)

	mod.Functions = append(mod.Functions, entryFunc(prog))
	mod.Functions = append(mod.Functions, runtimeFuncs(mod)...)

	obj, err := AssembleObject(mod)
	if err != nil {
		reports = append(reports, diag.New(diag.BAK001, diag.PhaseBackend, string(prog.Entrypoint.PackagePath), err.Error(), token.Span{}))
		return nil, reports
	}
	return obj, reports
}

// entryFunc is the exported `main` the linker's startup code calls: it
// invokes the user entrypoint and returns 0.
func entryFunc(prog *exec.Program) *Func {
	return &Func{
		Symbol:     "main",
		ParamCount: 0,
		Instrs: []Instr{
			{Op: OpCallDirect, Sym: MangleFunction(prog.Entrypoint.PackagePath, prog.Entrypoint.Name), Imm: 0},
			{Op: OpPop},
			{Op: OpReturnVoid}, // rax cleared: process exit status 0
		},
	}
}

// runtimeFuncs defines the builtin surface in the emitted object —
// print, abort, assert, and string — on top of the external C symbols
// write/exit/strlen/malloc and the library integer formatter. They are
// expressed in the same IR as user code so the encoder is the single
// source of machine-code truth.
func runtimeFuncs(mod *Module) []*Func {
	newline := internModuleString(mod, "\n")
	assertMsg := internModuleString(mod, "assertion failed")

	writeAll := func(fd int64, loadArg Instr) []Instr {
		return []Instr{
			{Op: OpPushConstInt, Imm: fd},
			loadArg,
			loadArg,
			{Op: OpCallDirect, Sym: "strlen", Imm: 1},
			{Op: OpCallDirect, Sym: "write", Imm: 3},
			{Op: OpPop},
			{Op: OpPushConstInt, Imm: fd},
			{Op: OpPushString, Sym: newline},
			{Op: OpPushConstInt, Imm: 1},
			{Op: OpCallDirect, Sym: "write", Imm: 3},
			{Op: OpPop},
		}
	}

	print := &Func{Symbol: "print", ParamCount: 1}
	print.Instrs = append(print.Instrs, writeAll(1, Instr{Op: OpLoadParam, Imm: 0})...)
	print.Instrs = append(print.Instrs, Instr{Op: OpReturnVoid})

	abort := &Func{Symbol: "abort", ParamCount: 1}
	abort.Instrs = append(abort.Instrs, writeAll(2, Instr{Op: OpLoadParam, Imm: 0})...)
	abort.Instrs = append(abort.Instrs,
		Instr{Op: OpPushConstInt, Imm: 1},
		Instr{Op: OpCallDirect, Sym: "exit", Imm: 1},
		Instr{Op: OpReturnVoid}, // unreachable; exit does not return
	)

	// assert(cond): fall through when true, abort otherwise.
	assert := &Func{Symbol: "assert", ParamCount: 1, Instrs: []Instr{
		{Op: OpLoadParam, Imm: 0},
		{Op: OpJumpIfFalse, Target: 3},
		{Op: OpReturnVoid},
		{Op: OpPushString, Sym: assertMsg}, // instr 3
		{Op: OpCallDirect, Sym: "abort", Imm: 1},
		{Op: OpReturnVoid},
	}}

	// string(x): Int64/Boolean/Nil all travel as 64-bit scalars; the
	// library formatter renders the numeric value.
	str := &Func{Symbol: "string", ParamCount: 1, Instrs: []Instr{
		{Op: OpLoadParam, Imm: 0},
		{Op: OpCallDirect, Sym: "coppice_format_int64", Imm: 1},
		{Op: OpReturn},
	}}

	return []*Func{print, abort, assert, str}
}

// internModuleString interns a literal into an already-lowered
// Module's string table, reusing an existing entry when the value is
// already present.
func internModuleString(mod *Module, value string) string {
	for _, sc := range mod.Strings {
		if sc.Value == value {
			return sc.Symbol
		}
	}
	sym := "coppice_str_rt_" + value
	switch value {
	case "\n":
		sym = "coppice_str_rt_newline"
	case "assertion failed":
		sym = "coppice_str_rt_assert"
	}
	mod.Strings = append(mod.Strings, &StringConst{Symbol: sym, Value: value})
	return sym
}
