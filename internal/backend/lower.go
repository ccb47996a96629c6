package backend

import (
	"fmt"

	"github.com/isaacparker0/coppice-sub000/internal/ast"
	"github.com/isaacparker0/coppice-sub000/internal/diag"
	"github.com/isaacparker0/coppice-sub000/internal/exec"
	"github.com/isaacparker0/coppice-sub000/internal/token"
	"github.com/isaacparker0/coppice-sub000/internal/types"
)

// Module is the lowered form of an entire exec.Program: one Func per
// function/method plus the interned string table, ready for
// encode_amd64.go.
type Module struct {
	Functions []*Func
	Strings   []*StringConst
	VTables   []*VTable
}

// maxCallArgs is the widest call the encoder supports: four register
// arguments, witness parameters and the method receiver included.
const maxCallArgs = 4

// structIndex resolves a struct's field order and its method set by
// package path and name, the information lowering needs to turn a
// FieldAccess or StructLit into slot offsets and AllocStruct sizes.
type structIndex struct {
	byKey map[string]*exec.StructDecl
}

func buildStructIndex(prog *exec.Program) *structIndex {
	idx := &structIndex{byKey: map[string]*exec.StructDecl{}}
	for _, sd := range prog.Structs {
		idx.byKey[sd.PackagePath+"\x00"+sd.Name] = sd
	}
	return idx
}

func (idx *structIndex) lookup(t *types.Type) *exec.StructDecl {
	if t == nil {
		return nil
	}
	pkg, name := t.NamedKey()
	if pkg == "" && name == "" {
		return nil
	}
	return idx.byKey[pkg+"\x00"+name]
}

// methodParamTypes returns a method's declared (non-self) parameter
// types, used to decide whether a call argument needs boxing before
// the call.
func (idx *structIndex) methodParamTypes(pkg, structName, method string) []*types.Type {
	sd := idx.byKey[pkg+"\x00"+structName]
	if sd == nil {
		return nil
	}
	for _, m := range sd.Methods {
		if m.Name == method {
			out := make([]*types.Type, len(m.Params))
			for i, p := range m.Params {
				out[i] = p.Type
			}
			return out
		}
	}
	return nil
}

// funcIndex resolves a free function's declaration by package path and
// name.
type funcIndex struct {
	byKey map[string]*exec.FunctionDecl
}

func buildFuncIndex(prog *exec.Program) *funcIndex {
	idx := &funcIndex{byKey: map[string]*exec.FunctionDecl{}}
	for _, fn := range prog.Functions {
		idx.byKey[fn.PackagePath+"\x00"+fn.Name] = fn
	}
	return idx
}

func (idx *funcIndex) decl(pkg, name string) *exec.FunctionDecl {
	return idx.byKey[pkg+"\x00"+name]
}

func (idx *funcIndex) paramTypes(pkg, name string) []*types.Type {
	fn := idx.decl(pkg, name)
	if fn == nil {
		return nil
	}
	out := make([]*types.Type, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = p.Type
	}
	return out
}

// ifaceIndex answers interface lookups: whether a Named type refers to
// a declared interface, a method's slot index in the vtable, and a
// method's declared signature for argument boxing.
type ifaceIndex struct {
	byKey map[string]*exec.InterfaceDecl
}

func buildIfaceIndex(prog *exec.Program) *ifaceIndex {
	idx := &ifaceIndex{byKey: map[string]*exec.InterfaceDecl{}}
	for _, id := range prog.Interfaces {
		idx.byKey[id.PackagePath+"\x00"+id.Name] = id
	}
	return idx
}

func (idx *ifaceIndex) has(pkg, name string) bool {
	_, ok := idx.byKey[pkg+"\x00"+name]
	return ok
}

func (idx *ifaceIndex) methodIndex(pkg, name, method string) int {
	id := idx.byKey[pkg+"\x00"+name]
	if id == nil {
		return -1
	}
	for i, m := range id.MethodOrder {
		if m == method {
			return i
		}
	}
	return -1
}

func (idx *ifaceIndex) methodParamTypes(pkg, name, method string) []*types.Type {
	id := idx.byKey[pkg+"\x00"+name]
	if id == nil {
		return nil
	}
	ms := id.Methods[method]
	if ms == nil {
		return nil
	}
	return ms.Params
}

// enumIndex resolves enum declarations by bare name and by
// package-qualified key, the information enum-variant expressions and
// enum patterns lower against.
type enumIndex struct {
	byName map[string]*exec.EnumDecl
	byKey  map[string]*exec.EnumDecl
}

func buildEnumIndex(prog *exec.Program) *enumIndex {
	idx := &enumIndex{byName: map[string]*exec.EnumDecl{}, byKey: map[string]*exec.EnumDecl{}}
	for _, ed := range prog.Enums {
		idx.byName[ed.Name] = ed
		idx.byKey[ed.PackagePath+"\x00"+ed.Name] = ed
	}
	return idx
}

func (idx *enumIndex) hasVariant(enumName, variant string) bool {
	ed := idx.byName[enumName]
	if ed == nil {
		return false
	}
	for _, v := range ed.Variants {
		if v == variant {
			return true
		}
	}
	return false
}

// Lower compiles every constant, function, and method in prog into the
// backend's stack-machine IR. A unit that uses a construct this
// backend does not support is reported under BAK001 and omitted from
// the module; every other unit still lowers.
func Lower(prog *exec.Program, vtables []*VTable) (*Module, []*diag.Report) {
	mb := &moduleBuilder{
		structs: buildStructIndex(prog), strings: map[string]string{}, vtables: vtables,
		funcDecls: buildFuncIndex(prog), ifaces: buildIfaceIndex(prog), enums: buildEnumIndex(prog),
		constSyms: map[string]map[string]string{},
	}

	for _, c := range prog.Constants {
		if mb.constSyms[c.PackagePath] == nil {
			mb.constSyms[c.PackagePath] = map[string]string{}
		}
		mb.constSyms[c.PackagePath][c.Name] = MangleFunction(c.PackagePath, c.Name)
	}

	// Each constant lowers to a nullary function computing its value;
	// references to the constant call it.
	for _, c := range prog.Constants {
		body := &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: c.Value, Pos: c.Value.Position()}}}
		mb.lowerAndCollect(unit{
			symbol: MangleFunction(c.PackagePath, c.Name), pkg: c.PackagePath,
			body: body, result: c.Type,
			callTargets: c.CallTargets, structRefs: c.StructRefs, exprTypes: c.ExprTypes,
			declaredTypes: c.DeclaredTypes,
		})
	}

	for _, fn := range prog.Functions {
		params := paramNames(fn.Params)
		for _, tp := range fn.TypeParams {
			if tp.Constraint != "" {
				params = append(params, witnessParamName(tp.Name))
			}
		}
		mb.lowerAndCollect(unit{
			symbol: MangleFunction(fn.PackagePath, fn.Name), pkg: fn.PackagePath,
			params: params, body: fn.Body,
			callTargets: fn.CallTargets, structRefs: fn.StructRefs, exprTypes: fn.ExprTypes,
			declaredTypes: fn.DeclaredTypes, result: fn.Result,
		})
	}
	for _, sd := range prog.Structs {
		for _, m := range sd.Methods {
			params := append([]string{"self"}, paramNames(m.Params)...)
			mb.lowerAndCollect(unit{
				symbol: MangleMethod(sd.PackagePath, sd.Name, m.Name), pkg: sd.PackagePath,
				params: params, body: m.Body,
				callTargets: m.CallTargets, structRefs: m.StructRefs, exprTypes: m.ExprTypes,
				declaredTypes: m.DeclaredTypes, result: m.Result,
			})
		}
	}

	return &Module{Functions: mb.funcs, Strings: mb.stringConsts(), VTables: vtables}, mb.reports
}

func witnessParamName(typeParam string) string { return "$witness_" + typeParam }

func paramNames(params []exec.ParamDecl) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// unit is the common shape of a constant initializer, a function body,
// and a method body, so lowerUnit doesn't need three near-identical
// copies.
type unit struct {
	symbol        string
	pkg           string
	params        []string
	body          *ast.Block
	callTargets   map[uint64]types.CallTarget
	structRefs    map[uint64]types.StructReference
	exprTypes     map[uint64]*types.Type
	declaredTypes map[token.Pos]*types.Type
	// result is the enclosing function/method's declared return type,
	// used to box a `return` value crossing a union/interface boundary.
	result *types.Type
}

type moduleBuilder struct {
	structs   *structIndex
	funcDecls *funcIndex
	ifaces    *ifaceIndex
	enums     *enumIndex
	constSyms map[string]map[string]string // package path -> constant name -> symbol
	strings   map[string]string            // symbol -> value
	vtables   []*VTable
	funcs     []*Func
	reports   []*diag.Report
}

func (mb *moduleBuilder) lowerAndCollect(u unit) {
	f, report := mb.lowerUnit(u)
	if report != nil {
		mb.reports = append(mb.reports, report)
		return
	}
	mb.funcs = append(mb.funcs, f)
}

// lookupVTable finds the vtable for one (struct, interface) conformance
// pair, the boxing site's witness for OpBoxInterface's Sym operand.
func (mb *moduleBuilder) lookupVTable(structPkg, structName, ifacePkg, ifaceName string) *VTable {
	for _, vt := range mb.vtables {
		if vt.StructPackage == structPkg && vt.StructName == structName &&
			vt.InterfacePackage == ifacePkg && vt.InterfaceName == ifaceName {
			return vt
		}
	}
	return nil
}

// constSymbol resolves a bare constant reference to its lowered
// symbol, asking package first, then uniquely across the program.
func (mb *moduleBuilder) constSymbol(pkg, name string) (string, bool) {
	if sym, ok := mb.constSyms[pkg][name]; ok {
		return sym, true
	}
	found := ""
	for _, byName := range mb.constSyms {
		if sym, ok := byName[name]; ok {
			if found != "" {
				return "", false
			}
			found = sym
		}
	}
	return found, found != ""
}

func (mb *moduleBuilder) stringConsts() []*StringConst {
	var out []*StringConst
	for sym, val := range mb.strings {
		out = append(out, &StringConst{Symbol: sym, Value: val})
	}
	return out
}

func (mb *moduleBuilder) internString(s string) string {
	for sym, v := range mb.strings {
		if v == s {
			return sym
		}
	}
	sym := fmt.Sprintf("coppice_str_%d", len(mb.strings))
	mb.strings[sym] = s
	return sym
}

// loopCtx tracks one enclosing while loop's jump targets for
// break/continue lowering.
type loopCtx struct {
	top    int
	breaks []int
}

// fnLowerer lowers one function/method body; it owns the growing
// instruction list and the local-slot symbol table.
type fnLowerer struct {
	mb     *moduleBuilder
	u      unit
	instrs []Instr
	slots  map[string]int
	next   int
	loops  []*loopCtx
	// varTypes is each local variable's declared type, set when its
	// VarDecl lowers and consulted by later AssignStmts to the same
	// name, since the backend's flat slot model has nowhere else to
	// recover it.
	varTypes map[string]*types.Type
}

func (mb *moduleBuilder) lowerUnit(u unit) (f *Func, failure *diag.Report) {
	fl := &fnLowerer{mb: mb, u: u, slots: map[string]int{}, varTypes: map[string]*types.Type{}}
	if len(u.params) > maxCallArgs {
		return nil, diag.New(diag.BAK001, diag.PhaseBackend, u.symbol,
			fmt.Sprintf("functions with more than %d parameters (witness parameters included) are not supported", maxCallArgs), token.Span{})
	}
	for i, name := range u.params {
		fl.slots[name] = -(i + 1) // negative slots address parameters
	}
	defer func() {
		if r := recover(); r != nil {
			if rep, ok := r.(*diag.Report); ok {
				failure = rep
				return
			}
			panic(r)
		}
	}()
	fl.lowerBlock(u.body, true)
	fl.emit(Instr{Op: OpReturnVoid})
	return &Func{Symbol: u.symbol, ParamCount: len(u.params), LocalSlots: fl.next, Instrs: fl.instrs}, nil
}

func (fl *fnLowerer) emit(i Instr) int {
	fl.instrs = append(fl.instrs, i)
	return len(fl.instrs) - 1
}

func (fl *fnLowerer) fail(code, msg string, pos token.Pos) {
	panic(diag.New(code, diag.PhaseBackend, fl.u.symbol, msg, token.Span{Start: pos, End: pos}))
}

func (fl *fnLowerer) newLocal(name string) int {
	slot := fl.next
	fl.next++
	fl.slots[name] = slot
	return slot
}

func (fl *fnLowerer) loadSlot(name string, pos token.Pos) {
	slot, ok := fl.slots[name]
	if !ok {
		fl.fail(diag.BAK001, fmt.Sprintf("unresolved local %q reached the backend", name), pos)
	}
	if slot < 0 {
		fl.emit(Instr{Op: OpLoadParam, Imm: int64(-slot - 1)})
	} else {
		fl.emit(Instr{Op: OpLoadLocal, Imm: int64(slot)})
	}
}

func (fl *fnLowerer) storeSlot(name string, pos token.Pos) {
	slot, ok := fl.slots[name]
	if !ok {
		slot = fl.newLocal(name)
	}
	if slot < 0 {
		fl.fail(diag.BAK001, "parameters are immutable in the backend's calling convention", pos)
	}
	fl.emit(Instr{Op: OpStoreLocal, Imm: int64(slot)})
}

// lowerBlock lowers every statement; when asValue is true the final
// bare expression statement's value is left on the stack rather than
// popped, so a block used as a value yields its trailing expression.
func (fl *fnLowerer) lowerBlock(b *ast.Block, asValue bool) {
	if b == nil {
		if asValue {
			fl.emit(Instr{Op: OpPushNil})
		}
		return
	}
	for i, s := range b.Stmts {
		last := i == len(b.Stmts)-1
		fl.lowerStmt(s, last && asValue)
	}
	if len(b.Stmts) == 0 && asValue {
		fl.emit(Instr{Op: OpPushNil})
	}
}

func (fl *fnLowerer) lowerStmt(s ast.Stmt, leaveValue bool) {
	switch v := s.(type) {
	case *ast.ExprStmt:
		fl.lowerExpr(v.X)
		if !leaveValue {
			fl.emit(Instr{Op: OpPop})
		}
	case *ast.VarDecl:
		declared := fl.u.declaredTypes[v.Pos]
		fl.lowerExpr(v.Value)
		fl.maybeBox(declared, v.Value)
		fl.varTypes[v.Name] = declared
		fl.storeSlot(v.Name, v.Pos)
		if leaveValue {
			fl.emit(Instr{Op: OpPushNil})
		}
	case *ast.AssignStmt:
		fl.lowerExpr(v.Value)
		fl.maybeBox(fl.varTypes[v.Name], v.Value)
		fl.storeSlot(v.Name, v.Pos)
		if leaveValue {
			fl.emit(Instr{Op: OpPushNil})
		}
	case *ast.ReturnStmt:
		if v.Value != nil {
			fl.lowerExpr(v.Value)
			fl.maybeBox(fl.u.result, v.Value)
			fl.emit(Instr{Op: OpReturn})
		} else {
			fl.emit(Instr{Op: OpReturnVoid})
		}
	case *ast.BreakStmt:
		if len(fl.loops) == 0 {
			fl.fail(diag.BAK001, "break outside a loop reached the backend", v.Pos)
		}
		ctx := fl.loops[len(fl.loops)-1]
		ctx.breaks = append(ctx.breaks, fl.emit(Instr{Op: OpJump, Target: -1}))
	case *ast.ContinueStmt:
		if len(fl.loops) == 0 {
			fl.fail(diag.BAK001, "continue outside a loop reached the backend", v.Pos)
		}
		fl.emit(Instr{Op: OpJump, Target: fl.loops[len(fl.loops)-1].top})
	case *ast.WhileStmt:
		top := len(fl.instrs)
		ctx := &loopCtx{top: top}
		fl.loops = append(fl.loops, ctx)
		fl.lowerExpr(v.Cond)
		jif := fl.emit(Instr{Op: OpJumpIfFalse, Target: -1})
		fl.lowerBlock(v.Body, false)
		fl.emit(Instr{Op: OpJump, Target: top})
		end := len(fl.instrs)
		fl.instrs[jif].Target = end
		for _, j := range ctx.breaks {
			fl.instrs[j].Target = end
		}
		fl.loops = fl.loops[:len(fl.loops)-1]
		if leaveValue {
			fl.emit(Instr{Op: OpPushNil})
		}
	default:
		fl.fail(diag.BAK001, "unsupported statement form reached the backend", s.Position())
	}
}

func (fl *fnLowerer) exprType(e ast.Expr) *types.Type {
	if e == nil || e.ExprID() == 0 {
		return nil
	}
	return fl.u.exprTypes[e.ExprID()]
}

// payloadTag picks the union box tag for a concrete source type,
// distinguishing enum values (which box under the enum-variant tag)
// from other named types.
func (fl *fnLowerer) payloadTag(source *types.Type) int64 {
	if pkg, name := source.NamedKey(); name != "" {
		if _, isEnum := fl.mb.enums.byKey[pkg+"\x00"+name]; isEnum {
			return TagEnumVariant
		}
	}
	return UnionTagOf(ClassifyPayload(source))
}

// maybeBox emits OpBoxUnion or OpBoxInterface immediately after src's
// value has been pushed onto the stack, when assigning src's resolved
// type into target crosses a union or interface boundary. A no-op
// when target and src's type already agree, or either side is
// unresolved.
func (fl *fnLowerer) maybeBox(target *types.Type, src ast.Expr) {
	if target == nil {
		return
	}
	source := fl.exprType(src)
	if source == nil || source.Kind == types.KindUnknown {
		return
	}
	switch {
	case target.Kind == types.KindUnion && source.Kind != types.KindUnion:
		fl.emit(Instr{Op: OpBoxUnion, Imm: fl.payloadTag(source)})
	case target.Kind == types.KindNamed && fl.mb.ifaces.has(target.PackagePath, target.SymbolName) && !sameNamed(target, source):
		sd := fl.mb.structs.lookup(source)
		if sd == nil {
			return
		}
		vt := fl.mb.lookupVTable(sd.PackagePath, sd.Name, target.PackagePath, target.SymbolName)
		if vt == nil {
			return
		}
		fl.emit(Instr{Op: OpBoxInterface, Sym: vt.Symbol()})
	}
}

// lowerArgs pushes each call argument, boxing it against the callee's
// declared parameter type immediately after it is pushed (so boxing
// always acts on the stack's current top); paramTypes shorter than
// args (an unresolved callee) leaves the unmatched trailing arguments
// unboxed.
func (fl *fnLowerer) lowerArgs(paramTypes []*types.Type, args []ast.Expr) {
	for i, a := range args {
		fl.lowerExpr(a)
		if i < len(paramTypes) {
			fl.maybeBox(paramTypes[i], a)
		}
	}
}

func (fl *fnLowerer) checkArity(argc int, pos token.Pos) {
	if argc > maxCallArgs {
		fl.fail(diag.BAK001, fmt.Sprintf("calls with more than %d arguments (receiver and witness arguments included) are not supported", maxCallArgs), pos)
	}
}

func sameNamed(a, b *types.Type) bool {
	return a.Kind == types.KindNamed && b.Kind == types.KindNamed &&
		a.PackagePath == b.PackagePath && a.SymbolName == b.SymbolName
}

func (fl *fnLowerer) lowerExpr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.IntLit:
		fl.emit(Instr{Op: OpPushConstInt, Imm: v.Value})
	case *ast.BoolLit:
		imm := int64(0)
		if v.Value {
			imm = 1
		}
		fl.emit(Instr{Op: OpPushConstBool, Imm: imm})
	case *ast.NilLit:
		fl.emit(Instr{Op: OpPushNil})
	case *ast.StringLit:
		fl.emit(Instr{Op: OpPushString, Sym: fl.mb.internString(v.Value)})
	case *ast.Identifier:
		if _, isLocal := fl.slots[v.Name]; !isLocal {
			if sym, ok := fl.mb.constSymbol(fl.u.pkg, v.Name); ok {
				fl.emit(Instr{Op: OpCallDirect, Sym: sym, Imm: 0})
				return
			}
		}
		fl.loadSlot(v.Name, v.Pos)
	case *ast.UnaryExpr:
		fl.lowerExpr(v.X)
		fl.emit(Instr{Op: OpUnaryOp, Sym: v.Op})
	case *ast.BinaryExpr:
		fl.lowerExpr(v.X)
		fl.lowerExpr(v.Y)
		if v.Op == "+" && isStringType(fl.exprType(v.X)) && isStringType(fl.exprType(v.Y)) {
			fl.emit(Instr{Op: OpCallDirect, Sym: "coppice_string_concat", Imm: 2})
			return
		}
		fl.emit(Instr{Op: OpBinOp, Sym: v.Op})
	case *ast.MatchesExpr:
		fl.lowerMatches(v)
	case *ast.FieldAccess:
		if fl.lowerEnumVariant(v) {
			return
		}
		fl.lowerExpr(v.X)
		sd := fl.mb.structs.lookup(fl.exprType(v.X))
		if sd == nil {
			fl.fail(diag.BAK001, fmt.Sprintf("field access on unresolved struct type for %q", v.Field), v.Pos)
		}
		offset := fieldOffset(sd, v.Field)
		fl.emit(Instr{Op: OpLoadField, Imm: offset})
	case *ast.StructLit:
		if _, ok := fl.u.structRefs[v.ExprID()]; !ok {
			fl.fail(diag.BAK001, "unresolved struct literal reached the backend", v.Pos)
		}
		sd := fl.mb.structs.lookup(fl.exprType(v))
		if sd == nil {
			fl.fail(diag.BAK001, "struct literal of unresolved type reached the backend", v.Pos)
		}
		slotValues := make([]ast.Expr, len(sd.FieldOrder))
		for _, fld := range v.Fields {
			for i, name := range sd.FieldOrder {
				if name == fld.Name {
					slotValues[i] = fld.Value
				}
			}
		}
		for i, fv := range slotValues {
			fl.lowerExpr(fv)
			fl.maybeBox(sd.Fields[sd.FieldOrder[i]], fv)
		}
		fl.emit(Instr{Op: OpAllocStruct, Imm: int64(len(sd.FieldOrder))})
	case *ast.CallExpr:
		fl.lowerCall(v)
	case *ast.IfExpr:
		fl.lowerIf(v)
	case *ast.MatchExpr:
		fl.lowerMatch(v)
	default:
		fl.fail(diag.BAK001, "unsupported expression form reached the backend", e.Position())
	}
}

func isStringType(t *types.Type) bool {
	return t != nil && t.Kind == types.KindPrimitive && t.Prim == types.String
}

// lowerEnumVariant lowers `Enum.Variant` in expression position to its
// variant tag constant, reporting whether the field access was one.
// A local binding shadowing the enum name takes precedence. The
// analyzer typed the whole access as the enum's nominal type, so the
// declared enum name comes from there even when the file wrote the
// access through an import alias.
func (fl *fnLowerer) lowerEnumVariant(v *ast.FieldAccess) bool {
	id, ok := v.X.(*ast.Identifier)
	if !ok {
		return false
	}
	if _, isLocal := fl.slots[id.Name]; isLocal {
		return false
	}
	declName := id.Name
	if t := fl.exprType(v); t != nil {
		if pkg, name := t.NamedKey(); name != "" {
			if _, isEnum := fl.mb.enums.byKey[pkg+"\x00"+name]; isEnum {
				declName = name
			}
		}
	}
	if !fl.mb.enums.hasVariant(declName, v.Field) {
		return false
	}
	fl.emit(Instr{Op: OpPushConstInt, Imm: EnumVariantTag(declName, v.Field)})
	return true
}

// declaredEnumName maps a pattern's written enum name to the declared
// one, preferring the match subject's resolved type: for an aliased
// import the written name never appears in the program's enum set, but
// the subject's nominal type (or the enum member of its union) does.
func (fl *fnLowerer) declaredEnumName(written, variant string, subject *types.Type) string {
	if fl.mb.enums.hasVariant(written, variant) {
		return written
	}
	if subject == nil {
		return written
	}
	candidates := []*types.Type{subject}
	if subject.Kind == types.KindUnion {
		candidates = subject.Members
	}
	for _, m := range candidates {
		pkg, name := m.NamedKey()
		if name == "" {
			continue
		}
		if _, isEnum := fl.mb.enums.byKey[pkg+"\x00"+name]; isEnum && fl.mb.enums.hasVariant(name, variant) {
			return name
		}
	}
	return written
}

func fieldOffset(sd *exec.StructDecl, field string) int64 {
	for i, name := range sd.FieldOrder {
		if name == field {
			return StructFieldOffset(i)
		}
	}
	return 0
}

// tagForTypeName maps a written concrete type name to its runtime
// union box tag for a `matches` check or pattern test. Named struct,
// list, and applied types all share TagStructLike; enum type names tag
// as enum variants.
func (mb *moduleBuilder) tagForTypeName(tn *ast.TypeName) int64 {
	if tn == nil || len(tn.Members) != 1 {
		return TagStructLike
	}
	name := tn.Members[0].Name
	switch name {
	case "Int64", "int64":
		return TagInt64
	case "Boolean", "boolean":
		return TagBoolean
	case "String", "string":
		return TagString
	case "Nil", "nil", "Never", "never":
		return TagNil
	}
	if _, isEnum := mb.enums.byName[name]; isEnum {
		return TagEnumVariant
	}
	return TagStructLike
}

// lowerMatches compiles `x matches T`. Against a union-typed operand
// this is a box-tag test; against a concrete-typed operand the
// analyzer only accepts T equal to the operand's type, so the result
// is statically true.
func (fl *fnLowerer) lowerMatches(v *ast.MatchesExpr) {
	xt := fl.exprType(v.X)
	fl.lowerExpr(v.X)
	if xt == nil || xt.Kind != types.KindUnion {
		fl.emit(Instr{Op: OpPop})
		fl.emit(Instr{Op: OpPushConstBool, Imm: 1})
		return
	}
	fl.emit(Instr{Op: OpTagOfUnion})
	fl.emit(Instr{Op: OpPushConstInt, Imm: fl.mb.tagForTypeName(v.Type)})
	fl.emit(Instr{Op: OpBinOp, Sym: "=="})
}

func (fl *fnLowerer) lowerCall(c *ast.CallExpr) {
	target, ok := fl.u.callTargets[c.ExprID()]
	if !ok {
		fl.fail(diag.BAK001, "unresolved call target reached the backend", c.Pos)
	}
	switch target.Kind {
	case types.CallBuiltin:
		fl.checkArity(len(c.Args), c.Pos)
		for _, a := range c.Args {
			fl.lowerExpr(a)
		}
		fl.emit(Instr{Op: OpCallBuiltin, Sym: target.Builtin, Imm: int64(len(c.Args))})
	case types.CallFunction:
		fl.lowerFunctionCall(c, target)
	case types.CallMethod:
		fa := c.Callee.(*ast.FieldAccess)
		fl.checkArity(len(c.Args)+1, c.Pos)
		fl.lowerExpr(fa.X)
		fl.lowerArgs(fl.mb.structs.methodParamTypes(target.PackagePath, target.SymbolName, target.MethodName), c.Args)
		fl.emit(Instr{Op: OpCallDirect, Sym: MangleMethod(target.PackagePath, target.SymbolName, target.MethodName), Imm: int64(len(c.Args) + 1)})
	case types.CallInterface:
		fl.lowerInterfaceCall(c, target)
	case types.CallWitness:
		fl.lowerWitnessCall(c, target)
	case types.CallValue:
		fl.checkArity(len(c.Args), c.Pos)
		var paramTypes []*types.Type
		if ft := fl.exprType(c.Callee); ft != nil && ft.Kind == types.KindFunction {
			paramTypes = ft.Params
		}
		fl.lowerArgs(paramTypes, c.Args)
		fl.lowerExpr(c.Callee)
		fl.emit(Instr{Op: OpCallIndirect, Imm: int64(len(c.Args))})
	}
}

// lowerFunctionCall pushes the arguments and, for each constrained
// type parameter of a generic callee, the vtable address of the
// explicit type argument's conformance as a trailing witness argument.
func (fl *fnLowerer) lowerFunctionCall(c *ast.CallExpr, target types.CallTarget) {
	fl.lowerArgs(fl.mb.funcDecls.paramTypes(target.PackagePath, target.SymbolName), c.Args)
	argc := len(c.Args)
	if fn := fl.mb.funcDecls.decl(target.PackagePath, target.SymbolName); fn != nil {
		for i, tp := range fn.TypeParams {
			if tp.Constraint == "" {
				continue
			}
			if i >= len(target.TypeArgs) {
				fl.fail(diag.BAK001, fmt.Sprintf("call to %q needs explicit type arguments to resolve the %q witness", target.SymbolName, tp.Name), c.Pos)
			}
			sd := fl.mb.structs.lookup(target.TypeArgs[i])
			if sd == nil {
				fl.fail(diag.BAK001, fmt.Sprintf("type argument %s of %q has no witness table", target.TypeArgs[i], target.SymbolName), c.Pos)
			}
			ifacePkg := ifacePackageFor(fl.mb, sd.PackagePath, tp.Constraint)
			vt := fl.mb.lookupVTable(sd.PackagePath, sd.Name, ifacePkg, tp.Constraint)
			if vt == nil {
				fl.fail(diag.BAK001, fmt.Sprintf("no witness table for %s implementing %q", target.TypeArgs[i], tp.Constraint), c.Pos)
			}
			fl.emit(Instr{Op: OpPushSymbolAddr, Sym: vt.Symbol()})
			argc++
		}
	}
	fl.checkArity(argc, c.Pos)
	fl.emit(Instr{Op: OpCallDirect, Sym: MangleFunction(target.PackagePath, target.SymbolName), Imm: int64(argc)})
}

// ifacePackageFor finds which package declares an interface name,
// preferring the struct's own package.
func ifacePackageFor(mb *moduleBuilder, structPkg, ifaceName string) string {
	if mb.ifaces.has(structPkg, ifaceName) {
		return structPkg
	}
	for _, id := range mb.ifaces.byKey {
		if id.Name == ifaceName {
			return id.PackagePath
		}
	}
	return structPkg
}

// lowerInterfaceCall dispatches through the receiver's vtable: the
// interface value is {data_pointer, vtable_pointer}; the method's
// function pointer sits at vtable_pointer + index*8 and receives the
// data pointer as its first argument.
func (fl *fnLowerer) lowerInterfaceCall(c *ast.CallExpr, target types.CallTarget) {
	fa := c.Callee.(*ast.FieldAccess)
	idx := fl.mb.ifaces.methodIndex(target.PackagePath, target.SymbolName, target.MethodName)
	if idx < 0 {
		fl.fail(diag.BAK001, fmt.Sprintf("unresolved interface method %q reached the backend", target.MethodName), c.Pos)
	}
	fl.checkArity(len(c.Args)+1, c.Pos)

	fl.lowerExpr(fa.X)
	tmp := fl.newLocal(fmt.Sprintf("$iface%d", c.ExprID()))
	fl.emit(Instr{Op: OpStoreLocal, Imm: int64(tmp)})

	fl.emit(Instr{Op: OpLoadLocal, Imm: int64(tmp)})
	fl.emit(Instr{Op: OpLoadField, Imm: 0}) // data pointer, the receiver argument
	fl.lowerArgs(fl.mb.ifaces.methodParamTypes(target.PackagePath, target.SymbolName, target.MethodName), c.Args)
	fl.emit(Instr{Op: OpLoadLocal, Imm: int64(tmp)})
	fl.emit(Instr{Op: OpLoadField, Imm: 8})                        // vtable pointer
	fl.emit(Instr{Op: OpLoadField, Imm: int64(idx) * SlotSize})    // method function pointer
	fl.emit(Instr{Op: OpCallIndirect, Imm: int64(len(c.Args) + 1)})
}

// lowerWitnessCall dispatches through the witness table passed as the
// enclosing function's trailing parameter for the receiver's type
// parameter.
func (fl *fnLowerer) lowerWitnessCall(c *ast.CallExpr, target types.CallTarget) {
	fa := c.Callee.(*ast.FieldAccess)
	idx := fl.mb.ifaces.methodIndex(target.PackagePath, target.SymbolName, target.MethodName)
	if idx < 0 {
		fl.fail(diag.BAK001, fmt.Sprintf("unresolved interface method %q reached the backend", target.MethodName), c.Pos)
	}
	fl.checkArity(len(c.Args)+1, c.Pos)

	fl.lowerExpr(fa.X) // receiver, the callee's first argument
	fl.lowerArgs(fl.mb.ifaces.methodParamTypes(target.PackagePath, target.SymbolName, target.MethodName), c.Args)
	fl.loadSlot(witnessParamName(target.TypeParamName), c.Pos)
	fl.emit(Instr{Op: OpLoadField, Imm: int64(idx) * SlotSize})
	fl.emit(Instr{Op: OpCallIndirect, Imm: int64(len(c.Args) + 1)})
}

func (fl *fnLowerer) lowerIf(v *ast.IfExpr) {
	fl.lowerExpr(v.Cond)
	jif := fl.emit(Instr{Op: OpJumpIfFalse, Target: -1})
	fl.lowerBlock(v.Then, true)
	jmp := fl.emit(Instr{Op: OpJump, Target: -1})
	fl.instrs[jif].Target = len(fl.instrs)
	switch e := v.Else.(type) {
	case *ast.IfExpr:
		fl.lowerIf(e)
	case *ast.Block:
		fl.lowerBlock(e, true)
	default:
		fl.emit(Instr{Op: OpPushNil})
	}
	fl.instrs[jmp].Target = len(fl.instrs)
}

// lowerMatch compiles a match expression into a sequential chain of
// arm tests against the subject, each arm binding its pattern variable
// (if any) into a fresh local before evaluating its body. The analyzer
// has already checked exhaustiveness, so the trailing no-match block
// is unreachable for well-typed unions; it aborts rather than falling
// through with an unbalanced stack.
func (fl *fnLowerer) lowerMatch(v *ast.MatchExpr) {
	subjType := fl.exprType(v.Subject)
	isUnion := subjType != nil && subjType.Kind == types.KindUnion
	fl.lowerExpr(v.Subject)
	subjSlot := fl.newLocal(fmt.Sprintf("$match%d", v.ExprID()))
	fl.emit(Instr{Op: OpStoreLocal, Imm: int64(subjSlot)})

	var endJumps []int
	for _, arm := range v.Arms {
		var failJumps []int
		test := func() {
			failJumps = append(failJumps, fl.emit(Instr{Op: OpJumpIfFalse, Target: -1}))
		}

		var boxTag int64
		bindName := ""
		switch pt := arm.Pattern.(type) {
		case *ast.TypePattern:
			boxTag = fl.mb.tagForTypeName(pt.Type)
		case *ast.BindingPattern:
			boxTag = fl.mb.tagForTypeName(pt.Type)
			bindName = pt.Name
		case *ast.QualifiedPattern:
			boxTag = TagEnumVariant
			if isUnion {
				fl.emit(Instr{Op: OpLoadLocal, Imm: int64(subjSlot)})
				fl.emit(Instr{Op: OpTagOfUnion})
				fl.emit(Instr{Op: OpPushConstInt, Imm: TagEnumVariant})
				fl.emit(Instr{Op: OpBinOp, Sym: "=="})
				test()
				fl.emit(Instr{Op: OpLoadLocal, Imm: int64(subjSlot)})
				fl.emit(Instr{Op: OpUnboxUnion, Imm: TagEnumVariant})
			} else {
				fl.emit(Instr{Op: OpLoadLocal, Imm: int64(subjSlot)})
			}
			fl.emit(Instr{Op: OpPushConstInt, Imm: EnumVariantTag(fl.declaredEnumName(pt.Enum, pt.Variant, subjType), pt.Variant)})
			fl.emit(Instr{Op: OpBinOp, Sym: "=="})
			test()
			fl.lowerExpr(arm.Body)
			endJumps = append(endJumps, fl.emit(Instr{Op: OpJump, Target: -1}))
			for _, j := range failJumps {
				fl.instrs[j].Target = len(fl.instrs)
			}
			continue
		default:
			fl.fail(diag.BAK001, "unsupported pattern form reached the backend", arm.Pattern.Position())
		}

		if isUnion {
			fl.emit(Instr{Op: OpLoadLocal, Imm: int64(subjSlot)})
			fl.emit(Instr{Op: OpTagOfUnion})
			fl.emit(Instr{Op: OpPushConstInt, Imm: boxTag})
			fl.emit(Instr{Op: OpBinOp, Sym: "=="})
			test()
		}
		if bindName != "" {
			fl.emit(Instr{Op: OpLoadLocal, Imm: int64(subjSlot)})
			if isUnion {
				fl.emit(Instr{Op: OpUnboxUnion, Imm: boxTag})
			}
			fl.storeSlot(bindName, arm.Pos)
		}
		fl.lowerExpr(arm.Body)
		endJumps = append(endJumps, fl.emit(Instr{Op: OpJump, Target: -1}))
		for _, j := range failJumps {
			fl.instrs[j].Target = len(fl.instrs)
		}
	}

	// No arm matched: trap via abort. Unreachable for exhaustive
	// matches.
	fl.emit(Instr{Op: OpPushString, Sym: fl.mb.internString("match: no arm matched")})
	fl.emit(Instr{Op: OpCallBuiltin, Sym: "abort", Imm: 1})

	end := len(fl.instrs)
	for _, j := range endJumps {
		fl.instrs[j].Target = end
	}
}
