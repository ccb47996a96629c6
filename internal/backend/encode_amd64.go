package backend

import (
	"encoding/binary"
	"fmt"
)

// Relocation is one call-site relocation against an external or
// later-defined symbol. The encoder never needs a callee's final
// address, only to record where a rel32 displacement must be patched
// at link time.
type Relocation struct {
	Offset int64  // byte offset within the owning Func's code, of the 4-byte field
	Symbol string
	Addend int64
}

// EncodedFunc is one Func's assembled x86-64 SysV machine code plus
// its outgoing call relocations.
type EncodedFunc struct {
	Symbol string
	Code   []byte
	Relocs []Relocation
}

// encoder assembles a bounded x86-64 instruction subset sufficient for
// the stack-machine IR: push/pop/mov/add/sub/imul/idiv/cmp+setcc/call
// rel32/jmp/jcc rel32/ret/lea, with rax as the accumulator and
// rdi/rsi/rdx/rcx for the first four call arguments. This mirrors how
// a simple one-pass bytecode-to-native JIT works; the generated code
// follows the SysV x86-64 calling convention.
type encoder struct {
	code       []byte
	relocs     []Relocation
	paramCount int
	// jumpFixups records where a rel32 operand needs patching once
	// every instruction's byte offset is known.
	jumpFixups []jumpFixup
}

type jumpFixup struct {
	codeOffset  int // offset of the 4-byte rel32 field
	targetInstr int
}

// argRegs covers the first four SysV integer argument registers
// addressable with single-byte push/pop encodings; r8/r9 need a REX
// prefix on push/pop, so lowering rejects wider calls up front
// (maxCallArgs).
var argRegs = []byte{regRdi, regRsi, regRdx, regRcx}

// Encode assembles one lowered Func into SysV x86-64 machine code.
// Incoming register arguments are spilled into the top of the local
// frame so OpLoadParam addresses them uniformly; locals follow below
// the parameter spill area. The return value travels in rax.
func Encode(f *Func) (*EncodedFunc, error) {
	e := &encoder{paramCount: f.ParamCount}
	frameSize := int64(f.ParamCount+f.LocalSlots) * SlotSize
	if frameSize%16 != 0 {
		frameSize += 8 // keep the frame 16-byte aligned past the pushed rbp
	}

	e.emit(0x55)         // push rbp
	e.emitRexMovRbpRsp() // mov rbp, rsp
	if frameSize > 0 {
		e.emitSubRspImm32(frameSize) // sub rsp, frameSize
	}
	// spill incoming register arguments into their parameter slots so
	// OpLoadParam can address them off rbp like any local.
	for i := 0; i < f.ParamCount && i < len(argRegs); i++ {
		e.emitMovMemReg(paramDisp(int64(i)), argRegs[i])
	}

	instrOffsets := make([]int, len(f.Instrs))
	for ip, instr := range f.Instrs {
		instrOffsets[ip] = len(e.code)
		if err := e.encodeOne(instr); err != nil {
			return nil, fmt.Errorf("%s: instr %d: %w", f.Symbol, ip, err)
		}
	}
	endOffset := len(e.code)

	for _, fx := range e.jumpFixups {
		target := endOffset
		if fx.targetInstr >= 0 && fx.targetInstr < len(instrOffsets) {
			target = instrOffsets[fx.targetInstr]
		}
		rel := int32(target - (fx.codeOffset + 4))
		binary.LittleEndian.PutUint32(e.code[fx.codeOffset:], uint32(rel))
	}

	return &EncodedFunc{Symbol: f.Symbol, Code: e.code, Relocs: e.relocs}, nil
}

func (e *encoder) emit(b ...byte) { e.code = append(e.code, b...) }

func (e *encoder) emitRexMovRbpRsp() { e.emit(0x48, 0x89, 0xe5) }

func (e *encoder) emitSubRspImm32(n int64) {
	e.emit(0x48, 0x81, 0xec)
	e.emitImm32(int32(n))
}

func (e *encoder) emitImm32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	e.emit(buf[:]...)
}

func (e *encoder) emitImm64(v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	e.emit(buf[:]...)
}

// emitMovMemReg encodes `mov [rbp+disp], reg` for a low (REX.B=0)
// 64-bit GP register.
func (e *encoder) emitMovMemReg(disp int64, reg byte) {
	e.emit(0x48, 0x89, 0x85|(reg<<3))
	e.emitImm32(int32(disp))
}

// emitMovRegMem encodes `mov reg, [rbp+disp]`.
func (e *encoder) emitMovRegMem(reg byte, disp int64) {
	e.emit(0x48, 0x8b, 0x85|(reg<<3))
	e.emitImm32(int32(disp))
}

// register encodings used as base/src operands below (low 8 GP
// registers only — no REX.B extension, matching argRegs' choice to
// stay within the single-byte push/pop encodings).
const (
	regRax = 0
	regRcx = 1
	regRdx = 2
	regRbx = 3
	regRsi = 6
	regRdi = 7
)

// emitLoadBaseOffset encodes `mov dst, [base+disp]` for any low GP
// base register (rax, used for struct/union-box field loads, rather
// than rbp's fixed frame-local addressing above).
func (e *encoder) emitLoadBaseOffset(dst, base byte, disp int64) {
	e.emit(0x48, 0x8b, 0x80|(dst<<3)|base)
	e.emitImm32(int32(disp))
}

// emitStoreBaseOffset encodes `mov [base+disp], src`.
func (e *encoder) emitStoreBaseOffset(base, src byte, disp int64) {
	e.emit(0x48, 0x89, 0x80|(src<<3)|base)
	e.emitImm32(int32(disp))
}

// emitMovRegImm64 encodes `movabs reg, imm64` for a low GP register.
func (e *encoder) emitMovRegImm64(reg byte, v int64) {
	e.emit(0x48, 0xb8+reg)
	e.emitImm64(v)
}

// emitLeaRipRel encodes `lea reg, [rip+rel32]` with a PC32 relocation
// against sym filling the displacement at link time.
func (e *encoder) emitLeaRipRel(reg byte, sym string) {
	e.emit(0x48, 0x8d, 0x05|(reg<<3))
	e.relocs = append(e.relocs, Relocation{Offset: int64(len(e.code)), Symbol: sym, Addend: -4})
	e.emitImm32(0)
}

// pushRax/popRax use the native stack as the IR's operand stack; rsp
// doubles as both, which is standard for a stack-machine lowering
// straight to native code.
func (e *encoder) pushRax() { e.emit(0x50) }
func (e *encoder) popRax()  { e.emit(0x58) }
func (e *encoder) popRbx()  { e.emit(0x5b) }

// paramDisp is the rbp-relative offset of a spilled parameter slot;
// localDisp places locals below the whole parameter spill area.
func paramDisp(idx int64) int64 { return -(idx + 1) * SlotSize }

func (e *encoder) localDisp(slot int64) int64 {
	return -(int64(e.paramCount) + slot + 1) * SlotSize
}

func (e *encoder) encodeOne(instr Instr) error {
	switch instr.Op {
	case OpPushConstInt, OpPushConstBool, OpPushNil:
		e.emitMovRegImm64(regRax, instr.Imm)
		e.pushRax()
	case OpPushString, OpPushSymbolAddr:
		e.emitLeaRipRel(regRax, instr.Sym)
		e.pushRax()
	case OpLoadLocal:
		e.emitMovRegMem(regRax, e.localDisp(instr.Imm))
		e.pushRax()
	case OpStoreLocal:
		e.popRax()
		e.emitMovMemReg(e.localDisp(instr.Imm), regRax)
	case OpLoadParam:
		e.emitMovRegMem(regRax, paramDisp(instr.Imm))
		e.pushRax()
	case OpLoadField:
		e.popRax()
		e.emitLoadBaseOffset(regRax, regRax, instr.Imm)
		e.pushRax()
	case OpTagOfUnion:
		e.popRax()
		e.emitLoadBaseOffset(regRax, regRax, 0) // box tag field
		e.pushRax()
	case OpUnboxUnion:
		e.popRax()
		e.emitLoadBaseOffset(regRax, regRax, 8) // box payload field
		e.pushRax()
	case OpBoxUnion:
		// {tag, payload} box: payload into rbx (callee-saved across
		// malloc), 16 fresh bytes, then both fields stored.
		e.popRbx()
		e.emitMovRegImm64(regRdi, UnionBoxSize)
		e.callExternal("malloc")
		e.emitMovRegImm64(regRcx, instr.Imm)
		e.emitStoreBaseOffset(regRax, regRcx, 0)
		e.emitStoreBaseOffset(regRax, regRbx, 8)
		e.pushRax()
	case OpBoxInterface:
		// {data_pointer, vtable_pointer} box.
		e.popRbx()
		e.emitMovRegImm64(regRdi, InterfaceValueSize)
		e.callExternal("malloc")
		e.emitStoreBaseOffset(regRax, regRbx, 0)
		e.emitLeaRipRel(regRcx, instr.Sym)
		e.emitStoreBaseOffset(regRax, regRcx, 8)
		e.pushRax()
	case OpAllocStruct:
		e.emitMovRegImm64(regRdi, instr.Imm*SlotSize)
		e.callExternal("malloc")
		// rax holds the fresh struct pointer. Field values were pushed
		// field0..fieldN-1 in order, so the stack top is fieldN-1; pop
		// back-to-front into rbx and store each into its slot, leaving
		// rax untouched as the base.
		for i := int(instr.Imm) - 1; i >= 0; i-- {
			e.popRbx()
			e.emitStoreBaseOffset(regRax, regRbx, StructFieldOffset(i))
		}
		e.pushRax()
	case OpBinOp:
		e.popRbx() // rhs
		e.popRax() // lhs
		if err := e.emitBinOp(instr.Sym); err != nil {
			return err
		}
		e.pushRax()
	case OpUnaryOp:
		e.popRax()
		switch instr.Sym {
		case "-":
			e.emit(0x48, 0xf7, 0xd8) // neg rax
		case "not":
			e.emit(0x48, 0x83, 0xf0, 0x01) // xor rax, 1
		default:
			return fmt.Errorf("unsupported unary operator %q", instr.Sym)
		}
		e.pushRax()
	case OpCallDirect, OpCallBuiltin:
		// Builtins are defined in the emitted object under their plain
		// names (print/abort/assert/string).
		argc := int(instr.Imm)
		if argc > len(argRegs) {
			return fmt.Errorf("call to %q has %d arguments; at most %d are supported", instr.Sym, argc, len(argRegs))
		}
		// arguments were pushed left-to-right; pop back into registers
		// right-to-left so they land in call order.
		for i := argc - 1; i >= 0; i-- {
			e.popRegInto(argRegs[i])
		}
		e.callExternal(instr.Sym)
		e.pushRax()
	case OpCallIndirect:
		e.popRax() // callee function pointer, pushed last
		argc := int(instr.Imm)
		if argc > len(argRegs) {
			return fmt.Errorf("indirect call has %d arguments; at most %d are supported", argc, len(argRegs))
		}
		for i := argc - 1; i >= 0; i-- {
			e.popRegInto(argRegs[i])
		}
		e.emit(0xff, 0xd0) // call rax
		e.pushRax()
	case OpJumpIfFalse:
		e.popRax()
		e.emit(0x48, 0x83, 0xf8, 0x00) // cmp rax, 0
		e.emit(0x0f, 0x84)             // je rel32
		e.jumpFixups = append(e.jumpFixups, jumpFixup{codeOffset: len(e.code), targetInstr: instr.Target})
		e.emitImm32(0)
	case OpJump:
		e.emit(0xe9) // jmp rel32
		e.jumpFixups = append(e.jumpFixups, jumpFixup{codeOffset: len(e.code), targetInstr: instr.Target})
		e.emitImm32(0)
	case OpLabel:
		// no bytes; only a fixup target.
	case OpReturn:
		e.popRax()
		e.emitEpilogue()
	case OpReturnVoid:
		e.emit(0x48, 0x31, 0xc0) // xor rax, rax
		e.emitEpilogue()
	case OpPop:
		e.emit(0x48, 0x83, 0xc4, 0x08) // add rsp, 8
	case OpDup:
		e.popRax()
		e.pushRax()
		e.pushRax()
	default:
		return fmt.Errorf("unsupported instruction opcode %d", instr.Op)
	}
	return nil
}

func (e *encoder) emitEpilogue() {
	e.emit(0x48, 0x89, 0xec) // mov rsp, rbp
	e.emit(0x5d)             // pop rbp
	e.emit(0xc3)             // ret
}

// popRegInto pops the operand stack's top into a SysV argument
// register identified by its low 3 bits (single-byte pop form, low
// registers only).
func (e *encoder) popRegInto(reg byte) {
	e.emit(0x58 + reg)
}

// callExternal emits `call rel32` with a PC32 relocation; the -4
// addend accounts for rel32 displacements being relative to the end of
// the instruction.
func (e *encoder) callExternal(symbol string) {
	e.emit(0xe8)
	e.relocs = append(e.relocs, Relocation{Offset: int64(len(e.code)), Symbol: symbol, Addend: -4})
	e.emitImm32(0)
}

func (e *encoder) emitBinOp(op string) error {
	switch op {
	case "+":
		e.emit(0x48, 0x01, 0xd8) // add rax, rbx
	case "-":
		e.emit(0x48, 0x29, 0xd8) // sub rax, rbx
	case "*":
		e.emit(0x48, 0x0f, 0xaf, 0xc3) // imul rax, rbx
	case "/":
		e.emit(0x48, 0x99)             // cqo
		e.emit(0x48, 0xf7, 0xfb)       // idiv rbx (divide-by-zero traps, as intended)
	case "and":
		e.emit(0x48, 0x21, 0xd8) // and rax, rbx
	case "or":
		e.emit(0x48, 0x09, 0xd8) // or rax, rbx
	case "==", "!=", "<", "<=", ">", ">=":
		e.emit(0x48, 0x39, 0xd8) // cmp rax, rbx
		var cc byte
		switch op {
		case "==":
			cc = 0x94 // sete
		case "!=":
			cc = 0x95 // setne
		case "<":
			cc = 0x9c // setl
		case "<=":
			cc = 0x9e // setle
		case ">":
			cc = 0x9f // setg
		case ">=":
			cc = 0x9d // setge
		}
		e.emit(0x0f, cc, 0xc0)         // setcc al
		e.emit(0x48, 0x0f, 0xb6, 0xc0) // movzx rax, al
	default:
		return fmt.Errorf("unsupported binary operator %q", op)
	}
	return nil
}
