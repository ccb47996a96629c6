package backend

// Op is one instruction in the backend's linear, stack-machine
// intermediate form. Lowering (lower.go) compiles an exec.FunctionDecl
// body into a flat []Instr; encode_amd64.go turns that into real
// x86-64 SysV machine code. A stack machine (rather than a
// register-allocated one) keeps the AST-to-IR step a straightforward
// syntax-directed walk: expressions lower depth-first, each pushing
// its value for its parent to consume.
type Op int

const (
	OpPushConstInt  Op = iota // Imm: literal value
	OpPushConstBool           // Imm: 0 or 1
	OpPushNil                 // pushes the zero slot value
	OpPushString              // Sym: symbol name of the .rodata string constant
	OpPushSymbolAddr          // Sym: symbol whose address is pushed (witness tables)
	OpLoadLocal               // Imm: frame-local slot index
	OpStoreLocal              // Imm: frame-local slot index (pops one value)
	OpLoadParam               // Imm: incoming parameter slot index
	OpLoadField               // Imm: byte offset; pops a struct pointer, pushes the field
	OpBinOp                   // Sym: operator text ("+","-","*","==", "and", "or", ...)
	OpUnaryOp                 // Sym: operator text ("-", "not")
	OpCallDirect              // Sym: mangled callee symbol, Imm: argument count
	OpCallBuiltin             // Sym: builtin name, Imm: argument count
	OpCallIndirect            // Imm: argument count; pops callee function pointer last
	OpAllocStruct             // Imm: field (slot) count; pops the field values, pushes the struct pointer
	OpBoxUnion                // Imm: union tag; pops payload, pushes {tag,payload} box
	OpUnboxUnion              // Imm: expected tag; pops box, pushes payload (the tag is not checked at runtime)
	OpTagOfUnion              // pops box, pushes tag without consuming payload semantics (peek pattern)
	OpBoxInterface            // Sym: vtable symbol; pops data pointer, pushes {data_ptr,vtable_ptr}
	OpJumpIfFalse             // Target: instruction index; pops condition
	OpJump                    // Target: instruction index
	OpLabel                   // Target: this instruction's own index, used only pre-resolution
	OpReturn                  // pops the return value (absent for Nil-returning bodies with no operand)
	OpReturnVoid              // returns with no value
	OpPop                     // discards the top of stack (statement-expression result)
	OpDup                     // duplicates the top of stack
)

// Instr is one IR instruction. Only the fields relevant to Op are set.
type Instr struct {
	Op     Op
	Imm    int64
	Sym    string
	Target int
}

// Func is one lowered function or method body, ready for encoding.
type Func struct {
	Symbol     string
	ParamCount int
	// LocalSlots is the number of 8-byte local-variable slots the
	// body needs, beyond its parameters; frame size is derived from
	// this plus the fixed register-save area (encode_amd64.go).
	LocalSlots int
	Instrs     []Instr
}

// StringConst is one interned string literal promoted to .rodata.
type StringConst struct {
	Symbol string
	Value  string
}
