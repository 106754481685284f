package bytecode

import (
	"fmt"

	"github.com/slatevm/slate/pkg/ast"
)

// Opcode identifies an instruction variant.
type Opcode uint8

const (
	// OpLoadConst loads Constants[Idx] into Dst.
	OpLoadConst Opcode = iota

	// OpLoadTrue loads boolean true into Dst.
	OpLoadTrue

	// OpLoadFalse loads boolean false into Dst.
	OpLoadFalse

	// OpMove copies Src1 into Dst.
	OpMove

	// OpBinary applies BinOp to Src1 and Src2, storing the result in Dst.
	OpBinary

	// OpUnary applies UnOp to Src1, storing the result in Dst.
	OpUnary

	// OpLoadVar reads variable Var (named Names[Idx]) into Dst.
	OpLoadVar

	// OpStoreVar writes Src1 into variable Var (named Names[Idx]).
	OpStoreVar

	// OpPrint appends the value in Src1 plus a newline to the output buffer.
	OpPrint

	// OpJump continues execution at instruction Target.
	OpJump

	// OpJumpIfFalse jumps to Target when the boolean in Src1 is false.
	OpJumpIfFalse

	// OpCall invokes Functions[Idx] with the values in Args, storing the
	// returned value (if any) in Dst.
	OpCall

	// OpReturn returns the value in Src1 from the current function.
	OpReturn

	// OpReturnVoid returns from the current function without a value; the
	// caller's destination register stays empty.
	OpReturnVoid

	// OpSetResult records the value in Src1 as the program result yielded
	// at halt.
	OpSetResult

	// OpHalt stops execution. Always the last instruction of a program.
	OpHalt
)

var opcodeNames = [...]string{
	OpLoadConst:   "LOAD_CONST",
	OpLoadTrue:    "LOAD_TRUE",
	OpLoadFalse:   "LOAD_FALSE",
	OpMove:        "MOVE",
	OpBinary:      "BINARY",
	OpUnary:       "UNARY",
	OpLoadVar:     "LOAD_VAR",
	OpStoreVar:    "STORE_VAR",
	OpPrint:       "PRINT",
	OpJump:        "JUMP",
	OpJumpIfFalse: "JUMP_IF_FALSE",
	OpCall:        "CALL",
	OpReturn:      "RETURN",
	OpReturnVoid:  "RETURN_VOID",
	OpSetResult:   "SET_RESULT",
	OpHalt:        "HALT",
}

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(op))
}

// IsJump reports whether the opcode transfers control via Target.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse
}

// IsReturn reports whether the opcode leaves the current frame.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnVoid
}

// NumRegisters is the size of the register bank. Register operands are a
// single unsigned byte, so programs can never address past it.
const NumRegisters = 256

// Instruction is one executable operation. Instructions reference
// registers by index (0-255) and pools by Idx; they are immutable once
// the compiler has built them.
type Instruction struct {
	Op Opcode

	Dst  uint8 // destination register
	Src1 uint8 // first source register
	Src2 uint8 // second source register

	BinOp ast.BinaryOp // operator for OpBinary
	UnOp  ast.UnaryOp  // operator for OpUnary

	Idx    uint16  // constant-, name- or function-table index
	Var    uint16  // variable id for OpLoadVar/OpStoreVar
	Target int     // jump destination for OpJump/OpJumpIfFalse
	Args   []uint8 // argument registers for OpCall
}

// String renders the instruction for disassembly and error reporting.
func (in Instruction) String() string {
	switch in.Op {
	case OpLoadConst:
		return fmt.Sprintf("%-14s r%d <- const[%d]", in.Op, in.Dst, in.Idx)
	case OpLoadTrue, OpLoadFalse:
		return fmt.Sprintf("%-14s r%d", in.Op, in.Dst)
	case OpMove:
		return fmt.Sprintf("%-14s r%d <- r%d", in.Op, in.Dst, in.Src1)
	case OpBinary:
		return fmt.Sprintf("%-14s r%d <- r%d %s r%d", in.Op, in.Dst, in.Src1, in.BinOp, in.Src2)
	case OpUnary:
		return fmt.Sprintf("%-14s r%d <- %s r%d", in.Op, in.Dst, in.UnOp, in.Src1)
	case OpLoadVar:
		return fmt.Sprintf("%-14s r%d <- var[%d] (name[%d])", in.Op, in.Dst, in.Var, in.Idx)
	case OpStoreVar:
		return fmt.Sprintf("%-14s var[%d] <- r%d (name[%d])", in.Op, in.Var, in.Src1, in.Idx)
	case OpPrint:
		return fmt.Sprintf("%-14s r%d", in.Op, in.Src1)
	case OpJump:
		return fmt.Sprintf("%-14s -> %d", in.Op, in.Target)
	case OpJumpIfFalse:
		return fmt.Sprintf("%-14s r%d -> %d", in.Op, in.Src1, in.Target)
	case OpCall:
		return fmt.Sprintf("%-14s r%d <- fn[%d] args=%v", in.Op, in.Dst, in.Idx, in.Args)
	case OpReturn:
		return fmt.Sprintf("%-14s r%d", in.Op, in.Src1)
	case OpSetResult:
		return fmt.Sprintf("%-14s r%d", in.Op, in.Src1)
	default:
		return in.Op.String()
	}
}
