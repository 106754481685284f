package bytecode

import "fmt"

// Function describes one compiled user-defined function.
type Function struct {
	Name      string   // function name, also present in the name pool
	NameIndex uint16   // index of Name in the name pool
	Entry     int      // instruction index of the function body
	Params    []uint16 // variable ids the arguments are bound to, in order
}

// Program is a compiled unit: a flat instruction sequence plus two
// deduplicated side tables. The main body ends with OpHalt; function
// bodies follow it, each ending with a return. Programs are immutable
// after compilation and safe to share between cache entries and
// concurrent executions.
type Program struct {
	Instructions []Instruction
	Constants    []int64  // deduplicated integer literals
	Names        []string // deduplicated variable and function names
	Functions    []Function
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		Instructions: make([]Instruction, 0, 32),
	}
}

// AddConstant adds an integer constant to the pool and returns its index.
// Equal literals always share one pool entry.
func (p *Program) AddConstant(n int64) uint16 {
	for i, c := range p.Constants {
		if c == n {
			return uint16(i)
		}
	}
	idx := uint16(len(p.Constants))
	p.Constants = append(p.Constants, n)
	return idx
}

// InternName adds a name to the pool and returns its index. The index
// doubles as the variable id, so equal names share one id program-wide.
func (p *Program) InternName(name string) uint16 {
	for i, s := range p.Names {
		if s == name {
			return uint16(i)
		}
	}
	idx := uint16(len(p.Names))
	p.Names = append(p.Names, name)
	return idx
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(in Instruction) int {
	idx := len(p.Instructions)
	p.Instructions = append(p.Instructions, in)
	return idx
}

// PatchTarget rewrites the jump target of the instruction at idx to point
// at the current end of the instruction stream.
func (p *Program) PatchTarget(idx int) {
	p.Instructions[idx].Target = len(p.Instructions)
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// FunctionByName returns the index of the named function, or -1.
func (p *Program) FunctionByName(name string) int {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that every pool index, register operand and jump target
// is in bounds. Freshly compiled programs always pass; the check guards
// programs loaded from the persistent store.
func (p *Program) Validate() error {
	n := len(p.Instructions)
	if n == 0 || (p.Instructions[n-1].Op != OpHalt && !p.Instructions[n-1].Op.IsReturn()) {
		return fmt.Errorf("program does not end with %s or a return", OpHalt)
	}
	for i, in := range p.Instructions {
		if in.Op.IsJump() && (in.Target < 0 || in.Target >= n) {
			return fmt.Errorf("instruction %d: jump target %d out of range", i, in.Target)
		}
		switch in.Op {
		case OpLoadConst:
			if int(in.Idx) >= len(p.Constants) {
				return fmt.Errorf("instruction %d: constant index %d out of range", i, in.Idx)
			}
		case OpLoadVar, OpStoreVar:
			if int(in.Idx) >= len(p.Names) {
				return fmt.Errorf("instruction %d: name index %d out of range", i, in.Idx)
			}
		case OpCall:
			if int(in.Idx) >= len(p.Functions) {
				return fmt.Errorf("instruction %d: function index %d out of range", i, in.Idx)
			}
			if len(in.Args) != len(p.Functions[in.Idx].Params) {
				return fmt.Errorf("instruction %d: call passes %d arguments, function %q takes %d",
					i, len(in.Args), p.Functions[in.Idx].Name, len(p.Functions[in.Idx].Params))
			}
		}
	}
	for i, fn := range p.Functions {
		if fn.Entry < 0 || fn.Entry >= n {
			return fmt.Errorf("function %d: entry %d out of range", i, fn.Entry)
		}
		if int(fn.NameIndex) >= len(p.Names) {
			return fmt.Errorf("function %d: name index %d out of range", i, fn.NameIndex)
		}
	}
	return nil
}
