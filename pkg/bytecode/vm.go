package bytecode

import (
	"bytes"
	"fmt"
)

// MaxCallDepth bounds recursion. Exceeding it is a runtime error, not a
// crash.
const MaxCallDepth = 256

// State describes where the VM is in its lifecycle.
type State uint8

const (
	StateRunning State = iota
	StateHalted
	StateErrored
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// registerFile is a fixed bank of 256 value slots with an out-of-band
// validity bitmap: one bit per register, four 64-bit words. Reading a
// register whose bit is unset is a runtime error; writes set the bit and
// nothing ever clears it.
type registerFile struct {
	slots [NumRegisters]Value
	valid [4]uint64
}

// get reads a register, reporting whether it has ever been written.
func (r *registerFile) get(reg uint8) (Value, bool) {
	if r.valid[reg/64]&(1<<(reg%64)) == 0 {
		return Value{}, false
	}
	return r.slots[reg], true
}

// set writes a register and marks it valid.
func (r *registerFile) set(reg uint8, v Value) {
	r.slots[reg] = v
	r.valid[reg/64] |= 1 << (reg % 64)
}

// frame is one activation record: the caller's resume point, the register
// the return value lands in, and this invocation's own register bank and
// variable store.
type frame struct {
	regs    registerFile
	vars    map[uint16]Value
	retAddr int   // instruction index to resume the caller at
	dst     uint8 // caller register receiving the return value
}

// VM executes one Program and is then discarded. Execution is synchronous
// and single-threaded; print output goes to an in-memory buffer so the
// daemon and direct-execution paths behave identically.
type VM struct {
	prog   *Program
	ip     int
	state  State
	frames []*frame

	out bytes.Buffer

	result    Value
	hasResult bool
}

// NewVM creates a VM for a single execution of prog.
func NewVM(prog *Program) *VM {
	vm := &VM{prog: prog, state: StateRunning}
	vm.frames = append(vm.frames, &frame{vars: make(map[uint16]Value)})
	return vm
}

// Output returns everything printed so far as UTF-8 text.
func (vm *VM) Output() string {
	return vm.out.String()
}

// State returns the VM lifecycle state.
func (vm *VM) State() State {
	return vm.state
}

// Run executes the program to completion. It returns the program result
// (the last top-level expression statement value) and whether one exists.
// Any failure transitions the VM to StateErrored and returns a
// *RuntimeError carrying the failing instruction index.
func (vm *VM) Run() (Value, bool, error) {
	if vm.state != StateRunning {
		return Value{}, false, fmt.Errorf("vm is %s, not runnable", vm.state)
	}
	if err := vm.run(); err != nil {
		vm.state = StateErrored
		return Value{}, false, err
	}
	vm.state = StateHalted
	return vm.result, vm.hasResult, nil
}

func (vm *VM) run() error {
	for {
		if vm.ip < 0 || vm.ip >= len(vm.prog.Instructions) {
			return &RuntimeError{Message: "instruction pointer out of range", Index: vm.ip}
		}
		idx := vm.ip
		in := &vm.prog.Instructions[idx]
		top := vm.frames[len(vm.frames)-1]

		switch in.Op {
		case OpLoadConst:
			top.regs.set(in.Dst, Integer(vm.prog.Constants[in.Idx]))

		case OpLoadTrue:
			top.regs.set(in.Dst, Bool(true))

		case OpLoadFalse:
			top.regs.set(in.Dst, Bool(false))

		case OpMove:
			v, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			top.regs.set(in.Dst, v)

		case OpBinary:
			left, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			right, err := vm.read(top, in.Src2, idx)
			if err != nil {
				return err
			}
			v, err := left.BinaryOp(in.BinOp, right)
			if err != nil {
				return &RuntimeError{Message: err.Error(), Index: idx}
			}
			top.regs.set(in.Dst, v)

		case OpUnary:
			operand, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			v, err := operand.UnaryOp(in.UnOp)
			if err != nil {
				return &RuntimeError{Message: err.Error(), Index: idx}
			}
			top.regs.set(in.Dst, v)

		case OpLoadVar:
			v, ok := top.vars[in.Var]
			if !ok {
				return &RuntimeError{
					Message: fmt.Sprintf("undefined variable '%s'", vm.prog.Names[in.Idx]),
					Index:   idx,
				}
			}
			top.regs.set(in.Dst, v)

		case OpStoreVar:
			v, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			top.vars[in.Var] = v

		case OpPrint:
			v, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			vm.out.WriteString(v.String())
			vm.out.WriteByte('\n')

		case OpJump:
			vm.ip = in.Target
			continue

		case OpJumpIfFalse:
			cond, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			if cond.Kind() != KindBool {
				return &RuntimeError{
					Message: fmt.Sprintf("type mismatch: condition must be a boolean, got %s", cond.Kind()),
					Index:   idx,
				}
			}
			if !cond.IsTrue() {
				vm.ip = in.Target
				continue
			}

		case OpCall:
			if len(vm.frames) >= MaxCallDepth {
				return &RuntimeError{
					Message: fmt.Sprintf("stack overflow: maximum call depth %d exceeded", MaxCallDepth),
					Index:   idx,
				}
			}
			fn := &vm.prog.Functions[in.Idx]
			callee := &frame{
				vars:    make(map[uint16]Value, len(fn.Params)),
				retAddr: idx + 1,
				dst:     in.Dst,
			}
			if len(fn.Params) != 0 {
				for i, argReg := range in.Args {
					v, err := vm.read(top, argReg, idx)
					if err != nil {
						return err
					}
					callee.vars[fn.Params[i]] = v
				}
			}
			vm.frames = append(vm.frames, callee)
			vm.ip = fn.Entry
			continue

		case OpReturn:
			if len(vm.frames) == 1 {
				return &RuntimeError{Message: "return outside of a function", Index: idx}
			}
			v, err := vm.read(top, in.Src1, idx)
			if err != nil {
				return err
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			caller := vm.frames[len(vm.frames)-1]
			caller.regs.set(top.dst, v)
			vm.ip = top.retAddr
			continue

		case OpReturnVoid:
			if len(vm.frames) == 1 {
				return &RuntimeError{Message: "return outside of a function", Index: idx}
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.ip = top.retAddr
			continue

		case OpSetResult:
			// A call to a void function leaves its destination register
			// empty; such a statement yields no result.
			if v, ok := top.regs.get(in.Src1); ok {
				vm.result = v
				vm.hasResult = true
			} else {
				vm.hasResult = false
			}

		case OpHalt:
			return nil

		default:
			return &RuntimeError{Message: fmt.Sprintf("unknown opcode %s", in.Op), Index: idx}
		}

		vm.ip++
	}
}

// read fetches a register value, converting an unset validity bit into
// the canonical "register N is empty" error.
func (vm *VM) read(f *frame, reg uint8, idx int) (Value, error) {
	v, ok := f.regs.get(reg)
	if !ok {
		return Value{}, &RuntimeError{
			Message: fmt.Sprintf("register %d is empty", reg),
			Index:   idx,
		}
	}
	return v, nil
}
