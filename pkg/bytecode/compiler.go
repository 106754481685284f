package bytecode

import (
	"github.com/slatevm/slate/pkg/ast"
)

// Compiler walks an AST and emits a Program, allocating virtual registers
// per statement and interning literals and names into the pools.
type Compiler struct {
	prog *Program

	inFunction bool
	nextReg    int // per-statement register allocator
}

// Compile turns a parsed program into bytecode. The returned program ends
// with OpHalt; on error, no program is returned.
func Compile(program *ast.Program) (*Program, error) {
	c := &Compiler{prog: NewProgram()}

	// First pass: collect function signatures so calls can be compiled
	// regardless of definition order.
	for _, stmt := range program.Statements {
		fn, ok := stmt.(*ast.FuncStmt)
		if !ok {
			continue
		}
		if c.prog.FunctionByName(fn.Name) >= 0 {
			return nil, compileErrorf("function %q defined twice", fn.Name)
		}
		params := make([]uint16, len(fn.Params))
		seen := make(map[string]bool, len(fn.Params))
		for i, p := range fn.Params {
			if seen[p] {
				return nil, compileErrorf("function %q has duplicate parameter %q", fn.Name, p)
			}
			seen[p] = true
			params[i] = c.prog.InternName(p)
		}
		c.prog.Functions = append(c.prog.Functions, Function{
			Name:      fn.Name,
			NameIndex: c.prog.InternName(fn.Name),
			Params:    params,
		})
	}

	// Second pass: compile the main body, then every function body.
	for _, stmt := range program.Statements {
		if _, ok := stmt.(*ast.FuncStmt); ok {
			continue
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.prog.Emit(Instruction{Op: OpHalt})

	for _, stmt := range program.Statements {
		fn, ok := stmt.(*ast.FuncStmt)
		if !ok {
			continue
		}
		if err := c.compileFunction(fn); err != nil {
			return nil, err
		}
	}

	return c.prog, nil
}

// compileFunction emits a function body at the current end of the
// instruction stream and records its entry point.
func (c *Compiler) compileFunction(fn *ast.FuncStmt) error {
	idx := c.prog.FunctionByName(fn.Name)
	c.prog.Functions[idx].Entry = c.prog.Len()

	c.inFunction = true
	defer func() { c.inFunction = false }()

	for _, stmt := range fn.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}

	// A body that can fall off the end returns no value. A trailing
	// return alone is not enough to skip the epilogue: a forward jump
	// patched to the end of the body still needs an instruction inside
	// the body to land on.
	entry := c.prog.Functions[idx].Entry
	n := c.prog.Len()
	needsEpilogue := n == entry || !c.prog.Instructions[n-1].Op.IsReturn()
	for i := entry; i < n && !needsEpilogue; i++ {
		if in := &c.prog.Instructions[i]; in.Op.IsJump() && in.Target >= n {
			needsEpilogue = true
		}
	}
	if needsEpilogue {
		c.prog.Emit(Instruction{Op: OpReturnVoid})
	}
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	c.nextReg = 0

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		src, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		idx := c.prog.InternName(s.Name)
		c.prog.Emit(Instruction{Op: OpStoreVar, Src1: src, Idx: idx, Var: idx})
		return nil

	case *ast.ExprStmt:
		src, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		// The value of the last top-level expression statement is the
		// program result. Inside functions the value is discarded.
		if !c.inFunction {
			c.prog.Emit(Instruction{Op: OpSetResult, Src1: src})
		}
		return nil

	case *ast.PrintStmt:
		src, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		c.prog.Emit(Instruction{Op: OpPrint, Src1: src})
		return nil

	case *ast.IfStmt:
		cond, err := c.compileExpr(s.Cond)
		if err != nil {
			return err
		}
		jumpElse := c.prog.Emit(Instruction{Op: OpJumpIfFalse, Src1: cond})
		if err := c.compileStmts(s.Then); err != nil {
			return err
		}
		if len(s.Else) == 0 {
			c.prog.PatchTarget(jumpElse)
			return nil
		}
		jumpEnd := c.prog.Emit(Instruction{Op: OpJump})
		c.prog.PatchTarget(jumpElse)
		if err := c.compileStmts(s.Else); err != nil {
			return err
		}
		c.prog.PatchTarget(jumpEnd)
		return nil

	case *ast.WhileStmt:
		start := c.prog.Len()
		cond, err := c.compileExpr(s.Cond)
		if err != nil {
			return err
		}
		jumpOut := c.prog.Emit(Instruction{Op: OpJumpIfFalse, Src1: cond})
		if err := c.compileStmts(s.Body); err != nil {
			return err
		}
		c.prog.Emit(Instruction{Op: OpJump, Target: start})
		c.prog.PatchTarget(jumpOut)
		return nil

	case *ast.ReturnStmt:
		if !c.inFunction {
			return compileErrorf("return outside of a function")
		}
		if s.Value == nil {
			c.prog.Emit(Instruction{Op: OpReturnVoid})
			return nil
		}
		src, err := c.compileExpr(s.Value)
		if err != nil {
			return err
		}
		c.prog.Emit(Instruction{Op: OpReturn, Src1: src})
		return nil

	case *ast.FuncStmt:
		return compileErrorf("nested function definitions are not supported")

	default:
		return compileErrorf("unsupported statement %T", stmt)
	}
}

// compileStmts compiles a block body. Block statements may reuse the
// registers that held the enclosing condition: conditions are always
// re-evaluated from scratch, so last-writer-wins register reuse is safe.
func (c *Compiler) compileStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// compileExpr emits code leaving the expression value in the returned
// register.
func (c *Compiler) compileExpr(expr ast.Expr) (uint8, error) {
	switch e := expr.(type) {
	case *ast.IntLit:
		idx := c.prog.AddConstant(e.Value)
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		c.prog.Emit(Instruction{Op: OpLoadConst, Dst: dst, Idx: idx})
		return dst, nil

	case *ast.BoolLit:
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		op := OpLoadFalse
		if e.Value {
			op = OpLoadTrue
		}
		c.prog.Emit(Instruction{Op: op, Dst: dst})
		return dst, nil

	case *ast.Ident:
		idx := c.prog.InternName(e.Name)
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		c.prog.Emit(Instruction{Op: OpLoadVar, Dst: dst, Idx: idx, Var: idx})
		return dst, nil

	case *ast.BinaryExpr:
		left, err := c.compileExpr(e.Left)
		if err != nil {
			return 0, err
		}
		right, err := c.compileExpr(e.Right)
		if err != nil {
			return 0, err
		}
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		c.prog.Emit(Instruction{Op: OpBinary, Dst: dst, Src1: left, Src2: right, BinOp: e.Op})
		return dst, nil

	case *ast.UnaryExpr:
		src, err := c.compileExpr(e.Operand)
		if err != nil {
			return 0, err
		}
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		c.prog.Emit(Instruction{Op: OpUnary, Dst: dst, Src1: src, UnOp: e.Op})
		return dst, nil

	case *ast.CallExpr:
		fnIdx := c.prog.FunctionByName(e.Name)
		if fnIdx < 0 {
			return 0, compileErrorf("call to undefined function %q", e.Name)
		}
		fn := &c.prog.Functions[fnIdx]
		if len(e.Args) != len(fn.Params) {
			return 0, compileErrorf("function %q takes %d arguments, got %d",
				e.Name, len(fn.Params), len(e.Args))
		}
		args := make([]uint8, len(e.Args))
		for i, arg := range e.Args {
			reg, err := c.compileExpr(arg)
			if err != nil {
				return 0, err
			}
			args[i] = reg
		}
		dst, err := c.allocReg()
		if err != nil {
			return 0, err
		}
		c.prog.Emit(Instruction{Op: OpCall, Dst: dst, Idx: uint16(fnIdx), Args: args})
		return dst, nil

	default:
		return 0, compileErrorf("unsupported expression %T", expr)
	}
}

// allocReg hands out the next free register for the current statement.
// Requests beyond register 255 are rejected here, before any bytecode
// reaches the VM.
func (c *Compiler) allocReg() (uint8, error) {
	if c.nextReg >= NumRegisters {
		return 0, compileErrorf("expression too complex: register %d requested, only %d registers exist",
			c.nextReg, NumRegisters)
	}
	reg := uint8(c.nextReg)
	c.nextReg++
	return reg, nil
}
