package bytecode

import "fmt"

// CompileError reports a malformed or unsupported construct found while
// compiling an AST. A compile failure never produces a partial program.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string {
	return "compile error: " + e.Message
}

func compileErrorf(format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}

// RuntimeError reports an execution failure together with the zero-based
// index of the failing instruction.
type RuntimeError struct {
	Message string
	Index   int // instruction index the error occurred at
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at instruction %d: %s", e.Index, e.Message)
}
