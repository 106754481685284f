package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a program as human-readable text, one instruction
// per line, followed by the constant pool, name pool and function table.
// Intended for debugging and golden tests.
func Disassemble(p *Program) string {
	var b strings.Builder

	for i, in := range p.Instructions {
		fmt.Fprintf(&b, "%04d  %s\n", i, in)
	}

	if len(p.Constants) > 0 {
		b.WriteString("constants:\n")
		for i, c := range p.Constants {
			fmt.Fprintf(&b, "  [%d] %d\n", i, c)
		}
	}
	if len(p.Names) > 0 {
		b.WriteString("names:\n")
		for i, n := range p.Names {
			fmt.Fprintf(&b, "  [%d] %s\n", i, n)
		}
	}
	if len(p.Functions) > 0 {
		b.WriteString("functions:\n")
		for i, fn := range p.Functions {
			fmt.Fprintf(&b, "  [%d] %s/%d entry=%d\n", i, fn.Name, len(fn.Params), fn.Entry)
		}
	}

	return b.String()
}
