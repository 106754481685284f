package engine

import (
	"time"

	"github.com/slatevm/slate/pkg/bytecode"
	"github.com/slatevm/slate/pkg/parser"
)

// ProfileResult holds per-stage wall-clock timings for one execution.
type ProfileResult struct {
	Parse   time.Duration
	Compile time.Duration
	Execute time.Duration
	Total   time.Duration

	Instructions int    // compiled instruction count
	Constants    int    // constant pool size
	Output       string // same body Execute would return
}

// Profile compiles and runs source with every pipeline stage timed
// freshly. It always executes in-process and never touches the daemon or
// any cache, so each stage's cost is measured, not amortized. Stages
// completed before a failure keep their timings in the returned result.
func Profile(source string) (*ProfileResult, error) {
	res := &ProfileResult{}
	start := time.Now()

	parseStart := time.Now()
	ast, err := parser.Parse(source)
	res.Parse = time.Since(parseStart)
	if err != nil {
		res.Total = time.Since(start)
		return res, err
	}

	compileStart := time.Now()
	program, err := bytecode.Compile(ast)
	res.Compile = time.Since(compileStart)
	if err != nil {
		res.Total = time.Since(start)
		return res, err
	}
	res.Instructions = program.Len()
	res.Constants = len(program.Constants)

	execStart := time.Now()
	vm := bytecode.NewVM(program)
	result, hasResult, err := vm.Run()
	res.Execute = time.Since(execStart)
	res.Total = time.Since(start)
	if err != nil {
		return res, err
	}

	res.Output = vm.Output()
	if hasResult {
		res.Output += result.String()
	}
	return res, nil
}
