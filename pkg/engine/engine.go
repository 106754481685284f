// Package engine wires the parser, compiler, cache and VM into the one
// execution pipeline used everywhere: by the daemon, by the client's
// direct-execution fallback and by the CLI. Sharing the pipeline is what
// guarantees byte-identical output and error text across all paths.
package engine

import (
	"github.com/slatevm/slate/pkg/bytecode"
	"github.com/slatevm/slate/pkg/parser"
)

// Lookup is the cache contract the pipeline needs. Both cache.Cache and
// cache.SharedCache satisfy it.
type Lookup interface {
	Get(source string) (*bytecode.Program, bool)
	Insert(source string, program *bytecode.Program)
}

// CompileSource parses and compiles source into a program, without
// consulting any cache.
func CompileSource(source string) (*bytecode.Program, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return bytecode.Compile(prog)
}

// Execute compiles and runs source directly, bypassing every cache.
func Execute(source string) (string, error) {
	program, err := CompileSource(source)
	if err != nil {
		return "", err
	}
	return RunProgram(program)
}

// ExecuteCached runs source through the given cache: a hit reuses the
// compiled program, a miss compiles and inserts it. Compilation happens
// outside any lock the cache may hold internally. Runtime failures are
// not cached and do not evict; the bytecode stays valid.
func ExecuteCached(source string, c Lookup) (string, error) {
	program, ok := c.Get(source)
	if !ok {
		var err error
		program, err = CompileSource(source)
		if err != nil {
			return "", err
		}
		c.Insert(source, program)
	}
	return RunProgram(program)
}

// RunProgram executes a compiled program on a fresh single-use VM and
// formats the response body: the captured print buffer plus, when the
// program yields one, the stringified result.
func RunProgram(program *bytecode.Program) (string, error) {
	vm := bytecode.NewVM(program)
	result, hasResult, err := vm.Run()
	if err != nil {
		return "", err
	}
	body := vm.Output()
	if hasResult {
		body += result.String()
	}
	return body, nil
}
