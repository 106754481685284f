package engine

import (
	"testing"

	"github.com/slatevm/slate/pkg/cache"
)

const benchSource = `
fn fib(n) {
	if n < 2 { return n }
	return fib(n - 1) + fib(n - 2)
}
fib(15)
`

// BenchmarkExecute measures the full pipeline: parse, compile and run on
// every iteration.
func BenchmarkExecute(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Execute(benchSource); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecuteCached measures the hot path: compilation amortized by
// the cache, a fresh VM per run.
func BenchmarkExecuteCached(b *testing.B) {
	c := cache.New(10)
	if _, err := ExecuteCached(benchSource, c); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ExecuteCached(benchSource, c); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompileSource isolates parse plus compile.
func BenchmarkCompileSource(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := CompileSource(benchSource); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRunProgram isolates VM execution of an already compiled
// program.
func BenchmarkRunProgram(b *testing.B) {
	program, err := CompileSource(benchSource)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RunProgram(program); err != nil {
			b.Fatal(err)
		}
	}
}
