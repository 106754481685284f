package bytecode

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/slatevm/slate/pkg/ast"
)

// Kind tags the runtime type of a Value.
type Kind uint8

const (
	KindInteger Kind = iota
	KindBool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBool:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the only runtime datum: a tagged 64-bit integer or boolean.
// Values are small and passed by copy.
type Value struct {
	kind Kind
	n    int64
}

// Arithmetic error values. These are wrapped into RuntimeErrors by the VM
// so the failing instruction index travels with the message.
var (
	ErrDivisionByZero = errors.New("Division by zero")
	ErrModuloByZero   = errors.New("Modulo by zero")
	ErrOverflow       = errors.New("Integer overflow")
)

// Integer creates an integer value.
func Integer(n int64) Value {
	return Value{kind: KindInteger, n: n}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.n = 1
	}
	return v
}

// Kind returns the value's type tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the integer payload. Only meaningful for KindInteger.
func (v Value) Int() int64 {
	return v.n
}

// IsTrue reports whether v is the boolean true.
func (v Value) IsTrue() bool {
	return v.kind == KindBool && v.n != 0
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.n == o.n
}

// String renders the value the way print and the final result render it.
func (v Value) String() string {
	if v.kind == KindBool {
		if v.n != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(v.n, 10)
}

// BinaryOp applies a binary operator to v and rhs. Overflow and
// division/modulo by zero are detected and returned as errors, never
// wrapped silently.
func (v Value) BinaryOp(op ast.BinaryOp, rhs Value) (Value, error) {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if v.kind != KindInteger || rhs.kind != KindInteger {
			return Value{}, fmt.Errorf("type mismatch: %s requires integer operands, got %s and %s",
				op, v.kind, rhs.kind)
		}
		return integerOp(op, v.n, rhs.n)

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if v.kind != KindInteger || rhs.kind != KindInteger {
			return Value{}, fmt.Errorf("type mismatch: %s requires integer operands, got %s and %s",
				op, v.kind, rhs.kind)
		}
		switch op {
		case ast.OpLt:
			return Bool(v.n < rhs.n), nil
		case ast.OpLe:
			return Bool(v.n <= rhs.n), nil
		case ast.OpGt:
			return Bool(v.n > rhs.n), nil
		default:
			return Bool(v.n >= rhs.n), nil
		}

	case ast.OpEq:
		return Bool(v.Equal(rhs)), nil
	case ast.OpNe:
		return Bool(!v.Equal(rhs)), nil

	case ast.OpAnd, ast.OpOr:
		if v.kind != KindBool || rhs.kind != KindBool {
			return Value{}, fmt.Errorf("type mismatch: %s requires boolean operands, got %s and %s",
				op, v.kind, rhs.kind)
		}
		if op == ast.OpAnd {
			return Bool(v.n != 0 && rhs.n != 0), nil
		}
		return Bool(v.n != 0 || rhs.n != 0), nil
	}
	return Value{}, fmt.Errorf("unsupported binary operator %s", op)
}

// UnaryOp applies a unary operator to v.
func (v Value) UnaryOp(op ast.UnaryOp) (Value, error) {
	switch op {
	case ast.OpNeg:
		if v.kind != KindInteger {
			return Value{}, fmt.Errorf("type mismatch: - requires an integer operand, got %s", v.kind)
		}
		if v.n == minInt64 {
			return Value{}, ErrOverflow
		}
		return Integer(-v.n), nil

	case ast.OpNot:
		if v.kind != KindBool {
			return Value{}, fmt.Errorf("type mismatch: ! requires a boolean operand, got %s", v.kind)
		}
		return Bool(v.n == 0), nil
	}
	return Value{}, fmt.Errorf("unsupported unary operator %s", op)
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

// integerOp performs checked integer arithmetic. Division truncates
// toward zero, matching Go's native semantics.
func integerOp(op ast.BinaryOp, a, b int64) (Value, error) {
	switch op {
	case ast.OpAdd:
		if (b > 0 && a > maxInt64-b) || (b < 0 && a < minInt64-b) {
			return Value{}, ErrOverflow
		}
		return Integer(a + b), nil

	case ast.OpSub:
		if (b < 0 && a > maxInt64+b) || (b > 0 && a < minInt64+b) {
			return Value{}, ErrOverflow
		}
		return Integer(a - b), nil

	case ast.OpMul:
		if a != 0 && b != 0 {
			p := a * b
			if p/b != a || (a == minInt64 && b == -1) {
				return Value{}, ErrOverflow
			}
			return Integer(p), nil
		}
		return Integer(0), nil

	case ast.OpDiv:
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		if a == minInt64 && b == -1 {
			return Value{}, ErrOverflow
		}
		return Integer(a / b), nil

	case ast.OpMod:
		if b == 0 {
			return Value{}, ErrModuloByZero
		}
		if a == minInt64 && b == -1 {
			return Integer(0), nil
		}
		return Integer(a % b), nil
	}
	return Value{}, fmt.Errorf("unsupported integer operator %s", op)
}
