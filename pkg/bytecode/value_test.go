package bytecode

import (
	"math"
	"testing"

	"github.com/slatevm/slate/pkg/ast"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Integer(0), "0"},
		{Integer(42), "42"},
		{Integer(-7), "-7"},
		{Integer(math.MaxInt64), "9223372036854775807"},
		{Integer(math.MinInt64), "-9223372036854775808"},
		{Bool(true), "true"},
		{Bool(false), "false"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestBinaryOpArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   ast.BinaryOp
		a, b int64
		want int64
	}{
		{"add", ast.OpAdd, 2, 3, 5},
		{"sub", ast.OpSub, 2, 3, -1},
		{"mul", ast.OpMul, 6, 7, 42},
		{"div", ast.OpDiv, 10, 3, 3},
		{"div truncates toward zero", ast.OpDiv, -7, 2, -3},
		{"div negative divisor", ast.OpDiv, 7, -2, -3},
		{"mod", ast.OpMod, 10, 3, 1},
		{"mod negative", ast.OpMod, -7, 2, -1},
		{"mod min by -1", ast.OpMod, math.MinInt64, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Integer(tt.a).BinaryOp(tt.op, Integer(tt.b))
			if err != nil {
				t.Fatalf("BinaryOp(%d %s %d) error: %v", tt.a, tt.op, tt.b, err)
			}
			if got.Int() != tt.want {
				t.Errorf("BinaryOp(%d %s %d) = %d, want %d", tt.a, tt.op, tt.b, got.Int(), tt.want)
			}
		})
	}
}

func TestBinaryOpErrors(t *testing.T) {
	tests := []struct {
		name string
		op   ast.BinaryOp
		a, b int64
		want error
	}{
		{"div by zero", ast.OpDiv, 1, 0, ErrDivisionByZero},
		{"div zero by zero", ast.OpDiv, 0, 0, ErrDivisionByZero},
		{"div negative by zero", ast.OpDiv, -5, 0, ErrDivisionByZero},
		{"mod by zero", ast.OpMod, 1, 0, ErrModuloByZero},
		{"add overflow", ast.OpAdd, math.MaxInt64, 1, ErrOverflow},
		{"add underflow", ast.OpAdd, math.MinInt64, -1, ErrOverflow},
		{"sub underflow", ast.OpSub, math.MinInt64, 1, ErrOverflow},
		{"mul overflow", ast.OpMul, math.MaxInt64, 2, ErrOverflow},
		{"mul min by -1", ast.OpMul, math.MinInt64, -1, ErrOverflow},
		{"div min by -1", ast.OpDiv, math.MinInt64, -1, ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Integer(tt.a).BinaryOp(tt.op, Integer(tt.b))
			if err != tt.want {
				t.Errorf("BinaryOp(%d %s %d) error = %v, want %v", tt.a, tt.op, tt.b, err, tt.want)
			}
		})
	}
}

func TestBinaryOpComparisons(t *testing.T) {
	tests := []struct {
		op   ast.BinaryOp
		a, b Value
		want bool
	}{
		{ast.OpLt, Integer(1), Integer(2), true},
		{ast.OpLt, Integer(2), Integer(2), false},
		{ast.OpLe, Integer(2), Integer(2), true},
		{ast.OpGt, Integer(3), Integer(2), true},
		{ast.OpGe, Integer(1), Integer(2), false},
		{ast.OpEq, Integer(5), Integer(5), true},
		{ast.OpEq, Integer(5), Integer(6), false},
		{ast.OpEq, Bool(true), Bool(true), true},
		{ast.OpEq, Integer(1), Bool(true), false}, // different kinds never equal
		{ast.OpNe, Integer(1), Bool(true), true},
		{ast.OpAnd, Bool(true), Bool(false), false},
		{ast.OpAnd, Bool(true), Bool(true), true},
		{ast.OpOr, Bool(false), Bool(true), true},
		{ast.OpOr, Bool(false), Bool(false), false},
	}
	for _, tt := range tests {
		got, err := tt.a.BinaryOp(tt.op, tt.b)
		if err != nil {
			t.Fatalf("BinaryOp(%s %s %s) error: %v", tt.a, tt.op, tt.b, err)
		}
		if got.Kind() != KindBool || got.IsTrue() != tt.want {
			t.Errorf("BinaryOp(%s %s %s) = %s, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestBinaryOpTypeMismatch(t *testing.T) {
	cases := []struct {
		op   ast.BinaryOp
		a, b Value
	}{
		{ast.OpAdd, Integer(1), Bool(true)},
		{ast.OpLt, Bool(false), Integer(1)},
		{ast.OpAnd, Integer(1), Integer(0)},
		{ast.OpOr, Bool(true), Integer(1)},
	}
	for _, tt := range cases {
		if _, err := tt.a.BinaryOp(tt.op, tt.b); err == nil {
			t.Errorf("BinaryOp(%s %s %s) succeeded, want type error", tt.a, tt.op, tt.b)
		}
	}
}

func TestUnaryOp(t *testing.T) {
	got, err := Integer(5).UnaryOp(ast.OpNeg)
	if err != nil || got.Int() != -5 {
		t.Errorf("UnaryOp(-5) = %s, %v; want -5", got, err)
	}

	got, err = Bool(true).UnaryOp(ast.OpNot)
	if err != nil || got.IsTrue() {
		t.Errorf("UnaryOp(!true) = %s, %v; want false", got, err)
	}

	if _, err := Integer(math.MinInt64).UnaryOp(ast.OpNeg); err != ErrOverflow {
		t.Errorf("UnaryOp(-MinInt64) error = %v, want %v", err, ErrOverflow)
	}
	if _, err := Bool(true).UnaryOp(ast.OpNeg); err == nil {
		t.Error("UnaryOp(-true) succeeded, want type error")
	}
	if _, err := Integer(1).UnaryOp(ast.OpNot); err == nil {
		t.Error("UnaryOp(!1) succeeded, want type error")
	}
}
