// Package ast defines the node types for parsed Slate programs.
// The bytecode compiler consumes these nodes; it never sees source text.
package ast

import "fmt"

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
}

// String returns the surface syntax for the operator.
func (op BinaryOp) String() string {
	if name, ok := binaryOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// BinaryOpFromToken maps a source token to its operator tag.
// Returns false for tokens that are not binary operators.
func BinaryOpFromToken(tok string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == tok {
			return op, true
		}
	}
	return 0, false
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// String returns the surface syntax for the operator.
func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	default:
		return fmt.Sprintf("UnaryOp(%d)", int(op))
	}
}

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	Statements []Stmt
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	stmtNode()
}

// Expr is implemented by all expression nodes.
type Expr interface {
	exprNode()
}

// AssignStmt binds the value of an expression to a variable name.
type AssignStmt struct {
	Name  string
	Value Expr
}

// ExprStmt evaluates an expression for its value. The value of the last
// top-level ExprStmt executed becomes the program result.
type ExprStmt struct {
	Value Expr
}

// PrintStmt writes the value of an expression to the output buffer,
// followed by a newline.
type PrintStmt struct {
	Value Expr
}

// IfStmt executes Then when the condition is true, otherwise Else.
// Else may be empty.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileStmt re-executes Body while the condition is true.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

// FuncStmt defines a named function. Only permitted at the top level.
type FuncStmt struct {
	Name   string
	Params []string
	Body   []Stmt
}

// ReturnStmt returns from the enclosing function. Value may be nil for a
// bare return.
type ReturnStmt struct {
	Value Expr
}

func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*PrintStmt) stmtNode()  {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*FuncStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}

// IntLit is a 64-bit signed integer literal.
type IntLit struct {
	Value int64
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// Ident references a variable by name.
type Ident struct {
	Name string
}

// BinaryExpr applies a binary operator to two operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryExpr applies a unary operator to one operand.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

// CallExpr invokes a named function with argument expressions.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*IntLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
