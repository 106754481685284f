// Package parser turns Slate source text into an ast.Program using
// Participle v2. The grammar is defined as Go structs with tags; operator
// precedence is encoded as one struct layer per precedence level.
package parser

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/slatevm/slate/pkg/ast"
)

// slateLexer tokenizes Slate source. Statements are terminated by
// newlines (or semicolons); spaces, tabs and comments are elided.
var slateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "EOL", Pattern: `[;\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|&&|\|\||[-+*/%<>!=]`},
	{Name: "Punct", Pattern: `[(){},]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

var slateParser = participle.MustBuild[program](
	participle.Lexer(slateLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses Slate source code into an AST. The returned error wraps
// Participle's position-annotated message.
func Parse(source string) (*ast.Program, error) {
	p, err := slateParser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return p.toAST()
}

// --- grammar structs ---

type program struct {
	Statements []*statement `EOL* (@@ EOL*)*`
}

type statement struct {
	Func   *funcStmt   `  @@`
	If     *ifStmt     `| @@`
	While  *whileStmt  `| @@`
	Return *returnStmt `| @@`
	Print  *printStmt  `| @@`
	Assign *assignStmt `| @@`
	Expr   *expression `| @@`
}

type funcStmt struct {
	Name   string   `"fn" @Ident`
	Params []string `"(" (@Ident ("," @Ident)*)? ")"`
	Body   *block   `@@`
}

type ifStmt struct {
	Cond *expression `"if" @@`
	Then *block      `@@`
	Else *block      `("else" @@)?`
}

type whileStmt struct {
	Cond *expression `"while" @@`
	Body *block      `@@`
}

type returnStmt struct {
	Value *expression `"return" @@?`
}

type printStmt struct {
	Value *expression `"print" "(" @@ ")"`
}

type assignStmt struct {
	Name  string      `@Ident "="`
	Value *expression `@@`
}

type block struct {
	Statements []*statement `"{" EOL* (@@ EOL*)* "}"`
}

// Precedence layers, loosest binding first.

type expression struct {
	Head *andExpr  `@@`
	Tail []*orTail `@@*`
}

type orTail struct {
	Op    string   `@"||"`
	Right *andExpr `@@`
}

type andExpr struct {
	Head *equality  `@@`
	Tail []*andTail `@@*`
}

type andTail struct {
	Op    string    `@"&&"`
	Right *equality `@@`
}

type equality struct {
	Head *comparison  `@@`
	Tail []*eqTail    `@@*`
}

type eqTail struct {
	Op    string      `@("==" | "!=")`
	Right *comparison `@@`
}

type comparison struct {
	Head *term      `@@`
	Tail []*cmpTail `@@*`
}

type cmpTail struct {
	Op    string `@("<=" | ">=" | "<" | ">")`
	Right *term  `@@`
}

type term struct {
	Head *factor     `@@`
	Tail []*termTail `@@*`
}

type termTail struct {
	Op    string  `@("+" | "-")`
	Right *factor `@@`
}

type factor struct {
	Head *unary        `@@`
	Tail []*factorTail `@@*`
}

type factorTail struct {
	Op    string `@("*" | "/" | "%")`
	Right *unary `@@`
}

type unary struct {
	Op      string   `(@("-" | "!")`
	Operand *unary   ` @@)`
	Primary *primary `| @@`
}

type primary struct {
	Int   *string     `  @Int`
	True  bool        `| @"true"`
	False bool        `| @"false"`
	Call  *callExpr   `| @@`
	Ident *string     `| @Ident`
	Paren *expression `| "(" @@ ")"`
}

type callExpr struct {
	Name string        `@Ident "("`
	Args []*expression `(@@ ("," @@)*)? ")"`
}

// --- AST conversion ---

func (p *program) toAST() (*ast.Program, error) {
	stmts, err := toStmts(p.Statements)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Statements: stmts}, nil
}

func toStmts(in []*statement) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(in))
	for _, s := range in {
		stmt, err := s.toAST()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (s *statement) toAST() (ast.Stmt, error) {
	switch {
	case s.Func != nil:
		body, err := toStmts(s.Func.Body.Statements)
		if err != nil {
			return nil, err
		}
		return &ast.FuncStmt{Name: s.Func.Name, Params: s.Func.Params, Body: body}, nil

	case s.If != nil:
		cond, err := s.If.Cond.toAST()
		if err != nil {
			return nil, err
		}
		then, err := toStmts(s.If.Then.Statements)
		if err != nil {
			return nil, err
		}
		var els []ast.Stmt
		if s.If.Else != nil {
			if els, err = toStmts(s.If.Else.Statements); err != nil {
				return nil, err
			}
		}
		return &ast.IfStmt{Cond: cond, Then: then, Else: els}, nil

	case s.While != nil:
		cond, err := s.While.Cond.toAST()
		if err != nil {
			return nil, err
		}
		body, err := toStmts(s.While.Body.Statements)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil

	case s.Return != nil:
		if s.Return.Value == nil {
			return &ast.ReturnStmt{}, nil
		}
		value, err := s.Return.Value.toAST()
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Value: value}, nil

	case s.Print != nil:
		value, err := s.Print.Value.toAST()
		if err != nil {
			return nil, err
		}
		return &ast.PrintStmt{Value: value}, nil

	case s.Assign != nil:
		value, err := s.Assign.Value.toAST()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Name: s.Assign.Name, Value: value}, nil

	case s.Expr != nil:
		value, err := s.Expr.toAST()
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Value: value}, nil
	}
	return nil, fmt.Errorf("parse error: empty statement")
}

// foldBinary builds a left-associative chain from a head expression and
// operator/operand tails.
func foldBinary(head ast.Expr, ops []string, rights []ast.Expr) (ast.Expr, error) {
	expr := head
	for i, tok := range ops {
		op, ok := ast.BinaryOpFromToken(tok)
		if !ok {
			return nil, fmt.Errorf("parse error: unknown operator %q", tok)
		}
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: rights[i]}
	}
	return expr, nil
}

func (e *expression) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *andExpr) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *equality) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *comparison) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *term) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *factor) toAST() (ast.Expr, error) {
	head, err := e.Head.toAST()
	if err != nil {
		return nil, err
	}
	ops := make([]string, len(e.Tail))
	rights := make([]ast.Expr, len(e.Tail))
	for i, t := range e.Tail {
		ops[i] = t.Op
		if rights[i], err = t.Right.toAST(); err != nil {
			return nil, err
		}
	}
	return foldBinary(head, ops, rights)
}

func (e *unary) toAST() (ast.Expr, error) {
	if e.Primary != nil {
		return e.Primary.toAST()
	}
	operand, err := e.Operand.toAST()
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "-":
		return &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand}, nil
	case "!":
		return &ast.UnaryExpr{Op: ast.OpNot, Operand: operand}, nil
	}
	return nil, fmt.Errorf("parse error: unknown unary operator %q", e.Op)
}

func (p *primary) toAST() (ast.Expr, error) {
	switch {
	case p.Int != nil:
		n, err := strconv.ParseInt(*p.Int, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse error: integer literal %s out of range", *p.Int)
		}
		return &ast.IntLit{Value: n}, nil

	case p.True:
		return &ast.BoolLit{Value: true}, nil

	case p.False:
		return &ast.BoolLit{Value: false}, nil

	case p.Call != nil:
		args := make([]ast.Expr, 0, len(p.Call.Args))
		for _, a := range p.Call.Args {
			expr, err := a.toAST()
			if err != nil {
				return nil, err
			}
			args = append(args, expr)
		}
		return &ast.CallExpr{Name: p.Call.Name, Args: args}, nil

	case p.Ident != nil:
		return &ast.Ident{Name: *p.Ident}, nil

	case p.Paren != nil:
		return p.Paren.toAST()
	}
	return nil, fmt.Errorf("parse error: empty expression")
}
