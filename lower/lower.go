// Package lower turns mixin syntax trees into SPIR-V.
//
// Lowering flattens expressions into an ordered list of registers. A binary
// expression lowers its left operand, then its right operand, and then
// appends one OperationRegister naming the last register of each side. A
// declaration or assignment lowers its value and appends one AssignRegister.
//
//	float a = 5 + 6;
//
// lowers to
//
//	#1 Value(5)
//	#2 Value(6)
//	#3 Operation(+, #1, #2)
//	#4 Assign(a, =, #3)
//
// Generate consumes the registers of every function of a mixin and emits a
// self-contained module for it.
package lower

import (
	"fmt"

	"github.com/gogpu/mixer/ast"
)

// InternalError reports a syntax tree shape lowering does not know. It
// means the parser and the compiler disagree, never a user mistake.
type InternalError struct {
	Node ast.Node
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("lower: unsupported syntax node %T", e.Node)
}

// Lowering accumulates registers across the statements of one function.
// The zero value is ready to use.
type Lowering struct {
	regs []Register
}

// Registers returns every register lowered so far.
func (l *Lowering) Registers() []Register {
	return l.regs
}

// Len returns the number of registers, which is also the position of the
// last one.
func (l *Lowering) Len() int {
	return len(l.regs)
}

func (l *Lowering) push(r Register) int {
	l.regs = append(l.regs, r)
	return len(l.regs)
}

// Expr lowers an expression and returns the position of the register that
// holds its value.
func (l *Lowering) Expr(e ast.Expr) (int, error) {
	switch e := e.(type) {
	case *ast.Literal:
		return l.push(&ValueRegister{Literal: e, node: e}), nil
	case *ast.Ident:
		return l.push(&ValueRegister{Name: e.Name, node: e}), nil
	case *ast.ParenExpr:
		return l.Expr(e.Expr)
	case *ast.BinaryExpr:
		left, err := l.Expr(e.Left)
		if err != nil {
			return 0, err
		}
		right, err := l.Expr(e.Right)
		if err != nil {
			return 0, err
		}
		return l.push(&OperationRegister{Op: e.Op, Left: left, Right: right, node: e}), nil
	default:
		return 0, &InternalError{Node: e}
	}
}

// Stmt lowers one statement. A declaration without a value and a bare
// return produce no registers.
func (l *Lowering) Stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.DeclareStmt:
		if s.Value == nil {
			return nil
		}
		value, err := l.Expr(s.Value)
		if err != nil {
			return err
		}
		l.push(&AssignRegister{Name: s.Name, Op: "=", Value: value, node: s})
		return nil
	case *ast.AssignStmt:
		value, err := l.Expr(s.Value)
		if err != nil {
			return err
		}
		op := s.Op
		if op == "" {
			op = "="
		}
		l.push(&AssignRegister{Name: s.Name, Op: op, Value: value, node: s})
		return nil
	case *ast.ReturnStmt:
		if s.Value == nil {
			return nil
		}
		_, err := l.Expr(s.Value)
		return err
	default:
		return &InternalError{Node: s}
	}
}

// Lower lowers a statement list into a fresh register sequence.
func Lower(stmts []ast.Stmt) ([]Register, error) {
	var l Lowering
	for _, s := range stmts {
		if err := l.Stmt(s); err != nil {
			return nil, err
		}
	}
	return l.Registers(), nil
}
