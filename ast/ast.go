// Package ast defines the syntax tree of one shader mixin as handed over by
// the shader-language parser.
//
// The parser itself lives outside this module. Everything here is plain data:
// the compiler reads these trees and never mutates them, with the exception of
// Clone, which generic substitution uses to produce a private copy.
package ast

import "github.com/gogpu/gputypes"

// Position is a location in the source text. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span is a range of source text.
type Span struct {
	Start Position
	End   Position
}

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Span
}

// Stmt is the interface for statements.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the interface for expressions.
type Expr interface {
	Node
	exprNode()
}

// Shader is one mixin declaration:
//
//	shader Name<T Param> : Base1, Base2<3> {
//	    compose Other slot;
//	    ...
//	}
type Shader struct {
	Name         string
	Generics     []*GenericParam
	Bases        []*MixinRef
	Compositions []*CompositionDecl
	Members      []*VarDecl
	Functions    []*FunctionDecl
	Span         Span

	// Source is the shader text, kept for error context. May be empty.
	Source string
}

// GenericParam is one entry of a shader's generic parameter list.
type GenericParam struct {
	Type string
	Name string
	Span Span
}

// MixinRef references a mixin by name, optionally with generic arguments.
type MixinRef struct {
	Name string
	Args []string
	Span Span
}

// CompositionDecl is a `compose Type name;` slot. IsArray marks
// `compose Type name[];`, which accepts any number of sources.
type CompositionDecl struct {
	MixinType string
	Name      string
	IsArray   bool
	Span      Span
}

// StorageQualifier classifies a member variable.
type StorageQualifier uint8

const (
	StorageNone StorageQualifier = iota
	StorageStatic
	StorageIn
	StorageOut
)

func (q StorageQualifier) String() string {
	switch q {
	case StorageStatic:
		return "static"
	case StorageIn:
		return "in"
	case StorageOut:
		return "out"
	default:
		return ""
	}
}

// VarDecl is a member variable of a shader.
type VarDecl struct {
	Name    string
	Type    Type
	Storage StorageQualifier
	// Location is the interface slot of an in/out member.
	Location uint32
	Value    Expr // nil when uninitialized
	Span     Span
}

func (v *VarDecl) Pos() Span { return v.Span }

// Type names a shader type: float, int3, float4x4, bool, void, ...
type Type struct {
	Name string
	Span Span
}

// FunctionDecl is a function of a shader.
type FunctionDecl struct {
	Name       string
	Params     []*Param
	ReturnType Type
	// Stage marks an entry point. Zero means an ordinary function.
	Stage gputypes.ShaderStages
	Body  []Stmt
	Span  Span
}

func (f *FunctionDecl) Pos() Span { return f.Span }

// IsEntryPoint reports whether the function is a shader stage entry point.
func (f *FunctionDecl) IsEntryPoint() bool {
	return f.Stage != 0
}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
	Span Span
}

func (p *Param) Pos() Span { return p.Span }

// DeclareStmt is `Type name = value;`. Value may be nil.
type DeclareStmt struct {
	Type  Type
	Name  string
	Value Expr
	Span  Span
}

func (s *DeclareStmt) Pos() Span { return s.Span }
func (s *DeclareStmt) stmtNode() {}

// AssignStmt is `name op value;` where op is "=" or a compound operator
// such as "+=".
type AssignStmt struct {
	Name  string
	Op    string
	Value Expr
	Span  Span
}

func (s *AssignStmt) Pos() Span { return s.Span }
func (s *AssignStmt) stmtNode() {}

// ReturnStmt is `return;` or `return value;`.
type ReturnStmt struct {
	Value Expr
	Span  Span
}

func (s *ReturnStmt) Pos() Span { return s.Span }
func (s *ReturnStmt) stmtNode() {}

// LiteralKind is the kind of a literal.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralUint
	LiteralFloat
	LiteralBool
)

// Literal is a literal value exactly as written in source.
type Literal struct {
	Kind  LiteralKind
	Value string
	Span  Span
}

func (e *Literal) Pos() Span { return e.Span }
func (e *Literal) exprNode() {}

// Ident is a reference to a variable, parameter or member.
type Ident struct {
	Name string
	Span Span
}

func (e *Ident) Pos() Span { return e.Span }
func (e *Ident) exprNode() {}

// BinaryExpr is `left op right`.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span  Span
}

func (e *BinaryExpr) Pos() Span { return e.Span }
func (e *BinaryExpr) exprNode() {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
	Span Span
}

func (e *ParenExpr) Pos() Span { return e.Span }
func (e *ParenExpr) exprNode() {}
