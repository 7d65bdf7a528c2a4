package mixin

import (
	"strconv"
	"strings"

	"github.com/gogpu/mixer/ast"
)

// instantiate binds the generic parameters of s to args and returns a copy
// with every use substituted. A shader without generics is returned as is.
func instantiate(s *ast.Shader, args []string) (*ast.Shader, error) {
	if len(args) != len(s.Generics) {
		return nil, &ResolutionError{
			Name:   s.Name,
			Reason: "expects " + strconv.Itoa(len(s.Generics)) + " generic arguments, got " + strconv.Itoa(len(args)),
		}
	}
	if len(args) == 0 {
		return s, nil
	}

	bindings := make(map[string]string, len(args))
	for i, g := range s.Generics {
		bindings[g.Name] = args[i]
	}
	sub := substitution(bindings)

	c := s.Clone()
	c.Generics = nil
	for _, b := range c.Bases {
		for i, arg := range b.Args {
			b.Args[i] = sub.name(arg)
		}
	}
	for _, d := range c.Compositions {
		d.MixinType = sub.name(d.MixinType)
	}
	for _, m := range c.Members {
		sub.typ(&m.Type)
		m.Value = sub.expr(m.Value)
	}
	for _, f := range c.Functions {
		sub.typ(&f.ReturnType)
		for _, p := range f.Params {
			sub.typ(&p.Type)
		}
		for _, stmt := range f.Body {
			sub.stmt(stmt)
		}
	}
	return c, nil
}

type substitution map[string]string

func (sub substitution) name(n string) string {
	if v, ok := sub[n]; ok {
		return v
	}
	return n
}

func (sub substitution) typ(t *ast.Type) {
	t.Name = sub.name(t.Name)
}

func (sub substitution) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.DeclareStmt:
		sub.typ(&s.Type)
		s.Value = sub.expr(s.Value)
	case *ast.AssignStmt:
		s.Name = sub.name(s.Name)
		s.Value = sub.expr(s.Value)
	case *ast.ReturnStmt:
		s.Value = sub.expr(s.Value)
	}
}

// expr substitutes in place and returns the expression, which changes when
// an identifier is replaced by a literal argument.
func (sub substitution) expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Ident:
		arg, ok := sub[e.Name]
		if !ok {
			return e
		}
		if kind, ok := literalKind(arg); ok {
			return &ast.Literal{Kind: kind, Value: arg, Span: e.Span}
		}
		e.Name = arg
		return e
	case *ast.BinaryExpr:
		e.Left = sub.expr(e.Left)
		e.Right = sub.expr(e.Right)
		return e
	case *ast.ParenExpr:
		e.Expr = sub.expr(e.Expr)
		return e
	default:
		return e
	}
}

// literalKind classifies a generic argument that is a literal value.
func literalKind(arg string) (ast.LiteralKind, bool) {
	if arg == "true" || arg == "false" {
		return ast.LiteralBool, true
	}
	if arg == "" || (arg[0] < '0' || arg[0] > '9') && arg[0] != '.' {
		return 0, false
	}
	lower := strings.ToLower(arg)
	switch {
	case strings.HasPrefix(lower, "0x"):
		if strings.HasSuffix(lower, "u") {
			return ast.LiteralUint, true
		}
		return ast.LiteralInt, true
	case strings.ContainsAny(lower, ".e") || strings.HasSuffix(lower, "f"):
		return ast.LiteralFloat, true
	case strings.HasSuffix(lower, "u"):
		return ast.LiteralUint, true
	default:
		return ast.LiteralInt, true
	}
}
