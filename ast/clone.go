package ast

import "slices"

// Clone returns a deep copy of the shader.
func (s *Shader) Clone() *Shader {
	if s == nil {
		return nil
	}
	c := *s
	c.Generics = make([]*GenericParam, len(s.Generics))
	for i, g := range s.Generics {
		cp := *g
		c.Generics[i] = &cp
	}
	c.Bases = make([]*MixinRef, len(s.Bases))
	for i, b := range s.Bases {
		cp := *b
		cp.Args = slices.Clone(b.Args)
		c.Bases[i] = &cp
	}
	c.Compositions = make([]*CompositionDecl, len(s.Compositions))
	for i, d := range s.Compositions {
		cp := *d
		c.Compositions[i] = &cp
	}
	c.Members = make([]*VarDecl, len(s.Members))
	for i, m := range s.Members {
		cp := *m
		cp.Value = CloneExpr(m.Value)
		c.Members[i] = &cp
	}
	c.Functions = make([]*FunctionDecl, len(s.Functions))
	for i, f := range s.Functions {
		c.Functions[i] = f.Clone()
	}
	return &c
}

// Clone returns a deep copy of the function.
func (f *FunctionDecl) Clone() *FunctionDecl {
	c := *f
	c.Params = make([]*Param, len(f.Params))
	for i, p := range f.Params {
		cp := *p
		c.Params[i] = &cp
	}
	c.Body = make([]Stmt, len(f.Body))
	for i, stmt := range f.Body {
		c.Body[i] = CloneStmt(stmt)
	}
	return &c
}

// CloneStmt returns a deep copy of a statement.
func CloneStmt(s Stmt) Stmt {
	switch s := s.(type) {
	case *DeclareStmt:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	case *AssignStmt:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	case *ReturnStmt:
		c := *s
		c.Value = CloneExpr(s.Value)
		return &c
	default:
		return s
	}
}

// CloneExpr returns a deep copy of an expression. A nil expression clones
// to nil.
func CloneExpr(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Literal:
		c := *e
		return &c
	case *Ident:
		c := *e
		return &c
	case *BinaryExpr:
		c := *e
		c.Left = CloneExpr(e.Left)
		c.Right = CloneExpr(e.Right)
		return &c
	case *ParenExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		return &c
	default:
		return e
	}
}
