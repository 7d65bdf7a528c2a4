// Package mixin describes what a compile request is made of and resolves it
// into the ordered list of mixin fragments the compiler generates code for.
//
// A request is a ShaderSource: a reference to a mixin class, an already
// parsed fragment, an array of sources, or a named mixin combining several
// classes and filling their composition slots. Resolution walks inheritance
// depth-first with bases first, includes every class once per composition
// instance, instantiates generics, and gives each composed instance its own
// name prefix.
package mixin

import (
	"strings"

	"github.com/gogpu/mixer/ast"
)

// ShaderSource is one of ClassReference, ParsedFragment, CompositionSlot or
// NamedMixin.
type ShaderSource interface {
	shaderSource()
}

// ClassReference names a mixin class and its generic arguments.
type ClassReference struct {
	Name string
	Args []string
}

// ParsedFragment is a mixin that was parsed by the caller instead of being
// looked up by name.
type ParsedFragment struct {
	Shader *ast.Shader
}

// CompositionSlot is an ordered list of sources. It fills array composition
// slots; at the top level of a request it lists the mixins combined into
// the program.
type CompositionSlot struct {
	Sources []ShaderSource
}

// NamedMixin combines several classes into one instance and fills the
// composition slots they declare, by slot name.
type NamedMixin struct {
	Mixins       []ClassReference
	Compositions map[string]ShaderSource
}

func (ClassReference) shaderSource()  {}
func (ParsedFragment) shaderSource()  {}
func (CompositionSlot) shaderSource() {}
func (NamedMixin) shaderSource()      {}

// Key identifies a class instantiation: Name<arg,...>.
func (c ClassReference) Key() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + "<" + strings.Join(c.Args, ",") + ">"
}

func (c ClassReference) String() string {
	return c.Key()
}
