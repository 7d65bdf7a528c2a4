package mixin

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/gogpu/mixer/ast"
)

// ResolutionError reports a mixin that cannot be found or composed.
type ResolutionError struct {
	// Mixin is the mixin that referenced Name, if any.
	Mixin  string
	Name   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString("resolve ")
	if e.Mixin != "" {
		sb.WriteString(e.Mixin + ": ")
	}
	sb.WriteString(e.Name + ": " + e.Reason)
	return sb.String()
}

// Unwrap returns the loader error, if any.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Fragment is one mixin instance of a resolved request, ready for code
// generation.
type Fragment struct {
	// Key is the instantiated class, Name<args>.
	Key string
	// Prefix qualifies the names the fragment declares. Empty for the
	// root instance; "slot." or "slot[i]." for composed ones.
	Prefix string
	// Shader has its generics bound.
	Shader *ast.Shader
}

// Resolve expands src into fragments: bases before the mixins inheriting
// from them, each class once per composition instance, and composed
// instances after the instance declaring their slot.
func Resolve(loader Loader, src ShaderSource) ([]Fragment, error) {
	r := &resolver{loader: loader}
	var err error
	switch s := src.(type) {
	case ClassReference:
		err = r.instance("", []ShaderSource{s}, nil)
	case ParsedFragment:
		err = r.instance("", []ShaderSource{s}, nil)
	case NamedMixin:
		err = r.instance("", namedRoots(s), s.Compositions)
	case CompositionSlot:
		err = r.instance("", s.Sources, nil)
	default:
		err = &ResolutionError{Name: fmt.Sprintf("%T", src), Reason: "unknown shader source"}
	}
	if err != nil {
		return nil, err
	}
	return r.out, nil
}

func namedRoots(s NamedMixin) []ShaderSource {
	roots := make([]ShaderSource, len(s.Mixins))
	for i, ref := range s.Mixins {
		roots[i] = ref
	}
	return roots
}

type resolver struct {
	loader Loader
	out    []Fragment
}

// scope tracks one composition instance.
type scope struct {
	prefix string
	seen   map[string]bool
	stack  []string
}

func (r *resolver) instance(prefix string, roots []ShaderSource, compositions map[string]ShaderSource) error {
	sc := &scope{prefix: prefix, seen: make(map[string]bool)}
	start := len(r.out)
	for _, root := range roots {
		var err error
		switch root := root.(type) {
		case ClassReference:
			err = r.class(sc, "", root)
		case ParsedFragment:
			err = r.shader(sc, root.Shader.Name, root.Shader)
		default:
			err = &ResolutionError{Name: fmt.Sprintf("%T", root), Reason: "cannot be combined into a mixin instance"}
		}
		if err != nil {
			return err
		}
	}

	members := slices.Clone(r.out[start:])
	used := make(map[string]bool)
	for _, frag := range members {
		for _, decl := range frag.Shader.Compositions {
			if used[decl.Name] {
				return &ResolutionError{Mixin: frag.Key, Name: decl.Name, Reason: "composition slot declared twice"}
			}
			used[decl.Name] = true
			src, filled := compositions[decl.Name]
			if err := r.compose(prefix, frag, decl, src, filled); err != nil {
				return err
			}
		}
	}

	var unknown []string
	for name := range compositions {
		if !used[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ResolutionError{Name: unknown[0], Reason: "no mixin declares this composition slot"}
	}
	return nil
}

func (r *resolver) class(sc *scope, from string, ref ClassReference) error {
	key := ref.Key()
	if sc.seen[key] {
		return nil
	}
	if slices.Contains(sc.stack, key) {
		return &ResolutionError{
			Mixin:  from,
			Name:   key,
			Reason: "inheritance cycle " + strings.Join(append(slices.Clone(sc.stack), key), " -> "),
		}
	}

	s, err := r.loader.Load(ref.Name)
	if err != nil {
		return &ResolutionError{Mixin: from, Name: ref.Name, Reason: "cannot load mixin", Err: err}
	}
	s, err = instantiate(s, ref.Args)
	if err != nil {
		if re, ok := err.(*ResolutionError); ok {
			re.Mixin = from
		}
		return err
	}
	return r.shader(sc, key, s)
}

// shader appends s after every base it inherits from.
func (r *resolver) shader(sc *scope, key string, s *ast.Shader) error {
	if sc.seen[key] {
		return nil
	}
	sc.stack = append(sc.stack, key)
	for _, base := range s.Bases {
		if err := r.class(sc, key, ClassReference{Name: base.Name, Args: base.Args}); err != nil {
			return err
		}
	}
	sc.stack = sc.stack[:len(sc.stack)-1]

	sc.seen[key] = true
	r.out = append(r.out, Fragment{Key: key, Prefix: sc.prefix, Shader: s})
	return nil
}

func (r *resolver) compose(prefix string, owner Fragment, decl *ast.CompositionDecl, src ShaderSource, filled bool) error {
	var sources []ShaderSource
	if slot, ok := src.(CompositionSlot); ok {
		sources = slot.Sources
	} else if filled {
		sources = []ShaderSource{src}
	}
	if !decl.IsArray && len(sources) != 1 {
		return &ResolutionError{
			Mixin:  owner.Key,
			Name:   decl.Name,
			Reason: fmt.Sprintf("composition slot expects exactly one source, got %d", len(sources)),
		}
	}

	for i, s := range sources {
		p := prefix + decl.Name + "."
		if decl.IsArray {
			p = fmt.Sprintf("%s%s[%d].", prefix, decl.Name, i)
		}
		start := len(r.out)

		var err error
		switch s := s.(type) {
		case ClassReference:
			err = r.instance(p, []ShaderSource{s}, nil)
		case ParsedFragment:
			err = r.instance(p, []ShaderSource{s}, nil)
		case NamedMixin:
			err = r.instance(p, namedRoots(s), s.Compositions)
		default:
			err = &ResolutionError{Mixin: owner.Key, Name: decl.Name, Reason: fmt.Sprintf("cannot compose %T", s)}
		}
		if err != nil {
			return err
		}

		if !implements(r.out[start:], p, decl.MixinType) {
			return &ResolutionError{
				Mixin:  owner.Key,
				Name:   decl.Name,
				Reason: "source does not inherit from " + decl.MixinType,
			}
		}
	}
	return nil
}

// implements reports whether the instance with the given prefix includes
// the class named want.
func implements(frags []Fragment, prefix, want string) bool {
	for _, f := range frags {
		if f.Prefix == prefix && f.Shader.Name == want {
			return true
		}
	}
	return false
}
