package mixin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/mixer/ast"
)

// ErrNotFound is returned by loaders for unknown mixin names.
var ErrNotFound = errors.New("mixin not found")

// Loader looks mixin classes up by name. Implementations must be safe for
// concurrent use when compile requests run in parallel.
type Loader interface {
	Load(name string) (*ast.Shader, error)
}

// MemoryLoader is a Loader backed by a map. Shaders handed to it are
// treated as read-only.
type MemoryLoader struct {
	mu      sync.RWMutex
	shaders map[string]*ast.Shader
}

// NewMemoryLoader creates a loader holding shaders.
func NewMemoryLoader(shaders ...*ast.Shader) *MemoryLoader {
	l := &MemoryLoader{shaders: make(map[string]*ast.Shader, len(shaders))}
	for _, s := range shaders {
		l.shaders[s.Name] = s
	}
	return l
}

// Add registers a shader, replacing any shader of the same name.
func (l *MemoryLoader) Add(s *ast.Shader) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shaders == nil {
		l.shaders = make(map[string]*ast.Shader)
	}
	l.shaders[s.Name] = s
}

// Load implements Loader.
func (l *MemoryLoader) Load(name string) (*ast.Shader, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.shaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (l *MemoryLoader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.shaders))
	for name := range l.shaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
