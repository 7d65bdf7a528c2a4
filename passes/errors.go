package passes

import "fmt"

// InvariantError reports a module that breaks a binary-format invariant.
// It always means a bug in code generation or in a pass; the module must
// be discarded.
type InvariantError struct {
	Pass   string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invariant violated: %s: %v", e.Pass, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: invariant violated: %s", e.Pass, e.Detail)
}

// Unwrap returns the underlying decode error, if any.
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// MergeConflictError reports two mixins declaring an entity of the same
// name. Mixins sharing a name must be combined through inheritance, where
// every class is included once.
type MergeConflictError struct {
	Kind   string // "function" or "variable"
	Name   string
	First  string
	Second string
}

// Error implements the error interface.
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge: %s %q is declared by both %s and %s", e.Kind, e.Name, e.First, e.Second)
}

// UnresolvedImportError reports a mixin using a member that no merged
// mixin declares.
type UnresolvedImportError struct {
	Name string
	Unit string
}

// Error implements the error interface.
func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("merge: %s imports %q, which no mixin declares", e.Unit, e.Name)
}
