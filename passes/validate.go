package passes

import (
	"fmt"

	"github.com/gogpu/mixer/spirv"
)

// Validate checks the invariants every finished module holds:
//
//   - every stream tiles into well-formed instructions whose operands decode
//   - no provisional variable, parameter or import is left
//   - every IdResult is defined once and lies in [1, bound)
//   - the defined identifiers are exactly 1..bound-1
//   - every referenced identifier is defined somewhere in the module
//   - every function opens with OpFunction and closes with OpFunctionEnd
//
// No-ops are allowed; Compact removes them.
func Validate(m *spirv.Module) error {
	bound := m.Header.Bound
	defined := make(map[spirv.ID]bool)
	var refs []spirv.ID

	for i, stream := range m.Streams() {
		if err := stream.Check(); err != nil {
			return &InvariantError{Pass: "validate", Detail: streamName(i), Err: err}
		}
		for off, inst := range stream.Instructions() {
			if inst.IsNop() {
				continue
			}
			if isPlaceholder(inst.OpCode()) || inst.OpCode() == spirv.OpSDSLImportVariable {
				return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("%s: %s left at word %d", streamName(i), inst.OpCode(), off)}
			}
			operands, err := inst.Operands()
			if err != nil {
				return &InvariantError{Pass: "validate", Detail: streamName(i), Err: err}
			}
			for _, o := range operands {
				if o.Kind == spirv.KindIdResult {
					id := o.ID()
					if id == 0 || uint32(id) >= bound {
						return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("%%%d is outside the bound %d", id, bound)}
					}
					if defined[id] {
						return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("%%%d is defined twice", id)}
					}
					defined[id] = true
					continue
				}
				refs = append(refs, o.References()...)
			}
		}
	}

	if len(defined) != int(bound)-1 {
		return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("%d identifiers defined under bound %d", len(defined), bound)}
	}
	for _, id := range refs {
		if !defined[id] {
			return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("%%%d is referenced but never defined", id)}
		}
	}

	for name, body := range m.Functions() {
		if err := checkFunctionBounds(name, body); err != nil {
			return err
		}
	}
	return nil
}

func checkFunctionBounds(name string, body *spirv.WordBuffer) error {
	var first, last spirv.OpCode = spirv.OpNop, spirv.OpNop
	for _, inst := range body.Instructions() {
		if inst.IsNop() {
			continue
		}
		if first == spirv.OpNop {
			first = inst.OpCode()
		}
		last = inst.OpCode()
	}
	if first != spirv.OpFunction || last != spirv.OpFunctionEnd {
		return &InvariantError{Pass: "validate", Detail: fmt.Sprintf("function %s is not enclosed by OpFunction and OpFunctionEnd", name)}
	}
	return nil
}

func streamName(i int) string {
	if i == 0 {
		return "declarations"
	}
	return fmt.Sprintf("function %d", i-1)
}
