package passes

import (
	"github.com/gogpu/mixer/spirv"
)

// OrderFunctionVariables moves every function-local OpVariable to the top
// of its function's first block, right after the entry OpLabel, keeping
// their relative order. Everything else keeps its order, no-ops included.
//
// It returns the number of variables that changed position.
func OrderFunctionVariables(m *spirv.Module) (int, error) {
	moved := 0
	var names []string
	for name := range m.Functions() {
		names = append(names, name)
	}
	for _, name := range names {
		body, _ := m.Function(name)
		ordered, n, err := orderBody(name, body)
		if err != nil {
			return moved, err
		}
		if n > 0 {
			m.ReplaceFunction(name, ordered)
		}
		moved += n
	}
	return moved, nil
}

func orderBody(name string, body *spirv.WordBuffer) (*spirv.WordBuffer, int, error) {
	var (
		header    []spirv.Instruction // OpFunction, parameters and the entry label
		variables []spirv.Instruction
		rest      []spirv.Instruction
		labeled   bool
		function  bool
		moved     int
		seenOther bool
	)
	for _, inst := range body.Instructions() {
		op := inst.OpCode()
		switch {
		case !function:
			if op != spirv.OpFunction {
				if inst.IsNop() {
					rest = append(rest, inst)
					continue
				}
				return nil, 0, &InvariantError{Pass: "order-function-variables", Detail: name + " does not start with OpFunction"}
			}
			function = true
			header = append(header, inst)
		case !labeled && op == spirv.OpFunctionParameter:
			header = append(header, inst)
		case !labeled && op == spirv.OpLabel:
			labeled = true
			header = append(header, inst)
		case op == spirv.OpVariable:
			if !labeled || seenOther {
				moved++
			}
			variables = append(variables, inst)
		default:
			if labeled && !inst.IsNop() {
				seenOther = true
			}
			rest = append(rest, inst)
		}
	}
	if !function {
		return nil, 0, &InvariantError{Pass: "order-function-variables", Detail: name + " has no OpFunction"}
	}
	if !labeled && len(variables) > 0 {
		return nil, 0, &InvariantError{Pass: "order-function-variables", Detail: name + " declares variables but has no block"}
	}
	if moved == 0 {
		return body, 0, nil
	}

	out := body.Empty()
	for _, group := range [][]spirv.Instruction{header, variables, rest} {
		for _, inst := range group {
			out.Append(inst)
		}
	}
	return out, moved, nil
}
