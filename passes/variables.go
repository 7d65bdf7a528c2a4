package passes

import (
	"slices"
	"strconv"

	"github.com/gogpu/mixer/spirv"
)

// placeholder is what a provisional variable or parameter carries.
type placeholder struct {
	op        spirv.OpCode
	valueType spirv.ID
	id        spirv.ID
	storage   spirv.StorageClass
	location  uint32
	name      string
	init      spirv.ID
}

func readPlaceholder(inst spirv.Instruction) (placeholder, error) {
	operands, err := inst.Operands()
	if err != nil {
		return placeholder{}, err
	}
	p := placeholder{
		op:        inst.OpCode(),
		valueType: operands[0].ID(),
		id:        operands[1].ID(),
	}
	switch p.op {
	case spirv.OpSDSLVariable:
		p.storage = spirv.StorageClass(operands[2].Literal())
		p.name = operands[3].Text()
		if len(operands) > 4 {
			p.init = operands[4].ID()
		}
	case spirv.OpSDSLIOVariable:
		p.storage = spirv.StorageClass(operands[2].Literal())
		p.location = operands[3].Literal()
		p.name = operands[4].Text()
	case spirv.OpSDSLFunctionParameter:
		p.name = operands[2].Text()
	}
	return p, nil
}

func placeholderName(inst spirv.Instruction) string {
	p, err := readPlaceholder(inst)
	if err != nil {
		return ""
	}
	return p.name
}

func isPlaceholder(op spirv.OpCode) bool {
	return op == spirv.OpSDSLVariable || op == spirv.OpSDSLIOVariable || op == spirv.OpSDSLFunctionParameter
}

type pointerKey struct {
	storage spirv.StorageClass
	pointee spirv.ID
}

// ReplaceVariables turns every provisional variable and parameter into its
// canonical instruction, keeping the identifier so that no reference
// changes. Variables get a pointer type, found or declared right after the
// pointee type. Every replacement gets an OpName, falling back to var_<id>
// for unnamed ones; interface variables also get their Location.
//
// The placeholder itself becomes a no-op in place. It returns the number of
// replaced placeholders.
func ReplaceVariables(m *spirv.Module) (int, error) {
	decl := m.DeclarationBuffer()

	var found []placeholder
	for _, stream := range m.Streams() {
		for _, inst := range stream.Instructions() {
			if !isPlaceholder(inst.OpCode()) {
				continue
			}
			p, err := readPlaceholder(inst)
			if err != nil {
				return 0, &InvariantError{Pass: "replace-variables", Detail: "reading placeholder", Err: err}
			}
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return 0, nil
	}

	pointers, err := ensurePointers(m, found)
	if err != nil {
		return 0, err
	}

	for _, stream := range m.Streams() {
		var offsets []int
		for off, inst := range stream.Instructions() {
			if isPlaceholder(inst.OpCode()) {
				offsets = append(offsets, off)
			}
		}
		// Back to front so earlier offsets stay valid while inserting.
		for _, off := range slices.Backward(offsets) {
			p, err := readPlaceholder(stream.At(off))
			if err != nil {
				return 0, &InvariantError{Pass: "replace-variables", Detail: "reading placeholder", Err: err}
			}
			var canonical spirv.Instruction
			switch p.op {
			case spirv.OpSDSLFunctionParameter:
				canonical = spirv.NewInstruction(spirv.OpFunctionParameter, p.id, spirv.Ref(p.valueType))
			default:
				args := []spirv.Arg{
					spirv.Ref(pointers[pointerKey{p.storage, p.valueType}]),
					spirv.Lit(uint32(p.storage)),
				}
				if p.init != 0 {
					args = append(args, spirv.Ref(p.init))
				}
				canonical = spirv.NewInstruction(spirv.OpVariable, p.id, args...)
			}
			count := stream.At(off).WordCount()
			stream.InsertAt(off+count, canonical)
			stream.Nop(off)
		}
	}

	for _, p := range found {
		name := p.name
		if name == "" {
			name = "var_" + strconv.FormatUint(uint64(p.id), 10)
		}
		decl.AddName(p.id, name)
		if p.op == spirv.OpSDSLIOVariable {
			decl.AddDecorate(p.id, spirv.DecorationLocation, p.location)
		}
	}
	return len(found), nil
}

// ensurePointers finds or declares every pointer type the variables need.
// A new pointer type is inserted right after its pointee.
func ensurePointers(m *spirv.Module, found []placeholder) (map[pointerKey]spirv.ID, error) {
	decl := m.DeclarationBuffer()
	pointers := make(map[pointerKey]spirv.ID)
	for _, inst := range decl.Instructions() {
		if inst.OpCode() != spirv.OpTypePointer {
			continue
		}
		operands, err := inst.Operands()
		if err != nil {
			return nil, &InvariantError{Pass: "replace-variables", Detail: "reading pointer type", Err: err}
		}
		key := pointerKey{spirv.StorageClass(operands[1].Literal()), operands[2].ID()}
		if _, ok := pointers[key]; !ok {
			pointers[key] = inst.ResultID()
		}
	}

	for _, p := range found {
		if p.op == spirv.OpSDSLFunctionParameter {
			continue
		}
		key := pointerKey{p.storage, p.valueType}
		if _, ok := pointers[key]; ok {
			continue
		}
		after := -1
		for off, inst := range decl.Instructions() {
			if !inst.IsNop() && inst.ResultID() == p.valueType {
				after = off + inst.WordCount()
				break
			}
		}
		if after < 0 {
			return nil, &InvariantError{
				Pass:   "replace-variables",
				Detail: "type %" + strconv.FormatUint(uint64(p.valueType), 10) + " of " + p.name + " is not declared",
			}
		}
		id := m.AllocID()
		decl.InsertAt(after, spirv.NewInstruction(spirv.OpTypePointer, id, spirv.Lit(uint32(key.storage)), spirv.Ref(key.pointee)))
		pointers[key] = id
	}
	return pointers, nil
}
