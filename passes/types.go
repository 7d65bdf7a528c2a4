package passes

import (
	"fmt"
	"strings"

	"github.com/gogpu/mixer/spirv"
)

// typeTiers orders deduplication so that the component types a type refers
// to are already unified when it is compared.
var typeTiers = [][]spirv.OpCode{
	{spirv.OpTypeVoid, spirv.OpTypeBool, spirv.OpTypeInt, spirv.OpTypeFloat},
	{spirv.OpTypeVector},
	{spirv.OpTypeMatrix},
	{spirv.OpTypePointer},
	{spirv.OpTypeFunction},
}

// RemoveDuplicateTypes unifies type declarations of the same opcode whose
// operands (the result aside) are equal. The earliest declaration survives;
// every reference to a later one, in the declarations and in every
// function, is rewritten to it and the later one becomes a no-op.
//
// Structs and arrays are never merged: two structs with equal members may
// still carry different decorations.
//
// It returns the number of removed types; running it again returns 0.
func RemoveDuplicateTypes(m *spirv.Module) (int, error) {
	removed := 0
	for _, tier := range typeTiers {
		// A tier may refer to itself (pointers to pointers), so it is
		// repeated until nothing more unifies.
		for {
			n, err := dedupTier(m, tier)
			if err != nil {
				return removed, err
			}
			if n == 0 {
				break
			}
			removed += n
		}
	}
	return removed, nil
}

func dedupTier(m *spirv.Module, ops []spirv.OpCode) (int, error) {
	decl := m.DeclarationBuffer()
	inTier := make(map[spirv.OpCode]bool, len(ops))
	for _, op := range ops {
		inTier[op] = true
	}

	survivors := make(map[string]spirv.ID)
	mapping := make(map[spirv.ID]spirv.ID)
	var dead []int
	for off, inst := range decl.Instructions() {
		if inst.IsNop() || !inTier[inst.OpCode()] {
			continue
		}
		key, err := typeKey(inst)
		if err != nil {
			return 0, &InvariantError{Pass: "remove-duplicate-types", Detail: "reading type", Err: err}
		}
		if first, ok := survivors[key]; ok {
			mapping[inst.ResultID()] = first
			dead = append(dead, off)
			continue
		}
		survivors[key] = inst.ResultID()
	}
	if len(mapping) == 0 {
		return 0, nil
	}

	rewrite := func(id spirv.ID) spirv.ID {
		if to, ok := mapping[id]; ok {
			return to
		}
		return id
	}
	for _, stream := range m.Streams() {
		if _, err := spirv.RemapIDs(stream, rewrite, false); err != nil {
			return 0, &InvariantError{Pass: "remove-duplicate-types", Detail: "rewriting references", Err: err}
		}
	}
	for _, off := range dead {
		decl.Nop(off)
	}
	return len(dead), nil
}

// typeKey is the opcode plus every operand word except the result.
func typeKey(inst spirv.Instruction) (string, error) {
	operands, err := inst.Operands()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(inst.OpCode().String())
	for _, o := range operands {
		if o.Kind == spirv.KindIdResult {
			continue
		}
		fmt.Fprintf(&sb, " %v", o.Words)
	}
	return sb.String(), nil
}
