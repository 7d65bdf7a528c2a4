package passes

import (
	"slices"

	"github.com/gogpu/mixer/spirv"
)

// Compact drops every no-op from the module and sorts the declarations into
// the section order the binary format requires. The sort is stable, so
// types stay ahead of their users within the declaration section.
//
// It returns the number of dropped instructions.
func Compact(m *spirv.Module) int {
	dropped := 0

	decl := m.DeclarationBuffer()
	var kept []spirv.Instruction
	for _, inst := range decl.Instructions() {
		if inst.IsNop() {
			dropped++
			continue
		}
		kept = append(kept, inst)
	}
	slices.SortStableFunc(kept, func(a, b spirv.Instruction) int {
		return int(declSection(a.OpCode())) - int(declSection(b.OpCode()))
	})
	out := decl.Empty()
	for _, inst := range kept {
		out.Append(inst)
	}
	m.ReplaceDeclarations(out)

	var names []string
	for name := range m.Functions() {
		names = append(names, name)
	}
	for _, name := range names {
		body, _ := m.Function(name)
		compacted := body.Empty()
		for _, inst := range body.Instructions() {
			if inst.IsNop() {
				dropped++
				continue
			}
			compacted.Append(inst)
		}
		m.ReplaceFunction(name, compacted)
	}
	return dropped
}

func declSection(op spirv.OpCode) spirv.Section {
	if s := spirv.SectionOf(op); s != spirv.SectionAny {
		return s
	}
	return spirv.SectionDeclaration
}
