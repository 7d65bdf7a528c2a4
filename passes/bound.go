package passes

import (
	"fmt"
	"slices"

	"github.com/gogpu/mixer/spirv"
)

// ReduceBound renumbers the live identifiers to 1..n, keeping their
// relative order, so the header bound becomes n+1. Identifiers defined
// only by no-ops are released. References follow their definitions.
//
// It returns the number of identifiers that changed.
func ReduceBound(m *spirv.Module) (int, error) {
	var live []spirv.ID
	for _, stream := range m.Streams() {
		for _, inst := range stream.Instructions() {
			if inst.IsNop() {
				continue
			}
			if id := inst.ResultID(); id != 0 {
				live = append(live, id)
			}
		}
	}
	slices.Sort(live)

	mapping := make(map[spirv.ID]spirv.ID)
	for i, id := range live {
		if i > 0 && live[i-1] == id {
			return 0, &InvariantError{Pass: "reduce-bound", Detail: fmt.Sprintf("identifier %%%d is defined twice", id)}
		}
		if next := spirv.ID(i + 1); next != id {
			mapping[id] = next
		}
	}

	changed := len(mapping)
	if changed > 0 {
		if err := spirv.RenumberIDs(m, mapping); err != nil {
			return 0, &InvariantError{Pass: "reduce-bound", Detail: "renumbering", Err: err}
		}
	}
	bound := m.RecomputeBound()
	m.IDs().Reset(bound)
	return changed, nil
}
