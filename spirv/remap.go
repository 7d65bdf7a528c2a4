package spirv

// RemapIDs passes every identifier of the stream through f and writes the
// result back in place. Reference operands of every kind are remapped
// (IdRef, IdResultType and the three paired kinds); IdResult operands only
// when results is true. Soft-deleted instructions are skipped.
//
// It returns the number of words that changed.
func RemapIDs(b *WordBuffer, f func(ID) ID, results bool) (int, error) {
	changed := 0
	for off, inst := range b.Instructions() {
		if inst.IsNop() {
			continue
		}
		operands, err := inst.Operands()
		if err != nil {
			if ie, ok := err.(*InstructionError); ok {
				ie.Offset = off
			}
			return changed, err
		}
		for _, o := range operands {
			if o.Kind == KindIdResult {
				if results {
					changed += remapWord(o.Words, 0, f)
				}
				continue
			}
			for _, idx := range o.idIndexes() {
				changed += remapWord(o.Words, idx, f)
			}
		}
	}
	return changed, nil
}

func remapWord(words []uint32, idx int, f func(ID) ID) int {
	old := ID(words[idx])
	next := f(old)
	if next == old {
		return 0
	}
	words[idx] = uint32(next)
	return 1
}

// RewriteReferences replaces every reference to from with to across the
// declarations and every function. Defining instructions keep their
// IdResult. It returns the number of rewritten operands.
func RewriteReferences(m *Module, from, to ID) (int, error) {
	f := func(id ID) ID {
		if id == from {
			return to
		}
		return id
	}
	total := 0
	for _, stream := range m.Streams() {
		n, err := RemapIDs(stream, f, false)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RenumberIDs applies mapping to results and references across the whole
// module. Identifiers absent from mapping are left alone.
func RenumberIDs(m *Module, mapping map[ID]ID) error {
	f := func(id ID) ID {
		if next, ok := mapping[id]; ok {
			return next
		}
		return id
	}
	for _, stream := range m.Streams() {
		if _, err := RemapIDs(stream, f, true); err != nil {
			return err
		}
	}
	return nil
}

// OffsetIDs shifts every identifier of the module by delta, moving its
// whole identifier space above delta. The bound and the allocator follow.
func OffsetIDs(m *Module, delta uint32) error {
	if delta == 0 {
		return nil
	}
	f := func(id ID) ID {
		return id + ID(delta)
	}
	for _, stream := range m.Streams() {
		if _, err := RemapIDs(stream, f, true); err != nil {
			return err
		}
	}
	m.Header.Bound += delta
	m.ids.next += delta
	m.ids.Reserve(m.Header.Bound)
	return nil
}
