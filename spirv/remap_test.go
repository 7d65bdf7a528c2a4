package spirv

import "testing"

func TestRewriteReferences(t *testing.T) {
	m := NewModule(Version1_3)
	decl := m.DeclarationBuffer()
	f32a := decl.AddTypeFloat(32)
	f32b := decl.AddTypeFloat(32)
	vec := decl.AddTypeVector(f32b, 4)
	c := decl.AddConstant(f32b, 7)

	n, err := RewriteReferences(m, f32b, f32a)
	if err != nil {
		t.Fatalf("RewriteReferences failed: %v", err)
	}
	if n != 2 {
		t.Errorf("rewrote %d operands, want 2", n)
	}

	for _, inst := range decl.Instructions() {
		switch inst.ResultID() {
		case f32b:
			// The definition itself keeps its result.
			if inst.OpCode() != OpTypeFloat {
				t.Errorf("definition of %%%d changed", f32b)
			}
		case vec:
			operands, _ := inst.Operands()
			if operands[1].ID() != f32a {
				t.Errorf("vector component = %%%d, want %%%d", operands[1].ID(), f32a)
			}
		case c:
			if inst.ResultType() != f32a {
				t.Errorf("constant type = %%%d, want %%%d", inst.ResultType(), f32a)
			}
		}
	}
}

func TestRewriteReferences_FunctionBodies(t *testing.T) {
	m := buildFragmentModule(t)
	body, _ := m.Function("main")

	var voidType ID
	for inst := range m.Declarations() {
		if inst.OpCode() == OpTypeVoid {
			voidType = inst.ResultID()
		}
	}

	// OpFunction references the void type and the function type.
	n, err := RewriteReferences(m, voidType, 99)
	if err != nil {
		t.Fatalf("RewriteReferences failed: %v", err)
	}
	// OpTypeFunction return type and OpFunction result type.
	if n != 2 {
		t.Errorf("rewrote %d operands, want 2", n)
	}
	for _, inst := range body.Instructions() {
		if inst.OpCode() == OpFunction && inst.ResultType() != 99 {
			t.Errorf("function result type = %%%d, want %%99", inst.ResultType())
		}
	}
}

func TestRemapIDs_SkipsNops(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamDeclarations, ids)
	b.AddTypeFloat(32)
	b.AddTypeVector(1, 2)

	var offsets []int
	for off := range b.Instructions() {
		offsets = append(offsets, off)
	}
	b.Nop(offsets[1])

	n, err := RemapIDs(b, func(id ID) ID { return id + 10 }, true)
	if err != nil {
		t.Fatalf("RemapIDs failed: %v", err)
	}
	if n != 1 {
		t.Errorf("changed %d words, want 1", n)
	}
}

func TestRenumberIDs(t *testing.T) {
	m := NewModule(Version1_3)
	decl := m.DeclarationBuffer()
	f32 := decl.AddTypeFloat(32)
	vec := decl.AddTypeVector(f32, 3)
	decl.AddName(vec, "float3")

	err := RenumberIDs(m, map[ID]ID{f32: 10, vec: 20})
	if err != nil {
		t.Fatalf("RenumberIDs failed: %v", err)
	}

	want := []struct {
		op     OpCode
		result ID
	}{
		{OpTypeFloat, 10},
		{OpTypeVector, 20},
		{OpName, 0},
	}
	i := 0
	for _, inst := range decl.Instructions() {
		if inst.OpCode() != want[i].op || inst.ResultID() != want[i].result {
			t.Errorf("instruction %d = %v", i, inst)
		}
		i++
	}

	for _, inst := range decl.Instructions() {
		if inst.OpCode() == OpName {
			operands, _ := inst.Operands()
			if operands[0].ID() != 20 {
				t.Errorf("OpName target = %%%d, want %%20", operands[0].ID())
			}
		}
	}
}

func TestOffsetIDs(t *testing.T) {
	m := buildFragmentModule(t)
	before := m.Header.Bound

	if err := OffsetIDs(m, 100); err != nil {
		t.Fatalf("OffsetIDs failed: %v", err)
	}
	if m.Header.Bound != before+100 {
		t.Errorf("bound = %d, want %d", m.Header.Bound, before+100)
	}

	for _, stream := range m.Streams() {
		for _, inst := range stream.Instructions() {
			if id := inst.ResultID(); id != 0 && id <= 100 {
				t.Errorf("%v kept a low result id", inst)
			}
		}
	}

	if next := m.AllocID(); next != ID(before+100) {
		t.Errorf("AllocID() = %d, want %d", next, before+100)
	}
}
