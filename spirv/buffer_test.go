package spirv

import (
	"testing"
)

func opcodes(b *WordBuffer) []OpCode {
	var ops []OpCode
	for _, inst := range b.Instructions() {
		ops = append(ops, inst.OpCode())
	}
	return ops
}

func TestWordBuffer_AddAllocatesIDs(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamDeclarations, ids)

	floatType := b.AddTypeFloat(32)
	intType := b.AddTypeInt(32, true)
	vec4Type := b.AddTypeVector(floatType, 4)
	b.AddName(vec4Type, "float4")

	if floatType != 1 || intType != 2 || vec4Type != 3 {
		t.Errorf("IDs = %d, %d, %d; want 1, 2, 3", floatType, intType, vec4Type)
	}
	if ids.Bound() != 4 {
		t.Errorf("Bound() = %d, want 4", ids.Bound())
	}
	if b.Len() != 4 {
		t.Errorf("Len() = %d, want 4", b.Len())
	}
	if err := b.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}

	// OpTypeFloat + OpTypeInt + OpTypeVector + OpName with a two-word string
	wantWords := 3 + 4 + 4 + 4
	if b.WordLen() != wantWords {
		t.Errorf("WordLen() = %d, want %d", b.WordLen(), wantWords)
	}
}

func TestWordBuffer_SectionEnforcement(t *testing.T) {
	ids := &IDAllocator{}

	t.Run("function opcode in declarations", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		NewWordBuffer(StreamDeclarations, ids).AddLabel()
	})

	t.Run("type in function body", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		NewWordBuffer(StreamFunction, ids).AddTypeBool()
	})

	t.Run("variable allowed in both", func(t *testing.T) {
		NewWordBuffer(StreamDeclarations, ids).AddVariable(1, StorageClassPrivate, 0)
		NewWordBuffer(StreamFunction, ids).AddVariable(1, StorageClassFunction, 0)
	})
}

func TestWordBuffer_Insert(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamFunction, ids)
	b.AddLabel()
	b.AddReturn()
	b.AddFunctionEnd()

	b.Insert(1, NewInstruction(OpVariable, ids.Alloc(), Ref(9), Lit(uint32(StorageClassFunction))))
	b.Insert(0, NewInstruction(OpFunction, ids.Alloc(), Ref(8), Lit(0), Ref(7)))
	b.Insert(b.Len(), NewInstruction(OpNop, 0))

	want := []OpCode{OpFunction, OpLabel, OpVariable, OpReturn, OpFunctionEnd, OpNop}
	got := opcodes(b)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %v, want %v", i, got[i], want[i])
		}
	}
	if err := b.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestWordBuffer_InsertAtNonBoundaryPanics(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamFunction, ids)
	b.AddLabel()
	b.AddLabel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for offset inside an instruction")
		}
	}()
	b.InsertAt(1, NewInstruction(OpReturn, 0))
}

func TestWordBuffer_NopKeepsLength(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamDeclarations, ids)
	b.AddTypeFloat(32)
	vec := b.AddTypeVector(1, 4)
	b.AddName(vec, "float4")
	before := b.WordLen()

	var offsets []int
	for off := range b.Instructions() {
		offsets = append(offsets, off)
	}
	b.Nop(offsets[1])

	if b.WordLen() != before {
		t.Errorf("WordLen() = %d after Nop, want %d", b.WordLen(), before)
	}
	nop := b.At(offsets[1])
	if !nop.IsNop() {
		t.Error("instruction should be a no-op")
	}
	if nop.WordCount() != 4 {
		t.Errorf("no-op word count = %d, want 4", nop.WordCount())
	}
	// The instruction after the no-op is still found at its old offset.
	if b.At(offsets[2]).OpCode() != OpName {
		t.Error("OpName moved after soft deletion")
	}
}

func TestWordBuffer_CheckDetectsCorruption(t *testing.T) {
	ids := &IDAllocator{}
	b := NewWordBuffer(StreamDeclarations, ids)
	b.AddTypeFloat(32)
	b.words[0] = 5<<16 | uint32(OpTypeFloat)

	if err := b.Check(); err == nil {
		t.Error("expected Check to report the overrun")
	}
}

func TestWordBuffer_SDSLPlaceholders(t *testing.T) {
	ids := &IDAllocator{}
	decl := NewWordBuffer(StreamDeclarations, ids)
	floatType := decl.AddTypeFloat(32)
	one := decl.AddConstantFloat32(floatType, 1)
	v := decl.AddSDSLVariable(floatType, StorageClassPrivate, "Intensity", one)
	io := decl.AddSDSLIOVariable(floatType, StorageClassOutput, 0, "Color")
	imp := decl.AddSDSLImportVariable(floatType, "Base.Scale")

	var found int
	for _, inst := range decl.Instructions() {
		switch inst.OpCode() {
		case OpSDSLVariable:
			found++
			operands, err := inst.Operands()
			if err != nil {
				t.Fatalf("Operands failed: %v", err)
			}
			if inst.ResultID() != v {
				t.Errorf("ResultID() = %d, want %d", inst.ResultID(), v)
			}
			if operands[3].Text() != "Intensity" {
				t.Errorf("name = %q", operands[3].Text())
			}
			if len(operands) != 5 || operands[4].ID() != one {
				t.Errorf("initializer missing or wrong: %v", operands)
			}
		case OpSDSLIOVariable:
			found++
			if inst.ResultID() != io {
				t.Errorf("ResultID() = %d, want %d", inst.ResultID(), io)
			}
		case OpSDSLImportVariable:
			found++
			operands, err := inst.Operands()
			if err != nil {
				t.Fatalf("Operands failed: %v", err)
			}
			if inst.ResultID() != imp || operands[0].ID() != floatType || operands[2].Text() != "Base.Scale" {
				t.Errorf("import = %v", inst)
			}
		}
	}
	if found != 3 {
		t.Errorf("found %d placeholders, want 3", found)
	}
}
