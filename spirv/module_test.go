package spirv

import (
	"encoding/binary"
	"fmt"
	"testing"
)

// buildFragmentModule builds a small fragment shader module by hand.
func buildFragmentModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule(Version1_3)
	decl := m.DeclarationBuffer()
	decl.AddCapability(CapabilityShader)
	decl.AddMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	voidType := decl.AddTypeVoid()
	funcType := decl.AddTypeFunction(voidType)

	body := m.AddFunction("main")
	funcID := body.AddFunction(funcType, voidType, FunctionControlNone)
	body.AddLabel()
	body.AddReturn()
	body.AddFunctionEnd()

	decl.AddName(funcID, "main")
	m.RecomputeBound()
	return m
}

func TestModule_Header(t *testing.T) {
	m := buildFragmentModule(t)
	data := m.Bytes()

	if len(data) < 20 {
		t.Fatalf("Module too small: got %d bytes, want at least 20", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicNumber {
		t.Errorf("Invalid magic number: got 0x%08X, want 0x%08X", magic, MagicNumber)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	expectedVersion := uint32(1<<16 | 3<<8) // Version 1.3
	if version != expectedVersion {
		t.Errorf("Invalid version: got 0x%08X, want 0x%08X", version, expectedVersion)
	}

	bound := binary.LittleEndian.Uint32(data[12:16])
	if bound != 5 {
		t.Errorf("Bound = %d, want 5", bound)
	}

	schema := binary.LittleEndian.Uint32(data[16:20])
	if schema != 0 {
		t.Errorf("Schema should be 0, got %d", schema)
	}
}

func TestModule_DuplicateFunctionPanics(t *testing.T) {
	m := NewModule(Version1_3)
	m.AddFunction("main")

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate function name")
		}
	}()
	m.AddFunction("main")
}

func TestModule_RecomputeBoundIgnoresNops(t *testing.T) {
	m := NewModule(Version1_3)
	decl := m.DeclarationBuffer()
	decl.AddTypeFloat(32)
	decl.AddTypeInt(32, true)
	decl.AddTypeBool()

	var last int
	for off := range decl.Instructions() {
		last = off
	}
	decl.Nop(last)

	if got := m.RecomputeBound(); got != 3 {
		t.Errorf("RecomputeBound() = %d, want 3", got)
	}
}

func TestModule_Enumerators(t *testing.T) {
	m := buildFragmentModule(t)
	m.AddFunction("helper").AddFunctionEnd()

	decls := 0
	for range m.Declarations() {
		decls++
	}
	if decls != 5 {
		t.Errorf("declarations = %d, want 5", decls)
	}

	var names []string
	for name := range m.Functions() {
		names = append(names, name)
	}
	if len(names) != 2 || names[0] != "main" || names[1] != "helper" {
		t.Errorf("function names = %v, want [main helper]", names)
	}
	if len(m.Streams()) != 3 {
		t.Errorf("streams = %d, want 3", len(m.Streams()))
	}
}

func TestModule_DecodeRoundTrip(t *testing.T) {
	m := buildFragmentModule(t)
	data := m.Bytes()

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Header.Bound != m.Header.Bound {
		t.Errorf("bound = %d, want %d", decoded.Header.Bound, m.Header.Bound)
	}
	if decoded.Header.Version != Version1_3 {
		t.Errorf("version = %v, want 1.3", decoded.Header.Version)
	}
	body, ok := decoded.Function("main")
	if !ok {
		t.Fatal("function main not found after decode")
	}
	if body.Len() != 4 {
		t.Errorf("main has %d instructions, want 4", body.Len())
	}

	again := decoded.Bytes()
	if len(again) != len(data) {
		t.Fatalf("re-encoded length %d, want %d", len(again), len(data))
	}
	for i := range data {
		if again[i] != data[i] {
			t.Fatalf("byte %d differs after round trip", i)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	good := buildFragmentModule(t).Encode()

	tests := []struct {
		name  string
		words []uint32
	}{
		{"bad magic", append([]uint32{0xDEADBEEF}, good[1:]...)},
		{"truncated header", good[:3]},
		{"overrun", append(append([]uint32{}, good...), 9<<16|uint32(OpNop))},
		{"unterminated function", good[:len(good)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWords(tt.words); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecode_UnnamedFunctionFallback(t *testing.T) {
	m := NewModule(Version1_3)
	decl := m.DeclarationBuffer()
	voidType := decl.AddTypeVoid()
	funcType := decl.AddTypeFunction(voidType)
	body := m.AddFunction("anything")
	fn := body.AddFunction(funcType, voidType, FunctionControlNone)
	body.AddLabel()
	body.AddReturn()
	body.AddFunctionEnd()
	m.RecomputeBound()

	decoded, err := Decode(m.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := fmt.Sprintf("function_%d", fn)
	if _, ok := decoded.Function(want); !ok {
		t.Errorf("function %q not found", want)
	}
}
