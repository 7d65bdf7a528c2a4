// Package spirv provides the word-level instruction model used by the mixin
// compiler.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs. Every instruction is a run of
// 32-bit words; the first word packs the word count in its high half and the
// opcode in its low half.
//
// # Instructions
//
// An Instruction is a view over a word slice. Its operands are classified
// against a per-opcode signature so that identifiers can be found and
// rewritten without knowing what each opcode means:
//
//	inst := spirv.NewInstruction(spirv.OpTypeVector, 7, spirv.Ref(3), spirv.Lit(4))
//	operands, err := inst.Operands()
//
// # Word Buffers
//
// A WordBuffer is a growable stream of instructions bound to either the
// declarations section or a function body. Adding an instruction to the wrong
// kind of stream panics. Instructions are removed by overwriting them with a
// no-op of the same length, so offsets stay valid while passes iterate:
//
//	ids := &spirv.IDAllocator{}
//	decl := spirv.NewWordBuffer(spirv.StreamDeclarations, ids)
//	floatType := decl.AddTypeFloat(32)
//	vec4Type := decl.AddTypeVector(floatType, 4)
//
// # Modules
//
// A Module holds one declarations stream and an ordered set of named
// function streams sharing an identifier allocator. Encode and Bytes
// serialize it with the five-word header; Decode reads a binary back.
//
// # Placeholder Instructions
//
// The compiler emits opcodes outside the standard range while it works.
// OpSDSLVariable, OpSDSLFunctionParameter and OpSDSLIOVariable carry a value
// type and a name instead of a pointer type, and are replaced by standard
// instructions before a module is emitted. OpSDSLImportVariable names a
// member of another mixin and is resolved when modules are merged.
//
// # References
//
//   - SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
