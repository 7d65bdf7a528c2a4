// Package spirv provides the word-level SPIR-V model used by the mixin
// compiler: instruction views, growable instruction streams and whole
// modules that the merge passes rewrite in place.
package spirv

import "fmt"

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the header encoding of the version.
func (v Version) Word() uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// String returns "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// versionFromWord decodes a header version word.
func versionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator

	// HeaderWords is the number of words preceding the first instruction.
	HeaderWords = 5
)

// ID is a SPIR-V result identifier. Zero is never a valid identifier.
type ID uint32

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes understood by the decoder and the rewrite passes.
const (
	OpNop                  OpCode = 0
	OpUndef                OpCode = 1
	OpSource               OpCode = 3
	OpName                 OpCode = 5
	OpMemberName           OpCode = 6
	OpString               OpCode = 7
	OpExtension            OpCode = 10
	OpExtInstImport        OpCode = 11
	OpExtInst              OpCode = 12
	OpMemoryModel          OpCode = 14
	OpEntryPoint           OpCode = 15
	OpExecutionMode        OpCode = 16
	OpCapability           OpCode = 17
	OpTypeVoid             OpCode = 19
	OpTypeBool             OpCode = 20
	OpTypeInt              OpCode = 21
	OpTypeFloat            OpCode = 22
	OpTypeVector           OpCode = 23
	OpTypeMatrix           OpCode = 24
	OpTypeArray            OpCode = 28
	OpTypeRuntimeArray     OpCode = 29
	OpTypeStruct           OpCode = 30
	OpTypePointer          OpCode = 32
	OpTypeFunction         OpCode = 33
	OpConstantTrue         OpCode = 41
	OpConstantFalse        OpCode = 42
	OpConstant             OpCode = 43
	OpConstantComposite    OpCode = 44
	OpConstantNull         OpCode = 46
	OpFunction             OpCode = 54
	OpFunctionParameter    OpCode = 55
	OpFunctionEnd          OpCode = 56
	OpFunctionCall         OpCode = 57
	OpVariable             OpCode = 59
	OpLoad                 OpCode = 61
	OpStore                OpCode = 62
	OpAccessChain          OpCode = 65
	OpDecorate             OpCode = 71
	OpMemberDecorate       OpCode = 72
	OpGroupMemberDecorate  OpCode = 75
	OpVectorShuffle        OpCode = 79
	OpCompositeConstruct   OpCode = 80
	OpCompositeExtract     OpCode = 81
	OpConvertFToU          OpCode = 109
	OpConvertFToS          OpCode = 110
	OpConvertSToF          OpCode = 111
	OpConvertUToF          OpCode = 112
	OpBitcast              OpCode = 124
	OpSNegate              OpCode = 126
	OpFNegate              OpCode = 127
	OpIAdd                 OpCode = 128
	OpFAdd                 OpCode = 129
	OpISub                 OpCode = 130
	OpFSub                 OpCode = 131
	OpIMul                 OpCode = 132
	OpFMul                 OpCode = 133
	OpUDiv                 OpCode = 134
	OpSDiv                 OpCode = 135
	OpFDiv                 OpCode = 136
	OpUMod                 OpCode = 137
	OpSRem                 OpCode = 138
	OpSMod                 OpCode = 139
	OpFRem                 OpCode = 140
	OpFMod                 OpCode = 141
	OpVectorTimesScalar    OpCode = 142
	OpMatrixTimesScalar    OpCode = 143
	OpVectorTimesMatrix    OpCode = 144
	OpMatrixTimesVector    OpCode = 145
	OpMatrixTimesMatrix    OpCode = 146
	OpDot                  OpCode = 148
	OpLogicalEqual         OpCode = 164
	OpLogicalNotEqual      OpCode = 165
	OpLogicalOr            OpCode = 166
	OpLogicalAnd           OpCode = 167
	OpLogicalNot           OpCode = 168
	OpSelect               OpCode = 169
	OpIEqual               OpCode = 170
	OpINotEqual            OpCode = 171
	OpUGreaterThan         OpCode = 172
	OpSGreaterThan         OpCode = 173
	OpUGreaterThanEqual    OpCode = 174
	OpSGreaterThanEqual    OpCode = 175
	OpULessThan            OpCode = 176
	OpSLessThan            OpCode = 177
	OpULessThanEqual       OpCode = 178
	OpSLessThanEqual       OpCode = 179
	OpFOrdEqual            OpCode = 180
	OpFOrdNotEqual         OpCode = 182
	OpFOrdLessThan         OpCode = 184
	OpFOrdGreaterThan      OpCode = 186
	OpFOrdLessThanEqual    OpCode = 188
	OpFOrdGreaterThanEqual OpCode = 190
	OpShiftRightLogical    OpCode = 194
	OpShiftRightArithmetic OpCode = 195
	OpShiftLeftLogical     OpCode = 196
	OpBitwiseOr            OpCode = 197
	OpBitwiseXor           OpCode = 198
	OpBitwiseAnd           OpCode = 199
	OpNot                  OpCode = 200
	OpPhi                  OpCode = 245
	OpLoopMerge            OpCode = 246
	OpSelectionMerge       OpCode = 247
	OpLabel                OpCode = 248
	OpBranch               OpCode = 249
	OpBranchConditional    OpCode = 250
	OpSwitch               OpCode = 251
	OpKill                 OpCode = 252
	OpReturn               OpCode = 253
	OpReturnValue          OpCode = 254
	OpUnreachable          OpCode = 255
	OpDecorateID           OpCode = 332
)

// Provisional opcodes emitted by per-mixin code generation before the
// storage class of a declaration is final. They live in a range no Khronos
// opcode uses and never survive the merge pipeline.
const (
	// OpSDSLVariable: result type (pointee), result, storage class, name,
	// optional initializer.
	OpSDSLVariable OpCode = 0xFF01
	// OpSDSLFunctionParameter: result type, result, name.
	OpSDSLFunctionParameter OpCode = 0xFF02
	// OpSDSLIOVariable: result type (pointee), result, storage class
	// (Input or Output), location, name.
	OpSDSLIOVariable OpCode = 0xFF03
	// OpSDSLImportVariable: result type (pointee), result, link name. It
	// stands for a member declared by another mixin and is resolved by the
	// merger.
	OpSDSLImportVariable OpCode = 0xFF04
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Common capabilities
const (
	CapabilityMatrix        Capability = 0
	CapabilityShader        Capability = 1
	CapabilityFloat64       Capability = 10
	CapabilityInt64         Capability = 11
	CapabilitySampledBuffer Capability = 46
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// Addressing models
const (
	AddressingModelLogical AddressingModel = 0
)

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// Memory models
const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelVulkan  MemoryModel = 3
)

// ExecutionModel represents a shader stage in SPIR-V terms.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Execution modes
const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeLocalSize       ExecutionMode = 17
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// FunctionControl represents SPIR-V function control flags.
type FunctionControl uint32

// Function control
const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)
