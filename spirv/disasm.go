package spirv

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// enumerant tables, keyed by opcode and operand index.
var enumerants = map[OpCode]map[int]map[uint32]string{
	OpCapability: {0: capabilities},
	OpMemoryModel: {
		0: {0: "Logical", 1: "Physical32", 2: "Physical64"},
		1: {0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"},
	},
	OpEntryPoint:     {0: executionModels},
	OpExecutionMode:  {1: executionModes},
	OpTypePointer:    {1: storageClasses},
	OpVariable:       {2: storageClasses},
	OpSDSLVariable:   {2: storageClasses},
	OpSDSLIOVariable: {2: storageClasses},
	OpDecorate:       {1: decorations},
	OpMemberDecorate: {2: decorations},
	OpFunction:       {2: functionControls},
}

var capabilities = map[uint32]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
	4: "Addresses", 5: "Linkage", 6: "Kernel", 9: "Float16",
	10: "Float64", 11: "Int64", 22: "Int16", 38: "Int8",
}

var storageClasses = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var decorations = map[uint32]string{
	2: "Block", 4: "RowMajor", 5: "ColMajor", 6: "ArrayStride",
	7: "MatrixStride", 11: "BuiltIn", 30: "Location", 33: "Binding",
	34: "DescriptorSet", 35: "Offset",
}

var executionModes = map[uint32]string{
	7: "OriginUpperLeft", 8: "OriginLowerLeft", 9: "EarlyFragmentTests",
	12: "DepthReplacing", 17: "LocalSize",
}

var executionModels = map[uint32]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var functionControls = map[uint32]string{
	0: "None", 1: "Inline", 2: "DontInline", 4: "Pure", 8: "Const",
}

// Disassemble writes m as assembly-like text: the header as comments, then
// one instruction per line with results right-aligned and enumerants by
// name. Function bodies are introduced by a comment naming them. No-ops are
// printed only when nops is set.
func Disassemble(w io.Writer, m *Module, nops bool) error {
	h := m.Header
	fmt.Fprintf(w, "; SPIR-V\n")
	fmt.Fprintf(w, "; Version: %d.%d\n", h.Version.Major, h.Version.Minor)
	fmt.Fprintf(w, "; Generator: 0x%08X\n", h.Generator)
	fmt.Fprintf(w, "; Bound: %d\n", h.Bound)
	fmt.Fprintf(w, "; Schema: %d\n", h.Schema)
	fmt.Fprintln(w)

	for inst := range m.Declarations() {
		if inst.IsNop() && !nops {
			continue
		}
		if _, err := fmt.Fprintln(w, render(inst)); err != nil {
			return err
		}
	}
	for name, body := range m.Functions() {
		fmt.Fprintf(w, "\n; function %s\n", name)
		for _, inst := range body.Instructions() {
			if inst.IsNop() && !nops {
				continue
			}
			if _, err := fmt.Fprintln(w, render(inst)); err != nil {
				return err
			}
		}
	}
	return nil
}

// render prints the instruction with its result right-aligned and enum
// operands by name.
func render(inst Instruction) string {
	operands, err := inst.Operands()
	if err != nil {
		return "               " + inst.String() + " ; " + err.Error()
	}

	var sb strings.Builder
	if id := inst.ResultID(); id != 0 {
		fmt.Fprintf(&sb, "%12s = ", "%"+strconv.FormatUint(uint64(id), 10))
	} else {
		sb.WriteString("               ")
	}
	sb.WriteString(inst.OpCode().String())

	names := enumerants[inst.OpCode()]
	for i, o := range operands {
		if o.Kind == KindIdResult {
			continue
		}
		sb.WriteByte(' ')
		if table, ok := names[i]; ok && o.Kind == KindLiteralInteger {
			if s, ok := table[o.Literal()]; ok {
				sb.WriteString(s)
				continue
			}
		}
		sb.WriteString(o.String())
	}
	return sb.String()
}
