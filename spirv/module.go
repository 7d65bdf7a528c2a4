package spirv

import (
	"encoding/binary"
	"fmt"
	"iter"
	"strconv"
)

// Header is the five-word module header.
type Header struct {
	Version   Version
	Generator uint32
	Bound     uint32 // max ID + 1
	Schema    uint32
}

// Function is one named function body.
type Function struct {
	Name string
	Body *WordBuffer
}

// Module is a whole compiled unit: one declarations stream followed by an
// ordered collection of named function streams. The split makes it
// impossible for a declaration to follow a function.
type Module struct {
	Header Header

	ids          *IDAllocator
	declarations *WordBuffer
	functions    []*Function
	byName       map[string]int
}

// NewModule creates an empty module.
func NewModule(version Version) *Module {
	ids := &IDAllocator{next: 1}
	return &Module{
		Header: Header{
			Version:   version,
			Generator: GeneratorID,
			Bound:     1,
		},
		ids:          ids,
		declarations: NewWordBuffer(StreamDeclarations, ids),
		byName:       make(map[string]int),
	}
}

// IDs returns the module identifier allocator.
func (m *Module) IDs() *IDAllocator {
	return m.ids
}

// AllocID allocates a new module-unique identifier.
func (m *Module) AllocID() ID {
	return m.ids.Alloc()
}

// DeclarationBuffer returns the declarations stream.
func (m *Module) DeclarationBuffer() *WordBuffer {
	return m.declarations
}

// AddFunction creates a new, empty function stream. Function names are
// unique within a module; reusing one panics.
func (m *Module) AddFunction(name string) *WordBuffer {
	if _, exists := m.byName[name]; exists {
		panic(fmt.Sprintf("spirv: duplicate function %q", name))
	}
	body := NewWordBuffer(StreamFunction, m.ids)
	m.byName[name] = len(m.functions)
	m.functions = append(m.functions, &Function{Name: name, Body: body})
	return body
}

// HasFunction reports whether a function with this name exists.
func (m *Module) HasFunction(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// Function returns the body of the named function.
func (m *Module) Function(name string) (*WordBuffer, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.functions[i].Body, true
}

// ReplaceFunction swaps the body of an existing function.
func (m *Module) ReplaceFunction(name string, body *WordBuffer) {
	i, ok := m.byName[name]
	if !ok {
		panic(fmt.Sprintf("spirv: unknown function %q", name))
	}
	if body.stream != StreamFunction {
		panic("spirv: function body must be a function stream")
	}
	m.functions[i].Body = body
}

// ReplaceDeclarations swaps the declarations stream.
func (m *Module) ReplaceDeclarations(decl *WordBuffer) {
	if decl.stream != StreamDeclarations {
		panic("spirv: declarations must be a declarations stream")
	}
	m.declarations = decl
}

// Declarations enumerates every declaration instruction, no-ops included.
func (m *Module) Declarations() iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		for _, inst := range m.declarations.Instructions() {
			if !yield(inst) {
				return
			}
		}
	}
}

// Functions enumerates (name, body) pairs in module order.
func (m *Module) Functions() iter.Seq2[string, *WordBuffer] {
	return func(yield func(string, *WordBuffer) bool) {
		for _, fn := range m.functions {
			if !yield(fn.Name, fn.Body) {
				return
			}
		}
	}
}

// FunctionCount returns the number of functions.
func (m *Module) FunctionCount() int {
	return len(m.functions)
}

// Streams returns the declarations followed by every function body.
func (m *Module) Streams() []*WordBuffer {
	streams := make([]*WordBuffer, 0, 1+len(m.functions))
	streams = append(streams, m.declarations)
	for _, fn := range m.functions {
		streams = append(streams, fn.Body)
	}
	return streams
}

// RecomputeBound scans every live IdResult and stores max + 1 in the header.
func (m *Module) RecomputeBound() uint32 {
	var maxID ID
	for _, stream := range m.Streams() {
		for _, inst := range stream.Instructions() {
			if inst.IsNop() {
				continue
			}
			if id := inst.ResultID(); id > maxID {
				maxID = id
			}
		}
	}
	m.Header.Bound = uint32(maxID) + 1
	m.ids.Reserve(m.Header.Bound)
	return m.Header.Bound
}

// Encode returns the module as a word stream: header, declarations, then
// functions. No-ops are emitted as they are.
func (m *Module) Encode() []uint32 {
	total := HeaderWords + m.declarations.WordLen()
	for _, fn := range m.functions {
		total += fn.Body.WordLen()
	}

	words := make([]uint32, 0, total)
	words = append(words,
		MagicNumber,
		m.Header.Version.Word(),
		m.Header.Generator,
		m.Header.Bound,
		m.Header.Schema,
	)
	words = append(words, m.declarations.words...)
	for _, fn := range m.functions {
		words = append(words, fn.Body.words...)
	}
	return words
}

// Bytes returns the little-endian binary form of the module.
func (m *Module) Bytes() []byte {
	words := m.Encode()
	buffer := make([]byte, len(words)*4)
	for i, word := range words {
		binary.LittleEndian.PutUint32(buffer[i*4:], word)
	}
	return buffer
}

// Decode parses a little-endian SPIR-V binary. Function bodies are split on
// OpFunction/OpFunctionEnd and named after their OpName, falling back to
// "function_<id>".
func Decode(data []byte) (*Module, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("spirv: binary length %d is not a multiple of 4", len(data))
	}
	if len(data) < HeaderWords*4 {
		return nil, fmt.Errorf("spirv: binary too small: %d bytes", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return DecodeWords(words)
}

// DecodeWords parses a SPIR-V word stream.
func DecodeWords(words []uint32) (*Module, error) {
	if len(words) < HeaderWords {
		return nil, fmt.Errorf("spirv: word stream too small: %d words", len(words))
	}
	if words[0] != MagicNumber {
		return nil, fmt.Errorf("spirv: invalid magic number 0x%08X", words[0])
	}

	m := NewModule(versionFromWord(words[1]))
	m.Header.Generator = words[2]
	m.Header.Bound = words[3]
	m.Header.Schema = words[4]
	m.ids.Reserve(words[3])

	type pending struct {
		id    ID
		words []uint32
	}
	var (
		bodies  []pending
		current *pending
		names   = make(map[ID]string)
	)

	for off := HeaderWords; off < len(words); {
		count := int(words[off] >> 16)
		if count == 0 || off+count > len(words) {
			return nil, &InstructionError{
				Op:     OpCode(words[off] & 0xFFFF),
				Offset: off,
				Reason: "word count overruns the binary",
			}
		}
		inst := Instruction{words: words[off : off+count : off+count]}
		op := inst.OpCode()
		if _, known := signatures[op]; !known {
			return nil, &InstructionError{Op: op, Offset: off, Reason: "unsupported opcode"}
		}
		if _, err := inst.Operands(); err != nil {
			return nil, fmt.Errorf("spirv: word %d: %w", off, err)
		}

		switch {
		case op == OpFunction:
			if current != nil {
				return nil, &InstructionError{Op: op, Offset: off, Reason: "nested function"}
			}
			current = &pending{id: inst.ResultID()}
			current.words = append(current.words, inst.words...)
		case current != nil:
			if section := SectionOf(op); section != SectionFunction && section != SectionAny {
				return nil, &InstructionError{Op: op, Offset: off, Reason: "declaration inside a function body"}
			}
			current.words = append(current.words, inst.words...)
			if op == OpFunctionEnd {
				bodies = append(bodies, *current)
				current = nil
			}
		default:
			if len(bodies) > 0 {
				return nil, &InstructionError{Op: op, Offset: off, Reason: "declaration after function"}
			}
			if op == OpName {
				operands, _ := inst.Operands()
				names[operands[0].ID()] = operands[1].Text()
			}
			if SectionOf(op) == SectionFunction {
				return nil, &InstructionError{Op: op, Offset: off, Reason: "function instruction outside a function"}
			}
			m.declarations.words = append(m.declarations.words, inst.words...)
		}
		off += count
	}
	if current != nil {
		return nil, fmt.Errorf("spirv: function %%%d is missing OpFunctionEnd", current.id)
	}

	for _, body := range bodies {
		name := names[body.id]
		if name == "" || m.HasFunction(name) {
			name = "function_" + strconv.FormatUint(uint64(body.id), 10)
		}
		buf := m.AddFunction(name)
		buf.words = body.words
	}
	return m, nil
}
