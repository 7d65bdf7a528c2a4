package spirv

import (
	"fmt"
	"iter"
)

// Arg is an operand handed to the instruction builder.
type Arg struct {
	kind  OperandKind
	words []uint32
}

// Ref is an IdRef (or IdResultType) operand.
func Ref(id ID) Arg {
	return Arg{kind: KindIdRef, words: []uint32{uint32(id)}}
}

// Lit is a LiteralInteger operand.
func Lit(v uint32) Arg {
	return Arg{kind: KindLiteralInteger, words: []uint32{v}}
}

// Str is a LiteralString operand.
func Str(s string) Arg {
	return Arg{kind: KindLiteralString, words: encodeString(s)}
}

// RefLit is an (IdRef, LiteralInteger) pair.
func RefLit(id ID, v uint32) Arg {
	return Arg{kind: KindPairIdRefLiteralInteger, words: []uint32{uint32(id), v}}
}

// LitRef is a (LiteralInteger, IdRef) pair.
func LitRef(v uint32, id ID) Arg {
	return Arg{kind: KindPairLiteralIntegerIdRef, words: []uint32{v, uint32(id)}}
}

// RefRef is an (IdRef, IdRef) pair.
func RefRef(a, b ID) Arg {
	return Arg{kind: KindPairIdRefIdRef, words: []uint32{uint32(a), uint32(b)}}
}

func (a Arg) fits(kind OperandKind) bool {
	return a.kind == kind || (kind == KindIdResultType && a.kind == KindIdRef)
}

// NewInstruction encodes an instruction. result must be non-zero exactly
// when the opcode defines an IdResult.
//
// An operand that does not fit the opcode signature is a programming error
// and panics: the builder never emits malformed words.
func NewInstruction(op OpCode, result ID, args ...Arg) Instruction {
	s, ok := signatures[op]
	if !ok {
		panic(fmt.Sprintf("spirv: no signature for opcode %d", op))
	}

	words := make([]uint32, 1, 1+len(args)+1)
	ai := 0
	for _, slot := range s.Slots {
		if slot.Kind == KindIdResult {
			if result == 0 {
				panic(fmt.Sprintf("spirv: %s requires a result id", s.Name))
			}
			words = append(words, uint32(result))
			continue
		}
		switch slot.Quantifier {
		case One:
			if ai >= len(args) || !args[ai].fits(slot.Kind) {
				panic(fmt.Sprintf("spirv: %s expects %s for operand %d", s.Name, slot.Kind, ai))
			}
			words = append(words, args[ai].words...)
			ai++
		case Optional:
			if ai < len(args) && args[ai].fits(slot.Kind) {
				words = append(words, args[ai].words...)
				ai++
			}
		case Variadic:
			for ai < len(args) && args[ai].fits(slot.Kind) {
				words = append(words, args[ai].words...)
				ai++
			}
		}
	}
	if ai != len(args) {
		panic(fmt.Sprintf("spirv: %s got unexpected %s operand %d", s.Name, args[ai].kind, ai))
	}
	if result != 0 && !s.HasResult() {
		panic(fmt.Sprintf("spirv: %s has no result id", s.Name))
	}
	if len(words) > 0xFFFF {
		panic(fmt.Sprintf("spirv: %s exceeds the maximum word count", s.Name))
	}

	words[0] = uint32(len(words))<<16 | uint32(op)
	return Instruction{words: words}
}

// IDAllocator hands out fresh result identifiers for one module.
type IDAllocator struct {
	next uint32
}

// Alloc returns a fresh identifier.
func (a *IDAllocator) Alloc() ID {
	if a.next == 0 {
		a.next = 1
	}
	id := ID(a.next)
	a.next++
	return id
}

// Bound returns one more than the largest identifier handed out.
func (a *IDAllocator) Bound() uint32 {
	return max(a.next, 1)
}

// Reserve makes sure later allocations start at or above bound.
func (a *IDAllocator) Reserve(bound uint32) {
	if bound > a.next {
		a.next = bound
	}
}

// Reset makes the next allocation return bound, also when that is lower
// than the current position. Used after identifiers were compacted.
func (a *IDAllocator) Reset(bound uint32) {
	a.next = max(bound, 1)
}

// Stream says which part of a module a WordBuffer holds.
type Stream uint8

// Streams
const (
	StreamDeclarations Stream = iota
	StreamFunction
)

// WordBuffer is one ordered instruction stream: the declarations of a
// module or the body of a single function.
type WordBuffer struct {
	words  []uint32
	ids    *IDAllocator
	stream Stream
}

// NewWordBuffer creates an empty stream drawing identifiers from ids.
func NewWordBuffer(stream Stream, ids *IDAllocator) *WordBuffer {
	return &WordBuffer{
		words:  make([]uint32, 0, 64),
		ids:    ids,
		stream: stream,
	}
}

// Empty returns a new empty buffer of the same stream kind sharing the
// identifier allocator.
func (b *WordBuffer) Empty() *WordBuffer {
	return &WordBuffer{
		words:  make([]uint32, 0, len(b.words)),
		ids:    b.ids,
		stream: b.stream,
	}
}

// Stream returns the stream kind.
func (b *WordBuffer) Stream() Stream {
	return b.stream
}

// Allocator returns the identifier allocator shared with the module.
func (b *WordBuffer) Allocator() *IDAllocator {
	return b.ids
}

func (b *WordBuffer) checkSection(op OpCode) {
	section := SectionOf(op)
	if section == SectionAny {
		return
	}
	if b.stream == StreamFunction && section != SectionFunction {
		panic(fmt.Sprintf("spirv: %s is not allowed in a function body", op))
	}
	if b.stream == StreamDeclarations && section == SectionFunction {
		panic(fmt.Sprintf("spirv: %s is not allowed in the declarations", op))
	}
}

// Add appends an instruction and returns its freshly allocated IdResult,
// or 0 when the opcode defines none.
func (b *WordBuffer) Add(op OpCode, args ...Arg) ID {
	b.checkSection(op)
	var id ID
	if s, ok := signatures[op]; ok && s.HasResult() {
		id = b.ids.Alloc()
	}
	inst := NewInstruction(op, id, args...)
	b.words = append(b.words, inst.words...)
	return id
}

// Append copies an already encoded instruction to the end of the stream.
func (b *WordBuffer) Append(inst Instruction) {
	b.checkSection(inst.OpCode())
	b.words = append(b.words, inst.words...)
}

// Insert copies inst in front of the instruction currently at position
// index (counted in instructions). index == Len() appends.
func (b *WordBuffer) Insert(index int, inst Instruction) {
	offset := len(b.words)
	n := 0
	for off := range b.Instructions() {
		if n == index {
			offset = off
			break
		}
		n++
	}
	if offset == len(b.words) && n < index {
		panic(fmt.Sprintf("spirv: insert position %d out of range", index))
	}
	b.InsertAt(offset, inst)
}

// InsertAt copies inst at word offset, which must be an instruction
// boundary. Offsets at or after it shift by the instruction length.
func (b *WordBuffer) InsertAt(offset int, inst Instruction) {
	b.checkSection(inst.OpCode())
	if offset != len(b.words) && !b.isBoundary(offset) {
		panic(fmt.Sprintf("spirv: word offset %d is not an instruction boundary", offset))
	}
	b.words = append(b.words[:offset], append(inst.Clone().words, b.words[offset:]...)...)
}

func (b *WordBuffer) isBoundary(offset int) bool {
	for off := range b.Instructions() {
		if off == offset {
			return true
		}
		if off > offset {
			return false
		}
	}
	return false
}

// At returns the instruction starting at word offset.
func (b *WordBuffer) At(offset int) Instruction {
	count := int(b.words[offset] >> 16)
	return Instruction{words: b.words[offset : offset+count : offset+count]}
}

// Nop soft-deletes the instruction at word offset: the opcode becomes
// OpNop and the word count is kept so no other offset moves.
func (b *WordBuffer) Nop(offset int) {
	count := b.words[offset] >> 16
	b.words[offset] = count << 16
}

// Instructions enumerates (word offset, instruction) pairs in order.
// A zero word count means the stream is corrupt and panics.
func (b *WordBuffer) Instructions() iter.Seq2[int, Instruction] {
	return func(yield func(int, Instruction) bool) {
		for off := 0; off < len(b.words); {
			count := int(b.words[off] >> 16)
			if count == 0 || off+count > len(b.words) {
				panic(fmt.Sprintf("spirv: corrupt instruction stream at word %d", off))
			}
			if !yield(off, Instruction{words: b.words[off : off+count : off+count]}) {
				return
			}
			off += count
		}
	}
}

// Len returns the number of instructions, no-ops included.
func (b *WordBuffer) Len() int {
	n := 0
	for range b.Instructions() {
		n++
	}
	return n
}

// WordLen returns the number of words in the stream.
func (b *WordBuffer) WordLen() int {
	return len(b.words)
}

// Words returns the raw words of the stream.
func (b *WordBuffer) Words() []uint32 {
	return b.words
}

// Check verifies that every word count is non-zero and that the
// instructions tile the stream exactly.
func (b *WordBuffer) Check() error {
	for off := 0; off < len(b.words); {
		count := int(b.words[off] >> 16)
		if count == 0 || off+count > len(b.words) {
			return &InstructionError{
				Op:     OpCode(b.words[off] & 0xFFFF),
				Offset: off,
				Reason: fmt.Sprintf("word count %d overruns stream of %d words", count, len(b.words)),
			}
		}
		off += count
	}
	return nil
}
