package spirv

import (
	"fmt"
	"strings"
)

// Instruction is a view over the words of one instruction. Word 0 packs the
// opcode in its low 16 bits and the total word count in its high 16 bits.
//
// The view shares memory with the stream it was taken from, so writes
// through Words or through an Operand are visible in that stream.
type Instruction struct {
	words []uint32
}

// MakeInstruction wraps words as an instruction after checking that the
// encoded word count matches the physical length.
func MakeInstruction(words []uint32) (Instruction, error) {
	if len(words) == 0 {
		return Instruction{}, &InstructionError{Reason: "empty instruction"}
	}
	count := int(words[0] >> 16)
	if count != len(words) {
		return Instruction{}, &InstructionError{
			Op:     OpCode(words[0] & 0xFFFF),
			Reason: fmt.Sprintf("word count %d does not match span %d", count, len(words)),
		}
	}
	return Instruction{words: words}, nil
}

// OpCode returns the opcode stored in word 0.
func (i Instruction) OpCode() OpCode {
	return OpCode(i.words[0] & 0xFFFF)
}

// WordCount returns the word count stored in word 0.
func (i Instruction) WordCount() int {
	return int(i.words[0] >> 16)
}

// Words returns the underlying words, including word 0.
func (i Instruction) Words() []uint32 {
	return i.words
}

// IsNop reports whether the instruction has been soft-deleted (or is a
// genuine OpNop).
func (i Instruction) IsNop() bool {
	return i.OpCode() == OpNop
}

// Clone returns an instruction backed by a private copy of the words.
func (i Instruction) Clone() Instruction {
	words := make([]uint32, len(i.words))
	copy(words, i.words)
	return Instruction{words: words}
}

// Signature returns the operand signature of the opcode.
func (i Instruction) Signature() (*Signature, bool) {
	return LookupSignature(i.OpCode())
}

// ResultID returns the IdResult defined by the instruction, or 0.
func (i Instruction) ResultID() ID {
	s, ok := signatures[i.OpCode()]
	if !ok {
		return 0
	}
	idx := s.resultIndex()
	if idx < 0 || idx+1 >= len(i.words) {
		return 0
	}
	// IdResult is always either the first operand or follows IdResultType.
	return ID(i.words[idx+1])
}

// ResultType returns the IdResultType operand, or 0.
func (i Instruction) ResultType() ID {
	s, ok := signatures[i.OpCode()]
	if !ok || len(s.Slots) == 0 || s.Slots[0].Kind != KindIdResultType || len(i.words) < 2 {
		return 0
	}
	return ID(i.words[1])
}

// Operands decodes the operands after word 0 according to the opcode
// signature. The returned operands alias the instruction words.
func (i Instruction) Operands() ([]Operand, error) {
	op := i.OpCode()
	s, ok := signatures[op]
	if !ok {
		return nil, &InstructionError{Op: op, Reason: "unknown opcode"}
	}

	words := i.words[1:]
	operands := make([]Operand, 0, len(s.Slots))
	pos := 0
	take := func(kind OperandKind) error {
		n, err := operandSpan(kind, words[pos:])
		if err != nil {
			return &InstructionError{Op: op, Reason: err.Error()}
		}
		operands = append(operands, Operand{Kind: kind, Offset: pos + 1, Words: words[pos : pos+n]})
		pos += n
		return nil
	}

	for _, slot := range s.Slots {
		switch slot.Quantifier {
		case One:
			if pos >= len(words) {
				return nil, &InstructionError{Op: op, Reason: "missing " + slot.Kind.String() + " operand"}
			}
			if err := take(slot.Kind); err != nil {
				return nil, err
			}
		case Optional:
			if pos < len(words) {
				if err := take(slot.Kind); err != nil {
					return nil, err
				}
			}
		case Variadic:
			for pos < len(words) {
				if err := take(slot.Kind); err != nil {
					return nil, err
				}
			}
		}
	}

	if pos != len(words) {
		return nil, &InstructionError{Op: op, Reason: fmt.Sprintf("%d trailing words", len(words)-pos)}
	}
	return operands, nil
}

// String renders the instruction in a compact assembly-like form.
func (i Instruction) String() string {
	var sb strings.Builder
	if id := i.ResultID(); id != 0 {
		fmt.Fprintf(&sb, "%%%d = ", id)
	}
	sb.WriteString(i.OpCode().String())
	operands, err := i.Operands()
	if err != nil {
		for _, w := range i.words[1:] {
			fmt.Fprintf(&sb, " 0x%X", w)
		}
		return sb.String()
	}
	for _, o := range operands {
		if o.Kind == KindIdResult {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(o.String())
	}
	return sb.String()
}

// operandSpan returns the number of words an operand of kind occupies at
// the start of words.
func operandSpan(kind OperandKind, words []uint32) (int, error) {
	if kind == KindLiteralString {
		for i, w := range words {
			if w&0xFF == 0 || w&0xFF00 == 0 || w&0xFF0000 == 0 || w&0xFF000000 == 0 {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("unterminated string")
	}
	n := kind.wordSize()
	if n > len(words) {
		return 0, fmt.Errorf("truncated %s operand", kind)
	}
	return n, nil
}

// Operand is one decoded operand. Words aliases the instruction words.
type Operand struct {
	Kind OperandKind
	// Offset is the index of the operand's first word within the
	// instruction (word 0 is the opcode word).
	Offset int
	Words  []uint32
}

// ID returns the identifier of an IdResult, IdResultType or IdRef operand.
func (o Operand) ID() ID {
	return ID(o.Words[0])
}

// Literal returns the first word of a literal operand.
func (o Operand) Literal() uint32 {
	return o.Words[0]
}

// Text decodes a LiteralString operand.
func (o Operand) Text() string {
	return decodeString(o.Words)
}

// Pair returns both words of a paired operand.
func (o Operand) Pair() (uint32, uint32) {
	return o.Words[0], o.Words[1]
}

// idIndexes returns the positions within Words that hold identifiers the
// operand references. IdResult is not a reference and yields none.
func (o Operand) idIndexes() []int {
	switch o.Kind {
	case KindIdResultType, KindIdRef, KindPairIdRefLiteralInteger:
		return idxFirst
	case KindPairLiteralIntegerIdRef:
		return idxSecond
	case KindPairIdRefIdRef:
		return idxBoth
	}
	return nil
}

// References returns the identifiers the operand refers to. An IdResult
// defines rather than refers and yields none.
func (o Operand) References() []ID {
	idx := o.idIndexes()
	if len(idx) == 0 {
		return nil
	}
	ids := make([]ID, len(idx))
	for i, j := range idx {
		ids[i] = ID(o.Words[j])
	}
	return ids
}

var (
	idxFirst  = []int{0}
	idxSecond = []int{1}
	idxBoth   = []int{0, 1}
)

// String renders the operand.
func (o Operand) String() string {
	switch o.Kind {
	case KindIdResult, KindIdResultType, KindIdRef:
		return fmt.Sprintf("%%%d", o.Words[0])
	case KindLiteralString:
		return fmt.Sprintf("%q", o.Text())
	case KindPairIdRefLiteralInteger:
		return fmt.Sprintf("%%%d %d", o.Words[0], o.Words[1])
	case KindPairLiteralIntegerIdRef:
		return fmt.Sprintf("%d %%%d", o.Words[0], o.Words[1])
	case KindPairIdRefIdRef:
		return fmt.Sprintf("%%%d %%%d", o.Words[0], o.Words[1])
	default:
		return fmt.Sprintf("%d", o.Words[0])
	}
}

// InstructionError reports a malformed instruction. It always indicates a
// generator or pass bug, never a problem with user shader source.
type InstructionError struct {
	Op     OpCode
	Offset int
	Reason string
}

// Error implements the error interface.
func (e *InstructionError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("spirv: %s at word %d: %s", e.Op, e.Offset, e.Reason)
	}
	return fmt.Sprintf("spirv: %s: %s", e.Op, e.Reason)
}

// encodeString packs a null-terminated UTF-8 string into words.
func encodeString(s string) []uint32 {
	bytes := []byte(s)
	bytes = append(bytes, 0)

	// Pad to word boundary
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}

	words := make([]uint32, 0, len(bytes)/4)
	for i := 0; i < len(bytes); i += 4 {
		word := uint32(bytes[i]) |
			uint32(bytes[i+1])<<8 |
			uint32(bytes[i+2])<<16 |
			uint32(bytes[i+3])<<24
		words = append(words, word)
	}
	return words
}

// decodeString unpacks a null-terminated string from words.
func decodeString(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return sb.String()
			}
			sb.WriteByte(b)
		}
	}
	return sb.String()
}
