package bytecode

import "fmt"

// MaxOperand is the largest value operand A can hold: 24 bits (spec §4.E).
const MaxOperand = 0x00FF_FFFF

// DebugInfo is an instruction's source position, kept in a parallel array
// to Code with one entry per byte (a 4-byte instruction repeats its entry
// four times), so that debug lookup is O(1) by byte offset.
// Grounded on the teacher's internal/bytecode.DebugInfo.
type DebugInfo struct {
	Line   int
	Column int
}

// Label names a reserved instruction slot: the byte offset it was written
// at and the debug-array index, so Patch can later fill in an operand once
// the jump target is known (spec §4.E).
type Label struct {
	Offset int
	Debug  int
	withArg bool
}

// Buffer is Sparrow's instruction stream: a contiguous byte array, plus the
// parallel debug line table. Instructions are 1 byte (no operand) or 4
// bytes (opcode + little-endian 24-bit operand A).
type Buffer struct {
	Code  []byte
	Debug []DebugInfo

	// NumConsts and StrConsts are the Proto's constant pools. They live
	// here (not in package heap) so that Buffer has no dependency on the
	// heap's object graph; heap.Proto resolves StrConsts into interned
	// *heap.String values at construction time.
	NumConsts []float64
	StrConsts []string
}

func New() *Buffer {
	return &Buffer{}
}

func (b *Buffer) AddNumConst(v float64) int {
	for i, existing := range b.NumConsts {
		if existing == v {
			return i
		}
	}
	b.NumConsts = append(b.NumConsts, v)
	return len(b.NumConsts) - 1
}

func (b *Buffer) AddStrConst(s string) int {
	for i, existing := range b.StrConsts {
		if existing == s {
			return i
		}
	}
	b.StrConsts = append(b.StrConsts, s)
	return len(b.StrConsts) - 1
}

// Emit appends a bare 1-byte instruction and returns its offset.
func (b *Buffer) Emit(op Op, d DebugInfo) int {
	if op.HasArg() {
		panic(fmt.Sprintf("bytecode: %s requires an operand", op))
	}
	off := len(b.Code)
	b.Code = append(b.Code, byte(op))
	b.Debug = append(b.Debug, d)
	return off
}

// EmitArg appends a 4-byte instruction (opcode + 24-bit operand A).
func (b *Buffer) EmitArg(op Op, a int, d DebugInfo) int {
	if !op.HasArg() {
		panic(fmt.Sprintf("bytecode: %s takes no operand", op))
	}
	if a < 0 || a > MaxOperand {
		panic(fmt.Sprintf("bytecode: operand %d out of 24-bit range for %s", a, op))
	}
	off := len(b.Code)
	b.Code = append(b.Code, byte(op), byte(a), byte(a>>8), byte(a>>16))
	// one DebugInfo entry per byte, keeping Debug index-aligned with Code
	b.Debug = append(b.Debug, d, d, d, d)
	return off
}

// Reserve emits a placeholder instruction (operand 0) and returns a Label
// that Patch can later fill once the real operand is known — used for
// forward jumps whose target isn't known until the body is built.
func (b *Buffer) Reserve(op Op, d DebugInfo) Label {
	off := b.EmitArg(op, 0, d)
	return Label{Offset: off, Debug: off, withArg: true}
}

// Patch overwrites the operand reserved at lbl with a. Legal only when the
// instruction at lbl.Offset still carries an operand (with-arg class
// matches the original reservation) — spec §4.E.
func (b *Buffer) Patch(lbl Label, a int) {
	if !lbl.withArg {
		panic("bytecode: cannot patch a no-arg label")
	}
	if a < 0 || a > MaxOperand {
		panic(fmt.Sprintf("bytecode: patch operand %d out of range", a))
	}
	op := Op(b.Code[lbl.Offset])
	if !op.HasArg() {
		panic(fmt.Sprintf("bytecode: opcode class mismatch patching %s", op))
	}
	b.Code[lbl.Offset+1] = byte(a)
	b.Code[lbl.Offset+2] = byte(a >> 8)
	b.Code[lbl.Offset+3] = byte(a >> 16)
}

// Here returns the offset the next instruction will be emitted at —
// callers use this to compute relative jump operands.
func (b *Buffer) Here() int {
	return len(b.Code)
}

// Decode reads the instruction at ip, returning its opcode, its operand (0
// for no-arg opcodes), and the offset of the following instruction.
func (b *Buffer) Decode(ip int) (op Op, a int, next int) {
	op = Op(b.Code[ip])
	if !op.HasArg() {
		return op, 0, ip + 1
	}
	a = int(b.Code[ip+1]) | int(b.Code[ip+2])<<8 | int(b.Code[ip+3])<<16
	return op, a, ip + 4
}

func (b *Buffer) DebugAt(ip int) DebugInfo {
	if ip >= 0 && ip < len(b.Debug) {
		return b.Debug[ip]
	}
	return DebugInfo{}
}

// Dump renders the buffer as one disassembled line per instruction, in the
// style of the teacher's debug tooling.
func (b *Buffer) Dump() string {
	var out []byte
	ip := 0
	for ip < len(b.Code) {
		op, a, next := b.Decode(ip)
		d := b.DebugAt(ip)
		if op.HasArg() {
			out = append(out, []byte(fmt.Sprintf("%6d  %-14s %-8d ; line %d\n", ip, op, a, d.Line))...)
		} else {
			out = append(out, []byte(fmt.Sprintf("%6d  %-14s          ; line %d\n", ip, op, d.Line))...)
		}
		ip = next
	}
	return string(out)
}
