package bytecode

import "fmt"

// Verify is the optional unknown-opcode check spec §9 leaves to the
// implementer. Sparrow resolves that open question by rejecting ahead of
// execution rather than trapping mid-run: Execute never calls this itself,
// an external driver (or a compiler's self-check) opts in explicitly.
func Verify(b *Buffer) error {
	ip := 0
	for ip < len(b.Code) {
		op := Op(b.Code[ip])
		if int(op) >= int(opCount) {
			return fmt.Errorf("bytecode: unknown opcode %d at offset %d", op, ip)
		}
		if op.HasArg() {
			if ip+4 > len(b.Code) {
				return fmt.Errorf("bytecode: truncated operand for %s at offset %d", op, ip)
			}
			a := int(b.Code[ip+1]) | int(b.Code[ip+2])<<8 | int(b.Code[ip+3])<<16
			switch op {
			case OpLoadK, OpAddNV, OpAddVN, OpSubNV, OpSubVN, OpMulNV, OpMulVN,
				OpDivNV, OpDivVN, OpPowNV, OpPowVN, OpModNV, OpModVN:
				if a >= len(b.NumConsts) {
					return fmt.Errorf("bytecode: number constant index %d out of range at offset %d", a, ip)
				}
			case OpLoadKStr, OpAGetStr, OpASetStr, OpGGet, OpGSet:
				if a >= len(b.StrConsts) {
					return fmt.Errorf("bytecode: string constant index %d out of range at offset %d", a, ip)
				}
			}
			ip += 4
		} else {
			ip++
		}
	}
	return nil
}
