package assembler

import "fmt"

func regName(r uint32) string {
	return "$" + RegisterNames[r&0x1F]
}

// Disassemble renders the instruction word found at pc. Branch and jump
// destinations are printed as absolute addresses.
func Disassemble(pc, word uint32) string {
	in := Decode(word)
	f := DecodeFields(word)

	switch in.Format {
	case FormatNone:
		return in.Mnemonic
	case FormatJump:
		return fmt.Sprintf("%s 0x%08x", in.Mnemonic, ((pc+4)&0xF0000000)|(f.Target<<2))
	case FormatBranch2:
		return fmt.Sprintf("%s %s, %s, 0x%08x", in.Mnemonic, regName(f.Rs), regName(f.Rt), branchTarget(pc, f))
	case FormatBranch1:
		if in.Op == OpTRAP {
			return fmt.Sprintf("%s %s, %d", in.Mnemonic, regName(f.Rs), f.SImm)
		}
		return fmt.Sprintf("%s %s, 0x%08x", in.Mnemonic, regName(f.Rs), branchTarget(pc, f))
	case FormatShift:
		if word == 0 {
			return "nop"
		}
		return fmt.Sprintf("%s %s, %s, %d", in.Mnemonic, regName(f.Rd), regName(f.Rt), f.Sa)
	case FormatShiftV:
		return fmt.Sprintf("%s %s, %s, %s", in.Mnemonic, regName(f.Rd), regName(f.Rt), regName(f.Rs))
	case FormatImm:
		switch in.Op {
		case OpANDI, OpORI, OpXORI:
			return fmt.Sprintf("%s %s, %s, 0x%x", in.Mnemonic, regName(f.Rt), regName(f.Rs), f.Imm)
		}
		return fmt.Sprintf("%s %s, %s, %d", in.Mnemonic, regName(f.Rt), regName(f.Rs), f.SImm)
	case FormatLui:
		return fmt.Sprintf("%s %s, 0x%x", in.Mnemonic, regName(f.Rt), f.Imm)
	case FormatReg3:
		return fmt.Sprintf("%s %s, %s, %s", in.Mnemonic, regName(f.Rd), regName(f.Rs), regName(f.Rt))
	case FormatReg2:
		return fmt.Sprintf("%s %s, %s", in.Mnemonic, regName(f.Rs), regName(f.Rt))
	case FormatRd:
		return fmt.Sprintf("%s %s", in.Mnemonic, regName(f.Rd))
	case FormatRs:
		return fmt.Sprintf("%s %s", in.Mnemonic, regName(f.Rs))
	case FormatJalr:
		if f.Rd == 31 {
			return fmt.Sprintf("%s %s", in.Mnemonic, regName(f.Rs))
		}
		return fmt.Sprintf("%s %s, %s", in.Mnemonic, regName(f.Rd), regName(f.Rs))
	case FormatMem:
		if in.Op == OpCACHE {
			return fmt.Sprintf("%s 0x%x, %d(%s)", in.Mnemonic, f.Rt, f.SImm, regName(f.Rs))
		}
		return fmt.Sprintf("%s %s, %d(%s)", in.Mnemonic, regName(f.Rt), f.SImm, regName(f.Rs))
	case FormatCop:
		if sel := word & 0x7; sel != 0 {
			return fmt.Sprintf("%s %s, $%d, %d", in.Mnemonic, regName(f.Rt), f.Rd, sel)
		}
		return fmt.Sprintf("%s %s, $%d", in.Mnemonic, regName(f.Rt), f.Rd)
	case FormatCount:
		return fmt.Sprintf("%s %s, %s", in.Mnemonic, regName(f.Rd), regName(f.Rs))
	case FormatBitfield:
		return fmt.Sprintf("%s %s, %s, %d, %d", in.Mnemonic, regName(f.Rt), regName(f.Rs), f.Sa, f.Rd+1)
	}

	// reserved or unimplemented encodings
	return fmt.Sprintf("%s 0x%08x", in.Mnemonic, word)
}

func branchTarget(pc uint32, f Fields) uint32 {
	return pc + 4 + uint32(f.SImm<<2)
}
