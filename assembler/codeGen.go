package assembler

func makeRTypeInstruction(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return (opcode << 26) | ((rs & 0x1F) << 21) | ((rt & 0x1F) << 16) | ((rd & 0x1F) << 11) | ((sa & 0x1F) << 6) | (funct & 0x3F)
}

func makeITypeInstruction(opcode, rs, rt, imm uint32) uint32 {
	return (opcode << 26) | ((rs & 0x1F) << 21) | ((rt & 0x1F) << 16) | (imm & 0xFFFF)
}

func makeJTypeInstruction(opcode, target uint32) uint32 {
	// expects target to be the absolute byte address
	return (opcode << 26) | ((target >> 2) & 0x3FFFFFF)
}

// Fields holds every bit field of an instruction word. Which fields are
// meaningful depends on the instruction format.
type Fields struct {
	Opcode uint32
	Rs     uint32
	Rt     uint32
	Rd     uint32
	Sa     uint32
	Funct  uint32
	Imm    uint32 // zero extended
	SImm   int32  // sign extended
	Target uint32 // 26-bit jump index
}

func DecodeFields(instruction uint32) Fields {
	return Fields{
		Opcode: instruction >> 26,
		Rs:     (instruction >> 21) & 0x1F,
		Rt:     (instruction >> 16) & 0x1F,
		Rd:     (instruction >> 11) & 0x1F,
		Sa:     (instruction >> 6) & 0x1F,
		Funct:  instruction & 0x3F,
		Imm:    instruction & 0xFFFF,
		SImm:   int32(int16(instruction & 0xFFFF)),
		Target: instruction & 0x3FFFFFF,
	}
}

func GetOpCode(instruction uint32) uint32 {
	return instruction >> 26
}

// opcode conversions
const (
	OPCODE_SPECIAL  = 0x00
	OPCODE_REGIMM   = 0x01
	OPCODE_COP0     = 0x10
	OPCODE_COP2     = 0x12
	OPCODE_SPECIAL2 = 0x1C
	OPCODE_SPECIAL3 = 0x1F
)

// Encode builds an instruction word from a descriptor and its operands.
// Operands not used by the descriptor's format are ignored.
func Encode(in Instruction, f Fields) uint32 {
	switch in.Class {
	case ClassSpecial:
		return makeRTypeInstruction(OPCODE_SPECIAL, f.Rs, f.Rt, f.Rd, f.Sa, in.Code)
	case ClassSpecial2:
		return makeRTypeInstruction(OPCODE_SPECIAL2, f.Rs, f.Rt, f.Rd, f.Sa, in.Code)
	case ClassSpecial3:
		return makeRTypeInstruction(OPCODE_SPECIAL3, f.Rs, f.Rt, f.Rd, f.Sa, in.Code)
	case ClassRegimm:
		return makeITypeInstruction(OPCODE_REGIMM, f.Rs, in.Code, f.Imm)
	case ClassCop0:
		return makeRTypeInstruction(OPCODE_COP0, in.Code, f.Rt, f.Rd, 0, f.Funct&0x7)
	case ClassCop0Function:
		return makeRTypeInstruction(OPCODE_COP0, 0x10, 0, 0, 0, in.Code)
	case ClassCop2:
		return makeRTypeInstruction(OPCODE_COP2, in.Code, f.Rt, f.Rd, 0, f.Funct&0x7)
	}

	if in.Format == FormatJump {
		return (in.Code << 26) | (f.Target & 0x3FFFFFF)
	}
	return makeITypeInstruction(in.Code, f.Rs, f.Rt, f.Imm)
}
