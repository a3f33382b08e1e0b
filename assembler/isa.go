package assembler

// Op identifies one legal MIPS32 encoding handled by the simulator. Every
// decoded word maps to exactly one Op; anything without a table entry is
// OpReserved.
type Op uint8

const (
	OpReserved Op = iota

	// SPECIAL
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpMOVZ
	OpMOVN
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpDADDU
	OpTRAP // TGE..TNE and TGEI..TNEI, decoded but never raised

	// REGIMM
	OpBLTZ
	OpBGEZ
	OpBLTZL
	OpBGEZL
	OpBLTZAL
	OpBGEZAL
	OpBLTZALL
	OpBGEZALL

	// primary
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSWR
	OpCACHE
	OpLL
	OpLWC2
	OpSC
	OpSWC2

	// coprocessors
	OpMFC0
	OpMTC0
	OpERET
	OpRFE
	OpCOP1
	OpMFC2
	OpCFC2
	OpMTC2
	OpCTC2
	OpCOP2
	OpCOP3

	// SPECIAL2 / SPECIAL3
	OpMADD
	OpMADDU
	OpMUL
	OpCLZ
	OpCLO
	OpEXT
	OpINS

	opCount
)

// Class is the selector table an instruction is decoded from.
type Class uint8

const (
	ClassPrimary Class = iota
	ClassSpecial
	ClassRegimm
	ClassCop0
	ClassCop0Function
	ClassCop2
	ClassSpecial2
	ClassSpecial3
)

// Format drives operand rendering in the disassembler and operand parsing in
// the assembler.
type Format uint8

const (
	FormatNone     Format = iota
	FormatRaw             // reserved encodings, fields dumped as-is
	FormatJump            // target
	FormatBranch2         // rs, rt, target
	FormatBranch1         // rs, target
	FormatShift           // rd, rt, sa
	FormatShiftV          // rd, rt, rs
	FormatImm             // rt, rs, imm
	FormatLui             // rt, imm
	FormatReg3            // rd, rs, rt
	FormatReg2            // rs, rt
	FormatRd              // rd
	FormatRs              // rs
	FormatJalr            // rd, rs
	FormatMem             // rt, offset(rs)
	FormatCop             // rt, $rd
	FormatCount           // rd, rs
	FormatBitfield        // rt, rs, pos, size
)

// Dest names the general register an instruction writes, so a trapping
// instruction can be rolled back.
type Dest uint8

const (
	DestNone Dest = iota
	DestRd
	DestRt
	DestRA
)

type Instruction struct {
	Op       Op
	Mnemonic string
	Format   Format
	Class    Class
	Code     uint32 // primary opcode, funct, or rt/rs selector depending on Class
	MIPS32   bool   // only legal with the MIPS32 extensions enabled
	Dest     Dest
}

var instructionSet = []Instruction{
	{OpSLL, "sll", FormatShift, ClassSpecial, 0x00, false, DestRd},
	{OpSRL, "srl", FormatShift, ClassSpecial, 0x02, false, DestRd},
	{OpSRA, "sra", FormatShift, ClassSpecial, 0x03, false, DestRd},
	{OpSLLV, "sllv", FormatShiftV, ClassSpecial, 0x04, false, DestRd},
	{OpSRLV, "srlv", FormatShiftV, ClassSpecial, 0x06, false, DestRd},
	{OpSRAV, "srav", FormatShiftV, ClassSpecial, 0x07, false, DestRd},
	{OpJR, "jr", FormatRs, ClassSpecial, 0x08, false, DestNone},
	{OpJALR, "jalr", FormatJalr, ClassSpecial, 0x09, false, DestRd},
	{OpMOVZ, "movz", FormatReg3, ClassSpecial, 0x0a, true, DestRd},
	{OpMOVN, "movn", FormatReg3, ClassSpecial, 0x0b, true, DestRd},
	{OpSYSCALL, "syscall", FormatNone, ClassSpecial, 0x0c, false, DestNone},
	{OpBREAK, "break", FormatNone, ClassSpecial, 0x0d, false, DestNone},
	{OpSYNC, "sync", FormatNone, ClassSpecial, 0x0f, false, DestNone},
	{OpMFHI, "mfhi", FormatRd, ClassSpecial, 0x10, false, DestRd},
	{OpMTHI, "mthi", FormatRs, ClassSpecial, 0x11, false, DestNone},
	{OpMFLO, "mflo", FormatRd, ClassSpecial, 0x12, false, DestRd},
	{OpMTLO, "mtlo", FormatRs, ClassSpecial, 0x13, false, DestNone},
	{OpMULT, "mult", FormatReg2, ClassSpecial, 0x18, false, DestNone},
	{OpMULTU, "multu", FormatReg2, ClassSpecial, 0x19, false, DestNone},
	{OpDIV, "div", FormatReg2, ClassSpecial, 0x1a, false, DestNone},
	{OpDIVU, "divu", FormatReg2, ClassSpecial, 0x1b, false, DestNone},
	{OpADD, "add", FormatReg3, ClassSpecial, 0x20, false, DestRd},
	{OpADDU, "addu", FormatReg3, ClassSpecial, 0x21, false, DestRd},
	{OpSUB, "sub", FormatReg3, ClassSpecial, 0x22, false, DestRd},
	{OpSUBU, "subu", FormatReg3, ClassSpecial, 0x23, false, DestRd},
	{OpAND, "and", FormatReg3, ClassSpecial, 0x24, false, DestRd},
	{OpOR, "or", FormatReg3, ClassSpecial, 0x25, false, DestRd},
	{OpXOR, "xor", FormatReg3, ClassSpecial, 0x26, false, DestRd},
	{OpNOR, "nor", FormatReg3, ClassSpecial, 0x27, false, DestRd},
	{OpSLT, "slt", FormatReg3, ClassSpecial, 0x2a, false, DestRd},
	{OpSLTU, "sltu", FormatReg3, ClassSpecial, 0x2b, false, DestRd},
	{OpDADDU, "daddu", FormatReg3, ClassSpecial, 0x2d, false, DestRd},
	{OpTRAP, "tge", FormatReg2, ClassSpecial, 0x30, false, DestNone},
	{OpTRAP, "tgeu", FormatReg2, ClassSpecial, 0x31, false, DestNone},
	{OpTRAP, "tlt", FormatReg2, ClassSpecial, 0x32, false, DestNone},
	{OpTRAP, "tltu", FormatReg2, ClassSpecial, 0x33, false, DestNone},
	{OpTRAP, "teq", FormatReg2, ClassSpecial, 0x34, false, DestNone},
	{OpTRAP, "tne", FormatReg2, ClassSpecial, 0x36, false, DestNone},

	{OpBLTZ, "bltz", FormatBranch1, ClassRegimm, 0x00, false, DestNone},
	{OpBGEZ, "bgez", FormatBranch1, ClassRegimm, 0x01, false, DestNone},
	{OpBLTZL, "bltzl", FormatBranch1, ClassRegimm, 0x02, false, DestNone},
	{OpBGEZL, "bgezl", FormatBranch1, ClassRegimm, 0x03, false, DestNone},
	{OpTRAP, "tgei", FormatBranch1, ClassRegimm, 0x08, false, DestNone},
	{OpTRAP, "tgeiu", FormatBranch1, ClassRegimm, 0x09, false, DestNone},
	{OpTRAP, "tlti", FormatBranch1, ClassRegimm, 0x0a, false, DestNone},
	{OpTRAP, "tltiu", FormatBranch1, ClassRegimm, 0x0b, false, DestNone},
	{OpTRAP, "teqi", FormatBranch1, ClassRegimm, 0x0c, false, DestNone},
	{OpTRAP, "tnei", FormatBranch1, ClassRegimm, 0x0e, false, DestNone},
	{OpBLTZAL, "bltzal", FormatBranch1, ClassRegimm, 0x10, false, DestRA},
	{OpBGEZAL, "bgezal", FormatBranch1, ClassRegimm, 0x11, false, DestRA},
	{OpBLTZALL, "bltzall", FormatBranch1, ClassRegimm, 0x12, false, DestRA},
	{OpBGEZALL, "bgezall", FormatBranch1, ClassRegimm, 0x13, false, DestRA},

	{OpJ, "j", FormatJump, ClassPrimary, 0x02, false, DestNone},
	{OpJAL, "jal", FormatJump, ClassPrimary, 0x03, false, DestRA},
	{OpBEQ, "beq", FormatBranch2, ClassPrimary, 0x04, false, DestNone},
	{OpBNE, "bne", FormatBranch2, ClassPrimary, 0x05, false, DestNone},
	{OpBLEZ, "blez", FormatBranch1, ClassPrimary, 0x06, false, DestNone},
	{OpBGTZ, "bgtz", FormatBranch1, ClassPrimary, 0x07, false, DestNone},
	{OpADDI, "addi", FormatImm, ClassPrimary, 0x08, false, DestRt},
	{OpADDIU, "addiu", FormatImm, ClassPrimary, 0x09, false, DestRt},
	{OpSLTI, "slti", FormatImm, ClassPrimary, 0x0a, false, DestRt},
	{OpSLTIU, "sltiu", FormatImm, ClassPrimary, 0x0b, false, DestRt},
	{OpANDI, "andi", FormatImm, ClassPrimary, 0x0c, false, DestRt},
	{OpORI, "ori", FormatImm, ClassPrimary, 0x0d, false, DestRt},
	{OpXORI, "xori", FormatImm, ClassPrimary, 0x0e, false, DestRt},
	{OpLUI, "lui", FormatLui, ClassPrimary, 0x0f, false, DestRt},
	{OpCOP1, "cop1", FormatRaw, ClassPrimary, 0x11, false, DestNone},
	{OpCOP3, "cop3", FormatRaw, ClassPrimary, 0x13, false, DestNone},
	{OpBEQL, "beql", FormatBranch2, ClassPrimary, 0x14, false, DestNone},
	{OpBNEL, "bnel", FormatBranch2, ClassPrimary, 0x15, false, DestNone},
	{OpBLEZL, "blezl", FormatBranch1, ClassPrimary, 0x16, false, DestNone},
	{OpBGTZL, "bgtzl", FormatBranch1, ClassPrimary, 0x17, false, DestNone},
	{OpLB, "lb", FormatMem, ClassPrimary, 0x20, false, DestRt},
	{OpLH, "lh", FormatMem, ClassPrimary, 0x21, false, DestRt},
	{OpLWL, "lwl", FormatMem, ClassPrimary, 0x22, false, DestRt},
	{OpLW, "lw", FormatMem, ClassPrimary, 0x23, false, DestRt},
	{OpLBU, "lbu", FormatMem, ClassPrimary, 0x24, false, DestRt},
	{OpLHU, "lhu", FormatMem, ClassPrimary, 0x25, false, DestRt},
	{OpLWR, "lwr", FormatMem, ClassPrimary, 0x26, false, DestRt},
	{OpSB, "sb", FormatMem, ClassPrimary, 0x28, false, DestNone},
	{OpSH, "sh", FormatMem, ClassPrimary, 0x29, false, DestNone},
	{OpSWL, "swl", FormatMem, ClassPrimary, 0x2a, false, DestNone},
	{OpSW, "sw", FormatMem, ClassPrimary, 0x2b, false, DestNone},
	{OpSWR, "swr", FormatMem, ClassPrimary, 0x2e, false, DestNone},
	{OpCACHE, "cache", FormatMem, ClassPrimary, 0x2f, false, DestNone},
	{OpLL, "ll", FormatMem, ClassPrimary, 0x30, false, DestRt},
	{OpLWC2, "lwc2", FormatMem, ClassPrimary, 0x32, false, DestNone},
	{OpSC, "sc", FormatMem, ClassPrimary, 0x38, false, DestRt},
	{OpSWC2, "swc2", FormatMem, ClassPrimary, 0x3a, false, DestNone},

	{OpMFC0, "mfc0", FormatCop, ClassCop0, 0x00, false, DestRt},
	{OpMTC0, "mtc0", FormatCop, ClassCop0, 0x04, false, DestNone},
	{OpRFE, "rfe", FormatNone, ClassCop0Function, 0x10, false, DestNone},
	{OpERET, "eret", FormatNone, ClassCop0Function, 0x18, false, DestNone},

	{OpMFC2, "mfc2", FormatCop, ClassCop2, 0x00, false, DestRt},
	{OpCFC2, "cfc2", FormatCop, ClassCop2, 0x02, false, DestRt},
	{OpMTC2, "mtc2", FormatCop, ClassCop2, 0x04, false, DestNone},
	{OpCTC2, "ctc2", FormatCop, ClassCop2, 0x06, false, DestNone},

	{OpMADD, "madd", FormatReg2, ClassSpecial2, 0x00, true, DestNone},
	{OpMADDU, "maddu", FormatReg2, ClassSpecial2, 0x01, true, DestNone},
	{OpMUL, "mul", FormatReg3, ClassSpecial2, 0x02, true, DestRd},
	{OpCLZ, "clz", FormatCount, ClassSpecial2, 0x20, true, DestRd},
	{OpCLO, "clo", FormatCount, ClassSpecial2, 0x21, true, DestRd},

	{OpEXT, "ext", FormatBitfield, ClassSpecial3, 0x00, true, DestRt},
	{OpINS, "ins", FormatBitfield, ClassSpecial3, 0x04, true, DestRt},
}

var (
	primaryTable      [64]Instruction
	specialTable      [64]Instruction
	regimmTable       [32]Instruction
	cop0Table         [32]Instruction
	cop0FunctionTable [64]Instruction
	cop2Table         [32]Instruction
	special2Table     [64]Instruction
	special3Table     [64]Instruction

	mnemonicTable = map[string]Instruction{}
)

func init() {
	reserved := func(class Class) Instruction {
		return Instruction{Op: OpReserved, Mnemonic: "?", Format: FormatRaw, Class: class}
	}
	for i := range primaryTable {
		primaryTable[i] = reserved(ClassPrimary)
		specialTable[i] = reserved(ClassSpecial)
		cop0FunctionTable[i] = reserved(ClassCop0Function)
		special2Table[i] = reserved(ClassSpecial2)
		special3Table[i] = reserved(ClassSpecial3)
	}
	for i := range regimmTable {
		regimmTable[i] = reserved(ClassRegimm)
		cop0Table[i] = reserved(ClassCop0)
		// any other COP2 function is decoded but not implemented
		cop2Table[i] = Instruction{Op: OpCOP2, Mnemonic: "cop2", Format: FormatRaw, Class: ClassCop2, Code: uint32(i)}
	}

	for _, in := range instructionSet {
		switch in.Class {
		case ClassPrimary:
			primaryTable[in.Code] = in
		case ClassSpecial:
			specialTable[in.Code] = in
		case ClassRegimm:
			regimmTable[in.Code] = in
		case ClassCop0:
			cop0Table[in.Code] = in
		case ClassCop0Function:
			cop0FunctionTable[in.Code] = in
		case ClassCop2:
			cop2Table[in.Code] = in
		case ClassSpecial2:
			special2Table[in.Code] = in
		case ClassSpecial3:
			special3Table[in.Code] = in
		}
		if _, ok := mnemonicTable[in.Mnemonic]; !ok {
			mnemonicTable[in.Mnemonic] = in
		}
	}
}

// Decode looks up the descriptor for a raw instruction word.
func Decode(word uint32) Instruction {
	switch word >> 26 {
	case OPCODE_SPECIAL:
		return specialTable[word&0x3f]
	case OPCODE_REGIMM:
		return regimmTable[(word>>16)&0x1f]
	case OPCODE_COP0:
		rs := (word >> 21) & 0x1f
		if rs&0x10 != 0 {
			return cop0FunctionTable[word&0x3f]
		}
		return cop0Table[rs]
	case OPCODE_COP2:
		return cop2Table[(word>>21)&0x1f]
	case OPCODE_SPECIAL2:
		return special2Table[word&0x3f]
	case OPCODE_SPECIAL3:
		return special3Table[word&0x3f]
	}
	return primaryTable[word>>26]
}

// Lookup returns the descriptor for an assembler mnemonic.
func Lookup(mnemonic string) (Instruction, bool) {
	in, ok := mnemonicTable[mnemonic]
	return in, ok
}

func (op Op) String() string {
	for _, in := range instructionSet {
		if in.Op == op {
			return in.Mnemonic
		}
	}
	if op == OpCOP2 {
		return "cop2"
	}
	return "reserved"
}
