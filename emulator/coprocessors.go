package emulator

import (
	"fmt"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

// COP0 register numbers
const (
	CP0_BADVADDR = 8
	CP0_COUNT    = 9
	CP0_COMPARE  = 11
	CP0_STATUS   = 12
	CP0_CAUSE    = 13
	CP0_EPC      = 14
	CP0_PRID     = 15
	CP0_CONFIG   = 16
	CP0_ERROREPC = 30
)

const CONFIG0_WRITABLE = 0x00030000

func (inst *EmulatorInstance) kernelMode() bool {
	return inst.status&0x16 != 0x10
}

func (inst *EmulatorInstance) executeCop0(in assembler.Instruction, f assembler.Fields, word uint32) {
	if !inst.kernelMode() {
		// coprocessor unusable
		inst.trapCause = TRAP_COPROCESSOR
		return
	}

	switch in.Op {
	case assembler.OpRFE:
		inst.unimplemented("RFE")
	case assembler.OpERET:
		inst.skip = false
		inst.eretDelaySlot = true
		inst.pcNext = inst.epc
		if inst.status&SR_ERL != 0 {
			inst.status &^= SR_ERL
		} else {
			inst.status &^= SR_EXL
		}
	case assembler.OpMFC0:
		inst.regWrite(f.Rt, inst.readCop0(f.Rd, word&7))
	case assembler.OpMTC0:
		inst.writeCop0(f.Rd, word&7, inst.regRead(f.Rt))
	default:
		inst.reservedOpcode(word)
	}
}

func (inst *EmulatorInstance) readCop0(reg, sel uint32) uint32 {
	switch reg {
	case CP0_BADVADDR, CP0_COUNT:
		return 0
	case CP0_COMPARE:
		return inst.compare
	case CP0_STATUS:
		return inst.status & STATUS_MASK
	case CP0_CAUSE:
		return inst.cause & CAUSE_MASK
	case CP0_EPC:
		return inst.epc
	case CP0_PRID:
		return CPU_ID
	case CP0_CONFIG:
		if sel == 0 {
			return inst.config0
		}
		return 0
	case CP0_ERROREPC:
		return inst.errorPC
	}

	inst.logger.WithFields(inst.memFields(inst.opAddr)).Warnf("mfc0 [%02d] unimplemented", reg)
	return 0
}

func (inst *EmulatorInstance) writeCop0(reg, sel, value uint32) {
	switch reg {
	case CP0_COMPARE:
		inst.compare = value
	case CP0_STATUS:
		// committed at the end of the cycle
		inst.statusPending = true
		inst.statusPendingValue = value
		if inst.logEnabled() {
			fmt.Fprintf(inst.trace.log, "(%08x) [01]=%08x\n", 0, value&STATUS_MASK)
		}
	case CP0_CAUSE:
		inst.cause = value & CAUSE_MASK
	case CP0_EPC:
		inst.epc = value
	case CP0_CONFIG:
		if sel == 0 {
			inst.config0 = inst.config0&^CONFIG0_WRITABLE | value&CONFIG0_WRITABLE
			return
		}
		inst.logger.Warnf("mtc0 [%2d.%2d]=0x%08x @ [0x%08x] IGNORED", reg, sel, value, inst.epcCandidate())
	case CP0_ERROREPC:
		inst.errorPC = value
	default:
		inst.logger.Warnf("mtc0 [%2d]=0x%08x @ [0x%08x] IGNORED", reg, value, inst.epcCandidate())
	}
}

// COP2 is a register file stub used to test the coprocessor interface.
func (inst *EmulatorInstance) executeCop2(in assembler.Instruction, f assembler.Fields, word uint32) {
	sel := word & 7

	switch in.Op {
	case assembler.OpMFC2:
		inst.regWrite(f.Rt, inst.cop2Get(f.Rd, false))
	case assembler.OpCFC2:
		inst.regWrite(f.Rt, inst.cop2Get(f.Rd, true))
	case assembler.OpMTC2:
		inst.cop2Set(f.Rd, false, sel<<29|inst.regRead(f.Rt)&0x1fffffff)
	case assembler.OpCTC2:
		inst.cop2Set(f.Rd, true, inst.regRead(f.Rt))
	default:
		inst.logger.Warnf("COP2 (%08x)", word)
		inst.unimplemented("COP2")
	}
}

func (inst *EmulatorInstance) cop2Get(reg uint32, control bool) uint32 {
	if control {
		reg += 32
	}
	return inst.cop2[reg&63]
}

func (inst *EmulatorInstance) cop2Set(reg uint32, control bool, value uint32) {
	if control {
		reg += 32
	}
	inst.cop2[reg&63] = value
}

func (inst *EmulatorInstance) GetCop2Registers() [64]uint32 {
	return inst.cop2
}
