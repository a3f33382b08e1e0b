package emulator

import (
	"fmt"
	"strings"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

// trap codes stored in cause[6:2]
const (
	TRAP_INTERRUPT   = 0
	TRAP_ADEL        = 4
	TRAP_ADES        = 5
	TRAP_SYSCALL     = 8
	TRAP_BREAK       = 9
	TRAP_RESERVED    = 10
	TRAP_COPROCESSOR = 11
)

// processTraps runs after the instruction effects are computed. Software
// traps have priority over a hardware interrupt raised in the same cycle.
func (inst *EmulatorInstance) processTraps() {
	cause := -1

	if inst.trapCause >= 0 {
		cause = inst.trapCause
	} else if inst.trace.irqCountdown == 0 {
		mask := (inst.status >> 10) & 0x3f
		inst.trace.irqCurrent = inst.trace.irqInputs & mask
		inst.trace.irqInputs = 0
		if inst.trace.irqCurrent != 0 && inst.status&1 != 0 {
			cause = TRAP_INTERRUPT
			inst.causeIP = inst.trace.irqCurrent & 0x3f
		}
		inst.trace.irqCountdown--
	} else if inst.trace.irqCountdown > 0 {
		inst.trace.irqCountdown--
	}

	if cause < 0 {
		return
	}

	inst.trapCause = cause
	// undo the victim instruction unless this is an interrupt
	if cause > 0 && inst.rollbackReg != 0 {
		inst.registers[inst.rollbackReg] = inst.rollbackValue
	}

	var bd uint32
	if inst.delaySlot {
		bd = 1
	}
	inst.cause = bd<<31 | (inst.causeIP&0x3f)<<10 | (uint32(cause)&0x1f)<<2
	inst.status |= SR_EXL

	epc := inst.opAddr + 4
	if inst.delaySlot {
		epc = inst.opAddr - 4
	}
	inst.epc = epc

	inst.pc = VECTOR_TRAP
	inst.pcNext = VECTOR_TRAP
	inst.skip = true
}

// reservedOpcode raises a reserved instruction trap, or only reports the
// encoding when trapping is disabled.
func (inst *EmulatorInstance) reservedOpcode(word uint32) {
	if inst.config.TrapOnReserved {
		inst.trapCause = TRAP_RESERVED
		return
	}

	slot := ' '
	if inst.delaySlot {
		slot = 'D'
	}
	inst.logger.Warnf("RESERVED OPCODE [0x%08x] = 0x%08x %c -- %s",
		inst.epcCandidate(), word, slot, opcodeFields(word))
}

func opcodeFields(word uint32) string {
	f := assembler.DecodeFields(word)
	fields := []string{
		fmt.Sprintf("%02x", f.Opcode),
		fmt.Sprintf("%02x", f.Rs),
		fmt.Sprintf("%02x", f.Rt),
		fmt.Sprintf("%02x", f.Rd),
		fmt.Sprintf("%02x", f.Sa),
		fmt.Sprintf("%02x", f.Funct),
	}
	return strings.Join(fields, ":")
}

// unimplemented reports a feature the simulator does not model. With
// StopOnUnimplemented the run is stopped and flagged as fatal.
func (inst *EmulatorInstance) unimplemented(what string) {
	inst.logger.Warnf("[%08x] UNIMPLEMENTED: %s", inst.epc, what)
	if inst.config.StopOnUnimplemented {
		inst.fatal = true
		inst.wakeup = true
	}
}
