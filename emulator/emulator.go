package emulator

import (
	"context"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

type StopReason int

const (
	StopNone StopReason = iota
	StopWakeup
	StopBreakpoint
	StopLimit
	StopCancelled
	StopFatal
)

func (r StopReason) String() string {
	switch r {
	case StopWakeup:
		return "wakeup"
	case StopBreakpoint:
		return "breakpoint"
	case StopLimit:
		return "limit"
	case StopCancelled:
		return "cancelled"
	case StopFatal:
		return "fatal"
	}
	return "none"
}

func (inst *EmulatorInstance) regRead(reg uint32) uint32 {
	return inst.registers[reg&0x1f]
}

func (inst *EmulatorInstance) regWrite(reg uint32, value uint32) {
	if reg == 0 {
		// $zero is hardwired
		return
	}
	inst.registers[reg&0x1f] = value
}

// epcCandidate is the address after the victim instruction.
func (inst *EmulatorInstance) epcCandidate() uint32 {
	return inst.opAddr + 4
}

func destRegister(in assembler.Instruction, f assembler.Fields) uint32 {
	switch in.Dest {
	case assembler.DestRd:
		return f.Rd
	case assembler.DestRt:
		return f.Rt
	case assembler.DestRA:
		return 31
	}
	return 0
}

// Cycle simulates one instruction.
func (inst *EmulatorInstance) Cycle() {
	// the instruction counter stands in for a cycle counter
	inst.prescalerCounter++
	if inst.prescalerCounter == inst.config.TimerPrescaler-1 {
		inst.prescalerCounter = 0
		inst.instructionCounter++
	}
	inst.trapCause = -1
	inst.causeIP = 0

	word, _ := inst.Read(inst.pc, 4, false)
	in := assembler.Decode(word)
	f := assembler.DecodeFields(word)

	if inst.pc == inst.trace.triggerAddress {
		inst.triggerLog()
	}

	// a jump to itself is taken as the end of the program
	if inst.pc == inst.pcNext+4 {
		inst.logger.Infof("Endless loop at 0x%08x", inst.pc-4)
		inst.wakeup = true
	}
	inst.opAddr = inst.pc
	inst.pc = inst.pcNext
	inst.pcNext += 4

	// the instruction in the delay slot of ERET is not executed
	if inst.eretDelaySlot {
		inst.eretDelaySlot = false
		return
	}
	if inst.skip {
		inst.skip = false
		return
	}

	inst.branch = branchState{}
	inst.rollbackReg = destRegister(in, f)
	inst.rollbackValue = inst.registers[inst.rollbackReg]

	if in.MIPS32 && !inst.config.EnableMIPS32 {
		inst.reservedOpcode(word)
	} else {
		inst.execute(in, f, word)
	}

	br := inst.branch
	immShift := uint32(f.SImm<<2) - 4
	if br.taken && br.link {
		inst.logCall(inst.pcNext+immShift, inst.epcCandidate())
	}
	if br.taken {
		inst.pcNext += immShift
	}
	inst.pcNext &^= 3
	if br.likely {
		// annul the delay slot of a likely branch not taken
		inst.skip = true
	}

	if inst.failedAssertions != 0 {
		inst.logFailedAssertions()
		inst.failedAssertions = 0
	}

	inst.processTraps()
	inst.logCycle()

	// MTC0 to status becomes visible to the next instruction
	if inst.statusPending {
		inst.status = inst.statusPendingValue & STATUS_MASK
		inst.statusPending = false
	}

	inst.delaySlot = br.taken || br.jump
}

func (inst *EmulatorInstance) execute(in assembler.Instruction, f assembler.Fields, word uint32) {
	switch in.Class {
	case assembler.ClassSpecial:
		inst.executeSpecial(in, f, word)
	case assembler.ClassRegimm:
		inst.executeRegimm(in, f, word)
	case assembler.ClassCop0, assembler.ClassCop0Function:
		inst.executeCop0(in, f, word)
	case assembler.ClassCop2:
		inst.executeCop2(in, f, word)
	case assembler.ClassSpecial2:
		inst.executeSpecial2(in, f, word)
	case assembler.ClassSpecial3:
		inst.executeSpecial3(in, f, word)
	default:
		inst.executePrimary(in, f, word)
	}
}

func (inst *EmulatorInstance) executeSpecial(in assembler.Instruction, f assembler.Fields, word uint32) {
	rs := inst.regRead(f.Rs)
	rt := inst.regRead(f.Rt)

	switch in.Op {
	case assembler.OpSLL:
		inst.regWrite(f.Rd, rt<<f.Sa)
	case assembler.OpSRL:
		inst.regWrite(f.Rd, rt>>f.Sa)
	case assembler.OpSRA:
		inst.regWrite(f.Rd, uint32(int32(rt)>>f.Sa))
	case assembler.OpSLLV:
		inst.regWrite(f.Rd, rt<<(rs&0x1f))
	case assembler.OpSRLV:
		inst.regWrite(f.Rd, rt>>(rs&0x1f))
	case assembler.OpSRAV:
		inst.regWrite(f.Rd, uint32(int32(rt)>>(rs&0x1f)))
	case assembler.OpJR:
		if f.Rs == 31 {
			inst.logRet(rs, inst.epcCandidate())
		}
		inst.branch.jump = true
		inst.pcNext = rs
	case assembler.OpJALR:
		inst.branch.jump = true
		inst.regWrite(f.Rd, inst.pcNext)
		inst.pcNext = rs
		inst.logCall(inst.pcNext, inst.epcCandidate())
	case assembler.OpMOVZ:
		if rt == 0 {
			inst.regWrite(f.Rd, rs)
		}
	case assembler.OpMOVN:
		if rt != 0 {
			inst.regWrite(f.Rd, rs)
		}
	case assembler.OpSYSCALL:
		inst.trapCause = TRAP_SYSCALL
	case assembler.OpBREAK:
		inst.trapCause = TRAP_BREAK
	case assembler.OpSYNC:
		inst.wakeup = true
	case assembler.OpMFHI:
		inst.regWrite(f.Rd, inst.hi)
	case assembler.OpMTHI:
		inst.hi = rs
	case assembler.OpMFLO:
		inst.regWrite(f.Rd, inst.lo)
	case assembler.OpMTLO:
		inst.lo = rs
	case assembler.OpMULT:
		multSigned(rs, rt, &inst.hi, &inst.lo, false)
	case assembler.OpMULTU:
		multUnsigned(rs, rt, &inst.hi, &inst.lo, false)
	case assembler.OpDIV:
		if rt == 0 {
			inst.logger.WithFields(inst.memFields(inst.opAddr)).Warn("division by zero")
			return
		}
		inst.lo = uint32(int32(rs) / int32(rt))
		inst.hi = uint32(signedRem(int32(rs), int32(rt)))
	case assembler.OpDIVU:
		if rt == 0 {
			inst.logger.WithFields(inst.memFields(inst.opAddr)).Warn("division by zero")
			return
		}
		inst.lo = rs / rt
		inst.hi = rs % rt
	case assembler.OpADD, assembler.OpADDU, assembler.OpDADDU:
		inst.regWrite(f.Rd, rs+rt)
	case assembler.OpSUB, assembler.OpSUBU:
		inst.regWrite(f.Rd, rs-rt)
	case assembler.OpAND:
		inst.regWrite(f.Rd, rs&rt)
	case assembler.OpOR:
		inst.regWrite(f.Rd, rs|rt)
	case assembler.OpXOR:
		inst.regWrite(f.Rd, rs^rt)
	case assembler.OpNOR:
		inst.regWrite(f.Rd, ^(rs | rt))
	case assembler.OpSLT:
		inst.regWrite(f.Rd, boolToWord(int32(rs) < int32(rt)))
	case assembler.OpSLTU:
		inst.regWrite(f.Rd, boolToWord(rs < rt))
	case assembler.OpTRAP:
		// conditional traps are not raised by the core
	default:
		inst.reservedOpcode(word)
	}
}

func (inst *EmulatorInstance) executeRegimm(in assembler.Instruction, f assembler.Fields, word uint32) {
	rs := int32(inst.regRead(f.Rs))

	switch in.Op {
	case assembler.OpBLTZAL, assembler.OpBGEZAL, assembler.OpBLTZALL, assembler.OpBGEZALL:
		// link happens whether or not the branch is taken
		inst.regWrite(31, inst.pcNext)
		inst.branch.link = true
	}

	switch in.Op {
	case assembler.OpBLTZ, assembler.OpBLTZAL:
		inst.branch.taken = rs < 0
	case assembler.OpBGEZ, assembler.OpBGEZAL:
		inst.branch.taken = rs >= 0
	case assembler.OpBLTZL, assembler.OpBLTZALL:
		inst.likelyBranch(rs < 0)
	case assembler.OpBGEZL, assembler.OpBGEZALL:
		inst.likelyBranch(rs >= 0)
	case assembler.OpTRAP:
	default:
		inst.reservedOpcode(word)
	}
}

func (inst *EmulatorInstance) likelyBranch(cond bool) {
	inst.branch.taken = cond
	inst.branch.likely = !cond
}

func (inst *EmulatorInstance) executePrimary(in assembler.Instruction, f assembler.Fields, word uint32) {
	rs := inst.regRead(f.Rs)
	rt := inst.regRead(f.Rt)
	simm := uint32(f.SImm)
	addr := rs + simm

	switch in.Op {
	case assembler.OpJAL:
		target := (inst.pc & 0xf0000000) | f.Target<<2
		inst.regWrite(31, inst.pcNext)
		inst.logCall(target, inst.epcCandidate())
		inst.branch.jump = true
		inst.pcNext = target
	case assembler.OpJ:
		inst.branch.jump = true
		inst.pcNext = (inst.pc & 0xf0000000) | f.Target<<2
	case assembler.OpBEQ:
		inst.branch.taken = rs == rt
	case assembler.OpBNE:
		inst.branch.taken = rs != rt
	case assembler.OpBLEZ:
		inst.branch.taken = int32(rs) <= 0
	case assembler.OpBGTZ:
		inst.branch.taken = int32(rs) > 0
	case assembler.OpBEQL:
		inst.likelyBranch(rs == rt)
	case assembler.OpBNEL:
		inst.likelyBranch(rs != rt)
	case assembler.OpBLEZL:
		inst.likelyBranch(int32(rs) <= 0)
	case assembler.OpBGTZL:
		inst.likelyBranch(int32(rs) > 0)

	case assembler.OpADDI, assembler.OpADDIU:
		inst.regWrite(f.Rt, rs+simm)
	case assembler.OpSLTI:
		inst.regWrite(f.Rt, boolToWord(int32(rs) < f.SImm))
	case assembler.OpSLTIU:
		inst.regWrite(f.Rt, boolToWord(rs < simm))
	case assembler.OpANDI:
		inst.regWrite(f.Rt, rs&f.Imm)
	case assembler.OpORI:
		inst.regWrite(f.Rt, rs|f.Imm)
	case assembler.OpXORI:
		inst.regWrite(f.Rt, rs^f.Imm)
	case assembler.OpLUI:
		inst.regWrite(f.Rt, f.Imm<<16)

	case assembler.OpCOP1:
		inst.unimplemented("COP1")
	case assembler.OpCOP3:
		inst.unimplemented("COP3")

	case assembler.OpLB:
		v, _ := inst.Read(addr, 1, true)
		inst.startLoad(addr, f.Rt, uint32(int8(v)), 1)
	case assembler.OpLH:
		v, _ := inst.Read(addr, 2, true)
		inst.startLoad(addr, f.Rt, uint32(int16(v)), 2)
	case assembler.OpLW, assembler.OpLL:
		v, _ := inst.Read(addr, 4, true)
		inst.startLoad(addr, f.Rt, v, 4)
	case assembler.OpLBU:
		v, _ := inst.Read(addr, 1, true)
		inst.startLoad(addr, f.Rt, v&0xff, 1)
	case assembler.OpLHU:
		v, _ := inst.Read(addr, 2, true)
		inst.startLoad(addr, f.Rt, v&0xffff, 2)
	case assembler.OpLWL:
		inst.loadWordLeft(addr, f.Rt, word)
	case assembler.OpLWR:
		inst.loadWordRight(addr, f.Rt, word)
	case assembler.OpSB:
		inst.Write(addr, 1, rt, true)
	case assembler.OpSH:
		inst.Write(addr, 2, rt, true)
	case assembler.OpSW:
		inst.Write(addr, 4, rt, true)
	case assembler.OpSWL:
		inst.storeWordLeft(addr, rt, word)
	case assembler.OpSWR:
		inst.storeWordRight(addr, rt, word)
	case assembler.OpCACHE:
		// caches are not simulated
	case assembler.OpLWC2:
		v, _ := inst.Read(addr, 4, true)
		inst.logRead(addr, v, 4)
		inst.cop2Set(f.Rt, false, v)
	case assembler.OpSC:
		inst.Write(addr, 4, rt, true)
		inst.regWrite(f.Rt, 1)
	case assembler.OpSWC2:
		inst.Write(addr, 4, inst.cop2Get(f.Rt, false), true)
	default:
		inst.reservedOpcode(word)
		inst.unimplemented("???")
	}
}

func (inst *EmulatorInstance) executeSpecial2(in assembler.Instruction, f assembler.Fields, word uint32) {
	rs := inst.regRead(f.Rs)
	rt := inst.regRead(f.Rt)

	switch in.Op {
	case assembler.OpMADD:
		multSigned(rs, rt, &inst.hi, &inst.lo, true)
	case assembler.OpMADDU:
		multUnsigned(rs, rt, &inst.hi, &inst.lo, true)
	case assembler.OpMUL:
		inst.regWrite(f.Rd, rs*rt)
	case assembler.OpCLZ:
		inst.regWrite(f.Rd, countLeading(false, rs))
	case assembler.OpCLO:
		inst.regWrite(f.Rd, countLeading(true, rs))
	default:
		inst.reservedOpcode(word)
		inst.unimplemented("SPECIAL2")
	}
}

func (inst *EmulatorInstance) executeSpecial3(in assembler.Instruction, f assembler.Fields, word uint32) {
	if !inst.config.EnableMIPS32 {
		inst.reservedOpcode(word)
		return
	}

	switch in.Op {
	case assembler.OpEXT:
		inst.regWrite(f.Rt, extractBitfield(inst.regRead(f.Rs), word))
	case assembler.OpINS:
		inst.regWrite(f.Rt, insertBitfield(inst.regRead(f.Rt), inst.regRead(f.Rs), word))
	default:
		inst.reservedOpcode(word)
		inst.unimplemented("SPECIAL3")
	}
}

// startLoad commits a load. Load delay slots are not simulated.
func (inst *EmulatorInstance) startLoad(addr, rt, data uint32, size int) {
	inst.logRead(addr, data, size)
	inst.regWrite(rt, data)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Run executes cycles until the program wakes the simulator up, a
// breakpoint is reached, limit cycles have run (0 means no limit) or ctx is
// done. The first cycle never stops on a breakpoint so a run can resume
// from one. Once the program has written the stop-sim register the
// simulator stays stopped until Reset.
func (inst *EmulatorInstance) Run(ctx context.Context, limit uint64) StopReason {
	if inst.stop.Requested {
		return StopWakeup
	}
	inst.wakeup = false

	var n uint64
	for {
		if n > 0 && inst.atBreakpoint() {
			inst.logger.Infof("Stop: pc = 0x%08x", inst.pc)
			return StopBreakpoint
		}

		inst.Cycle()
		n++

		if inst.fatal {
			return StopFatal
		}
		if inst.wakeup {
			return StopWakeup
		}
		if limit > 0 && n >= limit {
			return StopLimit
		}
		if n%1024 == 0 {
			select {
			case <-ctx.Done():
				return StopCancelled
			default:
			}
		}
	}
}

// Step executes count cycles ignoring breakpoints.
func (inst *EmulatorInstance) Step(count int) StopReason {
	if inst.stop.Requested {
		return StopWakeup
	}
	inst.wakeup = false
	for i := 0; i < count; i++ {
		inst.Cycle()
		if inst.fatal {
			return StopFatal
		}
		if inst.wakeup {
			return StopWakeup
		}
	}
	return StopNone
}
