package emulator

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func (inst *EmulatorInstance) logEnabled() bool {
	return inst.trace.log != nil && inst.trace.triggered
}

// triggerLog arms logging. The snapshot keeps the first logged cycle from
// reporting registers that changed before the trigger.
func (inst *EmulatorInstance) triggerLog() {
	inst.trace.triggered = true
	inst.trace.pr = inst.registers
	inst.trace.hi = inst.hi
	inst.trace.lo = inst.lo
	inst.trace.epc = inst.epc
}

// SetLogTrigger moves the trigger address. Logging that is already armed
// stays armed.
func (inst *EmulatorInstance) SetLogTrigger(addr uint32) {
	inst.trace.triggerAddress = addr
}

func (inst *EmulatorInstance) LogTriggered() bool {
	return inst.trace.triggered
}

func (inst *EmulatorInstance) logRead(addr, value uint32, size int) {
	if !inst.logEnabled() {
		return
	}
	fmt.Fprintf(inst.trace.log, "(%08x) [%08x] <%1d>=%08x RD\n", inst.opAddr, addr, size, value)
}

// writeLanes returns the byte enable mask of a write and the value as it
// appears on the data bus.
func writeLanes(addr uint32, size int, value uint32) (uint32, uint32) {
	b0 := value & 0x000000ff
	b1 := value & 0x0000ff00

	switch size {
	case 4:
		return 0x0f, value
	case 2:
		if addr&2 == 0 {
			return 0x0c, b1<<16 | b0<<16
		}
		return 0x03, b1 | b0
	}

	switch addr % 4 {
	case 0:
		return 0x8, b0 << 24
	case 1:
		return 0x4, b0 << 16
	case 2:
		return 0x2, b0 << 8
	}
	return 0x1, b0
}

func (inst *EmulatorInstance) logWrite(addr uint32, size int, value uint32, suffix string) {
	mask, dvalue := writeLanes(addr, size, value)
	fmt.Fprintf(inst.trace.log, "(%08X) [%08X] |%02X|=%08X WR%s\n", inst.opAddr, addr, mask, dvalue, suffix)
}

func (inst *EmulatorInstance) logFailedAssertions() {
	if inst.trace.log == nil {
		return
	}
	bitmap := inst.failedAssertions
	for i := 0; i < len(assertionMessages); i++ {
		if bitmap&1 != 0 {
			fmt.Fprintf(inst.trace.log, "ASSERTION FAILED: [%08x] %s\n", inst.faultyAddress, assertionMessages[i])
		}
		bitmap >>= 1
	}
}

// logCycle records jump targets and, when logging is armed, every register
// changed by the last instruction.
func (inst *EmulatorInstance) logCycle() {
	t := &inst.trace

	if inst.pc != t.lastPC+4 {
		t.buf[t.next] = inst.pc
		t.next = (t.next + 1) % TRACE_BUFFER_SIZE
	}
	t.lastPC = inst.pc

	if inst.logEnabled() {
		logPC := inst.opAddr
		// register zero never changes
		for i := 1; i < 32; i++ {
			if t.pr[i] != inst.registers[i] {
				fmt.Fprintf(t.log, "(%08x) [%02x]=%08x\n", logPC, i, inst.registers[i])
			}
		}
		if inst.config.LogHiLo && inst.hi != t.hi {
			fmt.Fprintf(t.log, "(%08x) [HI]=%08x\n", logPC, inst.hi)
		}
		if inst.config.LogHiLo && inst.lo != t.lo {
			fmt.Fprintf(t.log, "(%08x) [LO]=%08x\n", logPC, inst.lo)
		}
	}

	t.pr = inst.registers
	t.hi = inst.hi
	t.lo = inst.lo
	t.epc = inst.epc
	t.status = inst.status & STATUS_MASK
}

// TraceBuffer returns the last jump targets, oldest first. Unused entries
// hold 0xffffffff.
func (inst *EmulatorInstance) TraceBuffer() []uint32 {
	out := make([]uint32, TRACE_BUFFER_SIZE)
	for i := range out {
		out[i] = inst.trace.buf[(inst.trace.next+i)%TRACE_BUFFER_SIZE]
	}
	return out
}

func (inst *EmulatorInstance) DumpTraceBuffer(w io.Writer) {
	fmt.Fprintln(w, "Trace buffer (last jump targets, oldest first):")
	for i, addr := range inst.TraceBuffer() {
		fmt.Fprintf(w, "%08x ", addr)
		if i%8 == 7 {
			fmt.Fprintln(w)
		}
	}
}

// Call tracing

func (m *FunctionMap) index(addr uint32) int {
	if m == nil {
		return -1
	}
	for i, fn := range m.Functions {
		if fn.Address == addr {
			return i
		}
	}
	return -1
}

func (inst *EmulatorInstance) callTraceEnabled() bool {
	return inst.trace.functions != nil && len(inst.trace.functions.Functions) > 0 && inst.trace.callLog != nil
}

func (inst *EmulatorInstance) logCall(to, from uint32) {
	if !inst.callTraceEnabled() {
		return
	}
	i := inst.trace.functions.index(to)
	if i < 0 {
		return
	}
	inst.trace.callDepth++
	fmt.Fprintf(inst.trace.callLog, "[%08x]  %s%s{\n", from,
		strings.Repeat(". ", inst.trace.callDepth), inst.trace.functions.Functions[i].Name)
}

func (inst *EmulatorInstance) logRet(to, from uint32) {
	if !inst.callTraceEnabled() {
		return
	}
	t := &inst.trace
	if t.callDepth > 0 {
		fmt.Fprintf(t.callLog, "[%08x]  %s}\n", from, strings.Repeat(". ", t.callDepth))
		t.callDepth--
		return
	}
	if i := t.functions.index(to); i >= 0 {
		fmt.Fprintf(t.callLog, "[%08x]  %s\n", from, t.functions.Functions[i].Name)
	} else {
		fmt.Fprintf(t.callLog, "[%08x]  %08x\n", from, to)
	}
}

// ReadMapFile collects the function symbols of the .text section of a
// linker map file.
func ReadMapFile(r io.Reader) (*FunctionMap, error) {
	m := &FunctionMap{}
	inText := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ".text"):
			inText = true
		case strings.HasPrefix(line, " ") && inText:
			trimmed := strings.TrimLeft(line, " ")
			if !strings.HasPrefix(trimmed, "0") {
				continue
			}
			fields := strings.Fields(trimmed)
			if len(fields) < 2 {
				continue
			}
			addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 32)
			if err != nil {
				continue
			}
			m.Functions = append(m.Functions, Function{Address: uint32(addr), Name: fields[1]})
		case strings.HasPrefix(line, ".") && inText:
			return m, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading map file: %w", err)
	}
	return m, nil
}
