package emulator

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// findBlock returns the index of the first block decoding addr.
func findBlock(blocks []MemoryBlock, addr uint32) (int, bool) {
	for i := range blocks {
		if addr&blocks[i].Mask == blocks[i].Start&blocks[i].Mask {
			return i, true
		}
	}
	return -1, false
}

func (b *MemoryBlock) offset(addr uint32) uint32 {
	return (addr - b.Start) % b.Size
}

func testPattern(addr uint32) uint32 {
	a := addr & 0xffff
	return a + (a << 16)
}

func truncate(value uint32, size int) uint32 {
	switch size {
	case 1:
		return value & 0xff
	case 2:
		return value & 0xffff
	}
	return value
}

func (inst *EmulatorInstance) memFields(addr uint32) logrus.Fields {
	return logrus.Fields{
		"pc":   fmt.Sprintf("0x%08x", inst.pc),
		"addr": fmt.Sprintf("0x%08x", addr),
	}
}

// alignAccess checks natural alignment and returns the address the access
// completes at.
func (inst *EmulatorInstance) alignAccess(addr uint32, size int, assertion uint32) uint32 {
	var aligned uint32
	switch size {
	case 4:
		aligned = addr &^ 3
	case 2:
		aligned = addr &^ 1
	default:
		return addr
	}
	if aligned == addr {
		return addr
	}

	inst.failedAssertions |= assertion
	inst.faultyAddress = addr
	if inst.config.TrapOnUnaligned {
		if assertion == ASRT_UNALIGNED_READ {
			inst.trapCause = TRAP_ADEL
		} else {
			inst.trapCause = TRAP_ADES
		}
	}
	return aligned
}

// Read performs a data or instruction read of size 1, 2 or 4 bytes. The
// second result is false for unmapped addresses, which read as zero.
func (inst *EmulatorInstance) Read(addr uint32, size int, log bool) (uint32, bool) {
	if value, ok := inst.mmioRead(addr); ok {
		return value, true
	}

	i, ok := findBlock(inst.blocks, addr)
	if !ok {
		inst.logger.WithFields(inst.memFields(addr)).Warn("MEM RD ERROR")
		// status bit 16 marks a cache line invalidation, which reads nothing
		if inst.logEnabled() && log && inst.status&(1<<16) == 0 {
			fmt.Fprintf(inst.trace.log, "(%08X) [%08X] <**>=%08X RD UNMAPPED\n", inst.opAddr, addr, 0)
		}
		return 0, false
	}

	block := &inst.blocks[i]
	if block.Flags&MEM_TEST != 0 {
		return truncate(testPattern(addr), size), true
	}

	addr = inst.alignAccess(addr, size, ASRT_UNALIGNED_READ)
	off := block.offset(addr)

	switch size {
	case 4:
		return binary.BigEndian.Uint32(block.mem[off:]), true
	case 2:
		return uint32(binary.BigEndian.Uint16(block.mem[off:])), true
	case 1:
		return uint32(block.mem[off]), true
	}

	inst.logger.WithFields(inst.memFields(addr)).Errorf("wrong memory read size %d", size)
	return 0, true
}

// Write stores the low size bytes of value. Writes to read-only or unmapped
// addresses are dropped.
func (inst *EmulatorInstance) Write(addr uint32, size int, value uint32, log bool) {
	if inst.logEnabled() {
		inst.logWrite(addr, size, value, "")
	}

	if inst.mmioWrite(addr, value) {
		return
	}

	i, ok := findBlock(inst.blocks, addr)
	if !ok {
		inst.logger.WithFields(inst.memFields(addr)).Warn("MEM WR ERROR")
		if inst.logEnabled() && log {
			inst.logWrite(addr, size, value, " UNMAPPED")
		}
		return
	}

	block := &inst.blocks[i]
	if block.Flags&MEM_READONLY != 0 {
		inst.logger.WithFields(inst.memFields(addr)).Warn("MEM WR READ ONLY")
		if inst.logEnabled() && log {
			inst.logWrite(addr, size, value, " READ ONLY")
		}
		return
	}
	if block.Flags&MEM_TEST != 0 {
		return
	}

	addr = inst.alignAccess(addr, size, ASRT_UNALIGNED_WRITE)
	off := block.offset(addr)

	switch size {
	case 4:
		binary.BigEndian.PutUint32(block.mem[off:], value)
	case 2:
		binary.BigEndian.PutUint16(block.mem[off:], uint16(value))
	case 1:
		block.mem[off] = byte(value)
	default:
		inst.logger.WithFields(inst.memFields(addr)).Errorf("wrong memory write size %d", size)
	}
}

// ReadMemory copies count bytes starting at addr without side effects on
// the simulated peripherals. Unmapped bytes read as zero.
func (inst *EmulatorInstance) ReadMemory(addr uint32, count int) []byte {
	data := make([]byte, count)
	for n := 0; n < count; n++ {
		a := addr + uint32(n)
		i, ok := findBlock(inst.blocks, a)
		if !ok {
			continue
		}
		block := &inst.blocks[i]
		if block.Flags&MEM_TEST != 0 {
			data[n] = byte(testPattern(a&^3) >> (8 * (3 - a&3)))
			continue
		}
		data[n] = block.mem[block.offset(a)]
	}
	return data
}
