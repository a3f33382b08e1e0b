package emulator

// LWL/LWR/SWL/SWR are only simulated with Config.Unaligned, which stands in
// for the trap handlers a real system would run.

var (
	lwlDisp = [4]uint32{0, 8, 16, 24}
	lwlMask = [4]uint32{0xffffffff, 0xffffff00, 0xffff0000, 0xff000000}
	lwrDisp = [4]uint32{24, 16, 8, 0}
	lwrMask = [4]uint32{0x000000ff, 0x0000ffff, 0x00ffffff, 0xffffffff}
)

func (inst *EmulatorInstance) unalignedDisabled(word uint32, name string) bool {
	if inst.config.Unaligned {
		return false
	}
	inst.reservedOpcode(word)
	inst.unimplemented(name)
	return true
}

func (inst *EmulatorInstance) loadWordLeft(addr, rt, word uint32) {
	if inst.unalignedDisabled(word, "LWL") {
		return
	}
	off := addr & 3
	data, _ := inst.Read(addr&^3, 4, false)
	data = (data << lwlDisp[off]) & lwlMask[off]
	inst.regWrite(rt, inst.regRead(rt)&^lwlMask[off]|data)
}

func (inst *EmulatorInstance) loadWordRight(addr, rt, word uint32) {
	if inst.unalignedDisabled(word, "LWR") {
		return
	}
	off := addr & 3
	data, _ := inst.Read(addr&^3, 4, false)
	data = (data >> lwrDisp[off]) & lwrMask[off]
	inst.regWrite(rt, inst.regRead(rt)&^lwrMask[off]|data)
}

// storeWordLeft writes the most significant bytes of value from addr up to
// the end of the word.
func (inst *EmulatorInstance) storeWordLeft(addr, value, word uint32) {
	if inst.unalignedDisabled(word, "SWL") {
		return
	}
	base := addr &^ 3
	for off := addr & 3; off < 4; off++ {
		inst.Write(base+off, 1, value>>24, false)
		value <<= 8
	}
}

// storeWordRight writes the least significant bytes of value from addr down
// to the start of the word.
func (inst *EmulatorInstance) storeWordRight(addr, value, word uint32) {
	if inst.unalignedDisabled(word, "SWR") {
		return
	}
	base := addr &^ 3
	for off := int(addr & 3); off >= 0; off-- {
		inst.Write(base+uint32(off), 1, value&0xff, false)
		value >>= 8
	}
}
