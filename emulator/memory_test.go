package emulator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemoryEmulator(t *testing.T, blocks ...MemoryBlock) *EmulatorInstance {
	t.Helper()
	config := testConfig()
	config.Report = &bytes.Buffer{}
	if len(blocks) > 0 {
		config.CustomMap = &MemoryMap{Name: "test", Blocks: blocks}
	}
	inst, err := NewEmulator(config)
	require.NoError(t, err)
	return inst
}

func TestFindBlock(t *testing.T) {
	blocks := memoryMaps["default"].Blocks

	i, ok := findBlock(blocks, 0xbfc00010)
	require.True(t, ok)
	require.Equal(t, "Code TCM", blocks[i].Name)

	i, ok = findBlock(blocks, 0x80001000)
	require.True(t, ok)
	require.Equal(t, RoleXRAM, blocks[i].Role)

	_, ok = findBlock(blocks, 0x40000000)
	require.False(t, ok)
}

func TestMemoryRoundTrip(t *testing.T) {
	inst := newMemoryEmulator(t)

	inst.Write(0x80000100, 4, 0x11223344, true)
	v, ok := inst.Read(0x80000100, 4, true)
	require.True(t, ok)
	require.Equal(t, uint32(0x11223344), v)

	// big-endian byte order
	v, _ = inst.Read(0x80000100, 1, true)
	require.Equal(t, uint32(0x11), v)
	v, _ = inst.Read(0x80000102, 2, true)
	require.Equal(t, uint32(0x3344), v)

	inst.Write(0x80000103, 1, 0xaa, true)
	v, _ = inst.Read(0x80000100, 4, true)
	require.Equal(t, uint32(0x112233aa), v)
	require.Zero(t, inst.failedAssertions)
}

func TestMisalignedWrite(t *testing.T) {
	inst := newMemoryEmulator(t)

	inst.Write(0x80000101, 4, 0xcafef00d, true)
	require.Equal(t, uint32(ASRT_UNALIGNED_WRITE), inst.failedAssertions)
	require.Equal(t, uint32(0x80000101), inst.faultyAddress)

	v, _ := inst.Read(0x80000100, 4, true)
	require.Equal(t, uint32(0xcafef00d), v)
	require.Equal(t, -1, inst.trapCause)
}

func TestMisalignedReadTraps(t *testing.T) {
	inst := newMemoryEmulator(t)
	inst.config.TrapOnUnaligned = true

	inst.Read(0x80000102, 4, true)
	require.Equal(t, uint32(ASRT_UNALIGNED_READ), inst.failedAssertions)
	require.Equal(t, TRAP_ADEL, inst.trapCause)
}

func TestMirroring(t *testing.T) {
	inst := newMemoryEmulator(t, MemoryBlock{Start: 0x80000000, Size: 0x2000, Mask: 0xf8000000, Name: "ram"})

	inst.Write(0x80000500, 4, 0xdeadbeef, true)
	v, ok := inst.Read(0x80002500, 4, true)
	require.True(t, ok)
	require.Equal(t, uint32(0xdeadbeef), v)
}

func TestReadOnlyAndUnmapped(t *testing.T) {
	inst := newMemoryEmulator(t)

	require.NoError(t, inst.LoadImage(RoleBoot, 0, []byte{1, 2, 3, 4}))
	inst.Write(0xbfc00000, 4, 0xffffffff, true)
	v, _ := inst.Read(0xbfc00000, 4, false)
	require.Equal(t, uint32(0x01020304), v)

	v, ok := inst.Read(0x40000000, 4, true)
	require.False(t, ok)
	require.Zero(t, v)
	inst.Write(0x40000000, 4, 1, true)
}

func TestTestPatternBlock(t *testing.T) {
	inst := newMemoryEmulator(t)

	v, _ := inst.Read(0x90001234, 4, true)
	require.Equal(t, uint32(0x12341234), v)
	v, _ = inst.Read(0x90001234, 1, true)
	require.Equal(t, uint32(0x34), v)
}

func TestTraceLogMemoryLines(t *testing.T) {
	var log bytes.Buffer
	config := testConfig()
	config.Report = &bytes.Buffer{}
	config.LogSink = &log
	inst, err := NewEmulator(config)
	require.NoError(t, err)

	inst.triggerLog()
	inst.opAddr = 0xbfc00010
	inst.Write(0x80000102, 2, 0x1234, true)
	inst.Write(0xbfc00000, 1, 0x55, true)
	inst.Write(0x40000000, 4, 0x1, true)
	inst.Read(0x40000000, 4, true)
	require.NoError(t, inst.Close())

	require.Equal(t, ""+
		"(BFC00010) [80000102] |03|=00001234 WR\n"+
		"(BFC00010) [BFC00000] |08|=55000000 WR\n"+
		"(BFC00010) [BFC00000] |08|=55000000 WR READ ONLY\n"+
		"(BFC00010) [40000000] |0F|=00000001 WR\n"+
		"(BFC00010) [40000000] |0F|=00000001 WR UNMAPPED\n"+
		"(BFC00010) [40000000] <**>=00000000 RD UNMAPPED\n",
		log.String())
}

func TestWriteLanes(t *testing.T) {
	tests := []struct {
		addr  uint32
		size  int
		value uint32
		mask  uint32
		bus   uint32
	}{
		{0x100, 4, 0x11223344, 0x0f, 0x11223344},
		{0x100, 2, 0x00003344, 0x0c, 0x33440000},
		{0x102, 2, 0x00003344, 0x03, 0x00003344},
		{0x100, 1, 0x44, 0x8, 0x44000000},
		{0x101, 1, 0x44, 0x4, 0x00440000},
		{0x102, 1, 0x44, 0x2, 0x00004400},
		{0x103, 1, 0x44, 0x1, 0x00000044},
	}

	for _, tt := range tests {
		mask, bus := writeLanes(tt.addr, tt.size, tt.value)
		require.Equal(t, tt.mask, mask, "addr 0x%x size %d", tt.addr, tt.size)
		require.Equal(t, tt.bus, bus, "addr 0x%x size %d", tt.addr, tt.size)
	}
}

func TestMMIORegisters(t *testing.T) {
	var uart bytes.Buffer
	var report bytes.Buffer
	config := testConfig()
	config.Report = &report
	config.Console = NewStreamConsole(bytes.NewBufferString("k"), &uart)
	inst, err := NewEmulator(config)
	require.NoError(t, err)

	inst.Write(0xffff8024, 4, 0x12345678, true)
	v, _ := inst.Read(0xffff8024, 4, true)
	require.Equal(t, uint32(0x12345678), v)
	require.Equal(t, uint32(0x12345678), inst.GetDebugRegisters()[1])

	inst.Write(0xffff0020, 4, 0x10000, true)
	v, _ = inst.Read(0xffff0020, 4, true)
	require.Equal(t, uint32(0x2901), v)

	v, _ = inst.Read(0xffff0004, 4, true)
	require.Equal(t, uint32(3), v)
	v, _ = inst.Read(IRQ_STATUS, 4, true)
	require.Equal(t, uint32(3), v)
	v, _ = inst.Read(IRQ_MASK, 4, true)
	require.Zero(t, v)

	inst.Write(0xffff8000, 1, 'A', true)
	v, _ = inst.Read(0xffff8000, 1, true)
	require.Equal(t, uint32('k'), v)
	require.Equal(t, "Ak", uart.String())

	inst.Write(0xffff8010, 4, 0x5, true)
	require.Equal(t, 3, inst.trace.irqCountdown)
	require.Equal(t, uint32(5), inst.trace.irqInputs)

	inst.Write(0xffff8018, 4, 0, true)
	require.True(t, inst.IsAwake())
	require.Equal(t, StopReport{Requested: true}, inst.GetStopReport())
	require.Equal(t, "Simulation terminated by program command.\n\nProgram reports SUCCESS -- no errors.\n\n", report.String())
}

func TestLoadImageBounds(t *testing.T) {
	inst := newMemoryEmulator(t)

	require.Error(t, inst.LoadImage(RoleData, 0x1ffe, []byte{1, 2, 3, 4}))
	require.Error(t, inst.LoadImage(BlockRole("nowhere"), 0, []byte{1}))
	require.NoError(t, inst.LoadImage(RoleXRAM, KERNEL_OFFSET, []byte{0xde, 0xad, 0xbe, 0xef}))

	v, _ := inst.Read(0x80000000+KERNEL_OFFSET, 4, false)
	require.Equal(t, uint32(0xdeadbeef), v)
	require.Equal(t, []byte{0xde, 0xad}, inst.ReadMemory(0x80000000+KERNEL_OFFSET, 2))
}

func TestWriteHexImage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteHexImage(&out, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, 3))
	require.Equal(t, "11223344\n55660000\n00000000\n", out.String())
}

func TestNewEmulatorRejectsBadMaps(t *testing.T) {
	config := testConfig()
	config.MemoryMap = "nonexistent"
	_, err := NewEmulator(config)
	require.Error(t, err)

	config = testConfig()
	config.CustomMap = &MemoryMap{Blocks: []MemoryBlock{{Start: 0, Size: 3, Mask: 0xf8000000}}}
	_, err = NewEmulator(config)
	require.Error(t, err)

	config = testConfig()
	config.MemoryMap = "uclinux"
	inst, err := NewEmulator(config)
	require.NoError(t, err)
	require.Equal(t, uint32(UCLINUX_START_ADDRESS), inst.GetPC())
	require.True(t, inst.GetConfig().Unaligned)
}
