package emulator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	MemoryMap           string        `json:"memoryMap"`
	TrapOnReserved      bool          `json:"trapOnReserved"`
	StopOnUnimplemented bool          `json:"stopOnUnimplemented"`
	EnableMIPS32        bool          `json:"enableMips32"`
	TimerPrescaler      uint32        `json:"timerPrescaler"`
	StartAddress        uint32        `json:"startAddress"`
	Unaligned           bool          `json:"unaligned"`
	TrapOnUnaligned     bool          `json:"trapOnUnaligned"`
	Breakpoint          uint32        `json:"breakpoint"`
	LogTriggerAddress   uint32        `json:"logTriggerAddress"`
	LogFile             string        `json:"logFile"`
	LogHiLo             bool          `json:"logHiLo"` // RTL logs carry no HI/LO lines
	Binaries            []BinaryImage `json:"binaries"`
	MapFile             string        `json:"mapFile"`
	CallTraceFile       string        `json:"callTraceFile"`
	ConsoleOutFile      string        `json:"consoleOutFile"`
	NoPrompt            bool          `json:"noPrompt"`
	IOBase              uint32        `json:"ioBase"`

	// used instead of MemoryMap when set
	CustomMap *MemoryMap `json:"customMap,omitempty"`

	Console       Console       `json:"-"`
	LogSink       io.Writer     `json:"-"` // execution trace, nil disables logging
	CallTraceSink io.Writer     `json:"-"`
	Functions     *FunctionMap  `json:"-"`
	Logger        *logrus.Entry `json:"-"`
	Report        io.Writer     `json:"-"` // stop-sim report, stderr when nil
}

var memoryMaps = map[string]MemoryMap{
	"default": {
		Name: "default",
		Blocks: []MemoryBlock{
			{Start: VECTOR_RESET, Size: 0x00004000, Mask: 0xf8000000, Flags: MEM_READONLY, Role: RoleBoot, Name: "Code TCM"},
			{Start: 0xa0000000, Size: 0x00002000, Mask: 0xf8000000, Role: RoleData, Name: "Data TCM"},
			{Start: 0x80000000, Size: 0x00080000, Mask: 0xf8000000, Role: RoleXRAM, Name: "Cached RAM"},
			{Start: 0x90000000, Size: 0x00080000, Mask: 0xf8000000, Flags: MEM_TEST, Role: RoleTest, Name: "Cached test ROM"},
			{Start: 0x00000000, Size: 0x00040000, Mask: 0xf8000000, Role: RoleFlash, Name: "Cached FLASH"},
		},
	},
	"uclinux": {
		Name: "uclinux",
		Blocks: []MemoryBlock{
			{Start: VECTOR_RESET, Size: 0x00008000, Mask: 0xf8000000, Flags: MEM_READONLY, Role: RoleBoot, Name: "Code TCM"},
			{Start: 0x00000000, Size: 0x00002000, Mask: 0xf8000000, Role: RoleData, Name: "Data TCM"},
			{Start: 0x80000000, Size: 0x00800000, Mask: 0xf8000000, Role: RoleXRAM, Name: "XRAM0"},
			{Start: 0x10000000, Size: 0x00800000, Mask: 0xf8000000, Name: "XRAM1"},
			{Start: 0xb0000000, Size: 0x00100000, Mask: 0xf8000000, Role: RoleFlash, Name: "Flash"},
		},
	},
}

const UCLINUX_START_ADDRESS = 0x80002400

func DefaultConfig() Config {
	return Config{
		MemoryMap:         "default",
		TrapOnReserved:    true,
		EnableMIPS32:      true,
		TimerPrescaler:    DEFAULT_TIMER_PRESCALER,
		StartAddress:      VECTOR_RESET,
		Breakpoint:        0xffffffff,
		LogTriggerAddress: VECTOR_RESET,
		LogFile:           "sw_sim_log.txt",
		IOBase:            0xffff0000,
	}
}

// LoadConfigFile reads a JSON configuration on top of the defaults.
func LoadConfigFile(path string) (Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return config, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&config); err != nil {
		return config, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return config, nil
}

// MemoryMapByName returns a copy of one of the built in memory maps.
func MemoryMapByName(name string) (MemoryMap, bool) {
	m, ok := memoryMaps[name]
	if !ok {
		return MemoryMap{}, false
	}
	blocks := make([]MemoryBlock, len(m.Blocks))
	copy(blocks, m.Blocks)
	return MemoryMap{Name: m.Name, Blocks: blocks}, true
}

func NewEmulator(config Config) (*EmulatorInstance, error) {
	var memoryMap MemoryMap
	if config.CustomMap != nil {
		memoryMap = *config.CustomMap
	} else {
		var ok bool
		memoryMap, ok = MemoryMapByName(config.MemoryMap)
		if !ok {
			return nil, fmt.Errorf("unknown memory map %q", config.MemoryMap)
		}
	}

	if memoryMap.Name == "uclinux" {
		config.Unaligned = true
		config.StartAddress = UCLINUX_START_ADDRESS
	}
	if config.TimerPrescaler == 0 {
		config.TimerPrescaler = DEFAULT_TIMER_PRESCALER
	}
	if config.Report == nil {
		config.Report = os.Stderr
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	blocks := make([]MemoryBlock, len(memoryMap.Blocks))
	for i, b := range memoryMap.Blocks {
		if b.Size == 0 || b.Size%4 != 0 || b.Start%4 != 0 {
			return nil, fmt.Errorf("memory block %q is not word aligned", b.Name)
		}
		blocks[i] = b
		blocks[i].mem = make([]byte, b.Size)
	}

	inst := &EmulatorInstance{
		blocks:      blocks,
		config:      config,
		console:     config.Console,
		logger:      logger.WithField("component", "emulator"),
		breakpoints: map[uint32]*Breakpoint{},
	}
	if config.LogSink != nil {
		inst.trace.log = bufio.NewWriter(config.LogSink)
	}
	if config.CallTraceSink != nil {
		inst.trace.callLog = bufio.NewWriter(config.CallTraceSink)
	}
	inst.trace.functions = config.Functions
	inst.trace.triggerAddress = config.LogTriggerAddress

	inst.Reset()
	return inst, nil
}

func (inst *EmulatorInstance) Reset() {
	inst.registers = [32]uint32{}
	inst.hi = 0
	inst.lo = 0
	inst.cop2 = [64]uint32{}

	inst.cause = 0
	inst.epc = 0
	inst.compare = 0
	inst.errorPC = 0
	inst.config0 = CP0_CONFIG0
	inst.statusPending = false
	inst.status = SR_BEV | SR_ERL

	inst.pc = inst.config.StartAddress
	inst.pcNext = inst.pc + 4
	inst.opAddr = inst.pc
	inst.delaySlot = false
	inst.eretDelaySlot = false
	inst.skip = false
	inst.trapCause = -1
	inst.causeIP = 0

	inst.failedAssertions = 0
	inst.faultyAddress = 0
	inst.instructionCounter = 0
	inst.prescalerCounter = 0

	inst.wakeup = false
	inst.fatal = false
	inst.stop = StopReport{}

	inst.debugRegs = [4]uint32{}
	inst.gpio = 0
	inst.irqStatus = 0

	inst.trace.irqCountdown = -1
	inst.trace.irqInputs = 0
	inst.trace.irqCurrent = 0
	inst.trace.status = inst.status
	inst.trace.pr = inst.registers
	inst.trace.hi = 0
	inst.trace.lo = 0
	inst.trace.epc = 0
	inst.trace.triggered = false
	inst.trace.callDepth = 0
	for i := range inst.trace.buf {
		inst.trace.buf[i] = 0xffffffff
	}
	inst.trace.next = 0
	inst.trace.lastPC = inst.pc
}

// Close flushes the trace sinks and drops the memory buffers.
func (inst *EmulatorInstance) Close() error {
	var firstErr error
	if inst.trace.log != nil {
		firstErr = inst.trace.log.Flush()
	}
	if inst.trace.callLog != nil {
		if err := inst.trace.callLog.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if inst.lua != nil {
		inst.lua.Close()
		inst.lua = nil
	}
	for i := range inst.blocks {
		inst.blocks[i].mem = nil
	}
	return firstErr
}

func (inst *EmulatorInstance) GetPC() uint32 {
	return inst.pc
}

func (inst *EmulatorInstance) SetPC(pc uint32) {
	inst.pc = pc &^ 3
	inst.pcNext = inst.pc + 4
}

func (inst *EmulatorInstance) GetRegisters() [32]uint32 {
	return inst.registers
}

func (inst *EmulatorInstance) GetRegister(reg int) uint32 {
	return inst.registers[reg&0x1f]
}

func (inst *EmulatorInstance) SetRegister(reg int, value uint32) {
	inst.regWrite(uint32(reg), value)
}

func (inst *EmulatorInstance) GetHiLo() (uint32, uint32) {
	return inst.hi, inst.lo
}

func (inst *EmulatorInstance) GetStatus() uint32 {
	return inst.status
}

func (inst *EmulatorInstance) GetCause() uint32 {
	return inst.cause
}

func (inst *EmulatorInstance) GetEPC() uint32 {
	return inst.epc
}

func (inst *EmulatorInstance) GetInstructionCounter() uint32 {
	return inst.instructionCounter
}

func (inst *EmulatorInstance) GetStopReport() StopReport {
	return inst.stop
}

func (inst *EmulatorInstance) IsFatal() bool {
	return inst.fatal
}

func (inst *EmulatorInstance) IsAwake() bool {
	return inst.wakeup
}

func (inst *EmulatorInstance) GetConfig() Config {
	return inst.config
}

func (inst *EmulatorInstance) GetBlocks() []MemoryBlock {
	blocks := make([]MemoryBlock, len(inst.blocks))
	for i, b := range inst.blocks {
		blocks[i] = b
		blocks[i].mem = nil
	}
	return blocks
}

// SetConsole swaps the UART endpoint, used by servers that attach a
// console per session.
func (inst *EmulatorInstance) SetConsole(console Console) {
	inst.console = console
}
