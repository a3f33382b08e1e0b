package emulator

import (
	"bufio"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

const (
	CPU_ID      = 0x00000200
	CP0_CONFIG0 = 0x80002400
	CP0_CONFIG1 = 0x80984C00

	VECTOR_RESET = 0xBFC00000
	VECTOR_TRAP  = 0xBFC00180

	SR_BEV = 1 << 22
	SR_ERL = 1 << 2
	SR_EXL = 1 << 1

	STATUS_MASK = 0x0040FF17
	CAUSE_MASK  = 0xB080FF7C

	DEFAULT_TIMER_PRESCALER = 50
	TRACE_BUFFER_SIZE       = 32
)

// failed assertion bits
const (
	ASRT_UNALIGNED_READ  = 1 << 0
	ASRT_UNALIGNED_WRITE = 1 << 1
)

var assertionMessages = [...]string{
	"Unaligned read",
	"Unaligned write",
}

// memory block flags
const (
	MEM_READONLY = 1 << 0
	MEM_TEST     = 1 << 1
)

// BlockRole tells the loader which block a program image belongs in.
type BlockRole string

const (
	RoleNone  BlockRole = ""
	RoleBoot  BlockRole = "boot"
	RoleData  BlockRole = "data"
	RoleXRAM  BlockRole = "xram"
	RoleFlash BlockRole = "flash"
	RoleTest  BlockRole = "test"
)

type MemoryBlock struct {
	Start uint32    `json:"start"`
	Size  uint32    `json:"size"`
	Mask  uint32    `json:"mask"`
	Flags uint32    `json:"flags"`
	Role  BlockRole `json:"role"`
	Name  string    `json:"name"`
	mem   []byte
}

type MemoryMap struct {
	Name   string        `json:"name"`
	Blocks []MemoryBlock `json:"blocks"`
}

type BinaryImage struct {
	Role   BlockRole `json:"role"`
	Path   string    `json:"path"`
	Offset uint32    `json:"offset"`
}

// Console is the far end of the simulated UART.
type Console interface {
	WriteByte(c byte) error
	ReadByte() (byte, error) // blocks until a character is available
}

// StopReport is filled in when the program writes the stop-sim register.
type StopReport struct {
	Requested bool   `json:"requested"`
	Errors    uint32 `json:"errors"`
}

type Function struct {
	Address uint32
	Name    string
}

// FunctionMap is the function table read from a linker map file.
type FunctionMap struct {
	Functions []Function
}

type TraceState struct {
	buf    [TRACE_BUFFER_SIZE]uint32 // last jump targets
	next   int
	lastPC uint32

	// previous cycle snapshot
	pr     [32]uint32
	hi     uint32
	lo     uint32
	epc    uint32
	status uint32

	triggerAddress uint32
	triggered      bool
	log            *bufio.Writer

	irqCountdown int
	irqInputs    uint32
	irqCurrent   uint32

	callDepth int
	functions *FunctionMap
	callLog   *bufio.Writer
}

type Breakpoint struct {
	ID        int    `json:"id"`
	Address   uint32 `json:"address"`
	Condition string `json:"condition,omitempty"`
	Hits      uint32 `json:"hits"`
	compiled  *lua.FunctionProto
}

// branchState collects the control flow outcome of one instruction.
type branchState struct {
	taken  bool // conditional branch taken, including likely forms
	likely bool // a likely branch was not taken
	link   bool
	jump   bool // unconditional transfer
}

type EmulatorInstance struct {
	registers [32]uint32
	pc        uint32
	pcNext    uint32
	hi        uint32
	lo        uint32
	opAddr    uint32 // address of the instruction being simulated

	// COP0
	status  uint32
	cause   uint32
	epc     uint32
	config0 uint32
	compare uint32
	errorPC uint32

	statusPending      bool
	statusPendingValue uint32

	// COP2: 32 data registers followed by 32 control registers
	cop2 [64]uint32

	delaySlot     bool
	eretDelaySlot bool
	skip          bool
	trapCause     int
	causeIP       uint32
	branch        branchState

	// destination register saved for rollback on a software trap
	rollbackReg   uint32
	rollbackValue uint32

	instructionCounter uint32
	prescalerCounter   uint32

	failedAssertions uint32
	faultyAddress    uint32

	wakeup bool
	fatal  bool
	stop   StopReport

	// peripherals
	debugRegs [4]uint32
	gpio      uint32
	irqStatus uint32
	console   Console

	blocks []MemoryBlock
	config Config
	trace  TraceState
	logger *logrus.Entry

	// debugging
	breakpoints    map[uint32]*Breakpoint
	nextBreakpoint int
	lua            *lua.LState
}
