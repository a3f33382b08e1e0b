package debugServer

import "github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"

type InitializeResult struct {
	Name      string                 `json:"name"`
	MemoryMap []emulator.MemoryBlock `json:"memoryMap"`
	IOBase    uint32                 `json:"ioBase"`
	PC        uint32                 `json:"pc"`
}

type StepParams struct {
	Count int `json:"count"`
}

type ContinueParams struct {
	Limit uint64 `json:"limit"` // 0 runs until a stop condition
}

type ContinueResult struct {
	Running bool `json:"running"`
}

// CPUState is returned by step, pause and registers.
type CPUState struct {
	PC                 uint32     `json:"pc"`
	Registers          [32]uint32 `json:"registers"`
	Hi                 uint32     `json:"hi"`
	Lo                 uint32     `json:"lo"`
	Status             uint32     `json:"status"`
	Cause              uint32     `json:"cause"`
	EPC                uint32     `json:"epc"`
	InstructionCounter uint32     `json:"instructionCounter"`
	Reason             string     `json:"reason,omitempty"`
}

type ReadMemoryParams struct {
	Address uint32 `json:"address"`
	Count   int    `json:"count"`
}

type ReadMemoryResult struct {
	Address uint32 `json:"address"`
	Data    string `json:"data"` // hex
}

type DisassembleParams struct {
	Address uint32 `json:"address"`
	Count   int    `json:"count"`
}

type DisassembledInstruction struct {
	Address uint32 `json:"address"`
	Word    uint32 `json:"word"`
	Text    string `json:"text"`
}

type SetBreakpointParams struct {
	Address   uint32 `json:"address"`
	Condition string `json:"condition,omitempty"`
}

type EvaluateParams struct {
	Expression string `json:"expression"`
}

type EvaluateResult struct {
	Value string `json:"value"`
}

type InputParams struct {
	Text string `json:"text"`
}

// notifications

type OutputEvent struct {
	Text string `json:"text"`
}

type StoppedEvent struct {
	Reason     string `json:"reason"`
	PC         uint32 `json:"pc"`
	Errors     uint32 `json:"errors"`
	StopByProg bool   `json:"stopByProgram"`
}
