package emulator

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStopSimulationReportsErrors(t *testing.T) {
	tb := newTestBench(t, `
		addiu $1, $0, 5
		sw $1, -32744($0)
	`)

	reason := tb.inst.Run(context.Background(), 0)
	require.Equal(t, StopWakeup, reason)
	require.Equal(t, StopReport{Requested: true, Errors: 5}, tb.inst.GetStopReport())
	require.Contains(t, tb.report.String(), "Program reports FAILURE -- 5 errors.")

	require.Equal(t, ""+
		"(bfc00000) [01]=00000005\n"+
		"(BFC00004) [FFFF8018] |0F|=00000005 WR\n",
		tb.traceLog(t))
}

func TestStopSimulationSuccess(t *testing.T) {
	tb := newTestBench(t, `
		sw $0, -32744($0)
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, StopReport{Requested: true}, tb.inst.GetStopReport())
	require.Contains(t, tb.report.String(), "Program reports SUCCESS -- no errors.")
}

func TestStoppedUntilReset(t *testing.T) {
	tb := newTestBench(t, `
		sw $0, -32744($0)
		addiu $2, $2, 1
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	counter := tb.inst.GetInstructionCounter()
	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, StopWakeup, tb.inst.Step(3))
	require.Equal(t, counter, tb.inst.GetInstructionCounter())
	require.Zero(t, tb.inst.GetRegister(2))

	tb.inst.Reset()
	require.False(t, tb.inst.GetStopReport().Requested)
	// the program runs again from the reset vector
	require.Equal(t, StopWakeup, tb.inst.Step(1))
	require.True(t, tb.inst.GetStopReport().Requested)
}

func TestRegisterZeroIsHardwired(t *testing.T) {
	tb := newTestBench(t, `
		addiu $0, $0, 7
		lui $0, 0x1234
	`)

	tb.inst.Step(2)
	require.Zero(t, tb.inst.GetRegister(0))
	require.Equal(t, uint32(VECTOR_RESET+8), tb.inst.GetPC())
}

func TestDelaySlotExecutesOnce(t *testing.T) {
	tb := newTestBench(t, `
		j target
		addiu $2, $2, 1
		addiu $2, $2, 10
	target: addiu $3, $0, 1
		sw $0, -32744($0)
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, uint32(1), tb.inst.GetRegister(2))
	require.Equal(t, uint32(1), tb.inst.GetRegister(3))
	require.Zero(t, tb.inst.GetPC()%4)
}

func TestLikelyBranches(t *testing.T) {
	tb := newTestBench(t, `
		addiu $1, $0, 1
		beql $0, $1, out
		addiu $2, $0, 7
		beql $0, $0, out
		addiu $3, $0, 9
		addiu $4, $0, 1
	out: sw $0, -32744($0)
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Zero(t, tb.inst.GetRegister(2), "delay slot of an untaken likely branch is annulled")
	require.Equal(t, uint32(9), tb.inst.GetRegister(3))
	require.Zero(t, tb.inst.GetRegister(4))
}

func TestEndlessLoopWakesUp(t *testing.T) {
	tb := newTestBench(t, `
	loop: j loop
		nop
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Zero(t, tb.inst.GetInstructionCounter())
	require.False(t, tb.inst.GetStopReport().Requested)
}

func TestLinkRegister(t *testing.T) {
	tb := newTestBench(t, `
		bgezal $0, func
		nop
		sw $0, -32744($0)
		nop
	func: jr $ra
		nop
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, uint32(VECTOR_RESET+8), tb.inst.GetRegister(31))
}

func TestMultiplyDivide(t *testing.T) {
	tb := newTestBench(t, `
		addiu $1, $0, -1
		lui $2, 0x8000
		mult $1, $2
		mfhi $3
		mflo $4
		multu $1, $1
		mfhi $5
		mflo $6
		addiu $7, $0, -7
		addiu $8, $0, 2
		div $7, $8
		mflo $9
		mfhi $10
		div $7, $0
		mflo $11
	`)

	tb.inst.Step(15)
	require.Equal(t, uint32(0), tb.inst.GetRegister(3))
	require.Equal(t, uint32(0x80000000), tb.inst.GetRegister(4))
	require.Equal(t, uint32(0xfffffffe), tb.inst.GetRegister(5))
	require.Equal(t, uint32(1), tb.inst.GetRegister(6))
	require.Equal(t, uint32(0xfffffffd), tb.inst.GetRegister(9))
	require.Equal(t, uint32(0xffffffff), tb.inst.GetRegister(10))
	// division by zero leaves HI and LO alone
	require.Equal(t, uint32(0xfffffffd), tb.inst.GetRegister(11))
}

func TestHiLoLogLines(t *testing.T) {
	source := `
		addiu $1, $0, 3
		addiu $2, $0, 5
		mult $1, $2
	`

	tb := newTestBench(t, source)
	tb.inst.Step(3)
	log := tb.traceLog(t)
	require.Contains(t, log, "(bfc00000) [01]=00000003\n")
	require.NotContains(t, log, "[LO]")

	tb = newTestBench(t, source, func(c *Config) { c.LogHiLo = true })
	tb.inst.Step(3)
	log = tb.traceLog(t)
	require.Contains(t, log, "(bfc00008) [LO]=0000000f\n")
	require.NotContains(t, log, "[HI]")
}

func TestMultiplyHelpers(t *testing.T) {
	var hi, lo uint32
	multUnsigned(0xffffffff, 0xffffffff, &hi, &lo, false)
	require.Equal(t, uint32(0xfffffffe), hi)
	require.Equal(t, uint32(1), lo)

	multUnsigned(0xffffffff, 1, &hi, &lo, true)
	require.Equal(t, uint32(0xffffffff), hi)
	require.Equal(t, uint32(0), lo)

	multSigned(0xffffffff, 0x80000000, &hi, &lo, false)
	require.Equal(t, uint32(0), hi)
	require.Equal(t, uint32(0x80000000), lo)

	multSigned(2, 3, &hi, &lo, true)
	require.Equal(t, uint32(0), hi)
	require.Equal(t, uint32(0x80000006), lo)

	require.Equal(t, int32(-1), signedRem(-7, 2))
	require.Equal(t, int32(1), signedRem(7, -2))

	require.Equal(t, uint32(32), countLeading(false, 0))
	require.Equal(t, uint32(3), countLeading(false, 0x10000000))
	require.Equal(t, uint32(4), countLeading(true, 0xf0000000))
}

func TestBitfields(t *testing.T) {
	// ext $1, $2, 4, 8: pos 4, size-1 7
	word := uint32(0x7c000000 | 2<<21 | 1<<16 | 7<<11 | 4<<6)
	require.Equal(t, uint32(0xbc), extractBitfield(0x12345bcd, word))
	require.Equal(t, uint32(0xfffffaaf), insertBitfield(0xffffffff, 0xaa, word))
}

func TestSetOnLessThanImmediate(t *testing.T) {
	tb := newTestBench(t, `
		addiu $1, $0, 5
		sltiu $2, $1, -1
		slti $3, $1, -1
		clz $4, $1
		ori $6, $0, 0x9000
		sltiu $7, $6, -32768
	`)

	tb.inst.Step(6)
	require.Equal(t, uint32(1), tb.inst.GetRegister(2))
	require.Equal(t, uint32(0), tb.inst.GetRegister(3))
	require.Equal(t, uint32(29), tb.inst.GetRegister(4))
	// the immediate is sign extended to 0xffff8000
	require.Equal(t, uint32(1), tb.inst.GetRegister(7))
}

func TestMIPS32Disabled(t *testing.T) {
	tb := newTestBench(t, `
		addiu $2, $0, 3
		mul $1, $2, $2
	`, func(c *Config) { c.EnableMIPS32 = false })

	tb.inst.Step(2)
	require.Zero(t, tb.inst.GetRegister(1))
	require.Equal(t, uint32(TRAP_RESERVED<<2), tb.inst.GetCause())
	require.Equal(t, uint32(VECTOR_TRAP), tb.inst.GetPC())
}

func TestSoftwareTrapBeatsInterrupt(t *testing.T) {
	tb := newTestBench(t, `
		.word 0xfc000000
	`)

	tb.inst.status = 0x0000fc01
	tb.inst.trace.irqCountdown = 0
	tb.inst.trace.irqInputs = 1

	tb.inst.Step(1)
	require.Equal(t, uint32(TRAP_RESERVED<<2), tb.inst.GetCause())
	require.Equal(t, uint32(VECTOR_RESET+4), tb.inst.GetEPC())
	require.Equal(t, 0, tb.inst.trace.irqCountdown)
	require.NotZero(t, tb.inst.GetStatus()&SR_EXL)
}

func TestHardwareInterrupt(t *testing.T) {
	tb := newTestBench(t, `
		li $1, 0xfc01
		mtc0 $1, $12
		addiu $2, $0, 1
		sw $2, -32752($0)
		nop
		nop
		nop
	`)

	tb.inst.Step(6)
	require.Zero(t, tb.inst.GetCause())

	tb.inst.Step(1)
	require.Equal(t, uint32(1<<10), tb.inst.GetCause())
	require.Equal(t, uint32(VECTOR_RESET+0x1c), tb.inst.GetEPC())
	require.Equal(t, uint32(VECTOR_TRAP), tb.inst.GetPC())
	require.Contains(t, tb.traceLog(t), "(00000000) [01]=0000fc01\n")
}

func TestTrapInDelaySlot(t *testing.T) {
	tb := newTestBench(t, `
		j target
		syscall
		target: nop
	`)

	tb.inst.Step(2)
	require.Equal(t, uint32(1<<31|TRAP_SYSCALL<<2), tb.inst.GetCause())
	require.Equal(t, uint32(VECTOR_RESET), tb.inst.GetEPC())
	require.Equal(t, uint32(VECTOR_TRAP), tb.inst.GetPC())
}

func TestInterruptNotTaken(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status uint32
	}{
		{"disabled", 0x0000fc00},
		{"masked", 0x00000001},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tb := newTestBench(t, `
				nop
				nop
			`)

			tb.inst.status = tc.status
			tb.inst.trace.irqCountdown = 0
			tb.inst.trace.irqInputs = 1

			tb.inst.Step(1)
			require.Zero(t, tb.inst.GetCause())
			require.Equal(t, uint32(VECTOR_RESET+4), tb.inst.GetPC())
			require.Zero(t, tb.inst.status&SR_EXL)
			require.Equal(t, -1, tb.inst.trace.irqCountdown)
			require.Zero(t, tb.inst.trace.irqInputs)
		})
	}
}

func TestSyscallRollsBackAndEretReturns(t *testing.T) {
	tb := newTestBench(t, `
		syscall
		addiu $5, $0, 1
		sw $0, -32744($0)
		.org 0xbfc00180
		eret
		addiu $2, $0, 1
	`)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, uint32(TRAP_SYSCALL<<2), tb.inst.GetCause())
	require.Equal(t, uint32(VECTOR_RESET+4), tb.inst.GetEPC())
	require.Zero(t, tb.inst.GetRegister(2), "eret delay slot is not executed")
	require.Equal(t, uint32(1), tb.inst.GetRegister(5))
	require.Zero(t, tb.inst.GetStatus()&SR_ERL)
}

func TestCop0UserModeTraps(t *testing.T) {
	tb := newTestBench(t, `
		mfc0 $2, $12
	`)

	tb.inst.status = 0x10
	tb.inst.SetRegister(2, 0x55)
	tb.inst.Step(1)
	require.Equal(t, uint32(TRAP_COPROCESSOR<<2), tb.inst.GetCause())
	require.Equal(t, uint32(0x55), tb.inst.GetRegister(2))
}

func TestStatusWriteIsLatched(t *testing.T) {
	tb := newTestBench(t, `
		li $1, 0xff01
		mtc0 $1, $12
		mfc0 $2, $12
		mfc0 $3, $15
	`)

	tb.inst.Step(2)
	require.Equal(t, uint32(0xff01), tb.inst.GetStatus())
	tb.inst.Step(2)
	require.Equal(t, uint32(0xff01), tb.inst.GetRegister(2))
	require.Equal(t, uint32(CPU_ID), tb.inst.GetRegister(3))
}

func TestEPCWrite(t *testing.T) {
	tb := newTestBench(t, `
		li $1, 0xbfc00040
		mtc0 $1, $14
		mfc0 $2, $14
	`)

	tb.inst.Step(4)
	require.Equal(t, uint32(0xbfc00040), tb.inst.GetEPC())
	require.Equal(t, uint32(0xbfc00040), tb.inst.GetRegister(2))
}

func TestReservedWithoutTrap(t *testing.T) {
	tb := newTestBench(t, `
		.word 0xfc000000
		sw $0, -32744($0)
	`, func(c *Config) { c.TrapOnReserved = false })

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Zero(t, tb.inst.GetCause())
	require.True(t, tb.inst.GetStopReport().Requested)
}

func TestStopOnUnimplemented(t *testing.T) {
	tb := newTestBench(t, `
		.word 0x44000000
		sw $0, -32744($0)
	`, func(c *Config) { c.StopOnUnimplemented = true })

	require.Equal(t, StopFatal, tb.inst.Run(context.Background(), 0))
	require.True(t, tb.inst.IsFatal())
	require.False(t, tb.inst.GetStopReport().Requested)
}

func TestUnalignedLoadsAndStores(t *testing.T) {
	tb := newTestBench(t, `
		lwl $1, 3($4)
		lwr $2, 0($4)
		swl $3, 6($4)
		swr $3, 9($4)
	`, func(c *Config) { c.Unaligned = true })

	for _, addr := range []uint32{0x80000000, 0x80000004, 0x80000008} {
		tb.inst.Write(addr, 4, 0xaabbccdd, false)
	}
	for reg := 1; reg <= 3; reg++ {
		tb.inst.SetRegister(reg, 0x11223344)
	}
	tb.inst.SetRegister(4, 0x80000000)

	tb.inst.Step(4)
	require.Equal(t, uint32(0xdd223344), tb.inst.GetRegister(1))
	require.Equal(t, uint32(0x112233aa), tb.inst.GetRegister(2))

	v, _ := tb.inst.Read(0x80000004, 4, false)
	require.Equal(t, uint32(0xaabb1122), v)
	v, _ = tb.inst.Read(0x80000008, 4, false)
	require.Equal(t, uint32(0x3344ccdd), v)
}

func TestUnalignedDisabledIsReserved(t *testing.T) {
	tb := newTestBench(t, `
		lwl $1, 3($4)
	`)

	tb.inst.SetRegister(1, 0x11223344)
	tb.inst.SetRegister(4, 0x80000000)
	tb.inst.Step(1)
	require.Equal(t, uint32(TRAP_RESERVED<<2), tb.inst.GetCause())
	require.Equal(t, uint32(0x11223344), tb.inst.GetRegister(1))
}

func TestCallTraceAndTraceBuffer(t *testing.T) {
	var calls bytes.Buffer
	tb := newTestBench(t, `
		jal func
		nop
		sw $0, -32744($0)
		nop
	func: jr $ra
		nop
	`, func(c *Config) {
		c.CallTraceSink = &calls
		c.Functions = &FunctionMap{Functions: []Function{{Address: 0xbfc00010, Name: "func"}}}
	})

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))

	trace := tb.inst.TraceBuffer()
	require.Len(t, trace, TRACE_BUFFER_SIZE)
	require.Equal(t, uint32(0xffffffff), trace[0])
	require.Equal(t, uint32(0xbfc00010), trace[TRACE_BUFFER_SIZE-2])
	require.Equal(t, uint32(0xbfc00008), trace[TRACE_BUFFER_SIZE-1])

	require.NoError(t, tb.inst.Close())
	require.Equal(t, "[bfc00004]  . func{\n[bfc00014]  . }\n", calls.String())
}

func TestReadMapFile(t *testing.T) {
	mapFile := `
Memory Configuration

.text           0xbfc00000      0x1a0
 *(.text)
 .text          0xbfc00000       0x40 start.o
                0xbfc00000                entry
                0xbfc00010                main
.data           0xa0000000       0x10
                0xa0000000                table
`
	m, err := ReadMapFile(bytes.NewBufferString(mapFile))
	require.NoError(t, err)
	require.Equal(t, []Function{
		{Address: 0xbfc00000, Name: "entry"},
		{Address: 0xbfc00010, Name: "main"},
	}, m.Functions)
}

func TestBreakpointsAndExpressions(t *testing.T) {
	tb := newTestBench(t, `
	loop: addiu $2, $2, 1
		bne $2, $3, loop
		nop
		sw $0, -32744($0)
	`)
	tb.inst.SetRegister(3, 5)

	bp, err := tb.inst.AddBreakpoint(0xbfc00000, "reg(2) == 3")
	require.NoError(t, err)
	require.Equal(t, 1, bp.ID)

	require.Equal(t, StopBreakpoint, tb.inst.Run(context.Background(), 0))
	require.Equal(t, uint32(3), tb.inst.GetRegister(2))
	require.Equal(t, uint32(0xbfc00000), tb.inst.GetPC())

	value, err := tb.inst.EvaluateExpression("reg(2) + 1")
	require.NoError(t, err)
	require.Equal(t, "0x00000004", value)

	require.Equal(t, StopWakeup, tb.inst.Run(context.Background(), 0))
	require.Equal(t, uint32(5), tb.inst.GetRegister(2))
	require.Equal(t, uint32(1), tb.inst.GetBreakpoints()[0].Hits)

	_, err = tb.inst.AddBreakpoint(0xbfc00004, "reg(2) ==")
	require.Error(t, err)
}

func TestRunLimitAndCancel(t *testing.T) {
	tb := newTestBench(t, `
	loop: addiu $2, $2, 1
		bne $2, $0, loop
		nop
	`)

	require.Equal(t, StopLimit, tb.inst.Run(context.Background(), 2))
	require.Equal(t, uint32(1), tb.inst.GetRegister(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, StopCancelled, tb.inst.Run(ctx, 0))
}
