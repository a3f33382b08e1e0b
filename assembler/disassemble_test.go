package assembler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

func TestDecodeReserved(t *testing.T) {
	require.Equal(t, assembler.OpReserved, assembler.Decode(0xfc000000).Op)
	require.Equal(t, assembler.OpReserved, assembler.Decode(0x00000001).Op) // SPECIAL funct 1
	require.Equal(t, assembler.OpReserved, assembler.Decode(0x04140000).Op) // REGIMM rt 0x14

	mul := assembler.Decode(0x70000002)
	require.Equal(t, assembler.OpMUL, mul.Op)
	require.True(t, mul.MIPS32)
	require.Equal(t, assembler.DestRd, mul.Dest)

	require.Equal(t, assembler.OpCOP2, assembler.Decode(0x4a000000).Op)
}

func TestDecodeFields(t *testing.T) {
	f := assembler.DecodeFields(0x2442fffe)
	require.Equal(t, uint32(0x09), f.Opcode)
	require.Equal(t, uint32(2), f.Rs)
	require.Equal(t, uint32(2), f.Rt)
	require.Equal(t, uint32(0xfffe), f.Imm)
	require.Equal(t, int32(-2), f.SImm)
}

func TestDisassemble(t *testing.T) {
	require.Equal(t, "addiu $at, $zero, 5", assembler.Disassemble(0xbfc00000, 0x24010005))
	require.Equal(t, "bne $v0, $v1, 0xbfc00000", assembler.Disassemble(0xbfc00004, 0x1443fffe))
	require.Equal(t, "jal 0xbfc0000c", assembler.Disassemble(0xbfc00000, 0x0ff00003))
	require.Equal(t, "nop", assembler.Disassemble(0, 0))
	require.Equal(t, "mtc0 $at, $12", assembler.Disassemble(0, 0x40816000))
	require.Equal(t, "eret", assembler.Disassemble(0, 0x42000018))
	require.Equal(t, "? 0xfc000000", assembler.Disassemble(0, 0xfc000000))
}

func TestAssembleDisassembleRoundTrip(t *testing.T) {
	lines := []string{
		"sll $t0, $t1, 4",
		"srav $v0, $a0, $a1",
		"lw $ra, 20($sp)",
		"sb $a0, -1($t0)",
		"mult $a0, $a1",
		"mflo $v0",
		"jr $ra",
		"addu $v0, $a0, $a1",
		"ext $t0, $t1, 3, 5",
		"ins $t0, $t1, 8, 4",
		"clz $v0, $a0",
		"lui $at, 0x1234",
		"ori $at, $at, 0xff",
		"slti $t0, $t1, -7",
		"jalr $t9",
		"mfc2 $t0, $3",
		"syscall",
	}

	program := assembler.Assemble(strings.Join(lines, "\n"))
	require.False(t, program.HasErrors(), "%v", program.Diagnostics)
	require.Len(t, program.ProgramText, len(lines))

	for i, word := range program.ProgramText {
		require.Equal(t, lines[i], assembler.Disassemble(program.Origin+uint32(i*4), word))
	}
}
