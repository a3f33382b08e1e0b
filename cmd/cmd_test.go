package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
)

func parseSimulatorFlags(t *testing.T, args ...string) (*cobra.Command, *simulatorFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := new(simulatorFlags)
	addSimulatorFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exit *exitError
	require.True(t, errors.As(err, &exit), "%v", err)
	require.Equal(t, code, exit.code)
}

func TestConfigFromFlags(t *testing.T) {
	cmd, f := parseSimulatorFlags(t, "--bram", "boot.bin", "--kernel", "vmlinux.bin", "--start", "0x80000000", "--notrap", "--noprompt")
	config, err := f.config(cmd)
	require.NoError(t, err)

	require.Equal(t, "default", config.MemoryMap)
	require.Equal(t, uint32(0x80000000), config.StartAddress)
	require.Equal(t, uint32(0xffffffff), config.Breakpoint)
	require.Equal(t, uint32(emulator.VECTOR_RESET), config.LogTriggerAddress)
	require.Equal(t, "sw_sim_log.txt", config.LogFile)
	require.False(t, config.TrapOnReserved)
	require.True(t, config.EnableMIPS32)
	require.True(t, config.NoPrompt)
	require.Equal(t, []emulator.BinaryImage{
		{Role: emulator.RoleBoot, Path: "boot.bin"},
		{Role: emulator.RoleXRAM, Path: "vmlinux.bin", Offset: emulator.KERNEL_OFFSET},
	}, config.Binaries)
	require.NotNil(t, config.Logger)
}

func TestConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"memoryMap": "uclinux",
		"logFile": "custom_log.txt",
		"binaries": [{"role": "boot", "path": "boot.bin"}]
	}`), 0644))

	cmd, f := parseSimulatorFlags(t, "--config", path, "--trigger", "80000000", "--nomips32", "--log_hilo")
	config, err := f.config(cmd)
	require.NoError(t, err)

	require.Equal(t, "uclinux", config.MemoryMap)
	require.Equal(t, "custom_log.txt", config.LogFile)
	require.Equal(t, uint32(0x80000000), config.LogTriggerAddress)
	require.False(t, config.EnableMIPS32)
	require.True(t, config.LogHiLo)
	require.Len(t, config.Binaries, 1)
}

func TestConfigErrors(t *testing.T) {
	cmd, f := parseSimulatorFlags(t)
	_, err := f.config(cmd)
	requireExitCode(t, err, exitUsage)

	cmd, f = parseSimulatorFlags(t, "--bram", "boot.bin", "--break", "zz")
	_, err = f.config(cmd)
	requireExitCode(t, err, exitUsage)

	cmd, f = parseSimulatorFlags(t, "--config", filepath.Join(t.TempDir(), "absent.json"))
	_, err = f.config(cmd)
	requireExitCode(t, err, exitNoInput)

	cmd, f = parseSimulatorFlags(t, "--bram", "boot.bin", "--map", filepath.Join(t.TempDir(), "absent.map"))
	_, err = f.config(cmd)
	requireExitCode(t, err, exitNoInput)
}

func TestNewSimulatorMissingImage(t *testing.T) {
	config := emulator.DefaultConfig()
	config.LogSink = nil
	config.Binaries = []emulator.BinaryImage{{Role: emulator.RoleBoot, Path: filepath.Join(t.TempDir(), "absent.bin")}}
	_, err := newSimulator(config)
	requireExitCode(t, err, exitNoInput)

	config.MemoryMap = "nonexistent"
	_, err = newSimulator(config)
	requireExitCode(t, err, exitCannotAlloc)
}

func TestAssembleCommand(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.s")
	output := filepath.Join(dir, "prog.bin")
	require.NoError(t, os.WriteFile(source, []byte("\taddiu $1, $0, 5\n\tsw $1, -32744($0)\n"), 0644))

	rootCmd.SetArgs([]string{"assemble", source, "-o", output})
	require.NoError(t, rootCmd.Execute())

	image, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, []byte{0x24, 0x01, 0x00, 0x05, 0xac, 0x01, 0x80, 0x18}, image)

	require.NoError(t, os.WriteFile(source, []byte("\tbogus $1\n"), 0644))
	rootCmd.SetArgs([]string{"assemble", source, "-o", output})
	requireExitCode(t, rootCmd.Execute(), exitFailure)
}
