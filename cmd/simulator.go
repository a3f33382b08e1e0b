package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/util"
)

// simulatorFlags are shared by every command that builds a simulator.
type simulatorFlags struct {
	configFile string
	memoryMap  string

	boot   string
	xram   string
	kernel string
	flash  string

	mapFile   string
	callTrace string
	conout    string
	logFile   string

	trigger    string
	breakpoint string
	start      string
	prescaler  uint32

	noTrap              bool
	noMIPS32            bool
	unaligned           bool
	trapUnaligned       bool
	noPrompt            bool
	stopOnUnimplemented bool
	logHiLo             bool
}

func addSimulatorFlags(cmd *cobra.Command, f *simulatorFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config", "", "JSON simulator configuration, flags override it")
	flags.StringVar(&f.memoryMap, "memory", "default", "emulated memory map (default, uclinux)")
	flags.StringVar(&f.boot, "bram", "", "boot BRAM initialization file")
	flags.StringVar(&f.xram, "xram", "", "XRAM initialization file")
	flags.StringVar(&f.kernel, "kernel", "", "XRAM initialization file for a uClinux kernel")
	flags.StringVar(&f.flash, "flash", "", "FLASH initialization file")
	flags.StringVar(&f.mapFile, "map", "", "map file used for call tracing")
	flags.StringVar(&f.callTrace, "trace_log", "", "call trace log file")
	flags.StringVar(&f.conout, "conout", "", "copy console output to this file")
	flags.StringVar(&f.logFile, "log", "sw_sim_log.txt", "execution log file, empty disables it")
	flags.StringVar(&f.trigger, "trigger", "bfc00000", "log trigger address (hex)")
	flags.StringVar(&f.breakpoint, "break", "ffffffff", "breakpoint address (hex)")
	flags.StringVar(&f.start, "start", "", "start here instead of at the reset vector (hex)")
	flags.Uint32Var(&f.prescaler, "prescaler", emulator.DEFAULT_TIMER_PRESCALER, "instructions per timer tick")
	flags.BoolVar(&f.noTrap, "notrap", false, "reserved opcodes are NOPs and don't trap")
	flags.BoolVar(&f.noMIPS32, "nomips32", false, "do not emulate any MIPS32 opcodes")
	flags.BoolVar(&f.unaligned, "unaligned", false, "implement unaligned load/store instructions")
	flags.BoolVar(&f.trapUnaligned, "trap_unaligned", false, "unaligned accesses raise address error traps")
	flags.BoolVar(&f.noPrompt, "noprompt", false, "run in batch mode")
	flags.BoolVar(&f.stopOnUnimplemented, "stop_on_unimplemented", false, "stop when executing an unimplemented opcode")
	flags.BoolVar(&f.logHiLo, "log_hilo", false, "log HI/LO changes in the execution log")
}

func parseHex(name, value string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(value), "0x"), 16, 32)
	if err != nil {
		return 0, withExitCode(exitUsage, fmt.Errorf("--%s: %q is not a hex number", name, value))
	}
	return uint32(v), nil
}

// config builds the simulator configuration from the config file and the
// flags that were given explicitly.
func (f *simulatorFlags) config(cmd *cobra.Command) (emulator.Config, error) {
	config := emulator.DefaultConfig()
	if f.configFile != "" {
		var err error
		config, err = emulator.LoadConfigFile(f.configFile)
		if err != nil {
			return config, withExitCode(exitNoInput, err)
		}
	}

	changed := func(name string) bool {
		return f.configFile == "" || cmd.Flags().Changed(name)
	}

	if changed("memory") {
		config.MemoryMap = f.memoryMap
	}
	if changed("log") {
		config.LogFile = f.logFile
	}
	if changed("map") && f.mapFile != "" {
		config.MapFile = f.mapFile
	}
	if changed("trace_log") && f.callTrace != "" {
		config.CallTraceFile = f.callTrace
	}
	if changed("conout") && f.conout != "" {
		config.ConsoleOutFile = f.conout
	}
	if changed("prescaler") {
		config.TimerPrescaler = f.prescaler
	}
	if cmd.Flags().Changed("notrap") {
		config.TrapOnReserved = !f.noTrap
	}
	if cmd.Flags().Changed("nomips32") {
		config.EnableMIPS32 = !f.noMIPS32
	}
	if cmd.Flags().Changed("unaligned") {
		config.Unaligned = f.unaligned
	}
	if cmd.Flags().Changed("trap_unaligned") {
		config.TrapOnUnaligned = f.trapUnaligned
	}
	if cmd.Flags().Changed("noprompt") {
		config.NoPrompt = f.noPrompt
	}
	if cmd.Flags().Changed("stop_on_unimplemented") {
		config.StopOnUnimplemented = f.stopOnUnimplemented
	}
	if cmd.Flags().Changed("log_hilo") {
		config.LogHiLo = f.logHiLo
	}

	for _, hex := range []struct {
		name   string
		value  string
		target *uint32
	}{
		{"trigger", f.trigger, &config.LogTriggerAddress},
		{"break", f.breakpoint, &config.Breakpoint},
		{"start", f.start, &config.StartAddress},
	} {
		if !changed(hex.name) || hex.value == "" {
			continue
		}
		v, err := parseHex(hex.name, hex.value)
		if err != nil {
			return config, err
		}
		*hex.target = v
	}

	images := []struct {
		path   string
		role   emulator.BlockRole
		offset uint32
	}{
		{f.boot, emulator.RoleBoot, 0},
		{f.xram, emulator.RoleXRAM, 0},
		{f.kernel, emulator.RoleXRAM, emulator.KERNEL_OFFSET},
		{f.flash, emulator.RoleFlash, 0},
	}
	for _, image := range images {
		if image.path != "" {
			config.Binaries = append(config.Binaries, emulator.BinaryImage{Role: image.role, Path: image.path, Offset: image.offset})
		}
	}
	if len(config.Binaries) == 0 {
		return config, withExitCode(exitUsage, fmt.Errorf("no binary object files to load, use --bram"))
	}

	if config.MapFile != "" {
		mapFile, err := os.Open(config.MapFile)
		if err != nil {
			return config, withExitCode(exitNoInput, err)
		}
		defer mapFile.Close()
		functions, err := emulator.ReadMapFile(mapFile)
		if err != nil {
			return config, withExitCode(exitNoInput, err)
		}
		config.Functions = functions
	}

	config.Logger = logrus.NewEntry(util.Logger)
	return config, nil
}

// newSimulator builds and loads a simulator, mapping failures to exit codes.
func newSimulator(config emulator.Config) (*emulator.EmulatorInstance, error) {
	inst, err := emulator.NewEmulator(config)
	if err != nil {
		return nil, withExitCode(exitCannotAlloc, fmt.Errorf("trouble allocating memory: %w", err))
	}
	if err := inst.LoadBinaries(); err != nil {
		inst.Close()
		return nil, withExitCode(exitNoInput, err)
	}
	return inst, nil
}

// factory builds one simulator per remote session. Sessions get no file
// sinks since several can be open at once.
func factory(config emulator.Config) emulator.EmulatorFactory {
	config.LogSink = nil
	config.CallTraceSink = nil
	config.Report = io.Discard
	return func(console emulator.Console) (*emulator.EmulatorInstance, error) {
		c := config
		c.Console = console
		return newSimulator(c)
	}
}

// sinks holds the files a batch run writes.
type sinks struct {
	files []*os.File
}

func (s *sinks) create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, withExitCode(exitNoInput, err)
	}
	s.files = append(s.files, f)
	return f, nil
}

func (s *sinks) Close() {
	for _, f := range s.files {
		f.Close()
	}
}

// open creates the log files named by config and attaches them.
func (s *sinks) open(config *emulator.Config) error {
	if config.LogFile != "" {
		f, err := s.create(config.LogFile)
		if err != nil {
			return err
		}
		config.LogSink = f
	}
	if config.CallTraceFile != "" {
		f, err := s.create(config.CallTraceFile)
		if err != nil {
			return err
		}
		config.CallTraceSink = f
	}

	var conout io.Writer
	if config.ConsoleOutFile != "" {
		f, err := s.create(config.ConsoleOutFile)
		if err != nil {
			return err
		}
		conout = f
	}
	config.Console = emulator.NewTerminalConsole(conout)
	return nil
}
