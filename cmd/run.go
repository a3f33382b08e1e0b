package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/debugServer"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/util"
)

var runFlags simulatorFlags
var runLimit uint64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a program",
	Long: `Loads the object files into the simulated memory and runs them. With
--noprompt the program runs in batch mode until it stops itself, otherwise a
debugger session is served on stdin and stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := runFlags.config(cmd)
		if err != nil {
			return err
		}

		if !config.NoPrompt {
			debugServer.ListenAndServe(factory(config), util.Component("debugServer"))
			return nil
		}
		return runBatch(config)
	},
}

func init() {
	addSimulatorFlags(runCmd, &runFlags)
	runCmd.Flags().Uint64Var(&runLimit, "limit", 0, "stop after this many instructions, 0 for no limit")
	rootCmd.AddCommand(runCmd)
}

func runBatch(config emulator.Config) error {
	var files sinks
	defer files.Close()
	if err := files.open(&config); err != nil {
		return err
	}

	inst, err := newSimulator(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reason := inst.Run(ctx, runLimit)
	pc := inst.GetPC()
	if err := inst.Close(); err != nil {
		return withExitCode(exitFailure, fmt.Errorf("flushing logs: %w", err))
	}

	util.Logger.WithFields(logrus.Fields{
		"reason":       reason.String(),
		"pc":           fmt.Sprintf("%08x", pc),
		"instructions": inst.GetInstructionCounter(),
	}).Info("simulation stopped")

	switch reason {
	case emulator.StopFatal:
		inst.DumpTraceBuffer(os.Stderr)
		return withExitCode(exitFailure, fmt.Errorf("simulation aborted at %08x", pc))
	case emulator.StopBreakpoint:
		fmt.Fprintf(os.Stderr, "Breakpoint at %08x\n", pc)
		inst.DumpTraceBuffer(os.Stderr)
	case emulator.StopCancelled:
		fmt.Fprintln(os.Stderr, "Simulation interrupted.")
	case emulator.StopLimit:
		fmt.Fprintf(os.Stderr, "Instruction limit reached at %08x\n", pc)
	}
	return nil
}
