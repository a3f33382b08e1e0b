package testbench

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
)

// Outcome is the result of simulating one test program.
type Outcome struct {
	Passed   bool
	Reason   emulator.StopReason
	Errors   int64 // last value written to stop-sim, -1 if none
	Mismatch string
	Console  string
	Output   string
	Log      []byte
}

func (conf *Config) emulatorConfig(tc TestCase, logger *logrus.Entry) (emulator.Config, error) {
	config := emulator.DefaultConfig()
	config.MemoryMap = conf.MemoryMap
	config.NoPrompt = true
	config.EnableMIPS32 = tc.MIPS32
	config.Logger = logger
	if tc.Trigger != 0 {
		config.LogTriggerAddress = tc.Trigger
	}

	config.Binaries = []emulator.BinaryImage{{Role: emulator.RoleBoot, Path: tc.Boot}}
	if tc.XRAM != "" {
		config.Binaries = append(config.Binaries, emulator.BinaryImage{Role: emulator.RoleXRAM, Path: tc.XRAM})
	}
	if tc.Flash != "" {
		config.Binaries = append(config.Binaries, emulator.BinaryImage{Role: emulator.RoleFlash, Path: tc.Flash})
	}

	if tc.MapFile != "" {
		f, err := os.Open(tc.MapFile)
		if err != nil {
			return config, fmt.Errorf("opening map file: %w", err)
		}
		defer f.Close()
		functions, err := emulator.ReadMapFile(f)
		if err != nil {
			return config, err
		}
		config.Functions = functions
	}
	return config, nil
}

// RunTest simulates one program in batch mode and evaluates its pass
// condition.
func (conf *Config) RunTest(ctx context.Context, tc TestCase, logger *logrus.Entry) (*Outcome, error) {
	logger = logger.WithField("test", tc.Name)

	config, err := conf.emulatorConfig(tc, logger)
	if err != nil {
		return nil, err
	}

	var execLog, console, report bytes.Buffer
	config.LogSink = &execLog
	config.Report = &report
	config.Console = emulator.NewStreamConsole(nil, &console)

	inst, err := emulator.NewEmulator(config)
	if err != nil {
		return nil, err
	}
	if err := inst.LoadBinaries(); err != nil {
		inst.Close()
		return nil, err
	}

	out := &Outcome{Reason: inst.Run(ctx, tc.CycleLimit)}
	if err := inst.Close(); err != nil {
		return nil, fmt.Errorf("flushing execution log: %w", err)
	}
	out.Log = execLog.Bytes()
	out.Console = console.String()

	var output strings.Builder
	fmt.Fprintf(&output, "Simulation stopped: %s\n", out.Reason)
	output.WriteString(report.String())

	out.Errors, err = EvalExecLog(bytes.NewReader(out.Log))
	if err != nil {
		return nil, err
	}

	out.Passed = out.Reason == emulator.StopWakeup
	if tc.checksExitCode() {
		switch {
		case out.Errors < 0:
			output.WriteString("SW did not write on TB register TB_MSG_REG, crash suspected.\n")
		case out.Errors > 0:
			fmt.Fprintf(&output, "SW reported %d errors.\n", out.Errors)
		default:
			output.WriteString("SW reported no errors.\n")
		}
		out.Passed = out.Passed && out.Errors == 0
	}

	if tc.ReferenceLog != "" {
		ref, err := os.Open(tc.ReferenceLog)
		if err != nil {
			return nil, fmt.Errorf("opening reference log: %w", err)
		}
		defer ref.Close()

		out.Mismatch, err = CompareExecLogs(ref, bytes.NewReader(out.Log), true)
		if err != nil {
			return nil, err
		}
		if out.Mismatch != "" {
			fmt.Fprintf(&output, "Exec log mismatch -- %s\n", out.Mismatch)
			out.Passed = false
		}
	}

	out.Output = output.String()
	return out, nil
}

// Run simulates every test, conf.Workers at a time, and collects the
// results. Results are saved when conf.ResultsPath is set.
func (conf *Config) Run(ctx context.Context, logger *logrus.Entry) (*Results, error) {
	outcomes := make([]*Outcome, len(conf.Tests))
	failures := make([]error, len(conf.Tests))

	workers := conf.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range conf.Tests {
		i := i
		g.Go(func() error {
			outcome, err := conf.RunTest(ctx, conf.Tests[i], logger)
			if err != nil {
				// a broken test does not stop the others
				failures[i] = err
				return nil
			}
			outcomes[i] = outcome
			return conf.saveLog(conf.Tests[i], outcome)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := CreateResults(conf.Name)
	for i, tc := range conf.Tests {
		result := CreateTestResult(tc.Name, tc.Points, tc.Visibility)
		if failures[i] != nil {
			result.OutputPrintLn(failures[i].Error())
			result.SetStatus(false)
			results.AddTest(result, 0)
			continue
		}

		outcome := outcomes[i]
		result.Output = outcome.Output
		if outcome.Console != "" {
			result.OutputPrintLn("Console output:")
			result.OutputPrintLn(outcome.Console)
		}
		result.SetStatus(outcome.Passed)
		score := 0
		if outcome.Passed {
			score = tc.Points
		}
		results.AddTest(result, score)
	}

	if conf.ResultsPath != "" {
		if err := results.Save(conf.ResultsPath); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (conf *Config) saveLog(tc TestCase, outcome *Outcome) error {
	if conf.ResultsPath == "" {
		return nil
	}
	if err := os.MkdirAll(conf.ResultsPath, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	path := filepath.Join(conf.ResultsPath, tc.Name+"_sw_sim_log.txt")
	if err := os.WriteFile(path, outcome.Log, 0644); err != nil {
		return fmt.Errorf("writing execution log: %w", err)
	}
	return nil
}
