package emulator

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

type testBench struct {
	inst   *EmulatorInstance
	report *bytes.Buffer
	log    *bytes.Buffer
	uart   *bytes.Buffer
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testConfig() Config {
	config := DefaultConfig()
	config.Logger = quietLogger()
	return config
}

// newTestBench assembles source at the reset vector and loads it into the
// boot block.
func newTestBench(t *testing.T, source string, configure ...func(*Config)) *testBench {
	t.Helper()

	program := assembler.Assemble(source)
	require.False(t, program.HasErrors(), "%v", program.Diagnostics)

	tb := &testBench{
		report: &bytes.Buffer{},
		log:    &bytes.Buffer{},
		uart:   &bytes.Buffer{},
	}

	config := testConfig()
	config.Report = tb.report
	config.Console = NewStreamConsole(nil, tb.uart)
	config.LogSink = tb.log
	for _, fn := range configure {
		fn(&config)
	}

	inst, err := NewEmulator(config)
	require.NoError(t, err)
	require.NoError(t, inst.LoadImage(RoleBoot, program.Origin-VECTOR_RESET, program.Bytes()))

	tb.inst = inst
	return tb
}

// traceLog flushes and returns the execution log written so far.
func (tb *testBench) traceLog(t *testing.T) string {
	t.Helper()
	require.NoError(t, tb.inst.trace.log.Flush())
	return tb.log.String()
}
