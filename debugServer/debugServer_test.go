package debugServer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
)

const testProgram = `
	addiu $3, $0, 10
	addiu $1, $0, 79
	sb $1, -32768($0)
	addiu $1, $0, 75
	sb $1, -32768($0)
loop: addiu $2, $2, 1
	bne $2, $3, loop
	nop
	sw $0, -32744($0)
`

type clientHandler struct {
	notifications chan *jsonrpc2.Request
}

func (h clientHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		h.notifications <- req
	}
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestClient(t *testing.T) (*jsonrpc2.Conn, chan *jsonrpc2.Request, []byte) {
	t.Helper()

	program := assembler.Assemble(testProgram)
	require.False(t, program.HasErrors(), "%v", program.Diagnostics)
	image := program.Bytes()

	factory := func(console emulator.Console) (*emulator.EmulatorInstance, error) {
		config := emulator.DefaultConfig()
		config.Logger = quietLogger()
		config.Report = io.Discard
		config.Console = console
		inst, err := emulator.NewEmulator(config)
		if err != nil {
			return nil, err
		}
		return inst, inst.LoadImage(emulator.RoleBoot, 0, image)
	}

	serverSide, clientSide := net.Pipe()
	Serve(context.Background(), serverSide, factory, quietLogger())

	notifications := make(chan *jsonrpc2.Request, 256)
	client := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		clientHandler{notifications: notifications})
	t.Cleanup(func() { client.Close() })

	return client, notifications, image
}

// waitStopped collects UART output until the next stopped notification.
func waitStopped(t *testing.T, notifications chan *jsonrpc2.Request) (StoppedEvent, string) {
	t.Helper()

	var output strings.Builder
	timeout := time.After(5 * time.Second)
	for {
		select {
		case req := <-notifications:
			switch req.Method {
			case "output":
				var event OutputEvent
				require.NoError(t, json.Unmarshal(*req.Params, &event))
				output.WriteString(event.Text)
			case "stopped":
				var event StoppedEvent
				require.NoError(t, json.Unmarshal(*req.Params, &event))
				return event, output.String()
			}
		case <-timeout:
			t.Fatal("timed out waiting for the simulator to stop")
		}
	}
}

func TestDebugSession(t *testing.T) {
	client, notifications, image := newTestClient(t)
	ctx := context.Background()

	var init InitializeResult
	require.NoError(t, client.Call(ctx, "initialize", nil, &init))
	require.Equal(t, "ION32", init.Name)
	require.Equal(t, uint32(emulator.VECTOR_RESET), init.PC)
	require.Len(t, init.MemoryMap, 5)

	var state CPUState
	require.NoError(t, client.Call(ctx, "step", StepParams{Count: 1}, &state))
	require.Equal(t, uint32(10), state.Registers[3])
	require.Equal(t, uint32(emulator.VECTOR_RESET+4), state.PC)

	var lines []DisassembledInstruction
	require.NoError(t, client.Call(ctx, "disassemble", DisassembleParams{Address: emulator.VECTOR_RESET, Count: 2}, &lines))
	require.Len(t, lines, 2)
	word := binary.BigEndian.Uint32(image)
	require.Equal(t, word, lines[0].Word)
	require.Equal(t, assembler.Disassemble(emulator.VECTOR_RESET, word), lines[0].Text)

	var memory ReadMemoryResult
	require.NoError(t, client.Call(ctx, "readMemory", ReadMemoryParams{Address: emulator.VECTOR_RESET, Count: 4}, &memory))
	require.Equal(t, "2403000a", memory.Data)

	var bp emulator.Breakpoint
	require.NoError(t, client.Call(ctx, "setBreakpoint", SetBreakpointParams{Address: 0xbfc00014, Condition: "reg(2) == 4"}, &bp))
	require.Equal(t, 1, bp.ID)

	var started ContinueResult
	require.NoError(t, client.Call(ctx, "continue", ContinueParams{}, &started))
	require.True(t, started.Running)

	stopped, output := waitStopped(t, notifications)
	require.Equal(t, "breakpoint", stopped.Reason)
	require.Equal(t, uint32(0xbfc00014), stopped.PC)
	require.Equal(t, "OK", output)

	require.NoError(t, client.Call(ctx, "registers", nil, &state))
	require.Equal(t, uint32(4), state.Registers[2])

	var value EvaluateResult
	require.NoError(t, client.Call(ctx, "evaluate", EvaluateParams{Expression: "reg(3) - reg(2)"}, &value))
	require.Equal(t, "0x00000006", value.Value)

	require.NoError(t, client.Call(ctx, "clearBreakpoints", nil, nil))
	require.NoError(t, client.Call(ctx, "continue", ContinueParams{}, &started))
	stopped, _ = waitStopped(t, notifications)
	require.Equal(t, "wakeup", stopped.Reason)
	require.True(t, stopped.StopByProg)
	require.Zero(t, stopped.Errors)

	var trace []uint32
	require.NoError(t, client.Call(ctx, "traceBuffer", nil, &trace))
	require.Len(t, trace, emulator.TRACE_BUFFER_SIZE)
	require.Equal(t, uint32(0xbfc00014), trace[len(trace)-1])

	require.NoError(t, client.Call(ctx, "reset", nil, &state))
	require.Equal(t, uint32(emulator.VECTOR_RESET), state.PC)
	require.Zero(t, state.Registers[2])
}

func TestDebugSessionErrors(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	err := client.Call(ctx, "registers", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")

	require.NoError(t, client.Call(ctx, "initialize", nil, nil))

	err = client.Call(ctx, "readMemory", ReadMemoryParams{Address: 0, Count: 0}, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)

	err = client.Call(ctx, "setBreakpoint", SetBreakpointParams{Address: 0xbfc00000, Condition: "reg(1) =="}, nil)
	require.Error(t, err)

	err = client.Call(ctx, "frobnicate", nil, nil)
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)

	require.NoError(t, client.Call(ctx, "shutdown", nil, nil))
}
