package debugServer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/util"
)

const maxReadCount = 0x1000

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// ListenAndServe serves a single debugger over stdin and stdout.
func ListenAndServe(factory emulator.EmulatorFactory, logger *logrus.Entry) {
	<-Serve(context.Background(), stdrwc{}, factory, logger).DisconnectNotify()
}

// ListenAndServeTCP accepts debugger connections on addr, each with its own
// simulator.
func ListenAndServeTCP(addr string, factory emulator.EmulatorFactory, logger *logrus.Entry) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not bind to address %s: %w", addr, err)
	}
	defer lis.Close()

	logger.Infof("ION32 debug server: listening for TCP connections on %s", addr)

	connectionCount := 0
	for {
		conn, err := lis.Accept()
		if err != nil {
			return fmt.Errorf("failed to accept incoming connection: %w", err)
		}
		connectionCount++
		connectionID := connectionCount
		log := logger.WithField("connection", connectionID)
		log.Info("ION32 debug server: received incoming connection")

		rpcConn := Serve(context.Background(), conn, factory, log)
		go func() {
			<-rpcConn.DisconnectNotify()
			log.Info("ION32 debug server: connection closed")
		}()
	}
}

// Serve starts a JSON-RPC connection over rwc using the VSCode header
// framing.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, factory emulator.EmulatorFactory, logger *logrus.Entry) *jsonrpc2.Conn {
	h := &handler{session: &session{factory: factory, logger: logger}, logger: logger}
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), h)
	go func() {
		<-conn.DisconnectNotify()
		h.session.close()
	}()
	return conn
}

type handler struct {
	session *session
	logger  *logrus.Entry
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	util.LogF("ION32 debug server: received request: %s", req.Method)

	var result interface{}
	var err error

	switch req.Method {
	case "initialize":
		result, err = h.initialize(conn)
	case "step":
		result, err = h.step(req)
	case "continue":
		result, err = h.resume(req)
	case "pause":
		result, err = h.session.pause()
	case "registers":
		result, err = h.registers()
	case "readMemory":
		result, err = h.readMemory(req)
	case "disassemble":
		result, err = h.disassemble(req)
	case "setBreakpoint":
		result, err = h.setBreakpoint(req)
	case "clearBreakpoints":
		result, err = h.clearBreakpoints()
	case "breakpoints":
		result, err = h.breakpoints()
	case "evaluate":
		result, err = h.evaluate(req)
	case "input":
		result, err = h.input(req)
	case "traceBuffer":
		result, err = h.traceBuffer()
	case "reset":
		result, err = h.session.reset()

	// quitting
	case "shutdown", "exit":
		h.session.close()
		if !req.Notif {
			conn.Reply(ctx, req.ID, nil)
		}
		conn.Close()
		return
	default:
		err = &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	if req.Notif {
		if err != nil {
			h.logger.WithError(err).Warnf("notification %s failed", req.Method)
		}
		return
	}
	if err != nil {
		conn.ReplyWithError(ctx, req.ID, toRPCError(err))
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.logger.WithError(err).Debug("reply failed")
	}
}

func toRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "invalid parameters"}
	}
	return nil
}

func (h *handler) initialize(conn *jsonrpc2.Conn) (interface{}, error) {
	s := h.session
	s.onOutput = func(b byte) {
		conn.Notify(context.Background(), "output", OutputEvent{Text: string([]byte{b})})
	}
	s.onStop = func(event StoppedEvent) {
		conn.Notify(context.Background(), "stopped", event)
	}
	if err := s.start(); err != nil {
		return nil, err
	}

	inst, err := s.idle()
	if err != nil {
		return nil, err
	}
	defer s.release()
	return InitializeResult{
		Name:      "ION32",
		MemoryMap: inst.GetBlocks(),
		IOBase:    inst.GetConfig().IOBase,
		PC:        inst.GetPC(),
	}, nil
}

func (h *handler) step(req *jsonrpc2.Request) (interface{}, error) {
	params := StepParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	return h.session.step(params.Count)
}

func (h *handler) resume(req *jsonrpc2.Request) (interface{}, error) {
	params := ContinueParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if err := h.session.resume(params.Limit); err != nil {
		return nil, err
	}
	return ContinueResult{Running: true}, nil
}

func (h *handler) registers() (interface{}, error) {
	if _, err := h.session.idle(); err != nil {
		return nil, err
	}
	defer h.session.release()
	return h.session.state(emulator.StopNone), nil
}

func (h *handler) readMemory(req *jsonrpc2.Request) (interface{}, error) {
	params := ReadMemoryParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Count <= 0 || params.Count > maxReadCount {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("count must be between 1 and %d", maxReadCount)}
	}

	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()
	return ReadMemoryResult{
		Address: params.Address,
		Data:    hex.EncodeToString(inst.ReadMemory(params.Address, params.Count)),
	}, nil
}

func (h *handler) disassemble(req *jsonrpc2.Request) (interface{}, error) {
	params := DisassembleParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Count <= 0 || params.Count > maxReadCount/4 {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "bad instruction count"}
	}

	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()

	base := params.Address &^ 3
	data := inst.ReadMemory(base, params.Count*4)
	out := make([]DisassembledInstruction, params.Count)
	for i := range out {
		addr := base + uint32(i*4)
		b := data[i*4:]
		word := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		out[i] = DisassembledInstruction{Address: addr, Word: word, Text: assembler.Disassemble(addr, word)}
	}
	return out, nil
}

func (h *handler) setBreakpoint(req *jsonrpc2.Request) (interface{}, error) {
	params := SetBreakpointParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()

	bp, err := inst.AddBreakpoint(params.Address, params.Condition)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return bp, nil
}

func (h *handler) clearBreakpoints() (interface{}, error) {
	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()
	inst.RemoveAllBreakpoints()
	return nil, nil
}

func (h *handler) breakpoints() (interface{}, error) {
	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()
	return inst.GetBreakpoints(), nil
}

func (h *handler) evaluate(req *jsonrpc2.Request) (interface{}, error) {
	params := EvaluateParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()

	value, err := inst.EvaluateExpression(params.Expression)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return EvaluateResult{Value: value}, nil
}

func (h *handler) input(req *jsonrpc2.Request) (interface{}, error) {
	params := InputParams{}
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	return nil, h.session.sendInput(params.Text)
}

func (h *handler) traceBuffer() (interface{}, error) {
	inst, err := h.session.idle()
	if err != nil {
		return nil, err
	}
	defer h.session.release()
	return inst.TraceBuffer(), nil
}
