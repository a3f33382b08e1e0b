package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// The simulator normally runs in batch mode from the command line. For
// interactive use it can host a web page on port 2035 that shows the UART
// console and forwards keystrokes to the program.

type consoleMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type debugMessage struct {
	Type      string     `json:"type"`
	PC        uint32     `json:"pc"`
	Registers [32]uint32 `json:"registers"`
	Hi        uint32     `json:"hi"`
	Lo        uint32     `json:"lo"`
}

type resultMessage struct {
	Type   string `json:"type"`
	Errors uint32 `json:"errors"`
	Reason string `json:"reason"`
}

type clientMessage struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	Limit uint64 `json:"limit,omitempty"`
}

// EmulatorFactory builds a fresh, loaded simulator for every run.
type EmulatorFactory func(console Console) (*EmulatorInstance, error)

type standaloneSession struct {
	conn    *websocket.Conn
	wsMutex sync.Mutex
	logger  *logrus.Entry

	runMutex sync.Mutex
	cancel   context.CancelFunc
	input    *io.PipeWriter
	done     chan struct{}
}

func (s *standaloneSession) send(v interface{}) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.WithError(err).Debug("websocket write failed")
	}
}

func (s *standaloneSession) run(factory EmulatorFactory, limit uint64) {
	s.stop()

	inputReader, inputWriter := io.Pipe()
	console := NewStreamConsole(inputReader, nil)
	console.OnWrite(func(b byte) {
		s.send(consoleMessage{Type: "console", Text: string(b)})
	})

	emulator, err := factory(console)
	if err != nil {
		s.send(consoleMessage{Type: "console", Text: fmt.Sprintf("Could not start the simulator: %v\n", err)})
		inputWriter.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.runMutex.Lock()
	s.cancel = cancel
	s.input = inputWriter
	s.done = done
	s.runMutex.Unlock()

	go func() {
		defer close(done)
		defer emulator.Close()

		reason := emulator.Run(ctx, limit)
		regs := emulator.GetRegisters()
		hi, lo := emulator.GetHiLo()
		s.send(debugMessage{Type: "debug", PC: emulator.GetPC(), Registers: regs, Hi: hi, Lo: lo})
		s.send(resultMessage{Type: "result", Errors: emulator.GetStopReport().Errors, Reason: reason.String()})
	}()
}

func (s *standaloneSession) keyboard(key string) {
	s.runMutex.Lock()
	input := s.input
	s.runMutex.Unlock()
	if input == nil {
		return
	}
	go input.Write([]byte(key))
}

func (s *standaloneSession) stop() {
	s.runMutex.Lock()
	cancel, input, done := s.cancel, s.input, s.done
	s.cancel, s.input, s.done = nil, nil, nil
	s.runMutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	// unblocks a pending UART read
	input.CloseWithError(io.EOF)
	<-done
}

// NewStandaloneHandler serves the console page and its websocket.
func NewStandaloneHandler(factory EmulatorFactory, logger *logrus.Entry) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		session := &standaloneSession{conn: conn, logger: logger}
		defer session.stop()

		for {
			_, messageBytes, err := conn.ReadMessage()
			if err != nil {
				logger.WithError(err).Debug("websocket closed")
				return
			}

			var message clientMessage
			if err := json.Unmarshal(messageBytes, &message); err != nil {
				logger.WithError(err).Warn("bad websocket message")
				return
			}

			switch message.Type {
			case "run":
				session.run(factory, message.Limit)
			case "stop":
				session.stop()
			case "keyboard":
				session.keyboard(message.Key)
			default:
				logger.Warnf("Unknown message type: %s", message.Type)
			}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler)
	mux.HandleFunc("/", handleGetPage)
	return mux
}

func RunStandaloneWebserver(addr string, factory EmulatorFactory, logger *logrus.Entry) error {
	logger.Infof("Connect to the simulator at http://localhost%s", addr)
	return http.ListenAndServe(addr, NewStandaloneHandler(factory, logger))
}

func handleGetPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(htmlPage))
}

var htmlPage = `<html>
<head>
	<title>ION32 Simulator</title>
</head>
<body style="background-color: #1E1E1E;">
	<h1 style="color: white; display: inline-block;">ION32 Simulator</h1>
	<button id="runButton" style="margin-left: 50px; height: 40px; width: 80px;">RUN</button>
	<button id="stopButton" style="margin-left: 10px; height: 40px; width: 80px;">STOP</button>
	<h2 style="color: white;">Console</h2>
	<div tabindex="0" style="width: 980px; padding: 10px; color: white; font-size: 1.2em; font-family: monospace; background-color: black; height: 300px; overflow-y: auto; border: 2px solid white;" id="console"></div>
	<h2 style="color: white;">Registers</h2>
	<pre style="color: white;" id="registers"></pre>

	<script>
		var socket = new WebSocket("ws://" + window.location.host + "/ws");
		var consoleText = "";

		function hex(v) {
			return ("00000000" + (v >>> 0).toString(16)).slice(-8);
		}

		socket.onmessage = function(event) {
			var data = JSON.parse(event.data);
			if (data.type == "console") {
				consoleText += data.text;
				document.getElementById("console").innerText = consoleText;
			} else if (data.type == "debug") {
				var text = "pc=" + hex(data.pc) + " hi=" + hex(data.hi) + " lo=" + hex(data.lo) + "\n";
				for (var i = 0; i < 32; i++) {
					text += hex(data.registers[i]) + (i % 8 == 7 ? "\n" : " ");
				}
				document.getElementById("registers").innerText = text;
			} else if (data.type == "result") {
				consoleText += "\n[" + data.reason + ", " + data.errors + " errors]\n";
				document.getElementById("console").innerText = consoleText;
			}
		};

		document.getElementById("console").onkeypress = function(event) {
			socket.send(JSON.stringify({type: "keyboard", key: event.key.length == 1 ? event.key : "\n"}));
		};

		document.getElementById("runButton").onclick = function() {
			consoleText = "";
			socket.send(JSON.stringify({type: "run"}));
		};

		document.getElementById("stopButton").onclick = function() {
			socket.send(JSON.stringify({type: "stop"}));
		};
	</script>
</body>
</html>`
