package emulator

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
)

func TestStandaloneConsoleSession(t *testing.T) {
	program := assembler.Assemble(`
		addiu $1, $0, 72
		sb $1, -32768($0)
		addiu $1, $0, 105
		sb $1, -32768($0)
		sw $0, -32744($0)
	`)
	require.False(t, program.HasErrors())

	factory := func(console Console) (*EmulatorInstance, error) {
		config := testConfig()
		config.Report = &bytes.Buffer{}
		config.Console = console
		inst, err := NewEmulator(config)
		if err != nil {
			return nil, err
		}
		return inst, inst.LoadImage(RoleBoot, 0, program.Bytes())
	}

	server := httptest.NewServer(NewStandaloneHandler(factory, quietLogger()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "run"}))

	var console strings.Builder
	var debug debugMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var raw map[string]interface{}
		require.NoError(t, conn.ReadJSON(&raw))

		switch raw["type"] {
		case "console":
			console.WriteString(raw["text"].(string))
		case "debug":
			debug.PC = uint32(raw["pc"].(float64))
			regs := raw["registers"].([]interface{})
			debug.Registers[1] = uint32(regs[1].(float64))
		case "result":
			require.Equal(t, "Hi", console.String())
			require.Equal(t, uint32(105), debug.Registers[1])
			require.Equal(t, uint32(VECTOR_RESET+0x14), debug.PC)
			require.Equal(t, float64(0), raw["errors"])
			require.Equal(t, "wakeup", raw["reason"])
			return
		}
	}
}

func TestStandalonePage(t *testing.T) {
	server := httptest.NewServer(NewStandaloneHandler(nil, quietLogger()))
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}
