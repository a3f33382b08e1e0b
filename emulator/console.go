package emulator

import (
	"bufio"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// TerminalConsole connects the UART to the controlling terminal. Reads put
// the terminal in raw mode for a single keystroke.
type TerminalConsole struct {
	in   *os.File
	out  io.Writer
	copy io.Writer
}

func NewTerminalConsole(copyTo io.Writer) *TerminalConsole {
	return &TerminalConsole{in: os.Stdin, out: os.Stdout, copy: copyTo}
}

func (c *TerminalConsole) WriteByte(b byte) error {
	if _, err := c.out.Write([]byte{b}); err != nil {
		return err
	}
	if c.copy != nil {
		_, err := c.copy.Write([]byte{b})
		return err
	}
	return nil
}

func (c *TerminalConsole) ReadByte() (byte, error) {
	fd := int(c.in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return 0, err
		}
		defer term.Restore(fd, state)
	}

	var buf [1]byte
	if _, err := io.ReadFull(c.in, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// StreamConsole feeds the UART from a reader and collects its output. It is
// used by batch runs, the test bench and the remote front ends.
type StreamConsole struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	onWrite func(byte)
}

func NewStreamConsole(in io.Reader, out io.Writer) *StreamConsole {
	c := &StreamConsole{out: out}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

// OnWrite registers a callback run for every transmitted byte.
func (c *StreamConsole) OnWrite(fn func(byte)) {
	c.mu.Lock()
	c.onWrite = fn
	c.mu.Unlock()
}

func (c *StreamConsole) WriteByte(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onWrite != nil {
		c.onWrite(b)
	}
	if c.out == nil {
		return nil
	}
	_, err := c.out.Write([]byte{b})
	return err
}

func (c *StreamConsole) ReadByte() (byte, error) {
	if c.in == nil {
		return 0, io.EOF
	}
	return c.in.ReadByte()
}
