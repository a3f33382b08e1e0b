package debugServer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
)

var (
	errNotInitialized = errors.New("simulator not initialized")
	errRunning        = errors.New("simulator is running")
)

// session owns one simulator. Requests are served from the connection read
// loop while continue runs the simulator on its own goroutine.
type session struct {
	factory emulator.EmulatorFactory
	logger  *logrus.Entry

	// called for every UART TX byte and when a continue stops
	onOutput func(byte)
	onStop   func(StoppedEvent)

	mu      sync.Mutex
	inst    *emulator.EmulatorInstance
	input   *io.PipeWriter
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func (s *session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst != nil {
		return nil
	}
	return s.create()
}

// create builds a fresh simulator. s.mu must be held.
func (s *session) create() error {
	inputReader, inputWriter := io.Pipe()
	console := emulator.NewStreamConsole(inputReader, nil)
	console.OnWrite(func(b byte) {
		if s.onOutput != nil {
			s.onOutput(b)
		}
	})

	inst, err := s.factory(console)
	if err != nil {
		inputWriter.Close()
		return err
	}
	s.inst = inst
	s.input = inputWriter
	return nil
}

// idle returns the simulator if it exists and is not running. On success
// s.mu is held and the caller must call release.
func (s *session) idle() (*emulator.EmulatorInstance, error) {
	s.mu.Lock()
	if s.inst == nil {
		s.mu.Unlock()
		return nil, errNotInitialized
	}
	if s.running {
		s.mu.Unlock()
		return nil, errRunning
	}
	return s.inst, nil
}

func (s *session) release() {
	s.mu.Unlock()
}

func (s *session) state(reason emulator.StopReason) CPUState {
	inst := s.inst
	hi, lo := inst.GetHiLo()
	state := CPUState{
		PC:                 inst.GetPC(),
		Registers:          inst.GetRegisters(),
		Hi:                 hi,
		Lo:                 lo,
		Status:             inst.GetStatus(),
		Cause:              inst.GetCause(),
		EPC:                inst.GetEPC(),
		InstructionCounter: inst.GetInstructionCounter(),
	}
	if reason != emulator.StopNone {
		state.Reason = reason.String()
	}
	return state
}

func (s *session) step(count int) (CPUState, error) {
	inst, err := s.idle()
	if err != nil {
		return CPUState{}, err
	}
	defer s.release()

	if count <= 0 {
		count = 1
	}
	reason := inst.Step(count)
	return s.state(reason), nil
}

func (s *session) resume(limit uint64) error {
	inst, err := s.idle()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.release()

	go func() {
		defer close(done)
		reason := inst.Run(ctx, limit)
		report := inst.GetStopReport()
		event := StoppedEvent{
			Reason:     reason.String(),
			PC:         inst.GetPC(),
			Errors:     report.Errors,
			StopByProg: report.Requested,
		}

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()

		s.logger.Debugf("run stopped: %s at 0x%08x", event.Reason, event.PC)
		if s.onStop != nil {
			s.onStop(event)
		}
	}()
	return nil
}

// pause interrupts a running continue and waits for it to finish. A
// program blocked on UART input stops once input arrives.
func (s *session) pause() (CPUState, error) {
	s.interrupt()

	if _, err := s.idle(); err != nil {
		return CPUState{}, err
	}
	defer s.release()
	return s.state(emulator.StopCancelled), nil
}

func (s *session) interrupt() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *session) sendInput(text string) error {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()
	if input == nil {
		return errNotInitialized
	}
	// the reader only drains while the program waits on the UART
	go func() {
		if _, err := input.Write([]byte(text)); err != nil {
			s.logger.WithError(err).Debug("UART input dropped")
		}
	}()
	return nil
}

// reset rebuilds the simulator so program images are reloaded.
func (s *session) reset() (CPUState, error) {
	s.close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.create(); err != nil {
		return CPUState{}, err
	}
	return s.state(emulator.StopNone), nil
}

func (s *session) close() {
	s.interruptBlocked()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		return
	}
	if err := s.inst.Close(); err != nil {
		s.logger.WithError(err).Warn("closing simulator")
	}
	s.inst = nil
	s.input = nil
}

// interruptBlocked stops a run even when it waits on UART input.
func (s *session) interruptBlocked() {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()

	if input != nil {
		input.CloseWithError(io.EOF)
	}
	s.interrupt()
}
