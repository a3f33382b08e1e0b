package emulator

import (
	"fmt"
	"time"
)

// I/O register offsets from Config.IOBase
const (
	IO_UART_STATUS = 0x0004
	IO_GPIO        = 0x0020
	IO_TIMER       = 0x0100
	IO_UART        = 0x8000 // TX on write, RX on read
	IO_HW_IRQ      = 0x8010
	IO_STOP_SIM    = 0x8018
	IO_DEBUG       = 0x8020
)

// legacy interrupt controller, fixed addresses
const (
	IRQ_MASK   = 0x20000010
	IRQ_STATUS = 0x20000020

	IRQ_UART_WRITE_AVAILABLE = 0x001
	IRQ_UART_READ_AVAILABLE  = 0x002
)

func (inst *EmulatorInstance) mmioRead(addr uint32) (uint32, bool) {
	base := inst.config.IOBase

	if addr&0xfffffff0 == base+IO_DEBUG {
		return inst.debugRegs[(addr>>2)&3], true
	}
	if addr&0xfffffff0 == base+IO_GPIO {
		// a single 16 bit register
		return (inst.gpio + 0x2901) & 0xffff, true
	}

	inst.irqStatus |= IRQ_UART_WRITE_AVAILABLE
	switch addr {
	case base + IO_UART:
		return inst.uartReceive(), true
	case base + IO_UART_STATUS:
		return IRQ_UART_WRITE_AVAILABLE | IRQ_UART_READ_AVAILABLE, true
	case base + IO_TIMER:
		inst.logger.Debugf("TIMER = %10d", inst.instructionCounter)
		return inst.instructionCounter, true
	case IRQ_MASK:
		return 0, true
	case IRQ_MASK + 4:
		time.Sleep(10 * time.Millisecond)
		return 0, true
	case IRQ_STATUS:
		// ready to TX and RX
		return 0x00000003, true
	}
	return 0, false
}

func (inst *EmulatorInstance) mmioWrite(addr, value uint32) bool {
	base := inst.config.IOBase

	if addr&0xfffffff0 == base+IO_DEBUG {
		inst.debugRegs[(addr>>2)&3] = value
		return true
	}
	if addr&0xfffffff0 == base+IO_GPIO {
		inst.gpio = value & 0xffff
		return true
	}

	switch addr {
	case base + IO_UART:
		inst.uartTransmit(byte(value))
	case base + IO_HW_IRQ:
		inst.trace.irqCountdown = 3
		inst.trace.irqInputs = value
	case base + IO_STOP_SIM:
		inst.stopSimulation(value)
	case IRQ_MASK:
	case IRQ_STATUS:
		inst.irqStatus = value
	default:
		return false
	}
	return true
}

func (inst *EmulatorInstance) uartTransmit(c byte) {
	if inst.console == nil {
		return
	}
	if err := inst.console.WriteByte(c); err != nil {
		inst.logger.WithError(err).Warn("UART TX failed")
	}
}

// uartReceive blocks until the console delivers a character and echoes it.
func (inst *EmulatorInstance) uartReceive() uint32 {
	if inst.console == nil {
		inst.logger.WithFields(inst.memFields(inst.config.IOBase + IO_UART)).Warn("UART RX without a console")
		return 0
	}
	c, err := inst.console.ReadByte()
	if err != nil {
		inst.logger.WithError(err).Warn("UART RX failed")
		return 0
	}
	inst.uartTransmit(c)
	return uint32(c)
}

func (inst *EmulatorInstance) stopSimulation(errors uint32) {
	inst.stop = StopReport{Requested: true, Errors: errors}
	inst.wakeup = true

	w := inst.config.Report
	fmt.Fprintf(w, "Simulation terminated by program command.\n\n")
	if errors > 0 {
		fmt.Fprintf(w, "Program reports FAILURE -- %d errors.\n", errors)
	} else {
		fmt.Fprintf(w, "Program reports SUCCESS -- no errors.\n")
	}
	fmt.Fprintf(w, "\n")
}

func (inst *EmulatorInstance) GetDebugRegisters() [4]uint32 {
	return inst.debugRegs
}

func (inst *EmulatorInstance) GetGPIO() uint32 {
	return inst.gpio
}
