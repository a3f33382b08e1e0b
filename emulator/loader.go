package emulator

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// KERNEL_OFFSET is where a uClinux kernel image is loaded inside XRAM.
const KERNEL_OFFSET = 0x2000

// LoadImage copies a raw big-endian image into the block with the given
// role. Read-only blocks are writable from here.
func (inst *EmulatorInstance) LoadImage(role BlockRole, offset uint32, data []byte) error {
	for i := range inst.blocks {
		block := &inst.blocks[i]
		if block.Role != role {
			continue
		}
		if uint64(offset)+uint64(len(data)) > uint64(block.Size) {
			return fmt.Errorf("image of %d bytes at offset 0x%x does not fit in %s (%d bytes)",
				len(data), offset, block.Name, block.Size)
		}
		copy(block.mem[offset:], data)
		inst.logger.Infof("%-16s [size= %6dKB, start= 0x%08x] loaded %d bytes.",
			block.Name, block.Size/1024, block.Start, len(data))
		return nil
	}
	return fmt.Errorf("memory map has no %q block", role)
}

func (inst *EmulatorInstance) LoadBinaryFile(image BinaryImage) error {
	data, err := os.ReadFile(image.Path)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	return inst.LoadImage(image.Role, image.Offset, data)
}

// LoadBinaries loads every image named in the configuration.
func (inst *EmulatorInstance) LoadBinaries() error {
	if len(inst.config.Binaries) == 0 {
		return fmt.Errorf("no binary object files to load")
	}
	for _, image := range inst.config.Binaries {
		if err := inst.LoadBinaryFile(image); err != nil {
			return err
		}
	}
	return nil
}

// WriteHexImage prints nwords big-endian words of data, one per line,
// padding with zeros past the end of the data.
func WriteHexImage(w io.Writer, data []byte, nwords int) error {
	var word [4]byte
	for i := 0; i < nwords; i++ {
		word = [4]byte{}
		if off := i * 4; off < len(data) {
			copy(word[:], data[off:])
		}
		if _, err := fmt.Fprintf(w, "%08x\n", binary.BigEndian.Uint32(word[:])); err != nil {
			return err
		}
	}
	return nil
}
