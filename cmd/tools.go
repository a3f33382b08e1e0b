package cmd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/assembler"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
)

var assembleOutput string

var assembleCmd = &cobra.Command{
	Use:   "assemble <source.s>",
	Short: "Assemble a program into a big-endian binary image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return withExitCode(exitNoInput, err)
		}

		program := assembler.Assemble(string(source))
		program.FileName = args[0]
		for _, d := range program.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s: %s\n", args[0], d.Range.Start.Line+1, d.Range.Start.Char+1, severityName(d.Severity), d.Message)
		}
		if program.HasErrors() {
			return withExitCode(exitFailure, fmt.Errorf("%s: assembly failed", args[0]))
		}

		output := assembleOutput
		if output == "" {
			output = strings.TrimSuffix(args[0], ".s") + ".bin"
		}
		if err := os.WriteFile(output, program.Bytes(), 0644); err != nil {
			return withExitCode(exitFailure, err)
		}
		fmt.Printf("%s: %d words at %08x\n", output, len(program.ProgramText), program.Origin)
		return nil
	},
}

func severityName(s assembler.DiagnosticSeverity) string {
	switch s {
	case assembler.Error:
		return "error"
	case assembler.Warning:
		return "warning"
	case assembler.Information:
		return "info"
	}
	return "hint"
}

var disasmBase string

var disasmCmd = &cobra.Command{
	Use:   "disasm <image.bin>",
	Short: "Disassemble a big-endian binary image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseHex("base", disasmBase)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return withExitCode(exitNoInput, err)
		}

		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		for i := 0; i+4 <= len(data); i += 4 {
			pc := base + uint32(i)
			word := binary.BigEndian.Uint32(data[i:])
			fmt.Fprintf(w, "%08x:  %08x  %s\n", pc, word, assembler.Disassemble(pc, word))
		}
		return nil
	},
}

var makehexCmd = &cobra.Command{
	Use:   "makehex <image.bin> <nwords>",
	Short: "Convert a binary image to a VHDL/Verilog memory init file",
	Long: `Writes one 32-bit hex word per line to stdout, padding the image with
zeros up to nwords words.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nwords, err := strconv.Atoi(args[1])
		if err != nil || nwords <= 0 {
			return withExitCode(exitUsage, fmt.Errorf("invalid word count %q", args[1]))
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return withExitCode(exitNoInput, err)
		}
		if err := emulator.WriteHexImage(os.Stdout, data, nwords); err != nil {
			return withExitCode(exitFailure, err)
		}
		return nil
	},
}

func init() {
	assembleCmd.Flags().StringVarP(&assembleOutput, "output", "o", "", "output file, defaults to the source name with .bin")
	rootCmd.AddCommand(assembleCmd)

	disasmCmd.Flags().StringVar(&disasmBase, "base", "bfc00000", "address of the first word (hex)")
	rootCmd.AddCommand(disasmCmd)

	rootCmd.AddCommand(makehexCmd)
}
