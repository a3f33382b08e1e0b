package testbench

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// stopSimTag is how a write to the stop-sim register appears in an
// execution log.
const stopSimTag = "[FFFF8018]"

// EvalExecLog returns the last value the program wrote to the stop-sim
// register, or -1 if it never wrote one.
func EvalExecLog(r io.Reader) (int64, error) {
	result := int64(-1)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasSuffix(line, "WR") {
			continue
		}
		items := strings.Fields(line)
		if len(items) < 3 || items[1] != stopSimTag {
			continue
		}
		fields := strings.Split(items[2], "=")
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			continue
		}
		result = int64(v)
	}
	if err := scanner.Err(); err != nil {
		return -1, err
	}
	return result, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	return lines, scanner.Err()
}

// CompareExecLogs compares a reference (RTL) log with a simulator log line
// by line and describes the first difference. An empty string means the
// logs match.
func CompareExecLogs(reference, simulated io.Reader, matchSizes bool) (string, error) {
	hw, err := readLines(reference)
	if err != nil {
		return "", fmt.Errorf("reading reference log: %w", err)
	}
	sw, err := readLines(simulated)
	if err != nil {
		return "", fmt.Errorf("reading execution log: %w", err)
	}

	if len(hw) != len(sw) && matchSizes {
		return fmt.Sprintf("Different number of lines (%d != %d).", len(hw), len(sw)), nil
	}
	for i := range hw {
		if i >= len(sw) {
			return fmt.Sprintf("@%d: %s != <end of log>", i, hw[i]), nil
		}
		if hw[i] != sw[i] {
			return fmt.Sprintf("@%d: %s != %s", i, hw[i], sw[i]), nil
		}
	}
	return "", nil
}
