package testbench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type TestCase struct {
	Name         string `json:"name"`
	Boot         string `json:"boot"`
	XRAM         string `json:"xram"`
	Flash        string `json:"flash"`
	MapFile      string `json:"mapFile"`
	Trigger      uint32 `json:"trigger"` // 0 logs from the reset vector
	ReferenceLog string `json:"referenceLog"`
	CycleLimit   uint64 `json:"cycleLimit"`
	MIPS32       bool   `json:"mips32"`
	Points       int    `json:"points"`
	Visibility   string `json:"visibility"`
	// nil means the program's error count is checked
	CheckExitCode *bool `json:"checkExitCode"`
}

func (tc TestCase) checksExitCode() bool {
	return tc.CheckExitCode == nil || *tc.CheckExitCode
}

type Config struct {
	Name        string     `json:"name"`
	MemoryMap   string     `json:"memoryMap"`
	ResultsPath string     `json:"resultsPath"`
	Workers     int        `json:"workers"`
	Tests       []TestCase `json:"tests"`
}

// LoadConfig reads a regression configuration. Relative paths are taken
// from the directory holding the configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regression config: %w", err)
	}

	conf := new(Config)
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, fmt.Errorf("error unmarshalling %s: %w", path, err)
	}
	if len(conf.Tests) == 0 {
		return nil, fmt.Errorf("%s lists no tests", path)
	}

	dir := filepath.Dir(path)
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&conf.ResultsPath)
	for i := range conf.Tests {
		tc := &conf.Tests[i]
		if tc.Name == "" {
			return nil, fmt.Errorf("test #%d has no name", i+1)
		}
		if tc.Boot == "" {
			return nil, fmt.Errorf("test %s has no boot image", tc.Name)
		}
		resolve(&tc.Boot)
		resolve(&tc.XRAM)
		resolve(&tc.Flash)
		resolve(&tc.MapFile)
		resolve(&tc.ReferenceLog)
		if tc.Visibility == "" {
			tc.Visibility = "visible"
		}
	}

	if conf.MemoryMap == "" {
		conf.MemoryMap = "default"
	}
	if conf.Workers <= 0 {
		conf.Workers = 1
	}
	return conf, nil
}
