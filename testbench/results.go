package testbench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Results are written in the Gradescope results.json layout so the bench
// can also grade student programs.
type TestResult struct {
	Name       string `json:"name"`
	MaxScore   int    `json:"max_score"`
	Score      int    `json:"score"`
	Output     string `json:"output"`
	Visibility string `json:"visibility"`
	Status     string `json:"status,omitempty"`
}

type Results struct {
	Name  string       `json:"name,omitempty"`
	Score int          `json:"score"`
	Tests []TestResult `json:"tests"`
}

func CreateResults(name string) *Results {
	return &Results{
		Name:  name,
		Tests: []TestResult{},
	}
}

func (r *Results) AddTest(test TestResult, score int) {
	test.Score = score
	r.Score += score
	r.Tests = append(r.Tests, test)
}

func (r *Results) Passed() int {
	n := 0
	for _, t := range r.Tests {
		if t.Status == "passed" {
			n++
		}
	}
	return n
}

// Save writes results.json into dir.
func (r *Results) Save(dir string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "results.json"), b, 0644)
}

func CreateTestResult(name string, maxScore int, visibility string) TestResult {
	return TestResult{
		Name:       name,
		MaxScore:   maxScore,
		Visibility: visibility,
	}
}

func (tr *TestResult) SetStatus(success bool) {
	if success {
		tr.Status = "passed"
	} else {
		tr.Status = "failed"
	}
}

func (tr *TestResult) OutputPrintLn(str string) {
	tr.Output += str + "\n"
}
