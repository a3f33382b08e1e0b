package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/testbench"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/util"
)

var regressionWorkers int

var regressionCmd = &cobra.Command{
	Use:   "regression <tests.json>",
	Short: "Run a regression suite of test programs",
	Long: `Runs every test program listed in the configuration in batch mode. A test
passes when the program stops itself with no errors and, if a reference log
is given, its execution log matches line by line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := testbench.LoadConfig(args[0])
		if err != nil {
			return withExitCode(exitNoInput, err)
		}
		if cmd.Flags().Changed("workers") {
			if regressionWorkers < 1 {
				return withExitCode(exitUsage, fmt.Errorf("--workers must be at least 1"))
			}
			conf.Workers = regressionWorkers
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := conf.Run(ctx, util.Component("testbench"))
		if err != nil {
			return withExitCode(exitFailure, err)
		}

		for _, test := range results.Tests {
			fmt.Printf("%-24s %s\n", test.Name, test.Status)
			if test.Status != "passed" && verbose {
				fmt.Print(test.Output)
			}
		}
		fmt.Printf("%d/%d passed, score %d\n", results.Passed(), len(results.Tests), results.Score)

		if results.Passed() != len(results.Tests) {
			return withExitCode(exitFailure, fmt.Errorf("%d tests failed", len(results.Tests)-results.Passed()))
		}
		return nil
	},
}

func init() {
	regressionCmd.Flags().IntVarP(&regressionWorkers, "workers", "j", 1, "tests simulated in parallel")
	rootCmd.AddCommand(regressionCmd)
}
