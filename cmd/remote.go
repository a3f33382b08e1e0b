package cmd

import (
	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/debugServer"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/emulator"
	"github.gatech.edu/ECEInnovation/ION32-Simulator/util"
)

var webFlags simulatorFlags
var webAddr string

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the simulator console over HTTP",
	Long: `Serves a page with a terminal connected to the simulated UART. Every
browser connection gets a fresh simulator loaded with the same programs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := webFlags.config(cmd)
		if err != nil {
			return err
		}
		return emulator.RunStandaloneWebserver(webAddr, factory(config), util.Component("web"))
	},
}

var debugFlags simulatorFlags
var debugAddr string

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Serve the JSON-RPC debugger",
	Long: `Serves the debugger protocol on stdin and stdout, or on a TCP address
with --tcp.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := debugFlags.config(cmd)
		if err != nil {
			return err
		}

		logger := util.Component("debugServer")
		if debugAddr == "" {
			debugServer.ListenAndServe(factory(config), logger)
			return nil
		}
		return debugServer.ListenAndServeTCP(debugAddr, factory(config), logger)
	},
}

func init() {
	addSimulatorFlags(webCmd, &webFlags)
	webCmd.Flags().StringVar(&webAddr, "addr", ":2035", "HTTP listen address")
	rootCmd.AddCommand(webCmd)

	addSimulatorFlags(debugCmd, &debugFlags)
	debugCmd.Flags().StringVar(&debugAddr, "tcp", "", "listen for debugger connections on this address")
	rootCmd.AddCommand(debugCmd)
}
