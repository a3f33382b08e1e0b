package main

import (
	"os"

	"github.gatech.edu/ECEInnovation/ION32-Simulator/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
