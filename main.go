package main

import (
	"os"

	"github.com/PolarWolf314/stash/cmd"

	"github.com/awnumar/memguard"
)

func main() {
	// Wipe secret buffers if the process is interrupted mid-operation.
	memguard.CatchInterrupt()

	err := cmd.Execute()
	memguard.Purge()
	if err != nil {
		os.Exit(1)
	}
}
