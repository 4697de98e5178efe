package main

import (
	"os"

	"github.com/jmorrell-unl/wildlife-grad/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
