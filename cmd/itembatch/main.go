package main

import (
	"os"

	"github.com/n8nkit/itembatch/cmd/itembatch/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
