package main

import (
	"os"

	"github.com/satishbabariya/sqlchain/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
