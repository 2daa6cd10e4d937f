package main

import (
	"os"

	"sealedstate/cmd/sealedstate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
