package main

import (
	"os"

	"una/cmd/unactl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
