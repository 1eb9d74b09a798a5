package main

import (
	"os"

	"github.com/klynnlabs/laundry-core/cmd/laundryctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
