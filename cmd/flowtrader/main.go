package main

import (
	"os"

	"github.com/rustyeddy/flowtrader/cmd/flowtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
