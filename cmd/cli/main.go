package main

import (
	"os"

	"github.com/sendwave-dev/sendwave/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
