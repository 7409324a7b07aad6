package main

import (
	"os"

	"github.com/xsspy/xsspy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
