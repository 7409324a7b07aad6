package main

import (
	"os"

	"github.com/xsspy/xsspy/internal/cli"
)

func main() {
	if err := cli.ExecuteJudge(); err != nil {
		os.Exit(1)
	}
}
