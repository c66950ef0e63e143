package main

import (
	"os"

	"github.com/cybrty/redops/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
