package main

import (
	"os"

	"github.com/frederic-klein/yamm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
