package main

import (
	"os"

	"github.com/pic2nav/snapsync/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
