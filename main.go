package main

import (
	"os"

	"github.com/linctl/linctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
