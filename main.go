package main

import (
	"os"

	"github.com/nerbox/nerbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
