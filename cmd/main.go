package main

import (
	"os"

	"tegalsec-progression/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
