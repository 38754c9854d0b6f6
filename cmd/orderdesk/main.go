package main

import (
	"os"

	"github.com/Additional-Code/orderdesk/internal/cli"
)

func main() {
	if cli.Execute() != nil {
		os.Exit(1)
	}
}
