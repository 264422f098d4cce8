package main

import (
	"os"

	"github.com/penwyp/go-solis-viewer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
