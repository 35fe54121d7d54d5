package main

import (
	"os"

	"elision/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
