package main

import (
	"os"

	"github.com/gantry-dev/gantry/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
