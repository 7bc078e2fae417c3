// Command biotica scores ecosystem plots and detects tipping points.
package main

import (
	"os"

	"github.com/alexshd/biotica/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
