package main

import (
	"os"

	"github.com/solatis/docupdate/cmd/docupdate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
