package main

import (
	"os"

	"github.com/giygas/medicaments-lookup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
