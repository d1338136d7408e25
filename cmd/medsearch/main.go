// Package main is the entry point for the medsearch CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/cmd/medsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
