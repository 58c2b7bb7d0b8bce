package main

import (
	"os"

	"github.com/conneroisu/gorsx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
