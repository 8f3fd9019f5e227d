// Copyright (C) 2023 by Posit Software, PBC
package main

import (
	"os"

	"github.com/rstudio/flat-record-format/cmd/frfprint/cmd"
)

func main() {
	cmd.PrintCmd.SetOut(os.Stdout)
	cmd.PrintCmd.SetErr(os.Stderr)
	err := cmd.PrintCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
