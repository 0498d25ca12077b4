// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "typybench",
	Short: "Score predicted Python type annotations against ground truth",
	Long: `typybench evaluates predicted type annotations for a corpus of Python
repositories: partial-credit similarity against the ground truth, exact
match rates, and internal consistency measured by running a static type
checker over annotated copies of each repository.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
