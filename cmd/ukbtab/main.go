// Command ukbtab converts UK Biobank TSV exports to Parquet and inspects
// the data dictionary documents that describe them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "ukbtab",
		Usage: "Work with UK Biobank exports and their data dictionaries",
		Commands: []*cli.Command{
			convertCommand(),
			inspectCommand(),
			codingCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
