package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ErrCodingUsage signifies wrong arguments to the coding command.
var ErrCodingUsage = errors.New("expected arguments: <data-dict.html> <coding-id>")

func codingCommand() *cli.Command {
	return &cli.Command{
		Name:      "coding",
		Usage:     "Print the coding table for a data coding id",
		ArgsUsage: "<data-dict.html> <coding-id>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "selectable",
				Usage: "restrict hierarchical codings to selectable entries",
			},
		}, commonFlags()...),
		Action: runCoding,
	}
}

func runCoding(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return ErrCodingUsage
	}

	dictPath, id := args[0], args[1]

	logger, err := newLogger(
		cmd.String("log-dir"), cmd.String("log-file"), cmd.String("log-level"),
		cmd.Bool("verbose"), dictPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadProjectConfig()

	dict, err := openDictionary(dictPath, cfg, cmd.String("coding-path"))
	if err != nil {
		return err
	}

	table, err := dict.Coding(ctx, id)
	if err != nil {
		logger.Error("coding retrieval failed", zap.String("coding", id), zap.Error(err))

		return err
	}

	kind := "flat"
	if table.Hierarchical {
		kind = "hierarchical"
	}

	fmt.Printf("Coding %s (%s, %d entries)\n", table.ID, kind, len(table.Entries))

	for _, entry := range table.Entries {
		if cmd.Bool("selectable") && table.Hierarchical && !entry.Selectable {
			continue
		}

		fmt.Printf("  %s\t%s\n", entry.Code, entry.Meaning)
	}

	return nil
}
