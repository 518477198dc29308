package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/ukb-tools/ukbtab"
)

// ErrInspectUsage signifies wrong arguments to the inspect command.
var ErrInspectUsage = errors.New("expected argument: <data-dict.html>")

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a data dictionary document",
		ArgsUsage: "<data-dict.html>",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "categorical-type",
				Aliases: []string{"c"},
				Usage:   "semantic types to treat as categorical",
			},
			&cli.IntFlag{
				Name:    "max-categories",
				Aliases: []string{"m"},
				Usage:   "cardinality cutoff for dictionary encoding",
			},
		}, commonFlags()...),
		Action: runInspect,
	}
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 1 {
		return ErrInspectUsage
	}

	dictPath := args[0]

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

	info, err := dict.Info()
	if err != nil {
		return err
	}

	schema, err := dict.Schema()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	fmt.Println("Document:")

	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, info[k])
	}

	codings := map[string]bool{}
	hierarchical := 0

	for _, field := range schema.Fields {
		if !field.HasCoding() {
			continue
		}

		codings[field.CodingID] = true

		if field.Hierarchical {
			hierarchical++
		}
	}

	fmt.Printf("\nFields: %d\n", len(schema.Fields))

	for _, line := range typeCounts(schema) {
		fmt.Printf("  %s\n", line)
	}

	fmt.Printf("Codings: %d referenced (%d fields hierarchical)\n", len(codings), hierarchical)

	res := newResolver(dict, cfg, cmd)

	mapping, err := cfg.Mapping()
	if err != nil {
		return err
	}

	missingTypes, missingKinds, err := res.Coverage(mapping)
	if err != nil {
		return err
	}

	if len(missingTypes) == 0 && len(missingKinds) == 0 {
		fmt.Println("Type mapping: complete")

		return nil
	}

	fmt.Println("Type mapping: incomplete")

	for _, t := range missingTypes {
		fmt.Printf("  unmapped semantic type: %s\n", t)
	}

	for _, k := range missingKinds {
		fmt.Printf("  unmapped value kind: %s\n", k)
	}

	return nil
}

// typeCounts tallies fields per semantic type, most frequent first.
func typeCounts(schema *ukbtab.Schema) []string {
	counts := map[ukbtab.SemanticType]int{}
	for _, field := range schema.Fields {
		counts[field.Type]++
	}

	types := make([]ukbtab.SemanticType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}

		return types[i] < types[j]
	})

	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%s: %d", t, counts[t]))
	}

	return lines
}
