package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ukb-tools/ukbtab"
	"github.com/ukb-tools/ukbtab/convert"
	"github.com/ukb-tools/ukbtab/fetch"
	"github.com/ukb-tools/ukbtab/resolve"
)

// Convert command errors.
var (
	ErrConvertUsage    = errors.New("expected arguments: <ukb.tsv> <out-dir> <data-dict.html>")
	ErrBadOverride     = errors.New("type overrides must be key=value")
	ErrMissingMappings = errors.New("data dictionary contains types with no mapping")
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a UK Biobank TSV export to Parquet",
		ArgsUsage: "<ukb.tsv> <out-dir> <data-dict.html>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Usage:   "character encoding of the TSV export",
				Value:   convert.DefaultEncoding,
			},
			&cli.IntFlag{
				Name:    "rows",
				Aliases: []string{"n"},
				Usage:   "keep only the first N data rows",
			},
			&cli.IntFlag{
				Name:    "partitions",
				Aliases: []string{"r"},
				Usage:   "number of Parquet part files to write",
			},
			&cli.IntFlag{
				Name:    "max-categories",
				Aliases: []string{"m"},
				Usage:   "cardinality cutoff for dictionary encoding",
			},
			&cli.StringSliceFlag{
				Name:    "categorical-type",
				Aliases: []string{"c"},
				Usage:   "semantic types to treat as categorical",
			},
			&cli.StringSliceFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "semantic type override, key=value (e.g. 'Integer=int64', 'Date=date:2006-01-02')",
			},
			&cli.StringSliceFlag{
				Name:  "value-type",
				Usage: "coding value kind override, key=value",
			},
			&cli.IntFlag{
				Name:  "tab-offset",
				Usage: "stray tabs per data row (positive: leading, negative: trailing)",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "write into a non-empty output directory",
			},
		}, commonFlags()...),
		Action: runConvert,
	}
}

// commonFlags are shared by all subcommands.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "coding-path",
			Usage: "coding file path template (one %s for the coding id)",
		},
		&cli.StringFlag{
			Name:  "log-dir",
			Usage: "directory to store the log file",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "log file path (derived from inputs when only --log-dir is set)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "verbose output",
		},
	}
}

func runConvert(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 3 {
		return ErrConvertUsage
	}

	tsvPath, outDir, dictPath := args[0], args[1], args[2]

	logger, err := newLogger(
		cmd.String("log-dir"), cmd.String("log-file"), cmd.String("log-level"),
		cmd.Bool("verbose"), tsvPath, outDir)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadProjectConfig()

	mapping, err := effectiveMapping(cfg, cmd.StringSlice("type"), cmd.StringSlice("value-type"))
	if err != nil {
		return err
	}

	dict, err := openDictionary(dictPath, cfg, cmd.String("coding-path"))
	if err != nil {
		return err
	}

	res := newResolver(dict, cfg, cmd)

	// Fail fast on mapping gaps before touching any data.
	missingTypes, missingKinds, err := res.Coverage(mapping)
	if err != nil {
		return err
	}

	if len(missingTypes) > 0 || len(missingKinds) > 0 {
		return fmt.Errorf("%w: semantic types %v, value kinds %v",
			ErrMissingMappings, missingTypes, missingKinds)
	}

	conv := convert.New(dict,
		convert.WithResolver(res),
		convert.WithMapping(mapping),
		convert.WithEncoding(encodingName(cmd, cfg)),
		convert.WithRowLimit(int(cmd.Int("rows"))),
		convert.WithPartitions(partitions(cmd, cfg)),
		convert.WithTabOffset(tabOffset(cmd, cfg)),
		convert.WithForce(cmd.Bool("force")),
		convert.WithLogger(logger),
	)

	result, err := conv.Run(ctx, tsvPath, outDir)
	if err != nil {
		logger.Error("conversion failed", zap.Error(err))

		return err
	}

	fmt.Printf("Converted %d rows x %d columns into %d file(s) under %s\n",
		result.Rows, result.Columns, len(result.Files), outDir)

	return nil
}

// loadProjectConfig loads the nearest .ukbtab.yaml, or an empty config.
func loadProjectConfig() *ukbtab.Config {
	cfg, err := ukbtab.LoadConfig(".")
	if err != nil {
		return &ukbtab.Config{}
	}

	return cfg
}

// effectiveMapping builds the type mapping: defaults, then config
// overrides, then CLI overrides.
func effectiveMapping(cfg *ukbtab.Config, typeArgs, kindArgs []string) (ukbtab.TypeMapping, error) {
	mapping, err := cfg.Mapping()
	if err != nil {
		return ukbtab.TypeMapping{}, err
	}

	for _, arg := range typeArgs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return ukbtab.TypeMapping{}, fmt.Errorf("%w: %q", ErrBadOverride, arg)
		}

		if err := mapping.SetSemanticType(key, value); err != nil {
			return ukbtab.TypeMapping{}, err
		}
	}

	for _, arg := range kindArgs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return ukbtab.TypeMapping{}, fmt.Errorf("%w: %q", ErrBadOverride, arg)
		}

		if err := mapping.SetValueKind(key, value); err != nil {
			return ukbtab.TypeMapping{}, err
		}
	}

	return mapping, nil
}

// openDictionary builds the Dictionary with coding file store and fetcher
// wired in from config and flags.
func openDictionary(path string, cfg *ukbtab.Config, codingPath string) (*ukbtab.Dictionary, error) {
	var fetchOpts []fetch.Option
	if cfg.CodingURL != "" {
		fetchOpts = append(fetchOpts, fetch.WithURL(cfg.CodingURL))
	}

	opts := []ukbtab.Option{ukbtab.WithFetcher(fetch.New(fetchOpts...))}

	if codingPath == "" {
		codingPath = cfg.CodingPath
	}

	if codingPath != "" {
		opts = append(opts, ukbtab.WithCodingPath(codingPath))
	}

	if cfg.CacheSize > 0 {
		opts = append(opts, ukbtab.WithCacheSize(cfg.CacheSize))
	}

	return ukbtab.New(path, opts...)
}

// newResolver builds the type resolver from config and flags (flags win).
func newResolver(dict *ukbtab.Dictionary, cfg *ukbtab.Config, cmd *cli.Command) *resolve.Resolver {
	categorical := cfg.Categorical()
	if flagged := cmd.StringSlice("categorical-type"); len(flagged) > 0 {
		categorical = categorical[:0]
		for _, t := range flagged {
			categorical = append(categorical, ukbtab.SemanticType(t))
		}
	}

	maxCategories := resolve.DefaultMaxCategories
	if cfg.MaxCategories > 0 {
		maxCategories = cfg.MaxCategories
	}

	if n := int(cmd.Int("max-categories")); n > 0 {
		maxCategories = n
	}

	return resolve.New(dict,
		resolve.WithCategoricalTypes(categorical...),
		resolve.WithMaxCategories(maxCategories),
	)
}

func encodingName(cmd *cli.Command, cfg *ukbtab.Config) string {
	if cmd.IsSet("encoding") {
		return cmd.String("encoding")
	}

	if cfg.Convert.Encoding != "" {
		return cfg.Convert.Encoding
	}

	return cmd.String("encoding")
}

func partitions(cmd *cli.Command, cfg *ukbtab.Config) int {
	if n := int(cmd.Int("partitions")); n > 0 {
		return n
	}

	return cfg.Convert.Partitions
}

func tabOffset(cmd *cli.Command, cfg *ukbtab.Config) int {
	if n := int(cmd.Int("tab-offset")); n != 0 {
		return n
	}

	return cfg.Convert.TabOffset
}
