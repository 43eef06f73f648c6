package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
)

func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:        "load",
		Usage:       "Load a CSV, Parquet, or JSON file into a table",
		ArgsUsage:   " <file>",
		Description: `Register a data file as a table in the database. The table name defaults to the file name without extension. Requires a persistent database path (ASKDUCK_DB_PATH) for the data to survive this command.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "table",
				Usage: "Table name (defaults to the file name without extension)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "File format: csv, parquet, or json (inferred from extension if omitted)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			return runLoad(ctx, args.First(), cmd.String("table"), cmd.String("format"))
		},
	}
}

func runLoad(ctx context.Context, path, table, format string) error {
	if table == "" {
		table = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	sess, err := newSession(ctx, "", false)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	switch format {
	case "csv":
		err = sess.engine.LoadCSV(ctx, table, path)
	case "parquet":
		err = sess.engine.LoadParquet(ctx, table, path)
	case "json":
		err = sess.engine.LoadJSON(ctx, table, path)
	default:
		return fmt.Errorf("unsupported file format: %s (expected csv, parquet, or json)", format)
	}

	if err != nil {
		return err
	}

	fmt.Printf("Loaded %s into table %s\n", path, table)

	return nil
}
