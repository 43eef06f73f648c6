package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/askduck/askduck/internal/formatter"
)

func TablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "List registered tables, or show details for one table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "info",
				Usage: "Show columns and sample rows for this table",
			},
			&cli.IntFlag{
				Name:  "sample",
				Value: 5,
				Usage: "Number of sample rows to show with --info",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTables(ctx, cmd.String("info"), int(cmd.Int("sample")))
		},
	}
}

func runTables(ctx context.Context, infoTable string, sampleLimit int) error {
	sess, err := newSession(ctx, "", false)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	if infoTable == "" {
		tables, err := sess.engine.ListTables(ctx)
		if err != nil {
			return err
		}

		if len(tables) == 0 {
			fmt.Println("No tables loaded. Use 'askduck load' to register data.")
			return nil
		}

		for _, table := range tables {
			fmt.Println(table)
		}

		return nil
	}

	described, err := sess.engine.DescribeTable(ctx, infoTable)
	if err != nil {
		return err
	}

	fmt.Printf("Table: %s\n\nColumns:\n", infoTable)

	for _, col := range described {
		nullability := "NOT NULL"
		if col.Nullable {
			nullability = "NULL"
		}

		fmt.Printf("  %s  %s  %s\n", col.Name, col.Type, nullability)
	}

	columns, rows, err := sess.engine.SampleRows(ctx, infoTable, sampleLimit)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		fmt.Println("\nSample rows:")
		fmt.Print(formatter.NewFormatter().FormatRows(columns, rows))
	}

	return nil
}
