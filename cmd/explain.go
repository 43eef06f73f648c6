package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func ExplainCommand() *cli.Command {
	return &cli.Command{
		Name:        "explain",
		Usage:       "Describe an SQL query in natural language",
		ArgsUsage:   " <sql>",
		Description: `Ask the model to explain what a given SQL query does, using the loaded schema as context.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Path to a schema JSON document (inferred from loaded tables if omitted)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			return runExplain(ctx, strings.TrimSpace(args.First()), cmd.String("schema"))
		},
	}
}

func runExplain(ctx context.Context, sql, schemaPath string) error {
	if sql == "" {
		return fmt.Errorf("sql must not be empty")
	}

	sess, err := newSession(ctx, schemaPath, true)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	var explanation string

	explainErr := withSpinner("Explaining query...", func() error {
		var innerErr error
		explanation, innerErr = sess.orchestrator.Explain(ctx, sql)

		return innerErr
	})
	if explainErr != nil {
		return explainErr
	}

	fmt.Println(explanation)

	return nil
}
