package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:        "suggest",
		Usage:       "Suggest related questions the loaded data can answer",
		ArgsUsage:   " <question>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Path to a schema JSON document (inferred from loaded tables if omitted)",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 3,
				Usage: "Number of suggestions to generate",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			return runSuggest(ctx, strings.TrimSpace(args.First()),
				cmd.String("schema"), int(cmd.Int("count")))
		},
	}
}

func runSuggest(ctx context.Context, question, schemaPath string, count int) error {
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	sess, err := newSession(ctx, schemaPath, true)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	var suggestions []string

	suggestErr := withSpinner("Generating suggestions...", func() error {
		var innerErr error
		suggestions, innerErr = sess.orchestrator.Suggest(ctx, question, count)

		return innerErr
	})
	if suggestErr != nil {
		return suggestErr
	}

	if len(suggestions) == 0 {
		fmt.Println("No suggestions generated.")
		return nil
	}

	for i, suggestion := range suggestions {
		fmt.Printf("%d. %s\n", i+1, suggestion)
	}

	return nil
}
