package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askduck/askduck/internal/formatter"
	"github.com/askduck/askduck/internal/pipeline"
)

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:        "ask",
		Usage:       "Answer a natural-language question with a validated SQL query",
		ArgsUsage:   " <question>",
		Description: `Translate a question into SQL, validate it against the schema, execute it, and print the results with complexity metrics.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Path to a schema JSON document (inferred from loaded tables if omitted)",
			},
			&cli.StringFlag{
				Name:  "instructions",
				Usage: "Extra instructions appended to the generation prompt",
			},
			&cli.BoolFlag{
				Name:  "attempts",
				Usage: "Print the full attempt history",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			return runAsk(ctx, strings.TrimSpace(args.First()),
				cmd.String("schema"), cmd.String("instructions"), cmd.Bool("attempts"))
		},
	}
}

func runAsk(ctx context.Context, question, schemaPath, instructions string, showAttempts bool) error {
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	sess, err := newSession(ctx, schemaPath, true)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	var resp *pipeline.Response

	askErr := withSpinner("Generating SQL...", func() error {
		var innerErr error
		resp, innerErr = sess.orchestrator.Query(ctx, question, instructions)

		return innerErr
	})

	f := formatter.NewFormatter()

	// The attempt history is printed even on failure so the user can see
	// what was generated and why it was rejected.
	if resp != nil {
		fmt.Print(f.FormatResponse(resp))

		if showAttempts && resp.Status == pipeline.StatusAccepted {
			fmt.Print(f.FormatAttempts(resp))
		}
	}

	return askErr
}
