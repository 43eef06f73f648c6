package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:        "schema",
		Usage:       "Print the schema description sent to the model",
		Description: `Show the schema exactly as the language model sees it: every table, its columns with types and descriptions, and all foreign-key relationships.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Path to a schema JSON document (inferred from loaded tables if omitted)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSchema(ctx, cmd.String("schema"))
		},
	}
}

func runSchema(ctx context.Context, schemaPath string) error {
	sess, err := newSession(ctx, "", false)
	if err != nil {
		printSuggestions(err)
		return err
	}
	defer sess.Close()

	dbSchema, err := resolveSchema(ctx, sess.engine, schemaPath)
	if err != nil {
		printSuggestions(err)
		return err
	}

	fmt.Println(dbSchema.Describe())

	return nil
}
