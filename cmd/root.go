package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/askduck/askduck/internal/config"
	"github.com/askduck/askduck/internal/duckdb"
	"github.com/askduck/askduck/internal/errors"
	"github.com/askduck/askduck/internal/llm"
	"github.com/askduck/askduck/internal/logging"
	"github.com/askduck/askduck/internal/pipeline"
	"github.com/askduck/askduck/internal/prompt"
	"github.com/askduck/askduck/internal/schema"
	"github.com/askduck/askduck/internal/validate"
)

// Root builds the askduck command tree
func Root() *cli.Command {
	return &cli.Command{
		Name:  "askduck",
		Usage: "Ask natural-language questions against a local DuckDB database",
		Description: `askduck translates a natural-language question into a validated, read-only
SQL query, runs it against a local DuckDB database, and prints the results
with complexity metrics. Load data with 'askduck load', then 'askduck ask'.`,
		Commands: []*cli.Command{
			AskCommand(),
			ExplainCommand(),
			SuggestCommand(),
			LoadCommand(),
			TablesCommand(),
			SchemaCommand(),
		},
	}
}

// Execute runs the CLI
func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	appConfig = cfg

	return Root().Run(context.Background(), os.Args)
}

// appConfig is set once by Execute before any command action runs
var appConfig *config.Config

func getConfig() *config.Config {
	if appConfig == nil {
		cfg, err := config.Load()
		if err != nil {
			panic(err)
		}

		appConfig = cfg
	}

	return appConfig
}

// session holds the wired collaborators for one command invocation
type session struct {
	cfg          *config.Config
	engine       *duckdb.Manager
	schema       *schema.DatabaseSchema
	orchestrator *pipeline.Orchestrator
}

// newSession opens the engine and, when withSchema is set, resolves the
// schema (from --schema if given, otherwise inferred from loaded tables)
// and wires the full pipeline
func newSession(ctx context.Context, schemaPath string, withSchema bool) (*session, error) {
	cfg := getConfig()

	engine, err := duckdb.NewManager(cfg.Database.Path, cfg.Database.Timeout())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	s := &session{cfg: cfg, engine: engine}

	if !withSchema {
		return s, nil
	}

	dbSchema, err := resolveSchema(ctx, engine, schemaPath)
	if err != nil {
		engine.Close()
		return nil, err
	}

	completer, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout(),
	})
	if err != nil {
		engine.Close()
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to configure model client")
	}

	builder := prompt.NewBuilder(dbSchema.Describe(), dbSchema.Summary(), cfg.Pipeline.IncludeExamples)
	validator := validate.New(dbSchema, engine)

	s.schema = dbSchema
	s.orchestrator = pipeline.New(completer, builder, validator, engine, pipeline.Options{
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		TransientRetries: cfg.Pipeline.TransientRetries,
		BackoffBase:      cfg.Pipeline.Backoff(),
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		RowLimit:         cfg.Pipeline.RowLimit,
		Weights: pipeline.Weights{
			Join:      cfg.Pipeline.JoinWeight,
			Subquery:  cfg.Pipeline.SubqueryWeight,
			Aggregate: cfg.Pipeline.AggregateWeight,
			Predicate: cfg.Pipeline.PredicateWeight,
			Low:       cfg.Pipeline.LowThreshold,
			Medium:    cfg.Pipeline.MediumThreshold,
		},
	})

	return s, nil
}

func (s *session) Close() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
}

func resolveSchema(ctx context.Context, engine *duckdb.Manager, schemaPath string) (*schema.DatabaseSchema, error) {
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeSchema, "failed to read schema file %s", schemaPath)
		}

		return schema.Parse(data)
	}

	return schema.Infer(ctx, "database", engine)
}

// withSpinner runs fn with a terminal spinner while the model call is in
// flight. Output other than the spinner goes to stderr so stdout stays
// clean for results.
func withSpinner(message string, fn func() error) error {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + message
	sp.Start()

	err := fn()

	sp.Stop()

	return err
}

// printSuggestions writes structured error suggestions for the user
func printSuggestions(err error) {
	var structErr *errors.Error
	if !stderrors.As(err, &structErr) || len(structErr.Suggestions) == 0 {
		return
	}

	fmt.Fprintln(os.Stderr, "\nSuggestions:")

	for _, suggestion := range structErr.Suggestions {
		fmt.Fprintf(os.Stderr, "  - %s\n", suggestion)
	}
}
