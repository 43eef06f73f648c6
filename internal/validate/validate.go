// Package validate implements the staged safety, schema, and syntax checks
// every generated statement must pass before execution. The stages run in
// fixed order and short-circuit on the first rejection. The validator never
// executes a statement; the syntax stage only asks the data engine to plan
// it.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/askduck/askduck/internal/schema"
)

// Status is the verdict outcome
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Reason classifies a rejection
type Reason string

const (
	ReasonUnsafeStatement Reason = "unsafe_statement"
	ReasonUnknownTable    Reason = "unknown_table"
	ReasonUnknownColumn   Reason = "unknown_column"
	ReasonSyntaxError     Reason = "syntax_error"
)

// Verdict is the result of validating one statement. When rejected, the
// detail string is human-readable and feeds the next correction prompt.
type Verdict struct {
	Status Status
	Reason Reason
	Detail string
}

// Accepted reports whether the statement passed all stages
func (v Verdict) Accepted() bool {
	return v.Status == StatusAccepted
}

func rejected(reason Reason, detail string) Verdict {
	return Verdict{Status: StatusRejected, Reason: reason, Detail: detail}
}

// Planner plans a statement without executing it. The DuckDB engine
// implements this with EXPLAIN.
type Planner interface {
	Plan(ctx context.Context, sql string) error
}

// Validator runs the three-stage check pipeline against one schema
type Validator struct {
	schema  *schema.DatabaseSchema
	planner Planner
}

// New creates a validator bound to a schema and a plan-only engine handle
func New(s *schema.DatabaseSchema, planner Planner) *Validator {
	return &Validator{schema: s, planner: planner}
}

// forbiddenKeywords are rejected anywhere in the raw statement text,
// including inside subqueries, comments, and string literals.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "GRANT", "REVOKE", "ATTACH", "COPY", "EXPORT", "PRAGMA",
}

// Validate runs safety, schema, and syntax stages in order
func (v *Validator) Validate(ctx context.Context, sql string) Verdict {
	if verdict := v.checkSafety(sql); !verdict.Accepted() {
		return verdict
	}

	if verdict := v.checkSchemaReferences(sql); !verdict.Accepted() {
		return verdict
	}

	return v.checkSyntax(ctx, sql)
}

// checkSafety rejects statements that are not read-only SELECT/WITH
// queries or that contain any data-definition or data-modification
// keyword. The keyword scan runs over the raw statement text, so a
// forbidden keyword rejects even when it appears inside a comment or a
// string literal. The prefix check strips comments first so a leading
// comment does not mask the statement keyword.
func (v *Validator) checkSafety(sql string) Verdict {
	stripped := stripCommentsAndLiterals(sql)

	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return rejected(ReasonUnsafeStatement, "statement is empty")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return rejected(ReasonUnsafeStatement,
			"only read-only SELECT or WITH statements are allowed")
	}

	tokens := tokenizeIdentifiers(sql)
	for _, token := range tokens {
		upperToken := strings.ToUpper(token)
		for _, keyword := range forbiddenKeywords {
			if upperToken == keyword {
				return rejected(ReasonUnsafeStatement,
					fmt.Sprintf("statement contains forbidden keyword %s", keyword))
			}
		}
	}

	return Verdict{Status: StatusAccepted}
}

var (
	aliasPattern     = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+(?:AS\s+)?([A-Za-z_][A-Za-z0-9_]*))?`)
	qualifiedPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// joinKeywords must not be mistaken for table aliases in FROM/JOIN clauses
var joinKeywords = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "ON": true, "USING": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "CROSS": true, "OUTER": true, "UNION": true,
	"INTERSECT": true, "EXCEPT": true, "SELECT": true, "AS": true,
	"NATURAL": true, "ASOF": true,
}

// checkSchemaReferences verifies, best-effort, that every referenced table
// exists in the schema and that qualified column references resolve. Bare
// column names are left to the planner, whose binder errors the syntax
// stage classifies.
func (v *Validator) checkSchemaReferences(sql string) Verdict {
	stripped := stripCommentsAndLiterals(sql)

	// CTE names introduced by WITH are legitimate relation references
	// even though the schema does not declare them.
	cteNames := collectCTENames(stripped)

	aliases := make(map[string]string) // alias (lowercased) -> table name

	for _, match := range aliasPattern.FindAllStringSubmatch(stripped, -1) {
		table := match[1]
		if cteNames[strings.ToLower(table)] {
			continue
		}

		if !v.schema.HasTable(table) {
			return rejected(ReasonUnknownTable, fmt.Sprintf(
				"table %q does not exist; available tables: %s",
				table, strings.Join(v.schema.TableNames(), ", ")))
		}

		alias := match[2]
		if alias != "" && !joinKeywords[strings.ToUpper(alias)] {
			aliases[strings.ToLower(alias)] = table
		}
	}

	for _, match := range qualifiedPattern.FindAllStringSubmatch(stripped, -1) {
		qualifier, column := match[1], match[2]

		table := qualifier
		if resolved, ok := aliases[strings.ToLower(qualifier)]; ok {
			table = resolved
		}

		if cteNames[strings.ToLower(table)] {
			continue
		}

		if !v.schema.HasTable(table) {
			// Unreferenced qualifier, e.g. a function namespace; the
			// planner will complain if it is a genuine relation.
			continue
		}

		if v.schema.HasColumn(table, column) {
			continue
		}

		return rejected(ReasonUnknownColumn, fmt.Sprintf(
			"table %q has no column %q", table, column))
	}

	return Verdict{Status: StatusAccepted}
}

var (
	columnBinderPattern = regexp.MustCompile(`(?i)(column|referenced column)\s+"?([A-Za-z0-9_]+)"?\s+(not found|does not exist)`)
	tableBinderPattern  = regexp.MustCompile(`(?i)table(?: with name)?\s+"?([A-Za-z0-9_]+)"?\s+(not found|does not exist)`)
)

// checkSyntax asks the engine to plan the statement without executing it.
// Binder failures about missing relations or columns are classified as
// schema rejections since the planner sees references the tokenizer
// cannot, such as bare column names.
func (v *Validator) checkSyntax(ctx context.Context, sql string) Verdict {
	err := v.planner.Plan(ctx, sql)
	if err == nil {
		return Verdict{Status: StatusAccepted}
	}

	msg := err.Error()

	if match := columnBinderPattern.FindStringSubmatch(msg); match != nil {
		return rejected(ReasonUnknownColumn,
			fmt.Sprintf("column %q does not exist: %s", match[2], msg))
	}

	if match := tableBinderPattern.FindStringSubmatch(msg); match != nil {
		return rejected(ReasonUnknownTable,
			fmt.Sprintf("table %q does not exist: %s", match[1], msg))
	}

	return rejected(ReasonSyntaxError, msg)
}

// The comma alternative has no leading \b: the comma between CTE
// definitions follows a closing parenthesis, where no word boundary
// exists.
var ctePattern = regexp.MustCompile(`(?i)(?:\bWITH\b|,)\s*([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)

func collectCTENames(sql string) map[string]bool {
	names := make(map[string]bool)

	for _, match := range ctePattern.FindAllStringSubmatch(sql, -1) {
		names[strings.ToLower(match[1])] = true
	}

	return names
}

// stripCommentsAndLiterals replaces comments and string literals with
// spaces so keyword and identifier scans cannot match inside them
func stripCommentsAndLiterals(sql string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateLineComment
		stateBlockComment
	)

	var out strings.Builder

	state := stateNormal
	runes := []rune(sql)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case stateSingleQuote:
			out.WriteRune(' ')

			if ch == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					out.WriteRune(' ')
					i++

					continue
				}

				state = stateNormal
			}
		case stateLineComment:
			if ch == '\n' {
				out.WriteRune('\n')
				state = stateNormal
			} else {
				out.WriteRune(' ')
			}
		case stateBlockComment:
			out.WriteRune(' ')

			if ch == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				out.WriteRune(' ')
				i++
				state = stateNormal
			}
		default:
			switch {
			case ch == '\'':
				out.WriteRune(' ')
				state = stateSingleQuote
			case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
				out.WriteRune(' ')
				state = stateLineComment
			case ch == '/' && i+1 < len(runes) && runes[i+1] == '*':
				out.WriteRune(' ')
				state = stateBlockComment
			default:
				out.WriteRune(ch)
			}
		}
	}

	return out.String()
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func tokenizeIdentifiers(sql string) []string {
	return identifierPattern.FindAllString(sql, -1)
}
