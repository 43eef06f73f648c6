// Package prompt builds the text sent to the language model. Builders are
// pure: identical inputs produce byte-identical prompts, with no state or
// network access.
package prompt

import (
	"fmt"
	"strings"
)

const preamble = `You are an expert SQL query generator. Convert the user's natural language question into a single valid DuckDB SQL query based on the provided database schema.

Rules:
1. Output exactly ONE SQL statement and nothing else.
2. The statement must be read-only: SELECT or WITH only. Never use INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE, GRANT, ATTACH, COPY, EXPORT, or PRAGMA.
3. Reference only tables and columns declared in the schema, matching their names exactly.
4. Use foreign key relationships from the schema when joining tables, and always specify join conditions.
5. Use single quotes for string literals.
6. Add LIMIT for queries that might return many rows.`

const duckdbGuidance = `DuckDB syntax notes:
- Use LIMIT for row limiting, not TOP
- String concatenation: || operator or CONCAT()
- Date functions: DATE_TRUNC(), DATE_DIFF(), CURRENT_DATE
- Case-insensitive matching: ILIKE
- CTEs and subqueries are fully supported
- Type casting: CAST() or the :: operator`

const examples = `Examples:

Question: "How many customers are there?"
SQL: SELECT COUNT(*) AS customer_count FROM customers

Question: "Show me the top 5 most expensive products"
SQL: SELECT name, price FROM products ORDER BY price DESC LIMIT 5

Question: "What is the total revenue per customer?"
SQL: SELECT c.customer_id, c.name, SUM(o.total_amount) AS total_revenue FROM customers c LEFT JOIN orders o ON c.customer_id = o.customer_id GROUP BY c.customer_id, c.name ORDER BY total_revenue DESC`

const outputFormat = `Return ONLY the SQL query, with no explanation and no markdown formatting.`

// Correction carries the rejected SQL and rejection reason from the
// previous attempt into the next prompt
type Correction struct {
	PreviousSQL string
	Reason      string
	Detail      string
}

// Builder assembles prompts around one schema description
type Builder struct {
	schemaDescription string
	schemaSummary     string
	includeExamples   bool
}

// NewBuilder creates a prompt builder for a schema. The description and
// summary strings come from the schema model and are the only schema
// information the language model ever receives.
func NewBuilder(schemaDescription, schemaSummary string, includeExamples bool) *Builder {
	return &Builder{
		schemaDescription: schemaDescription,
		schemaSummary:     schemaSummary,
		includeExamples:   includeExamples,
	}
}

// BuildGeneration builds the SQL-generation prompt for a question. When
// correction is non-nil the prompt includes the previous rejected SQL and
// the rejection reason with an explicit instruction to fix that problem.
func (b *Builder) BuildGeneration(question, customInstructions string, correction *Correction) string {
	sections := []string{preamble, duckdbGuidance}

	if b.includeExamples {
		sections = append(sections, examples)
	}

	sections = append(sections, b.schemaDescription)

	if customInstructions != "" {
		sections = append(sections, "Additional instructions:\n"+customInstructions)
	}

	sections = append(sections, outputFormat)
	sections = append(sections, "Question: "+question)

	if correction != nil {
		sections = append(sections, fmt.Sprintf(
			`Your previous query was rejected.

Rejected SQL: %s
Rejection reason (%s): %s

Provide a corrected SQL query that fixes this specific problem, still answers the original question, and uses only tables and columns from the schema.`,
			correction.PreviousSQL, correction.Reason, correction.Detail))
	}

	return strings.Join(sections, "\n\n")
}

// BuildExplanation builds the prompt for describing a known SQL query in
// natural language
func (b *Builder) BuildExplanation(sql string) string {
	return strings.Join([]string{
		"You are a SQL expert. Explain the following SQL query in simple, natural language. Describe what data it retrieves, how it filters and transforms the data, and what the result represents.",
		b.schemaDescription,
		"Explain this SQL query:\n\n" + sql,
	}, "\n\n")
}

// BuildSuggestion builds the prompt for related-question suggestions
func (b *Builder) BuildSuggestion(question string, count int) string {
	return strings.Join([]string{
		fmt.Sprintf("You are a data analyst. Based on the following database schema, suggest %d similar or related questions that could be answered with this data. Return them as a numbered list, one question per line.", count),
		"Schema:\n" + b.schemaSummary,
		"Original question: " + question,
	}, "\n\n")
}
