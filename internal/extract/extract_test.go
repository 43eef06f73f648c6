package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "sql fence",
			raw:  "Here is your query:\n```sql\nSELECT * FROM customers\n```\nHope this helps!",
			want: "SELECT * FROM customers",
		},
		{
			name: "sql fence uppercase tag",
			raw:  "```SQL\nSELECT name FROM products\n```",
			want: "SELECT name FROM products",
		},
		{
			name: "generic fence",
			raw:  "```\nSELECT COUNT(*) FROM orders\n```",
			want: "SELECT COUNT(*) FROM orders",
		},
		{
			name: "bare statement",
			raw:  "SELECT customer_id FROM customers LIMIT 10",
			want: "SELECT customer_id FROM customers LIMIT 10",
		},
		{
			name: "statement surrounded by prose",
			raw:  "Sure! The query below answers your question:\n\nSELECT c.name, COUNT(*) AS n\nFROM customers c\nGROUP BY c.name\n\nLet me know if you need anything else.",
			want: "SELECT c.name, COUNT(*) AS n\nFROM customers c\nGROUP BY c.name",
		},
		{
			name: "trailing semicolon",
			raw:  "```sql\nSELECT * FROM customers;\n```",
			want: "SELECT * FROM customers",
		},
		{
			name: "with statement",
			raw:  "WITH totals AS (SELECT customer_id, SUM(total_amount) AS t FROM orders GROUP BY customer_id) SELECT * FROM totals",
			want: "WITH totals AS (SELECT customer_id, SUM(total_amount) AS t FROM orders GROUP BY customer_id) SELECT * FROM totals",
		},
		{
			name: "lowercase select",
			raw:  "select name from customers",
			want: "select name from customers",
		},
		{
			name: "semicolon inside string literal",
			raw:  "SELECT * FROM customers WHERE name = 'a;b'",
			want: "SELECT * FROM customers WHERE name = 'a;b'",
		},
		{
			name: "semicolon inside line comment",
			raw:  "SELECT id -- pick id; nothing else\nFROM customers",
			want: "SELECT id -- pick id; nothing else\nFROM customers",
		},
		{
			name: "sql fence preferred over generic fence",
			raw:  "```\nnot sql at all\n```\n```sql\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "ddl extracts and is left for the validator",
			raw:  "```sql\nDROP TABLE customers;\n```",
			want: "DROP TABLE customers",
		},
		{
			name: "trailing comment after semicolon",
			raw:  "```sql\nSELECT COUNT(*) FROM customers; -- total customer count\n```",
			want: "SELECT COUNT(*) FROM customers",
		},
		{
			name: "trailing block comment after semicolon",
			raw:  "```sql\nSELECT name FROM customers;\n/* end of query */\n```",
			want: "SELECT name FROM customers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantReason Reason
	}{
		{
			name:       "plain prose",
			raw:        "I cannot answer that question with the available data.",
			wantReason: ReasonNoSQLFound,
		},
		{
			name:       "empty response",
			raw:        "",
			wantReason: ReasonNoSQLFound,
		},
		{
			name:       "fence without sql",
			raw:        "```\nprint('hello')\n```",
			wantReason: ReasonNoSQLFound,
		},
		{
			name:       "two statements",
			raw:        "```sql\nSELECT 1; SELECT 2\n```",
			wantReason: ReasonMultipleStatements,
		},
		{
			name:       "two statements across lines",
			raw:        "```sql\nSELECT * FROM customers;\nSELECT * FROM products;\n```",
			wantReason: ReasonMultipleStatements,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw)
			require.Error(t, err)

			var extractErr *Error
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, tt.wantReason, extractErr.Reason)
		})
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("SELECT 'a;b' AS x; SELECT /* ; */ 2; -- tail; comment\n")

	// The comment-only tail is not a statement.
	assert.Equal(t, []string{"SELECT 'a;b' AS x", "SELECT /* ; */ 2"}, got)
}
