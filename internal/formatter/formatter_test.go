package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askduck/askduck/internal/pipeline"
	"github.com/askduck/askduck/internal/validate"
)

func TestFormatResponseSuccess(t *testing.T) {
	f := NewFormatter()

	out := f.FormatResponse(&pipeline.Response{
		Status: pipeline.StatusAccepted,
		Result: &pipeline.QueryResult{
			SQL:      "SELECT COUNT(*) AS customer_count FROM customers",
			Columns:  []string{"customer_count"},
			Rows:     [][]any{{int64(42)}},
			Duration: 12 * time.Millisecond,
			Metrics: pipeline.Metrics{
				NumAggregates:   1,
				ComplexityScore: 1,
				ComplexityLevel: pipeline.ComplexityLow,
			},
		},
		Attempts: []pipeline.GenerationAttempt{{Index: 1}},
	})

	assert.Contains(t, out, "SQL: SELECT COUNT(*) AS customer_count FROM customers")
	assert.Contains(t, out, "customer_count")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "1 row(s) in 12ms")
	assert.Contains(t, out, "Complexity: low (score 1")
	assert.NotContains(t, out, "Accepted after")
}

func TestFormatResponseMultipleAttempts(t *testing.T) {
	f := NewFormatter()

	out := f.FormatResponse(&pipeline.Response{
		Status: pipeline.StatusAccepted,
		Result: &pipeline.QueryResult{
			SQL:     "SELECT name FROM customers",
			Columns: []string{"name"},
		},
		Attempts: []pipeline.GenerationAttempt{
			{Index: 1, Rejection: "unknown_table"},
			{Index: 2},
		},
	})

	assert.Contains(t, out, "Accepted after 2 attempt(s)")
}

func TestFormatResponseFailure(t *testing.T) {
	f := NewFormatter()

	verdict := validate.Verdict{
		Status: validate.StatusRejected,
		Reason: validate.ReasonUnknownTable,
		Detail: `table "orders" does not exist`,
	}

	out := f.FormatResponse(&pipeline.Response{
		Status: pipeline.StatusFailed,
		Error:  `table "orders" does not exist`,
		Attempts: []pipeline.GenerationAttempt{
			{
				Index:     1,
				SQL:       "SELECT * FROM orders",
				Verdict:   &verdict,
				Rejection: string(verdict.Reason),
				Detail:    verdict.Detail,
			},
		},
	})

	assert.Contains(t, out, `Query failed: table "orders" does not exist`)
	assert.Contains(t, out, "Attempts:")
	assert.Contains(t, out, "1. rejected (unknown_table)")
	assert.Contains(t, out, "SELECT * FROM orders")
}

func TestFormatAttemptsWithoutSQL(t *testing.T) {
	f := NewFormatter()

	out := f.FormatAttempts(&pipeline.Response{
		Attempts: []pipeline.GenerationAttempt{
			{Index: 1, Rejection: "no_sql_found", Detail: "response contains no SQL statement"},
		},
	})

	assert.Contains(t, out, "<no SQL extracted>")
	assert.Contains(t, out, "no_sql_found")
}

func TestFormatRows(t *testing.T) {
	f := NewFormatter()

	out := f.FormatRows([]string{"id", "name"}, [][]any{
		{int64(1), "Alice"},
		{int64(2), nil},
	})

	assert.Contains(t, out, "id")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "--") // separator row

	// Header, separator, two data rows.
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 4)
}

func TestFormatRowsNoColumns(t *testing.T) {
	f := NewFormatter()

	assert.Equal(t, "(no columns)\n", f.FormatRows(nil, nil))
}
