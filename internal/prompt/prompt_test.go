package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDescription = "# Database Schema\n\n## Table: customers\n- customer_id (INTEGER)"
	testSummary     = "customers (customer_id, name)"
)

func TestBuildGeneration(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	p := b.BuildGeneration("How many customers are there?", "", nil)

	assert.Contains(t, p, "expert SQL query generator")
	assert.Contains(t, p, "DuckDB syntax notes")
	assert.Contains(t, p, "Examples:")
	assert.Contains(t, p, testDescription)
	assert.Contains(t, p, "Return ONLY the SQL query")
	assert.Contains(t, p, "Question: How many customers are there?")
	assert.NotContains(t, p, "previous query was rejected")

	// Sections must appear in a fixed order.
	assert.Less(t, strings.Index(p, "DuckDB syntax notes"), strings.Index(p, "Examples:"))
	assert.Less(t, strings.Index(p, testDescription), strings.Index(p, "Question:"))
}

func TestBuildGenerationIsDeterministic(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	first := b.BuildGeneration("total revenue per customer", "prefer short aliases", nil)
	second := b.BuildGeneration("total revenue per customer", "prefer short aliases", nil)

	assert.Equal(t, first, second)
}

func TestBuildGenerationWithoutExamples(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, false)

	p := b.BuildGeneration("How many customers are there?", "", nil)

	assert.NotContains(t, p, "Examples:")
}

func TestBuildGenerationCustomInstructions(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	p := b.BuildGeneration("list customers", "Always limit results to 10 rows.", nil)

	assert.Contains(t, p, "Additional instructions:\nAlways limit results to 10 rows.")
}

func TestBuildGenerationWithCorrection(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	p := b.BuildGeneration("How many orders were placed?", "", &Correction{
		PreviousSQL: "SELECT COUNT(*) FROM orders",
		Reason:      "unknown_table",
		Detail:      "query references undeclared table: orders",
	})

	assert.Contains(t, p, "Your previous query was rejected.")
	assert.Contains(t, p, "Rejected SQL: SELECT COUNT(*) FROM orders")
	assert.Contains(t, p, "Rejection reason (unknown_table): query references undeclared table: orders")
	assert.Contains(t, p, "Provide a corrected SQL query")

	// The correction must come after the question so the model sees the
	// original intent first.
	require.Less(t, strings.Index(p, "Question:"), strings.Index(p, "Your previous query was rejected."))
}

func TestBuildExplanation(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	p := b.BuildExplanation("SELECT COUNT(*) FROM customers")

	assert.Contains(t, p, "Explain the following SQL query")
	assert.Contains(t, p, testDescription)
	assert.Contains(t, p, "SELECT COUNT(*) FROM customers")
}

func TestBuildSuggestion(t *testing.T) {
	b := NewBuilder(testDescription, testSummary, true)

	p := b.BuildSuggestion("How many customers are there?", 3)

	assert.Contains(t, p, "suggest 3 similar or related questions")
	assert.Contains(t, p, "Schema:\n"+testSummary)
	assert.Contains(t, p, "Original question: How many customers are there?")
}
