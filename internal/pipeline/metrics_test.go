package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeQuery(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantJoins int
		wantSubs  int
		wantAggs  int
		wantPreds int
		wantScore int
		wantLevel ComplexityLevel
	}{
		{
			name:      "simple count",
			sql:       "SELECT COUNT(*) FROM customers",
			wantAggs:  1,
			wantScore: 1,
			wantLevel: ComplexityLow,
		},
		{
			name:      "plain select",
			sql:       "SELECT name FROM customers",
			wantScore: 0,
			wantLevel: ComplexityLow,
		},
		{
			name:      "single join",
			sql:       "SELECT c.name FROM customers c JOIN orders o ON c.customer_id = o.customer_id",
			wantJoins: 1,
			wantPreds: 1,
			wantScore: 3,
			wantLevel: ComplexityMedium,
		},
		{
			name:      "left join counts once",
			sql:       "SELECT * FROM customers c LEFT JOIN orders o ON c.customer_id = o.customer_id",
			wantJoins: 1,
			wantPreds: 1,
			wantScore: 3,
			wantLevel: ComplexityMedium,
		},
		{
			name:      "subquery with filter",
			sql:       "SELECT name FROM customers WHERE customer_id IN (SELECT customer_id FROM orders WHERE total_amount > 100)",
			wantSubs:  1,
			wantPreds: 2, // IN ( and >
			wantScore: 5,
			wantLevel: ComplexityMedium,
		},
		{
			name:      "everything at once",
			sql:       "SELECT c.name, SUM(o.total_amount) FROM customers c JOIN orders o ON c.customer_id = o.customer_id WHERE o.total_amount >= 50 AND c.name LIKE 'A%' GROUP BY c.name HAVING SUM(o.total_amount) > 1000",
			wantJoins: 1,
			wantAggs:  2,
			wantPreds: 4, // join condition, >=, LIKE, >
			wantScore: 8,
			wantLevel: ComplexityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := AnalyzeQuery(tt.sql, DefaultWeights())

			assert.Equal(t, tt.wantJoins, m.NumJoins, "joins")
			assert.Equal(t, tt.wantSubs, m.NumSubqueries, "subqueries")
			assert.Equal(t, tt.wantAggs, m.NumAggregates, "aggregates")
			assert.Equal(t, tt.wantPreds, m.NumPredicates, "predicates")
			assert.Equal(t, tt.wantScore, m.ComplexityScore, "score")
			assert.Equal(t, tt.wantLevel, m.ComplexityLevel, "level")
		})
	}
}

func TestAnalyzeQueryCustomWeights(t *testing.T) {
	weights := Weights{Join: 10, Subquery: 1, Aggregate: 1, Predicate: 1, Low: 5, Medium: 9}

	m := AnalyzeQuery("SELECT * FROM a JOIN b ON a.id = b.id", weights)

	assert.Equal(t, 11, m.ComplexityScore)
	assert.Equal(t, ComplexityHigh, m.ComplexityLevel)
}

func TestComplexityThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  ComplexityLevel
	}{
		{0, ComplexityLow},
		{2, ComplexityLow},
		{3, ComplexityMedium},
		{6, ComplexityMedium},
		{7, ComplexityHigh},
	}

	for _, tt := range tests {
		// A query with exactly score predicates at weight 1.
		weights := DefaultWeights()
		weights.Predicate = tt.score

		m := AnalyzeQuery("SELECT * FROM t WHERE a = 1", weights)
		assert.Equal(t, tt.want, m.ComplexityLevel, "score %d", tt.score)
	}
}
