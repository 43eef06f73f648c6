package pipeline

import (
	"regexp"
)

// ComplexityLevel buckets a complexity score
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// Metrics summarizes the structural complexity of a validated query
type Metrics struct {
	NumJoins        int             `json:"num_joins"`
	NumSubqueries   int             `json:"num_subqueries"`
	NumAggregates   int             `json:"num_aggregates"`
	NumPredicates   int             `json:"num_predicates"`
	ComplexityScore int             `json:"complexity_score"`
	ComplexityLevel ComplexityLevel `json:"complexity_level"`
}

// Weights is the complexity scoring policy. The weights and thresholds
// are configuration, not fixed law.
type Weights struct {
	Join      int
	Subquery  int
	Aggregate int
	Predicate int

	// Level thresholds: score <= Low is low, score <= Medium is medium,
	// anything above is high.
	Low    int
	Medium int
}

// DefaultWeights returns the default scoring policy
func DefaultWeights() Weights {
	return Weights{Join: 2, Subquery: 3, Aggregate: 1, Predicate: 1, Low: 2, Medium: 6}
}

var (
	joinPattern      = regexp.MustCompile(`(?i)\bJOIN\b`)
	subqueryPattern  = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
	aggregatePattern = regexp.MustCompile(`(?i)\b(COUNT|SUM|AVG|MIN|MAX)\s*\(`)
	predicatePattern = regexp.MustCompile(`(?i)(<=|>=|<>|!=|=|<|>|\bLIKE\b|\bILIKE\b|\bBETWEEN\b|\bIN\s*\()`)
)

// AnalyzeQuery computes complexity metrics for a validated statement
func AnalyzeQuery(sql string, weights Weights) Metrics {
	m := Metrics{
		NumJoins:      len(joinPattern.FindAllString(sql, -1)),
		NumSubqueries: len(subqueryPattern.FindAllString(sql, -1)),
		NumAggregates: len(aggregatePattern.FindAllString(sql, -1)),
		NumPredicates: len(predicatePattern.FindAllString(sql, -1)),
	}

	m.ComplexityScore = m.NumJoins*weights.Join +
		m.NumSubqueries*weights.Subquery +
		m.NumAggregates*weights.Aggregate +
		m.NumPredicates*weights.Predicate

	switch {
	case m.ComplexityScore <= weights.Low:
		m.ComplexityLevel = ComplexityLow
	case m.ComplexityScore <= weights.Medium:
		m.ComplexityLevel = ComplexityMedium
	default:
		m.ComplexityLevel = ComplexityHigh
	}

	return m
}
