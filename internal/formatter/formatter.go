package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/askduck/askduck/internal/pipeline"
)

// Formatter renders pipeline responses for terminal output
type Formatter struct {
	maxColWidth int
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{maxColWidth: 40}
}

// FormatResponse renders the final SQL, the result table, and metrics
func (f *Formatter) FormatResponse(resp *pipeline.Response) string {
	var sb strings.Builder

	if resp.Status != pipeline.StatusAccepted || resp.Result == nil {
		sb.WriteString("Query failed")

		if resp.Error != "" {
			sb.WriteString(": " + resp.Error)
		}

		sb.WriteString("\n")
		sb.WriteString(f.FormatAttempts(resp))

		return sb.String()
	}

	result := resp.Result

	sb.WriteString("SQL: " + result.SQL + "\n\n")
	sb.WriteString(f.formatTable(result.Columns, result.Rows))

	fmt.Fprintf(&sb, "\n%d row(s) in %s\n", len(result.Rows), result.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Complexity: %s (score %d, joins %d, subqueries %d, aggregates %d, predicates %d)\n",
		result.Metrics.ComplexityLevel, result.Metrics.ComplexityScore,
		result.Metrics.NumJoins, result.Metrics.NumSubqueries,
		result.Metrics.NumAggregates, result.Metrics.NumPredicates)

	if len(resp.Attempts) > 1 {
		fmt.Fprintf(&sb, "Accepted after %d attempt(s)\n", len(resp.Attempts))
	}

	return sb.String()
}

// FormatAttempts renders the attempt history, one line per attempt
func (f *Formatter) FormatAttempts(resp *pipeline.Response) string {
	if len(resp.Attempts) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("\nAttempts:\n")

	for _, attempt := range resp.Attempts {
		status := "accepted"
		detail := ""

		if attempt.Rejection != "" {
			status = "rejected (" + attempt.Rejection + ")"
			detail = ": " + attempt.Detail
		}

		sql := attempt.SQL
		if sql == "" {
			sql = "<no SQL extracted>"
		}

		fmt.Fprintf(&sb, "  %d. %s%s\n     %s\n", attempt.Index, status, detail, f.clip(sql))
	}

	return sb.String()
}

// FormatRows renders columns and rows as a fixed-width text table
func (f *Formatter) FormatRows(columns []string, rows [][]any) string {
	return f.formatTable(columns, rows)
}

// formatTable renders rows as a fixed-width text table
func (f *Formatter) formatTable(columns []string, rows [][]any) string {
	if len(columns) == 0 {
		return "(no columns)\n"
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	rendered := make([][]string, len(rows))

	for r, row := range rows {
		cells := make([]string, len(columns))

		for i := range columns {
			var cell string
			if i < len(row) {
				cell = f.clip(formatValue(row[i]))
			}

			cells[i] = cell

			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}

		rendered[r] = cells
	}

	var sb strings.Builder

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}

			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}

		sb.WriteString("\n")
	}

	writeRow(columns)

	separators := make([]string, len(columns))
	for i := range columns {
		separators[i] = strings.Repeat("-", widths[i])
	}

	writeRow(separators)

	for _, cells := range rendered {
		writeRow(cells)
	}

	return sb.String()
}

func (f *Formatter) clip(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	if len(value) > f.maxColWidth*3 {
		return value[:f.maxColWidth*3] + "..."
	}

	return value
}

func formatValue(value any) string {
	if value == nil {
		return "NULL"
	}

	return fmt.Sprintf("%v", value)
}
