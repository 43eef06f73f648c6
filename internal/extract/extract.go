// Package extract pulls a single SQL statement out of free-form model
// output. The rules are a documented contract, not an implementation
// detail: markdown code fences are stripped (a ```sql fence wins over a
// plain fence, which wins over bare text), the text must start with a
// SQL statement keyword, and exactly one top-level statement is accepted
// per attempt. Semicolons inside string literals and comments do not
// count as statement terminators. Extraction does not judge safety: a
// DROP or DELETE statement extracts fine and is rejected downstream by
// the validator, which produces the more useful rejection reason.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Reason classifies an extraction failure
type Reason string

const (
	ReasonNoSQLFound         Reason = "no_sql_found"
	ReasonMultipleStatements Reason = "multiple_statements"
)

// Error is a classified extraction failure
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", e.Reason, e.Detail)
}

var (
	sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*\\n?(.*?)```")
	anyFencePattern = regexp.MustCompile("(?s)```(?:\\w+)?\\s*\\n?(.*?)```")
	leadKeyword     = regexp.MustCompile(`(?i)^\s*(SELECT|WITH|INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|ATTACH|COPY|EXPORT|PRAGMA)\b`)
)

// Extract returns the single SQL statement contained in raw model output
func Extract(raw string) (string, error) {
	candidate := findCandidate(raw)
	if candidate == "" {
		return "", &Error{
			Reason: ReasonNoSQLFound,
			Detail: "response contains no SQL statement",
		}
	}

	statements := splitStatements(candidate)
	if len(statements) == 0 {
		return "", &Error{
			Reason: ReasonNoSQLFound,
			Detail: "response contains no SQL statement",
		}
	}

	if len(statements) > 1 {
		return "", &Error{
			Reason: ReasonMultipleStatements,
			Detail: fmt.Sprintf("expected exactly one statement, found %d", len(statements)),
		}
	}

	stmt := strings.TrimSpace(statements[0])
	if !leadKeyword.MatchString(stmt) {
		return "", &Error{
			Reason: ReasonNoSQLFound,
			Detail: "extracted text does not start with a SQL statement keyword",
		}
	}

	return stmt, nil
}

// findCandidate locates the text block most likely to hold the statement
func findCandidate(raw string) string {
	if match := sqlFencePattern.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}

	if match := anyFencePattern.FindStringSubmatch(raw); match != nil {
		if block := strings.TrimSpace(match[1]); leadKeyword.MatchString(block) {
			return block
		}
	}

	// No usable fence: take the lines from the first statement-like line
	// up to the next blank line, dropping any surrounding prose.
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if !leadKeyword.MatchString(line) {
			continue
		}

		var collected []string

		for j := i; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed == "" {
				break
			}

			collected = append(collected, trimmed)
		}

		return strings.Join(collected, "\n")
	}

	return ""
}

// splitStatements splits SQL on semicolons outside of string literals,
// quoted identifiers, and comments. Fragments with no content beyond
// whitespace and comments (such as the tail after a trailing semicolon,
// or a trailing "-- explanation" line) are dropped.
func splitStatements(sqlText string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	runes := []rune(sqlText)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case stateSingleQuote:
			current.WriteRune(ch)

			if ch == '\'' {
				// Escaped quote inside the literal.
				if i+1 < len(runes) && runes[i+1] == '\'' {
					current.WriteRune(runes[i+1])
					i++

					continue
				}

				state = stateNormal
			}
		case stateDoubleQuote:
			current.WriteRune(ch)

			if ch == '"' {
				state = stateNormal
			}
		case stateLineComment:
			current.WriteRune(ch)

			if ch == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			current.WriteRune(ch)

			if ch == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				current.WriteRune(runes[i+1])
				i++
				state = stateNormal
			}
		default:
			switch {
			case ch == ';':
				if stmt := strings.TrimSpace(current.String()); hasContent(stmt) {
					statements = append(statements, stmt)
				}

				current.Reset()

				continue
			case ch == '\'':
				state = stateSingleQuote
			case ch == '"':
				state = stateDoubleQuote
			case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
				state = stateLineComment
			case ch == '/' && i+1 < len(runes) && runes[i+1] == '*':
				state = stateBlockComment
			}

			current.WriteRune(ch)
		}
	}

	if stmt := strings.TrimSpace(current.String()); hasContent(stmt) {
		statements = append(statements, stmt)
	}

	return statements
}

var (
	lineCommentPattern  = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// hasContent reports whether a fragment contains anything besides
// whitespace and comments
func hasContent(fragment string) bool {
	stripped := lineCommentPattern.ReplaceAllString(fragment, "")
	stripped = blockCommentPattern.ReplaceAllString(stripped, "")

	return strings.TrimSpace(stripped) != ""
}
