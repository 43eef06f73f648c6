package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := Root()

	assert.Equal(t, "askduck", root.Name)

	var names []string
	for _, command := range root.Commands {
		names = append(names, command.Name)
	}

	assert.Equal(t, []string{"ask", "explain", "suggest", "load", "tables", "schema"}, names)
}

func TestAskCommandFlags(t *testing.T) {
	ask := AskCommand()

	var flagNames []string
	for _, flag := range ask.Flags {
		flagNames = append(flagNames, flag.Names()[0])
	}

	assert.Contains(t, flagNames, "schema")
	assert.Contains(t, flagNames, "instructions")
	assert.Contains(t, flagNames, "attempts")
}

func TestLoadCommandFlags(t *testing.T) {
	load := LoadCommand()

	var flagNames []string
	for _, flag := range load.Flags {
		flagNames = append(flagNames, flag.Names()[0])
	}

	assert.Contains(t, flagNames, "table")
	assert.Contains(t, flagNames, "format")
}

func TestSuggestCommandDefaults(t *testing.T) {
	suggest := SuggestCommand()

	require.NotEmpty(t, suggest.Flags)

	var found bool
	for _, flag := range suggest.Flags {
		if flag.Names()[0] == "count" {
			found = true
		}
	}

	assert.True(t, found, "suggest command must expose --count")
}
