// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// context.go formats query results into the context block injected into
// LLM prompts: each chunk prefixed with its source attribution, joined
// by separators, trimmed to a token budget.
package vectorstore

import (
	"fmt"
	"strings"
)

// DefaultContextTokens is the token budget BuildContext applies when the
// caller does not set one.
const DefaultContextTokens = 8000

// contextSeparator sits between chunks in the assembled context block.
const contextSeparator = "\n\n---\n\n"

// BuildContext assembles query results into a prompt-ready context
// string. Results are consumed in order until the next chunk would
// exceed the token budget (estimated at 4 characters per token).
// Returns "" when no result fits.
//
// Example:
//
//	results, err := store.Query(ctx, queryVec, 5, "")
//	if err != nil {
//	    return err
//	}
//	prompt := vectorstore.BuildContext(results, 8000)
func BuildContext(results []QueryResult, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultContextTokens
	}

	var parts []string
	tokenEstimate := 0.0

	for _, r := range results {
		chunkTokens := float64(len(r.Content)) / 4

		if tokenEstimate+chunkTokens > float64(maxTokens) {
			break
		}

		source := r.Filename
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source: %s | Relevance: %.2f]\n%s", source, r.Relevance, r.Content))
		tokenEstimate += chunkTokens
	}

	return strings.Join(parts, contextSeparator)
}
