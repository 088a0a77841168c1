// Package cli renders engine results for the terminal and talks to a running server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rag"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	separator     = "─────────────────────────────────────────────────────────"
	previewLength = 200
)

// FormatFor returns OutputJSON when asJSON is set.
func FormatFor(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

// WriteContext writes an assembled context bundle to w in the given format.
func WriteContext(w io.Writer, result *rag.ContextResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "\nQuery: %s\n", result.Query)
	fmt.Fprintf(w, "Search type: %s | %d graph nodes | %d documents\n\n",
		result.SearchType, len(result.Nodes), len(result.Documents))
	if len(result.Nodes) > 0 {
		fmt.Fprintln(w, "--- Graph evidence ---")
		for _, n := range result.Nodes {
			fmt.Fprintf(w, "[%s] %s", n.Kind, n.Summary)
			if q := n.Qualifier(); q != "" {
				fmt.Fprintf(w, " (%s)", q)
			}
			fmt.Fprintf(w, " confidence: %s\n", n.Confidence)
		}
		fmt.Fprintln(w)
	}
	writeDocuments(w, result.Documents)
	return nil
}

// WriteAnswer writes a question answer to w in the given format.
func WriteAnswer(w io.Writer, answer *rag.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\nState: %s | Search type: %s\n", answer.State, answer.SearchType)
	if len(answer.Entities) > 0 {
		fmt.Fprintf(w, "Entities: %s\n", strings.Join(answer.Entities, ", "))
	}
	fmt.Fprintln(w)
	if answer.State == models.StateEmpty {
		fmt.Fprintln(w, "No graph or document evidence found for this question.")
		return nil
	}
	fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(answer.Answer))
	if len(answer.Citations) > 0 {
		fmt.Fprintln(w, "--- Sources ---")
		for _, c := range answer.Citations {
			label := c.Title
			if label == "" {
				label = c.SourceID
			}
			fmt.Fprintf(w, "[%d] %s (chunk %d, score %.4f)\n", c.Rank, label, c.ChunkIndex, c.Score)
		}
	}
	return nil
}

func writeDocuments(w io.Writer, docs []models.ScoredDocument) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	fmt.Fprintln(w, "--- Documents ---")
	for i, d := range docs {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, d.Score)
		if id := d.SourceID(); id != "" {
			fmt.Fprintf(w, "Source: %s\n", id)
		}
		if title := d.Title(); title != "" {
			fmt.Fprintf(w, "Title: %s\n", title)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(d.Content, previewLength))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
