package vectordb

import (
	"fmt"
	"sort"
	"strings"
)

// FormatEntry renders a stored entry for inspection.
func FormatEntry(c Collection, e *Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Collection: %s\n", c)
	fmt.Fprintf(&sb, "ID:         %s\n", e.ID)
	fmt.Fprintf(&sb, "Dimensions: %d\n", len(e.Embedding))
	sb.WriteString("Metadata:\n")

	md := e.Metadata.ToMap()
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if md[k] == "" || md[k] == "[]" {
			continue
		}
		fmt.Fprintf(&sb, "  %-18s %s\n", k+":", md[k])
	}

	sb.WriteString("\nText:\n")
	sb.WriteString(e.Text)
	sb.WriteString("\n")
	return sb.String()
}

// FormatResults renders raw k-NN hits as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "--- Result %d: %s (distance: %.4f) ---\n", i+1, r.ID, r.Distance)
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
