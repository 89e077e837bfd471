package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

// printDocuments writes one numbered block per search result.
func printDocuments(w io.Writer, docs []schema.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for i, doc := range docs {
		fmt.Fprintf(w, "[%d] score=%.4f", i+1, doc.Score)
		for _, k := range slices.Sorted(maps.Keys(doc.Metadata)) {
			fmt.Fprintf(w, " %s=%v", k, doc.Metadata[k])
		}
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimSpace(doc.PageContent), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
