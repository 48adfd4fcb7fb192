package rag

import (
	"fmt"
	"strings"

	"github.com/editais/ingestor/internal/vectorindex"
)

const truncationMarker = "\n[... contexto truncado ...]"

// FilterByDistance keeps the top k results with distance below the
// threshold, in order; smaller distance means more similar.
func FilterByDistance(results []vectorindex.SearchResult, threshold float32, k int) []vectorindex.SearchResult {
	var kept []vectorindex.SearchResult
	for _, r := range results {
		if r.Distance < threshold {
			kept = append(kept, r)
		}
		if len(kept) >= k {
			break
		}
	}
	return kept
}

// BuildContext renders the filtered results as a numbered list of
// documents, capping the concatenated text at maxLength and appending
// an explicit truncation marker if it was cut.
func BuildContext(results []vectorindex.SearchResult, maxLength int) (string, []string) {
	var b strings.Builder
	var sources []string

	for i, r := range results {
		sources = append(sources, r.ID)
		fmt.Fprintf(&b, "Documento %d (edital: %s, chunk %d/%d, distancia: %.4f):\n%s\n\n",
			i+1, r.Metadata.EditalName, r.Metadata.ChunkIndex+1, r.Metadata.TotalChunks, r.Distance, r.Text)
	}

	context := b.String()
	if len(context) > maxLength {
		cut := maxLength - len(truncationMarker)
		if cut < 0 {
			cut = 0
		}
		context = context[:cut] + truncationMarker
	}

	return context, sources
}
