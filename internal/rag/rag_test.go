package rag

import (
	"testing"

	"github.com/editais/ingestor/internal/vectorindex"
	"github.com/editais/ingestor/models"
)

func TestExpandQuerySkipsLongQueries(t *testing.T) {
	q := "qual o prazo final de submissao"
	if got := ExpandQuery(q); got != q {
		t.Fatalf("expected unchanged query for 3+ words, got %q", got)
	}
}

func TestExpandQueryAddsSynonyms(t *testing.T) {
	got := ExpandQuery("prazo")
	if got == "prazo" {
		t.Fatalf("expected synonyms appended")
	}
}

func TestFilterByDistanceRespectsThresholdAndK(t *testing.T) {
	results := []vectorindex.SearchResult{
		{ID: "a", Distance: 0.2},
		{ID: "b", Distance: 1.8},
		{ID: "c", Distance: -0.1},
		{ID: "d", Distance: 0.5},
	}
	filtered := FilterByDistance(results, 1.5, 2)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 results, got %d", len(filtered))
	}
	if filtered[0].ID != "a" || filtered[1].ID != "c" {
		t.Fatalf("unexpected filtered order: %+v", filtered)
	}
}

func TestBuildContextTruncates(t *testing.T) {
	results := []vectorindex.SearchResult{
		{ID: "x_chunk_0", Text: "conteudo longo repetido " + string(make([]byte, 5000)), Metadata: models.ChunkMetadata{EditalName: "Teste", TotalChunks: 1}},
	}
	context, sources := BuildContext(results, 100)
	if len(context) > 100 {
		t.Fatalf("expected context capped at 100 chars, got %d", len(context))
	}
	if len(sources) != 1 || sources[0] != "x_chunk_0" {
		t.Fatalf("unexpected sources: %v", sources)
	}
}
