package extractor

import "testing"

func TestChunkOverlap(t *testing.T) {
	text := "0123456789"
	chunks := Chunk(text, 4, 1)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	if chunks[0] != "0123" {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
	if len(chunks) < 2 || chunks[1] != "3456" {
		t.Fatalf("expected second chunk to start one character before the first ends, got %v", chunks)
	}
}

func TestChunkShorterThanSize(t *testing.T) {
	chunks := Chunk("  short  ", 100, 10)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("expected single trimmed chunk, got %v", chunks)
	}
}

func TestMergeKeepsLongerString(t *testing.T) {
	acc := map[string]interface{}{"descricao_completa": "curto"}
	Merge(acc, map[string]interface{}{"descricao_completa": "um texto bem mais longo"})
	if acc["descricao_completa"] != "um texto bem mais longo" {
		t.Fatalf("expected longer string to win, got %v", acc["descricao_completa"])
	}
}

func TestMergeIgnoresEmptyNew(t *testing.T) {
	acc := map[string]interface{}{"area_foco": "saude"}
	Merge(acc, map[string]interface{}{"area_foco": "null"})
	if acc["area_foco"] != "saude" {
		t.Fatalf("expected accumulator to be preserved, got %v", acc["area_foco"])
	}
}

func TestMergeNeverOverwritesSystemOwnedFields(t *testing.T) {
	acc := map[string]interface{}{"link": "https://system-owned"}
	Merge(acc, map[string]interface{}{"link": "https://llm-guessed"})
	if acc["link"] != "https://system-owned" {
		t.Fatalf("expected link to stay system-owned, got %v", acc["link"])
	}
}
