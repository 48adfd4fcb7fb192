package models

import (
	"strconv"
	"time"
)

// ChunkMetadata is stored alongside a chunk's embedding. Values are
// restricted to primitives per spec.md §3: anything non-primitive the
// caller wants to attach must be serialized to a string first.
type ChunkMetadata struct {
	EditalID    string `json:"edital_id"`
	EditalName  string `json:"edital_name,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	CreatedAt   string `json:"created_at"`
	Financiador string `json:"financiador,omitempty"`
	AreaFoco    string `json:"area_foco,omitempty"`
	Link        string `json:"link"`
}

// Chunk is one vector-index entry: a fixed-size slice of an edital's
// extracted text plus the metadata needed to cite it back to the
// canonical record. ID is always "{edital_id}_chunk_{index}".
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID builds the canonical vector-index id for a chunk, matching
// the index used in the edital's extraction_chunks record.
func ChunkID(editalID string, index int) string {
	return editalID + "_chunk_" + strconv.Itoa(index)
}

// ChunkSearchResult pairs a Chunk with the distance returned by the
// vector index, preserved verbatim per spec.md §8 (distance < 1.5,
// negative is more relevant; never renormalized).
type ChunkSearchResult struct {
	Chunk    Chunk     `json:"chunk"`
	Distance float32   `json:"distance"`
	Queried  time.Time `json:"queried"`
}
