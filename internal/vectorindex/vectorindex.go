// Package vectorindex wraps a single Chroma collection of edital
// chunks. There is exactly one active collection object per process;
// Warmup performs one dummy query at startup so the first user-facing
// search pays no cold-start penalty.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/openai"

	"github.com/editais/ingestor/models"
)

const embeddingModelMetadataKey = "embedding_model"

// geminiOpenAICompatBaseURL is Gemini's OpenAI-compatible endpoint,
// used so the collection's embedding function calls the same provider
// and credential as internal/extractor and internal/rag already use,
// instead of pulling in a second embedding provider.
const geminiOpenAICompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// newEmbeddingFunction builds the embedding function bound to the
// configured model, so the collection computes vectors the way
// VECTOR_EMBEDDING_MODEL actually names rather than falling back to
// Chroma's default.
func newEmbeddingFunction(apiKey, model string) (embeddings.EmbeddingFunction, error) {
	return openai.NewOpenAIEmbeddingFunction(apiKey,
		openai.WithModel(model),
		openai.WithBaseURL(geminiOpenAICompatBaseURL),
	)
}

// Index is the process-wide handle to the editais chunk collection.
type Index struct {
	client     chroma.Client
	collection chroma.Collection
	model      string
}

// Open connects to Chroma and enforces the embedding-model invariant:
// if a collection with this name already exists and was built with a
// different embedding model, it is dropped and recreated, since mixing
// models inside one collection silently corrupts similarity.
func Open(ctx context.Context, baseURL, collectionName, embeddingModel, embeddingAPIKey string) (*Index, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("connecting to chroma: %w", err)
	}

	ef, err := newEmbeddingFunction(embeddingAPIKey, embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("building embedding function: %w", err)
	}

	existing, err := client.GetCollection(ctx, collectionName, chroma.WithEmbeddingFunctionGet(ef))
	if err == nil && existing != nil {
		meta := existing.Metadata()
		if meta != nil {
			if recorded, ok := meta.GetString(embeddingModelMetadataKey); ok && recorded != embeddingModel {
				if err := client.DeleteCollection(ctx, collectionName); err != nil {
					return nil, fmt.Errorf("dropping stale collection: %w", err)
				}
				existing = nil
			}
		}
	}

	var collection chroma.Collection
	if existing != nil {
		collection = existing
	} else {
		meta := chroma.NewMetadata(chroma.NewStringAttribute(embeddingModelMetadataKey, embeddingModel))
		collection, err = client.CreateCollection(ctx, collectionName,
			chroma.WithCollectionMetadataCreate(meta),
			chroma.WithEmbeddingFunctionCreate(ef),
		)
		if err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
	}

	return &Index{client: client, collection: collection, model: embeddingModel}, nil
}

func chunkID(editalID string, index int) string {
	return models.ChunkID(editalID, index)
}

// AddChunk writes one chunk entry. The collection's embedding function
// computes the vector transparently at write time.
func (idx *Index) AddChunk(ctx context.Context, text string, meta models.ChunkMetadata) error {
	metaJSON, err := metadataAttributes(meta)
	if err != nil {
		return err
	}

	return idx.collection.Add(ctx,
		chroma.WithIDs(chunkID(meta.EditalID, meta.ChunkIndex)),
		chroma.WithTexts(text),
		chroma.WithMetadatas(metaJSON),
	)
}

// SearchResult mirrors the canonical search shape: smaller distance
// means more similar; results may carry a negative distance for
// near-perfect alignment.
type SearchResult struct {
	ID       string
	Text     string
	Metadata models.ChunkMetadata
	Distance float32
}

// Search performs nearest-neighbour retrieval with an optional
// metadata equality filter: a non-empty editalUUID is matched against
// each chunk's edital_id metadata.
func (idx *Index) Search(ctx context.Context, query string, k int, editalUUID string) ([]SearchResult, error) {
	opts := []chroma.CollectionQueryOption{
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
	}
	if editalUUID != "" {
		opts = append(opts, chroma.WithWhereQuery(chroma.EqString("edital_id", editalUUID)))
	}

	resp, err := idx.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}

	var results []SearchResult
	groups := resp.GetIDGroups()
	if len(groups) == 0 {
		return results, nil
	}

	ids := groups[0]
	docs := resp.GetDocumentsGroups()[0]
	dists := resp.GetDistancesGroups()[0]
	metas := resp.GetMetadatasGroups()[0]

	for i := range ids {
		meta := decodeMetadata(metas[i])
		results = append(results, SearchResult{
			ID:       string(ids[i]),
			Text:     docs[i].ContentString(),
			Metadata: meta,
			Distance: float32(dists[i]),
		})
	}
	return results, nil
}

// DeleteByEdital removes every chunk belonging to one edital.
func (idx *Index) DeleteByEdital(ctx context.Context, editalID string) error {
	return idx.collection.Delete(ctx, chroma.WithWhereDelete(chroma.EqString("edital_id", editalID)))
}

func (idx *Index) Clear(ctx context.Context) error {
	return idx.client.DeleteCollection(ctx, idx.collection.Name())
}

func (idx *Index) Stats(ctx context.Context) (int, error) {
	count, err := idx.collection.Count(ctx)
	return count, err
}

// Warmup performs one dummy query so the first user-facing search has
// no cold-start penalty loading the embedding function.
func (idx *Index) Warmup(ctx context.Context) error {
	_, err := idx.collection.Query(ctx, chroma.WithQueryTexts("warmup"), chroma.WithNResults(1))
	return err
}

// metadataAttributes serializes chunk metadata to Chroma attributes.
// Only primitive values are stored directly; the spec's "lists/objects
// serialized to JSON strings" rule has no surface here since
// ChunkMetadata is already flat, but Link is passed through a JSON
// round trip to guard against a future non-primitive addition.
func metadataAttributes(m models.ChunkMetadata) (chroma.DocumentMetadata, error) {
	linkJSON, err := json.Marshal(m.Link)
	if err != nil {
		return nil, err
	}
	return chroma.NewDocumentMetadata(
		chroma.NewStringAttribute("edital_id", m.EditalID),
		chroma.NewStringAttribute("edital_name", m.EditalName),
		chroma.NewIntAttribute("chunk_index", int64(m.ChunkIndex)),
		chroma.NewIntAttribute("total_chunks", int64(m.TotalChunks)),
		chroma.NewStringAttribute("created_at", m.CreatedAt),
		chroma.NewStringAttribute("financiador", m.Financiador),
		chroma.NewStringAttribute("area_foco", m.AreaFoco),
		chroma.NewStringAttribute("link", string(linkJSON)),
	), nil
}

func decodeMetadata(attrs chroma.DocumentMetadata) models.ChunkMetadata {
	var meta models.ChunkMetadata
	if v, ok := attrs.GetString("edital_id"); ok {
		meta.EditalID = v
	}
	if v, ok := attrs.GetString("edital_name"); ok {
		meta.EditalName = v
	}
	if v, ok := attrs.GetInt("chunk_index"); ok {
		meta.ChunkIndex = int(v)
	}
	if v, ok := attrs.GetInt("total_chunks"); ok {
		meta.TotalChunks = int(v)
	}
	if v, ok := attrs.GetString("financiador"); ok {
		meta.Financiador = v
	}
	if v, ok := attrs.GetString("area_foco"); ok {
		meta.AreaFoco = v
	}
	if v, ok := attrs.GetString("link"); ok {
		_ = json.Unmarshal([]byte(v), &meta.Link)
	}
	return meta
}
