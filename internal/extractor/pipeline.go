package extractor

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/editais/ingestor/internal/store"
	"github.com/editais/ingestor/internal/telemetry"
	"github.com/editais/ingestor/internal/vectorindex"
	"github.com/editais/ingestor/models"
)

const maxRawPreview = 500

// Pipeline drives the chunked progressive extraction described in
// spec.md §4.6: chunk the page-joined text, extract each chunk with
// the LLM, persist progressively to the canonical store and the
// vector index, merge into an accumulator, and finalize.
type Pipeline struct {
	LLM         *Client
	Store       *store.Store
	Vectors     *vectorindex.Index
	Metrics     *telemetry.Metrics
	ChunkSize   int
	ChunkOverlap int
	ChunkDelay  time.Duration
}

// Run processes one edital's full text end to end. It returns the
// edital's id and the final merged fields.
func (p *Pipeline) Run(ctx context.Context, sourceURL, sourceTag, contentHash, editalName, text string) (primitive.ObjectID, *models.EditalFields, error) {
	chunks := Chunk(text, p.ChunkSize, p.ChunkOverlap)
	accumulator := map[string]interface{}{}

	var editalID primitive.ObjectID
	for i, chunkText := range chunks {
		start := time.Now()
		parsed, _, err := p.extractWithRetry(ctx, chunkText)

		var chunkRecord models.ExtractionChunk
		if err != nil {
			preview := chunkText
			if len(preview) > maxRawPreview {
				preview = preview[:maxRawPreview]
			}
			chunkRecord = models.ExtractionChunk{
				ChunkIndex: i,
				Failed:     true,
				Timestamp:  time.Now(),
			}
			id, appendErr := p.Store.AppendChunk(ctx, sourceURL, sourceTag, contentHash, chunkRecord, len(chunks))
			if appendErr != nil {
				return editalID, nil, appendErr
			}
			editalID = id
			_ = p.Store.AppendFailedChunk(ctx, editalID, models.RawFailedChunk{
				ChunkIndex: i,
				Erro:       "resposta_invalida",
				Raw:        preview,
				Timestamp:  time.Now(),
			})
		} else {
			chunkRecord = models.ExtractionChunk{
				ChunkIndex: i,
				RawVars:    parsed,
				Failed:     false,
				Timestamp:  time.Now(),
			}
			id, appendErr := p.Store.AppendChunk(ctx, sourceURL, sourceTag, contentHash, chunkRecord, len(chunks))
			if appendErr != nil {
				return editalID, nil, appendErr
			}
			editalID = id
			Merge(accumulator, parsed)
		}

		if p.Metrics != nil {
			p.Metrics.RecordExtraction(time.Since(start).Seconds(), statusOf(err))
		}

		meta := models.ChunkMetadata{
			EditalID:    editalID.Hex(),
			EditalName:  editalName,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			CreatedAt:   time.Now().Format(time.RFC3339),
			Link:        sourceURL,
		}
		if f, ok := accumulator["financiador_1"].(string); ok {
			meta.Financiador = f
		}
		if a, ok := accumulator["area_foco"].(string); ok {
			meta.AreaFoco = a
		}
		if vecErr := p.Vectors.AddChunk(ctx, chunkText, meta); vecErr != nil {
			return editalID, nil, vecErr
		}

		if i < len(chunks)-1 && p.ChunkDelay > 0 {
			select {
			case <-time.After(p.ChunkDelay):
			case <-ctx.Done():
				return editalID, nil, ctx.Err()
			}
		}
	}

	fields := ToEditalFields(accumulator)
	fields.Link = &sourceURL
	if err := p.Store.FinalCommit(ctx, editalID, fields, models.ExtractionStatusCompleted); err != nil {
		return editalID, nil, err
	}

	return editalID, fields, nil
}

func (p *Pipeline) extractWithRetry(ctx context.Context, chunkText string) (map[string]interface{}, int64, error) {
	parsed, tokens, err := p.LLM.ExtractChunk(ctx, chunkText)
	if err == nil {
		return parsed, tokens, nil
	}
	return p.LLM.ExtractChunk(ctx, chunkText)
}

func statusOf(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
