package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Edital extraction lifecycle states.
const (
	ExtractionStatusPending    = "pending"
	ExtractionStatusInProgress = "in_progress"
	ExtractionStatusCompleted  = "completed"
	ExtractionStatusFailed     = "failed"
)

// EditalFields is the fixed 24-field structured schema extracted from
// a funding call PDF. Every field is optional: the LLM may leave a
// field unanswered, in which case it stays nil rather than becoming
// an empty string.
type EditalFields struct {
	ApelidoEdital            *string  `bson:"apelido_edital" json:"apelido_edital"`
	Financiador1             *string  `bson:"financiador_1" json:"financiador_1"`
	Financiador2             *string  `bson:"financiador_2" json:"financiador_2"`
	AreaFoco                 *string  `bson:"area_foco" json:"area_foco"`
	TipoProponente           *string  `bson:"tipo_proponente" json:"tipo_proponente"`
	EmpresasQuePodemSubmeter *string  `bson:"empresas_que_podem_submeter" json:"empresas_que_podem_submeter"`
	DuracaoMinMeses          *int     `bson:"duracao_min_meses" json:"duracao_min_meses"`
	DuracaoMaxMeses          *int     `bson:"duracao_max_meses" json:"duracao_max_meses"`
	ValorMinReais            *float64 `bson:"valor_min_reais" json:"valor_min_R$"`
	ValorMaxReais            *float64 `bson:"valor_max_reais" json:"valor_max_R$"`
	TipoRecurso              *string  `bson:"tipo_recurso" json:"tipo_recurso"`
	RecepcaoRecursos         *string  `bson:"recepcao_recursos" json:"recepcao_recursos"`
	Custeio                  *bool    `bson:"custeio" json:"custeio"`
	Capital                  *bool    `bson:"capital" json:"capital"`
	ContrapartidaMinPct      *float64 `bson:"contrapartida_min_pct" json:"contrapartida_min_%"`
	ContrapartidaMaxPct      *float64 `bson:"contrapartida_max_pct" json:"contrapartida_max_%"`
	TipoContrapartida        *string  `bson:"tipo_contrapartida" json:"tipo_contrapartida"`
	DataInicialSubmissao     *string  `bson:"data_inicial_submissao" json:"data_inicial_submissao"`
	DataFinalSubmissao       *string  `bson:"data_final_submissao" json:"data_final_submissao"`
	DataResultado            *string  `bson:"data_resultado" json:"data_resultado"`
	DescricaoCompleta        *string  `bson:"descricao_completa" json:"descricao_completa"`
	Origem                   *string  `bson:"origem" json:"origem"`
	Link                     *string  `bson:"link" json:"link"`
	Observacoes              *string  `bson:"observacoes" json:"observacoes"`
}

// RawFailedChunk records a per-chunk extraction that could not be
// parsed as JSON after retrying once, per spec.md §4.6 "Retry".
type RawFailedChunk struct {
	ChunkIndex int       `bson:"chunk_index" json:"chunk_index"`
	Erro       string    `bson:"erro" json:"erro"`
	Raw        string    `bson:"raw" json:"raw"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// ExtractionChunk is one append-only entry of the per-chunk raw
// extraction trail stored on the Edital, per spec.md §3.
type ExtractionChunk struct {
	ChunkIndex int                    `bson:"chunk_index" json:"chunk_index"`
	RawVars    map[string]interface{} `bson:"raw_vars,omitempty" json:"raw_vars,omitempty"`
	Failed     bool                   `bson:"failed" json:"failed"`
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
}

// Edital is the canonical record for one ingested funding-call PDF.
// SourceURL and SourceTag are system-owned: they never come from the
// LLM and are what §4.6 means by "link/id set from system state" on
// finalization, as opposed to the same values mirrored into
// ConsolidatedVars for typed queries.
type Edital struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SourceURL        string             `bson:"source_url" json:"source_url"`
	SourceTag        string             `bson:"source_tag" json:"source_tag"`
	ContentHash      string             `bson:"content_hash" json:"content_hash"`
	ExtractionStatus string             `bson:"extraction_status" json:"extraction_status"`
	ExtractionChunks []ExtractionChunk  `bson:"extraction_chunks" json:"extraction_chunks"`
	RawFailedChunks  []RawFailedChunk   `bson:"raw_failed_chunks,omitempty" json:"raw_failed_chunks,omitempty"`
	ConsolidatedVars *EditalFields      `bson:"consolidated_variables,omitempty" json:"consolidated_variables,omitempty"`
	TotalChunks      int                `bson:"total_chunks" json:"total_chunks"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
