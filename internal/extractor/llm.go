package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/editais/ingestor/internal/telemetry"
)

const schemaPrompt = `Extraia do texto abaixo um objeto JSON estrito com exatamente estas 24 chaves.
Use null para qualquer campo ausente; nunca use string vazia.

{
  "apelido_edital": string|null,
  "financiador_1": string|null,
  "financiador_2": string|null,
  "area_foco": string|null,
  "tipo_proponente": string|null,
  "empresas_que_podem_submeter": string|null,
  "duracao_min_meses": number|null,
  "duracao_max_meses": number|null,
  "valor_min_R$": number|null,
  "valor_max_R$": number|null,
  "tipo_recurso": string|null,
  "recepcao_recursos": string|null,
  "custeio": boolean|null,
  "capital": boolean|null,
  "contrapartida_min_%": number|null,
  "contrapartida_max_%": number|null,
  "tipo_contrapartida": string|null,
  "data_inicial_submissao": string|null,
  "data_final_submissao": string|null,
  "data_resultado": string|null,
  "descricao_completa": string|null,
  "origem": string|null,
  "link": string|null,
  "observacoes": string|null
}

Responda apenas com o objeto JSON, sem marcação de bloco de código.

Texto:
%s`

var fencedCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Client wraps a Gemini generative model behind a circuit breaker and
// rate limiter, mirroring the teacher's chat-completion client but
// scoped to structured per-chunk extraction.
type Client struct {
	model       *genai.GenerativeModel
	closeClient func() error
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	metrics     *telemetry.Metrics
}

// NewClient builds an extraction client. maxRPS/maxBurst bound the
// outbound call rate; breakerMaxFails/breakerOpenPeriod configure the
// circuit breaker that protects the pipeline from a degraded Gemini API.
func NewClient(ctx context.Context, apiKey, modelName string, maxRPS float64, maxBurst int, breakerMaxFails uint32, breakerOpenPeriod time.Duration, metrics *telemetry.Metrics) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := genaiClient.GenerativeModel(modelName)
	model.SetTemperature(0)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "extractor.gemini",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     breakerOpenPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics != nil {
				metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	return &Client{
		model:       model,
		closeClient: genaiClient.Close,
		breaker:     breaker,
		limiter:     rate.NewLimiter(rate.Limit(maxRPS), maxBurst),
		metrics:     metrics,
	}, nil
}

func (c *Client) Close() error {
	if c.closeClient != nil {
		return c.closeClient()
	}
	return nil
}

// ExtractChunk issues one extraction request for a text chunk and
// returns the parsed raw variables. Callers are responsible for the
// retry-once-then-placeholder behaviour described at the call site.
func (c *Client) ExtractChunk(ctx context.Context, text string) (map[string]interface{}, int64, error) {
	tracer := otel.Tracer("extractor")
	ctx, span := tracer.Start(ctx, "extractor.extract_chunk")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		prompt := fmt.Sprintf(schemaPrompt, text)
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, 0, err
	}

	resp := result.(*genai.GenerateContentResponse)
	raw := responseText(resp)

	var tokens int64
	if resp.UsageMetadata != nil {
		tokens = int64(resp.UsageMetadata.TotalTokenCount)
	}
	if c.metrics != nil {
		c.metrics.RecordTokensUsed(tokens, "gemini")
	}
	span.SetAttributes(attribute.Int64("extractor.tokens", tokens))

	parsed, err := parseChunkJSON(raw)
	if err != nil {
		return nil, tokens, err
	}
	return parsed, tokens, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// parseChunkJSON strips fenced code markers and coerces literal
// "null" strings to nil before decoding, per the extraction contract.
func parseChunkJSON(raw string) (map[string]interface{}, error) {
	cleaned := raw
	if m := fencedCodeBlock.FindStringSubmatch(raw); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("invalid json from model: %w", err)
	}

	for k, v := range parsed {
		if s, ok := v.(string); ok && s == "null" {
			parsed[k] = nil
		}
	}
	return parsed, nil
}
