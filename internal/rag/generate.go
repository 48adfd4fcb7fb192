package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemPrompt = `Voce e um assistente que responde perguntas sobre editais de fomento brasileiros.
Leia todos os documentos fornecidos. Prefira trechos com distancia menor (ou negativa), pois sao mais relevantes.
Cite o numero do documento usado em cada afirmacao. Responda somente com base no contexto fornecido;
se a resposta nao estiver presente, diga isso explicitamente.`

// Generator wraps a Gemini chat model fixed at the RAG answer
// temperature.
type Generator struct {
	model *genai.GenerativeModel
	close func() error
}

func NewGenerator(ctx context.Context, apiKey, modelName string) (*Generator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)

	return &Generator{model: model, close: client.Close}, nil
}

func (g *Generator) Close() error {
	if g.close != nil {
		return g.close()
	}
	return nil
}

func (g *Generator) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := fmt.Sprintf("%s\n\nContexto:\n%s\n\nPergunta: %s", systemPrompt, contextBlock, question)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

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
	return b.String(), nil
}
