package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/retriever-labs/campusqa/internal/domain"
	"github.com/retriever-labs/campusqa/internal/domain/query"
	"github.com/retriever-labs/campusqa/internal/metrics"
)

const generatorSystemPrompt = `You are a campus assistant. Answer the student's question using only the provided context snippets. Cite snippets by their id in square brackets, e.g. [cal-12]. If the context does not contain the answer, say so plainly.`

// Generator produces grounded natural-language answers via the chat
// completions API.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate answers the question grounded in the retrieved snippets. Errors
// are wrapped with domain.ErrGeneratorUnavailable so callers can fall back to
// a deterministic answer.
func (g *Generator) Generate(ctx context.Context, question string, snippets []query.ScoredDocument) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(question, snippets)},
		},
	})
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("chat completion: %w: %w", domain.ErrGeneratorUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGeneratorUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildPrompt lays out the context snippets before the question.
func buildPrompt(question string, snippets []query.ScoredDocument) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, s := range snippets {
		fmt.Fprintf(&b, "[%s] (%s) %s: %s\n", s.Document.DocID, s.Document.SourceType, s.Document.Title, s.Document.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}
