package enrich

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"horse.fit/newswire/internal/reader"
)

// TextFetcher is satisfied by reader.Fetcher.
type TextFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// ReaderSource uses the article page itself.
type ReaderSource struct {
	Fetcher  TextFetcher
	MaxChars int
}

func (ReaderSource) Name() string { return "reader" }

func (s ReaderSource) Generate(ctx context.Context, req BackfillRequest) (string, error) {
	link := strings.TrimSpace(req.Link)
	if link == "" {
		return "", fmt.Errorf("no link to fetch")
	}
	text, err := s.Fetcher.FetchText(ctx, link)
	if err != nil {
		return "", err
	}
	text, _ = reader.TruncateText(text, s.MaxChars)
	return text, nil
}

// LLMSource asks a chat completion model for a short neutral summary.
type LLMSource struct {
	client *openai.Client
	model  string
}

func NewLLMSource(apiKey, baseURL, model string) *LLMSource {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(baseURL)
	}
	return &LLMSource{client: openai.NewClientWithConfig(cfg), model: model}
}

func (*LLMSource) Name() string { return "llm" }

func (s *LLMSource) Generate(ctx context.Context, req BackfillRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		MaxTokens:   300,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Eres un redactor de noticias. Escribe en español un párrafo breve, neutral y factual. No inventes cifras, nombres ni citas.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: llmPrompt(req),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func llmPrompt(req BackfillRequest) string {
	var b strings.Builder
	b.WriteString("Titular: ")
	b.WriteString(strings.TrimSpace(req.Title))
	if category := strings.TrimSpace(req.Category); category != "" {
		b.WriteString("\nCategoría: ")
		b.WriteString(category)
	}
	if existing := strings.TrimSpace(req.Existing); existing != "" {
		b.WriteString("\nFragmento disponible: ")
		b.WriteString(existing)
	}
	b.WriteString("\nRedacta el cuerpo de la nota en 3 a 5 oraciones.")
	return b.String()
}
