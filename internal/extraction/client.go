package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Extractor превращает текст письма в структурированный тикет.
type Extractor interface {
	Extract(ctx context.Context, email string) (Extracted, error)
}

// Summarizer кратко пересказывает историю обращений клиента.
type Summarizer interface {
	Summarize(ctx context.Context, customerName string, interactions []string) (string, error)
}

const extractPrompt = `Extrahiere Informationen aus dieser E-Mail und erstelle ein strukturiertes Support-Ticket.
Antworte ausschließlich mit einem JSON-Objekt mit den Feldern:
"title" (kurzer, prägnanter Titel), "description" (Zusammenfassung des Problems oder der Anfrage),
"priority" (eine von: Niedrig, Mittel, Hoch, Dringend), "customerName" (Name des Absenders, falls erkennbar, sonst null),
"customerEmail" (E-Mail des Absenders, falls erkennbar, sonst null).`

const summaryPrompt = "Fasse die Interaktionshistorie für den Kunden %s kurz zusammen.\nHistorie: %s"

// Client — клиент OpenAI-совместимого API (по умолчанию Gemini через /v1beta/openai/).
type Client struct {
	api   *openai.Client
	model string
	log   logrus.FieldLogger
}

func NewClient(apiKey, baseURL, model string, log logrus.FieldLogger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model, log: log}
}

func (c *Client) Extract(ctx context.Context, email string) (Extracted, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "E-Mail Inhalt:\n" + email},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		c.log.WithError(err).Warn("extraction: completion request failed")
		return Extracted{}, fmt.Errorf("%w: %v", errs.ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return Extracted{}, fmt.Errorf("%w: no choices in response", errs.ErrExtractionFailed)
	}
	out, err := Parse(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.WithError(err).Warn("extraction: unparseable response")
		return Extracted{}, err
	}
	return out, nil
}

func (c *Client) Summarize(ctx context.Context, customerName string, interactions []string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(summaryPrompt, customerName, strings.Join(interactions, " | "))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", errs.ErrExtractionFailed)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Disabled используется без API-ключа: любое обращение — ErrExtractionUnavailable.
type Disabled struct{}

func (Disabled) Extract(context.Context, string) (Extracted, error) {
	return Extracted{}, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, errs.ErrExtractionUnavailable)
}

func (Disabled) Summarize(context.Context, string, []string) (string, error) {
	return "", fmt.Errorf("%w: %w", errs.ErrExtractionFailed, errs.ErrExtractionUnavailable)
}
