package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/campushq/regulations-assistant/internal/core/domain"
	"github.com/campushq/regulations-assistant/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server. One client serves both text
// generation (ports.LanguageModel) and embeddings (ports.Embedder); calls are
// rate limited and retried through the shared resilience executor.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, requestsPerSecond float64, exec *resilience.Executor) *Client {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    limiter,
		exec:       exec,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate runs one chat completion over the structured prompt.
func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	request := map[string]any{
		"model":    c.genModel,
		"messages": chatMessages(prompt),
		"stream":   false,
	}

	var response struct {
		Message chatMessage `json:"message"`
	}
	if err := c.call(ctx, "ollama_chat", "/api/chat", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.call(ctx, "ollama_embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed: empty result")
	}
	return vectors[0], nil
}

func (c *Client) call(ctx context.Context, op, path string, request, response any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	run := func(ctx context.Context) error {
		return c.postJSON(ctx, path, request, response, op)
	}

	var err error
	if c.exec != nil {
		err = c.exec.Do(ctx, op, classifyOllamaError, run)
	} else {
		err = run(ctx)
	}
	return wrapTemporaryIfNeeded(op, err)
}

func chatMessages(prompt domain.Prompt) []chatMessage {
	messages := make([]chatMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	for _, turn := range prompt.History {
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}
	return append(messages, chatMessage{Role: "user", Content: prompt.Input})
}
