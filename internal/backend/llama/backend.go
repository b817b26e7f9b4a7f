package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/mapsafe"
)

const BackendPort = 8081

// Backend implements backend.Backend for llama.cpp.
type Backend struct {
	serverManager *backend.ServerManager
	client        *http.Client
	binPath       string
	baseURL       string
	modelPath     string
	port          int
	mu            sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithPort sets the port the spawned llama-server binds to.
func WithPort(port int) Option {
	return func(b *Backend) {
		if port > 0 {
			b.port = port
		}
	}
}

// WithBaseURL points the backend at an already running llama-server.
func WithBaseURL(url string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(url, "/")
	}
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is a request to the llama-server API.
type ChatCompletionRequest struct {
	Messages         []ChatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	TopK             int           `json:"top_k,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	MinP             float64       `json:"min_p,omitempty"`
	NPredict         int           `json:"n_predict,omitempty"`
	RepeatPenalty    float64       `json:"repeat_penalty,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
}

// ChatCompletionResponse is a response from the llama-server API.
type ChatCompletionResponse struct {
	ID      string         `json:"id,omitempty"`
	Object  string         `json:"object,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []Choice       `json:"choices"`
	Usage   Usage          `json:"usage"`
	Timings map[string]any `json:"timings,omitempty"`
	Created int64          `json:"created,omitempty"`
}

// Choice represents a single choice in a response
type Choice struct {
	FinishReason string      `json:"finish_reason"`
	Message      ChatMessage `json:"message"`
	Index        int         `json:"index"`
}

// Usage represents the usage information of a response
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewBackend creates a new Backend instance.
func NewBackend(binPath string, serverManager *backend.ServerManager, opts ...Option) *Backend {
	b := &Backend{
		binPath:       binPath,
		serverManager: serverManager,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
		port: BackendPort,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	if b.baseURL != "" || b.serverManager == nil {
		return nil
	}
	return b.serverManager.StopServer(string(b.Provider()), b.port)
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.BackendProvider {
	return backend.BackendProviderLlamaCPP
}

// ResolveModelPath picks the first .gguf file inside a downloaded directory.
func (b *Backend) ResolveModelPath(basePath string) (string, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat model path: %w", err)
	}
	if !info.IsDir() {
		return basePath, nil
	}

	matches, err := filepath.Glob(filepath.Join(basePath, "*.gguf"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .gguf model found in %s", basePath)
	}

	return matches[0], nil
}

func (b *Backend) endpoint(ctx context.Context, modelPath string) (string, error) {
	if b.baseURL != "" {
		return b.baseURL, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name := string(b.Provider())
	if b.modelPath != "" && b.modelPath != modelPath {
		if err := b.serverManager.StopServer(name, b.port); err != nil {
			return "", err
		}
	}

	if err := b.serverManager.StartServer(ctx, backend.ServerConfig{
		Name:         name,
		BinPath:      b.binPath,
		Args:         []string{"--model", modelPath, "--port", fmt.Sprintf("%d", b.port), "--host", "127.0.0.1"},
		Port:         b.port,
		HealthPath:   "/health",
		ReadyTimeout: 2 * time.Minute,
	}); err != nil {
		return "", fmt.Errorf("failed to start server: %w", err)
	}
	b.modelPath = modelPath

	return backend.BaseURL(b.port), nil
}

// Infer implements backend.Backend.
// Input: prompt text.
// Output: assistant reply text.
func (b *Backend) Infer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	prompt, err := io.ReadAll(req.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if strings.TrimSpace(string(prompt)) == "" {
		return nil, backend.ErrEmptyInput
	}

	baseURL, err := b.endpoint(ctx, req.ModelPath)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(b.buildChatCompletionRequest(req, string(prompt)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start).Seconds()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		return nil, fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, body)
	}

	var completionResp ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	content := ""
	if len(completionResp.Choices) > 0 {
		content = strings.TrimSpace(completionResp.Choices[0].Message.Content)
	}

	return &backend.Response{
		Output: strings.NewReader(content),
		Metadata: &backend.ResponseMetadata{
			Provider:        b.Provider(),
			Model:           req.ModelPath,
			Format:          "text",
			Timestamp:       time.Now(),
			DurationSeconds: elapsed,
			OutputSizeBytes: int64(len(content)),
			BackendSpecific: map[string]any{
				"usage": completionResp.Usage,
			},
		},
	}, nil
}

// buildChatCompletionRequest builds a ChatCompletionRequest from a backend.Request.
func (b *Backend) buildChatCompletionRequest(req *backend.Request, prompt string) *ChatCompletionRequest {
	p := req.Parameters
	if p == nil {
		p = make(map[string]any)
	}

	messages := []ChatMessage{
		{Role: "user", Content: prompt},
	}

	if sysPrompt := mapsafe.Get(p, "system_prompt", ""); sysPrompt != "" {
		messages = append([]ChatMessage{{Role: "system", Content: sysPrompt}}, messages...)
	}

	return &ChatCompletionRequest{
		Messages:         messages,
		NPredict:         mapsafe.Get(p, "n_predict", 256),
		Temperature:      mapsafe.Get(p, "temperature", 0.7),
		TopK:             mapsafe.Get(p, "top_k", 40),
		TopP:             mapsafe.Get(p, "top_p", 0.9),
		MinP:             mapsafe.Get(p, "min_p", 0.05),
		RepeatPenalty:    mapsafe.Get(p, "repeat_penalty", 1.1),
		PresencePenalty:  mapsafe.Get(p, "presence_penalty", 0.0),
		FrequencyPenalty: mapsafe.Get(p, "frequency_penalty", 0.0),
	}
}
