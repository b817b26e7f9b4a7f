package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/mapsafe"
)

const defaultVoice = openai.VoiceAlloy

// Backend implements backend.Backend over the OpenAI speech endpoint.
// The model path of a request is the remote model name (e.g. "tts-1").
type Backend struct {
	client *openai.Client
}

// NewBackend creates an OpenAI speech backend. baseURL may be empty.
func NewBackend(apiKey, baseURL string) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend requires an API key")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &Backend{client: openai.NewClientWithConfig(cfg)}, nil
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.BackendProvider {
	return backend.BackendProviderOpenAI
}

// Infer synthesizes speech from text.
// Input: text bytes.
// Output: WAV audio bytes.
func (b *Backend) Infer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	text, err := io.ReadAll(req.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return nil, backend.ErrEmptyInput
	}

	p := req.Parameters
	if p == nil {
		p = map[string]any{}
	}

	model := req.ModelPath
	if model == "" {
		model = string(openai.TTSModel1)
	}

	start := time.Now()

	raw, err := b.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          string(text),
		Voice:          openai.SpeechVoice(mapsafe.Get(p, "voice", string(defaultVoice))),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          mapsafe.Get(p, "speed", 1.0),
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer raw.Close()

	audio, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}

	return &backend.Response{
		Output: bytes.NewReader(audio),
		Metadata: &backend.ResponseMetadata{
			Provider:        b.Provider(),
			Model:           model,
			Format:          "wav",
			Timestamp:       time.Now(),
			DurationSeconds: time.Since(start).Seconds(),
			OutputSizeBytes: int64(len(audio)),
		},
	}, nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	return nil
}
