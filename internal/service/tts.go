package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/media"
	"github.com/ju4n97/storyreel/internal/model"
	"github.com/ju4n97/storyreel/internal/pipeline"
)

// TTS is a service abstraction for text-to-speech. It implements
// pipeline.SpeechSynthesizer.
type TTS struct {
	runner
	prober *media.Prober
}

// NewTTS creates a new TTS service.
func NewTTS(backends *backend.Registry, models *model.Manager, prober *media.Prober) *TTS {
	return &TTS{
		runner: runner{backends: backends, models: models},
		prober: prober,
	}
}

// Synthesize synthesizes speech and measures its duration.
func (s *TTS) Synthesize(ctx context.Context, text string, voice pipeline.Voice) (*pipeline.Speech, error) {
	params := voice.Parameters
	if voice.Language != "" {
		params = withParam(params, "language", voice.Language)
	}

	resp, err := s.infer(ctx, model.ModelTypeTTS, backend.BackendProvider(voice.Provider), voice.ModelID, strings.NewReader(text), params)
	if err != nil {
		return nil, err
	}

	data, err := readOutput(resp)
	if err != nil {
		return nil, err
	}

	format := "wav"
	if resp.Metadata != nil && resp.Metadata.Format != "" {
		format = resp.Metadata.Format
	}

	d, err := s.prober.Duration(ctx, data, format)
	if err != nil {
		return nil, err
	}

	slog.Debug("Speech synthesized", "model_id", voice.ModelID, "bytes", len(data), "duration", d)

	return &pipeline.Speech{
		Data:     data,
		Format:   format,
		Duration: d,
	}, nil
}

// withParam returns a copy of params with key set.
func withParam(params map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[key] = value
	return out
}
