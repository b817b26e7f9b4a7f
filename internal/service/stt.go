package service

import (
	"context"
	"io"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/model"
)

// STT is a service abstraction for speech-to-text.
type STT struct {
	runner
	modelID string
}

// NewSTT creates a new STT service. modelID is the default model.
func NewSTT(backends *backend.Registry, models *model.Manager, modelID string) *STT {
	return &STT{
		runner:  runner{backends: backends, models: models},
		modelID: modelID,
	}
}

// Transcribe transcribes audio. An empty modelID uses the default model.
func (s *STT) Transcribe(ctx context.Context, audio io.Reader, modelID, language string) (string, error) {
	if modelID == "" {
		modelID = s.modelID
	}

	var params map[string]any
	if language != "" {
		params = map[string]any{"language": language}
	}

	resp, err := s.infer(ctx, model.ModelTypeSTT, "", modelID, audio, params)
	if err != nil {
		return "", err
	}

	text, err := readOutput(resp)
	if err != nil {
		return "", err
	}

	return string(text), nil
}
