package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/model"
)

const translatePrompt = "Translate the user's text into %s. Reply with the translation only, without quotes or notes."

// LLM is a service abstraction for text generation. It implements
// pipeline.Translator.
type LLM struct {
	runner
	modelID string
}

// NewLLM creates a new LLM service. modelID is the model used for translation.
func NewLLM(backends *backend.Registry, models *model.Manager, modelID string) *LLM {
	return &LLM{
		runner:  runner{backends: backends, models: models},
		modelID: modelID,
	}
}

// Translate translates text into language.
func (s *LLM) Translate(ctx context.Context, text, language string) (string, error) {
	resp, err := s.infer(ctx, model.ModelTypeLLM, "", s.modelID, strings.NewReader(text), map[string]any{
		"system_prompt": fmt.Sprintf(translatePrompt, language),
		"temperature":   0.0,
	})
	if err != nil {
		return "", err
	}

	out, err := readOutput(resp)
	if err != nil {
		return "", err
	}

	translated := strings.TrimSpace(string(out))
	if translated == "" {
		return "", fmt.Errorf("translation of %q into %s is empty", text, language)
	}

	return translated, nil
}
