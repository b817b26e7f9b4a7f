package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ju4n97/storyreel/internal/pipeline"
)

type (
	// TranslateRequestDTO is the request body for the Translate operation.
	TranslateRequestDTO struct {
		Text     string `json:"text" minLength:"1" maxLength:"4096"`
		Language string `json:"language" minLength:"1" doc:"Target language, e.g. Spanish"`
	}

	// TranslateResponseDTO is the response body for the Translate operation.
	TranslateResponseDTO struct {
		Text string `json:"text"`
	}
)

type (
	// TranslateInput is the huma input for the Translate operation.
	TranslateInput struct {
		Body TranslateRequestDTO
	}

	// TranslateOutput is the huma output for the Translate operation.
	TranslateOutput struct {
		Body TranslateResponseDTO
	}
)

// LLMHandler handles HTTP requests for LLM.
type LLMHandler struct {
	translator pipeline.Translator
}

// NewLLMHandler creates a new LLMHandler instance.
func NewLLMHandler(api huma.API, translator pipeline.Translator) *LLMHandler {
	h := &LLMHandler{translator: translator}

	huma.Register(api, huma.Operation{
		OperationID:   "translate",
		Method:        http.MethodPost,
		Path:          "/translate",
		Summary:       "Translate text",
		Tags:          []string{"llm"},
		DefaultStatus: http.StatusOK,
	}, h.handleTranslate)

	return h
}

// handleTranslate handles the translate operation.
func (h *LLMHandler) handleTranslate(ctx context.Context, input *TranslateInput) (*TranslateOutput, error) {
	text, err := h.translator.Translate(ctx, input.Body.Text, input.Body.Language)
	if err != nil {
		return nil, toStatusError("failed to translate", err)
	}

	return &TranslateOutput{Body: TranslateResponseDTO{Text: text}}, nil
}
