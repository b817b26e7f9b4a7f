package http

import (
	"context"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ju4n97/storyreel/internal/pipeline"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, modelID, language string) (string, error)
}

type (
	// AudioForm is the multipart form carrying a recording.
	AudioForm struct {
		File huma.FormFile `form:"file" contentType:"audio/wav,audio/x-wav,audio/mpeg,audio/ogg,audio/webm,application/octet-stream" required:"true"`
	}

	// TranscribeResponseDTO is the response body for the Transcribe operation.
	TranscribeResponseDTO struct {
		Text string `json:"text"`
	}
)

type (
	// TranscribeInput is the huma input for the Transcribe operation.
	TranscribeInput struct {
		ModelID  string `query:"model_id"`
		Language string `query:"language"`
		RawBody  huma.MultipartFormFiles[AudioForm]
	}

	// TranscribeOutput is the huma output for the Transcribe operation.
	TranscribeOutput struct {
		Body TranscribeResponseDTO
	}

	// NarrateAudioInput is the huma input for the NarrateAudio operation.
	NarrateAudioInput struct {
		ModelID     string `query:"model_id"`
		Language    string `query:"language"`
		Mode        string `query:"mode" enum:"video,audio,slideshow"`
		TranslateTo string `query:"translate_to"`
		RawBody     huma.MultipartFormFiles[AudioForm]
	}
)

// STTHandler handles HTTP requests for STT.
type STTHandler struct {
	transcriber Transcriber
	narrator    Narrator
}

// NewSTTHandler creates a new STTHandler instance. narrator may be nil, in
// which case /narrate/audio is not registered.
func NewSTTHandler(api huma.API, transcriber Transcriber, narrator Narrator) *STTHandler {
	h := &STTHandler{transcriber: transcriber, narrator: narrator}

	huma.Register(api, huma.Operation{
		OperationID:   "transcribe",
		Method:        http.MethodPost,
		Path:          "/transcribe",
		Summary:       "Transcribe a recording",
		Tags:          []string{"stt"},
		DefaultStatus: http.StatusOK,
	}, h.handleTranscribe)

	if narrator != nil {
		huma.Register(api, huma.Operation{
			OperationID:   "narrate-audio",
			Method:        http.MethodPost,
			Path:          "/narrate/audio",
			Summary:       "Transcribe a recording and narrate the transcript",
			Tags:          []string{"narrate", "stt"},
			DefaultStatus: http.StatusOK,
		}, h.handleNarrateAudio)
	}

	return h
}

// handleTranscribe handles the transcribe operation.
func (h *STTHandler) handleTranscribe(ctx context.Context, input *TranscribeInput) (*TranscribeOutput, error) {
	text, err := h.transcribe(ctx, &input.RawBody, input.ModelID, input.Language)
	if err != nil {
		return nil, err
	}

	return &TranscribeOutput{Body: TranscribeResponseDTO{Text: text}}, nil
}

// handleNarrateAudio handles the narrate-audio operation.
func (h *STTHandler) handleNarrateAudio(ctx context.Context, input *NarrateAudioInput) (*NarrateOutput, error) {
	text, err := h.transcribe(ctx, &input.RawBody, input.ModelID, input.Language)
	if err != nil {
		return nil, err
	}

	return narrate(ctx, h.narrator, pipeline.Request{
		Text:        text,
		Mode:        pipeline.Mode(input.Mode),
		TranslateTo: input.TranslateTo,
	})
}

func (h *STTHandler) transcribe(ctx context.Context, form *huma.MultipartFormFiles[AudioForm], modelID, language string) (string, error) {
	data := form.Data()
	if data == nil || !data.File.IsSet {
		return "", huma.Error400BadRequest("missing audio file")
	}
	defer data.File.Close()

	text, err := h.transcriber.Transcribe(ctx, data.File, modelID, language)
	if err != nil {
		return "", toStatusError("failed to transcribe", err)
	}

	return text, nil
}
