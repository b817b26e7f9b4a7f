package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/mapsafe"
)

const BackendPort = 8082

// Backend implements backend.Backend for whisper.cpp.
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

// WithPort sets the port the spawned whisper-server binds to.
func WithPort(port int) Option {
	return func(b *Backend) {
		if port > 0 {
			b.port = port
		}
	}
}

// WithBaseURL points the backend at an already running whisper-server.
// No process is spawned when set.
func WithBaseURL(url string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(url, "/")
	}
}

// TranscriptionRequest represents a request to the whisper-server API.
type TranscriptionRequest struct {
	Language     string  `json:"language,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	BeamSize     int     `json:"beam_size,omitempty"`
	BestOf       int     `json:"best_of,omitempty"`
	Translate    bool    `json:"translate,omitempty"`
	NoTimestamps bool    `json:"no_timestamps,omitempty"`
	Prompt       string  `json:"prompt,omitempty"`
}

// TranscriptionResponse represents a response from the whisper-server API.
type TranscriptionResponse struct {
	Task                        string              `json:"task,omitempty"`
	Language                    string              `json:"language,omitempty"`
	Duration                    float64             `json:"duration,omitempty"`
	Text                        string              `json:"text,omitempty"`
	Segments                    []TranscriptSegment `json:"segments,omitempty"`
	DetectedLanguage            string              `json:"detected_language,omitempty"`
	DetectedLanguageProbability float64             `json:"detected_language_probability,omitempty"`
}

// TranscriptSegment represents a single segment in the transcription.
type TranscriptSegment struct {
	ID           int     `json:"id"`
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	AvgLogprob   float64 `json:"avg_logprob,omitempty"`
	NoSpeechProb float64 `json:"no_speech_prob,omitempty"`
}

// NewBackend creates a new Backend instance.
func NewBackend(binPath string, serverManager *backend.ServerManager, opts ...Option) *Backend {
	b := &Backend{
		binPath:       binPath,
		serverManager: serverManager,
		client: &http.Client{
			Timeout: 5 * time.Minute, // Transcription can take longer
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
	return backend.BackendProviderWhisperCPP
}

// endpoint returns the server URL, spawning whisper-server for modelPath if needed.
// whisper-server holds a single model, so a different model restarts it.
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

	args := []string{
		"--model", modelPath,
		"--port", fmt.Sprintf("%d", b.port),
		"--host", "127.0.0.1",
	}

	if err := b.serverManager.StartServer(ctx, backend.ServerConfig{
		Name:       name,
		BinPath:    b.binPath,
		Args:       args,
		Port:       b.port,
		HealthPath: "/", // Whisper server doesn't have a dedicated health endpoint
	}); err != nil {
		return "", fmt.Errorf("failed to start server: %w", err)
	}
	b.modelPath = modelPath

	return backend.BaseURL(b.port), nil
}

// Infer implements backend.Backend.
// Input: audio bytes.
// Output: transcript text.
func (b *Backend) Infer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	audioData, err := io.ReadAll(req.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio input: %w", err)
	}
	if len(audioData) == 0 {
		return nil, backend.ErrEmptyInput
	}

	baseURL, err := b.endpoint(ctx, req.ModelPath)
	if err != nil {
		return nil, err
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := b.addTranscriptionParams(writer, b.buildTranscriptionRequest(req)); err != nil {
		return nil, fmt.Errorf("failed to add parameters: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/inference", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

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

	var transcriptionResp TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	text := strings.TrimSpace(transcriptionResp.Text)

	return &backend.Response{
		Output: strings.NewReader(text),
		Metadata: &backend.ResponseMetadata{
			Provider:        b.Provider(),
			Model:           req.ModelPath,
			Format:          "text",
			Timestamp:       time.Now(),
			DurationSeconds: elapsed,
			OutputSizeBytes: int64(len(text)),
			BackendSpecific: map[string]any{
				"response": transcriptionResp,
			},
		},
	}, nil
}

// buildTranscriptionRequest builds a TranscriptionRequest from a backend.Request.
func (b *Backend) buildTranscriptionRequest(req *backend.Request) *TranscriptionRequest {
	p := req.Parameters
	if p == nil {
		p = make(map[string]any)
	}

	return &TranscriptionRequest{
		Language:     mapsafe.Get(p, "language", ""),
		Temperature:  mapsafe.Get(p, "temperature", 0.0),
		Translate:    mapsafe.Get(p, "translate", false),
		NoTimestamps: mapsafe.Get(p, "no_timestamps", false),
		Prompt:       mapsafe.Get(p, "prompt", ""),
		BeamSize:     mapsafe.Get(p, "beam_size", -1),
		BestOf:       mapsafe.Get(p, "best_of", 2),
	}
}

// addTranscriptionParams adds transcription parameters to the multipart writer.
func (b *Backend) addTranscriptionParams(w *multipart.Writer, req *TranscriptionRequest) error {
	params := map[string]string{
		"response_format": "verbose_json",
		"temperature":     fmt.Sprintf("%.2f", req.Temperature),
		"translate":       fmt.Sprintf("%t", req.Translate),
		"no_timestamps":   fmt.Sprintf("%t", req.NoTimestamps),
	}

	if req.Language != "" {
		params["language"] = req.Language
	}

	if req.BeamSize >= 0 {
		params["beam_size"] = fmt.Sprintf("%d", req.BeamSize)
	}

	if req.BestOf > 0 {
		params["best_of"] = fmt.Sprintf("%d", req.BestOf)
	}

	if req.Prompt != "" {
		params["prompt"] = req.Prompt
	}

	for key, value := range params {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	return nil
}
