package backend

import (
	"context"
	"io"
	"time"
)

// BackendProvider is a string identifier for a backend provider.
type BackendProvider string

const (
	BackendProviderLlamaCPP   BackendProvider = "llama.cpp"
	BackendProviderOpenAI     BackendProvider = "openai"
	BackendProviderPiper      BackendProvider = "piper"
	BackendProviderWhisperCPP BackendProvider = "whisper.cpp"
)

// Backend defines the core interface for all inference backends.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() BackendProvider

	// Infer executes inference and returns complete result.
	Infer(ctx context.Context, req *Request) (*Response, error)

	// Close cleans up resources.
	Close() error
}

// Request encapsulates all parameters for an inference call.
type Request struct {
	// Input is the raw input data (text, audio bytes, image bytes, etc.).
	Input io.Reader

	// Parameters contains backend-specific inference parameters.
	Parameters map[string]any

	// ModelPath is the path to the model file.
	ModelPath string
}

// Response contains the result of an inference operation.
type Response struct {
	// Output is the raw output data.
	Output io.Reader

	// Metadata contains backend-specific information.
	Metadata *ResponseMetadata
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	Timestamp       time.Time       `json:"timestamp"`                  // When inference completed
	BackendSpecific map[string]any  `json:"backend_specific,omitempty"` // For non-generic details
	Provider        BackendProvider `json:"provider"`                   // Backend identifier
	Model           string          `json:"model"`                      // Model name or path
	Format          string          `json:"format,omitempty"`           // Output media format, when binary
	DurationSeconds float64         `json:"inference_time_seconds"`     // Total inference time in seconds
	OutputSizeBytes int64           `json:"output_size_bytes"`          // Size of output payload in bytes
}
