package piper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/mapsafe"
)

const defaultTimeout = 60 * time.Second

// Backend implements backend.Backend for Piper TTS.
type Backend struct {
	executor *backend.Executor
	tempDir  string
}

// NewBackend creates a new Piper backend.
func NewBackend(binPath string) (*Backend, error) {
	executor, err := backend.NewExecutor(binPath, defaultTimeout)
	if err != nil {
		return nil, err
	}

	return NewBackendWithExecutor(executor, os.TempDir()), nil
}

// NewBackendWithExecutor creates a Piper backend around an existing executor.
func NewBackendWithExecutor(executor *backend.Executor, tempDir string) *Backend {
	return &Backend{
		executor: executor,
		tempDir:  tempDir,
	}
}

// Provider returns the backend identifier.
func (b *Backend) Provider() backend.BackendProvider {
	return backend.BackendProviderPiper
}

// ResolveModelPath picks the voice model inside a downloaded directory.
func (b *Backend) ResolveModelPath(basePath string) (string, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat model path: %w", err)
	}
	if !info.IsDir() {
		return basePath, nil
	}

	matches, err := filepath.Glob(filepath.Join(basePath, "*.onnx"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .onnx voice found in %s", basePath)
	}

	return matches[0], nil
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

	// Piper writes to a file, so a temp file is used and read back.
	outputFile := filepath.Join(b.tempDir, fmt.Sprintf("piper_%s.wav", uuid.NewString()))
	defer os.Remove(outputFile)

	args := b.buildArgs(req, outputFile)

	start := time.Now()

	// Piper reads text from stdin
	stdout, stderr, err := b.executor.Execute(ctx, args, bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w\nstderr: %s", err, stderr)
	}

	audioData, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	return &backend.Response{
		Output: bytes.NewReader(audioData),
		Metadata: &backend.ResponseMetadata{
			Provider:        b.Provider(),
			Model:           req.ModelPath,
			Format:          "wav",
			Timestamp:       time.Now(),
			DurationSeconds: time.Since(start).Seconds(),
			OutputSizeBytes: int64(len(audioData)),
			BackendSpecific: map[string]any{
				"stdout": string(stdout),
				"stderr": string(stderr),
				"args":   args,
			},
		},
	}, nil
}

// buildArgs builds Piper command-line arguments.
func (b *Backend) buildArgs(req *backend.Request, outputFile string) []string {
	args := []string{
		"--model", req.ModelPath,
		"--output_file", outputFile,
	}

	p := req.Parameters
	if p == nil {
		return args
	}

	if v := mapsafe.Get(p, "speaker_id", -1); v >= 0 {
		args = append(args, "--speaker", fmt.Sprintf("%d", v))
	}

	// Length scale (speed)
	if v := mapsafe.Get(p, "length_scale", 0.0); v > 0 {
		args = append(args, "--length_scale", fmt.Sprintf("%.2f", v))
	}

	if v := mapsafe.Get(p, "noise_scale", 0.0); v > 0 {
		args = append(args, "--noise_scale", fmt.Sprintf("%.2f", v))
	}

	if v := mapsafe.Get(p, "noise_w", 0.0); v > 0 {
		args = append(args, "--noise_w", fmt.Sprintf("%.2f", v))
	}

	if v := mapsafe.Get(p, "sentence_silence", 0.0); v > 0 {
		args = append(args, "--sentence_silence", fmt.Sprintf("%.2f", v))
	}

	return args
}

// Close cleans up resources. Piper does not have any resources to clean up.
func (b *Backend) Close() error {
	return nil
}
