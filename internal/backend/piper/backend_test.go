package piper

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ju4n97/storyreel/internal/backend"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	out, _ := a.Get(0).([]byte)
	errOut, _ := a.Get(1).([]byte)
	return out, errOut, a.Error(2)
}

func outputFileArg(args []string) string {
	for i, a := range args {
		if a == "--output_file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestBackend_Infer(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "piper", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stdin, _ := io.ReadAll(args.Get(3).(io.Reader))
			assert.Equal(t, "Once upon a time", string(stdin))
			require.NoError(t, os.WriteFile(outputFileArg(args.Get(2).([]string)), []byte("RIFFdata"), 0o600))
		}).
		Return([]byte(""), []byte(""), nil).Once()

	b := NewBackendWithExecutor(backend.NewExecutorWithRunner("piper", time.Second, runner), t.TempDir())

	resp, err := b.Infer(context.Background(), &backend.Request{
		ModelPath:  "/models/voice.onnx",
		Input:      strings.NewReader("Once upon a time"),
		Parameters: map[string]any{"speaker_id": 2, "length_scale": 1.2},
	})
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Output)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))
	assert.Equal(t, "wav", resp.Metadata.Format)
	assert.Equal(t, backend.BackendProviderPiper, resp.Metadata.Provider)

	args := resp.Metadata.BackendSpecific["args"].([]string)
	assert.Contains(t, args, "--speaker")
	assert.Contains(t, args, "1.20")
	assert.NoFileExists(t, outputFileArg(args))

	runner.AssertExpectations(t)
}

func TestBackend_InferEmptyText(t *testing.T) {
	runner := new(MockRunner)
	b := NewBackendWithExecutor(backend.NewExecutorWithRunner("piper", time.Second, runner), t.TempDir())

	_, err := b.Infer(context.Background(), &backend.Request{Input: strings.NewReader("  \n")})
	assert.ErrorIs(t, err, backend.ErrEmptyInput)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBackend_InferFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "piper", mock.Anything, mock.Anything).
		Return([]byte(""), []byte("unsupported phoneme"), errors.New("exit status 1")).Once()

	b := NewBackendWithExecutor(backend.NewExecutorWithRunner("piper", time.Second, runner), t.TempDir())

	_, err := b.Infer(context.Background(), &backend.Request{Input: strings.NewReader("ʘ")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported phoneme")
}

func TestBackend_BuildArgsDefaults(t *testing.T) {
	b := &Backend{}
	args := b.buildArgs(&backend.Request{ModelPath: "m.onnx"}, "out.wav")
	assert.Equal(t, []string{"--model", "m.onnx", "--output_file", "out.wav"}, args)
}

func TestBackend_ResolveModelPath(t *testing.T) {
	dir := t.TempDir()
	b := &Backend{}

	_, err := b.ResolveModelPath(dir)
	assert.Error(t, err)

	voice := filepath.Join(dir, "en_US-lessac-medium.onnx")
	require.NoError(t, os.WriteFile(voice, []byte("x"), 0o600))

	path, err := b.ResolveModelPath(dir)
	require.NoError(t, err)
	assert.Equal(t, voice, path)

	path, err = b.ResolveModelPath(voice)
	require.NoError(t, err)
	assert.Equal(t, voice, path)
}
