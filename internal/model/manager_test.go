package model

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/config/source"
)

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, cfg *config.ModelConfig, targetDir string) (string, bool, error) {
	args := m.Called(ctx, cfg, targetDir)
	return args.String(0), args.Bool(1), args.Error(2)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	voice := config.ModelConfig{Type: "tts", Backend: "piper"}
	voice.SetLocalSource(config.LocalSource{Path: "/models/voice.onnx"})
	whisper := config.ModelConfig{Type: "stt", Backend: "whisper.cpp"}
	whisper.SetLocalSource(config.LocalSource{Path: "/models/ggml.bin"})
	unused := config.ModelConfig{Type: "llm", Backend: "llama.cpp"}
	unused.SetLocalSource(config.LocalSource{Path: "/models/x.gguf"})

	return &config.Config{
		Version: "1",
		Storage: config.StorageConfig{ModelsDir: t.TempDir()},
		Models: map[string]config.ModelConfig{
			"voice":   voice,
			"whisper": whisper,
			"unused":  unused,
		},
		Services: config.ServicesConfig{
			TTS: config.ServicesConfigAssignment{Models: []string{"voice"}},
			STT: config.ServicesConfigAssignment{Models: []string{"whisper", "ghost"}},
		},
	}
}

func managerWith(d source.Downloader) *Manager {
	return NewManager(WithDownloaderFunc(func(context.Context, config.SourceType) (source.Downloader, error) {
		return d, nil
	}))
}

func TestManager_LoadModelsFromConfigIsLazy(t *testing.T) {
	d := new(MockDownloader)
	m := managerWith(d)

	require.NoError(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)))

	list := m.Registry().List()
	require.Len(t, list, 2)
	assert.Equal(t, "voice", list[0].ID)
	assert.Equal(t, "whisper", list[1].ID)
	for _, inst := range list {
		assert.Equal(t, ModelStatusUnloaded, inst.CurrentStatus())
	}

	d.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_AcquireFetchesOnce(t *testing.T) {
	d := new(MockDownloader)
	d.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("/models/voice.onnx", true, nil).Once()

	m := managerWith(d)
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)))

	var wg sync.WaitGroup
	var failures atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := m.Acquire(context.Background(), "voice")
			if err != nil || inst.ResolvedPath() != "/models/voice.onnx" {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	inst, _ := m.Registry().Get("voice")
	assert.Equal(t, ModelStatusLoaded, inst.CurrentStatus())
	assert.NotNil(t, inst.Info().LoadedAt)
	d.AssertExpectations(t)
}

func TestManager_AcquireUnknown(t *testing.T) {
	m := managerWith(new(MockDownloader))
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)))

	_, err := m.Acquire(context.Background(), "unused")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestManager_AcquireFailureIsRecorded(t *testing.T) {
	d := new(MockDownloader)
	d.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("", false, errors.New("network down")).Once()
	d.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("/models/ggml.bin", true, nil).Once()

	m := managerWith(d)
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)))

	_, err := m.Acquire(context.Background(), "whisper")
	require.ErrorIs(t, err, ErrModelLoadFailed)

	inst, _ := m.Registry().Get("whisper")
	info := inst.Info()
	assert.Equal(t, ModelStatusFailed, info.Status)
	assert.Contains(t, info.Error, "network down")

	// a failed model is retried on the next acquire
	inst, err = m.Acquire(context.Background(), "whisper")
	require.NoError(t, err)
	assert.Equal(t, ModelStatusLoaded, inst.CurrentStatus())
	d.AssertExpectations(t)
}

func TestManager_ReloadKeepsUnchangedModels(t *testing.T) {
	d := new(MockDownloader)
	d.On("Download", mock.Anything, mock.Anything, mock.Anything).Return("/models/voice.onnx", true, nil).Once()

	m := managerWith(d)
	cfg := testConfig(t)
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), cfg))
	_, err := m.Acquire(context.Background(), "voice")
	require.NoError(t, err)

	cfg.Services.STT.Models = nil
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), cfg))

	inst, ok := m.Registry().Get("voice")
	require.True(t, ok)
	assert.Equal(t, ModelStatusLoaded, inst.CurrentStatus())

	_, ok = m.Registry().Get("whisper")
	assert.False(t, ok)
}

func TestManager_Close(t *testing.T) {
	m := managerWith(new(MockDownloader))
	require.NoError(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Empty(t, m.Registry().List())

	_, err := m.Acquire(context.Background(), "voice")
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, m.LoadModelsFromConfig(context.Background(), testConfig(t)), ErrManagerClosed)
}

func TestResolveModelsPath(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{ModelsDir: "/srv/models"}}

	t.Setenv("STORYREEL_MODELS_PATH", "")
	assert.Equal(t, "/srv/models", resolveModelsPath(cfg))

	t.Setenv("STORYREEL_MODELS_PATH", "/env/models")
	assert.Equal(t, "/env/models", resolveModelsPath(cfg))
}
