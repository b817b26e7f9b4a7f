package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
version: "1"
models:
  piper-en:
    type: tts
    backend: piper
    source:
      local:
        path: /models/en.onnx
services:
  tts:
    models: [piper-en]
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), "")
	require.NoError(t, err)

	assert.Equal(t, ModeVideo, cfg.Pipeline.Mode)
	assert.Equal(t, PolicyFailFast, cfg.Pipeline.FailurePolicy)
	assert.Equal(t, DefaultFPS, cfg.Pipeline.Encoder.FPS)
	assert.Equal(t, DefaultAudioChannels, cfg.Pipeline.Encoder.AudioChannels)
	assert.Equal(t, DefaultWidth, cfg.Pipeline.Render.Width)
	assert.Equal(t, DefaultHeight, cfg.Pipeline.Render.Height)
	assert.Equal(t, "piper-en", cfg.Pipeline.Voice.ModelID)
	assert.Equal(t, DefaultVoiceProvider, cfg.Pipeline.Voice.Provider)
	assert.Positive(t, cfg.Pipeline.Concurrency)
	assert.Equal(t, "ffmpeg", cfg.Backends.FFmpeg.BinPath)

	src, err := func() (ModelSource, error) {
		m := cfg.Models["piper-en"]
		return m.GetSource()
	}()
	require.NoError(t, err)
	assert.Equal(t, SourceTypeLocal, src.Type())
}

func TestParse_ExampleConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)

	cfg, err := Parse(data, "")
	require.NoError(t, err)

	assert.Equal(t, PolicySkip, cfg.Pipeline.FailurePolicy)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Len(t, cfg.AssignedModels(), 4)
	assert.Equal(t, "qwen-translate", cfg.Pipeline.TranslationModelID)
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero fps": minimalYAML + `
pipeline:
  encoder:
    fps: 0
`,
		"zero channels": minimalYAML + `
pipeline:
  encoder:
    audio_channels: 0
`,
		"unknown policy": minimalYAML + `
pipeline:
  failure_policy: retry
`,
		"unknown key": minimalYAML + `
surprise: true
`,
		"bad color": minimalYAML + `
pipeline:
  render:
    background: black
`,
		"odd width": minimalYAML + `
pipeline:
  render:
    width: 1281
`,
		"odd height": minimalYAML + `
pipeline:
  render:
    height: 719
`,
		"missing services": `
version: "1"
models: {}
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), "")
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("version: [unclosed"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestModelConfig_GetSource(t *testing.T) {
	var m ModelConfig
	_, err := m.GetSource()
	assert.Error(t, err)

	m.SetHuggingFaceSource(HuggingFaceSource{Repo: "rhasspy/piper-voices"})
	src, err := m.GetSource()
	require.NoError(t, err)
	assert.Equal(t, SourceTypeHuggingFace, src.Type())

	m.SetLocalSource(LocalSource{Path: "/tmp/model.onnx"})
	src, err = m.GetSource()
	require.NoError(t, err)
	assert.Equal(t, SourceTypeLocal, src.Type())
	assert.Nil(t, m.Source.HuggingFace)
}

func TestDefaultPorts(t *testing.T) {
	t.Setenv("STORYREEL_SERVER_HTTP_PORT", "9999")
	assert.Equal(t, 9999, DefaultHTTPPort())

	t.Setenv("STORYREEL_SERVER_HTTP_PORT", "not-a-port")
	assert.Equal(t, defaultHTTPPort, DefaultHTTPPort())

	t.Setenv("STORYREEL_SERVER_GRPC_PORT", "")
	assert.Equal(t, defaultGRPCPort, DefaultGRPCPort())
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, "", func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, ModeVideo, w.Snapshot().Pipeline.Mode)

	updated := minimalYAML + `
pipeline:
  mode: audio
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ModeAudio, cfg.Pipeline.Mode)
		assert.Equal(t, ModeAudio, w.Snapshot().Pipeline.Mode)
		assert.GreaterOrEqual(t, w.ReloadCount(), uint32(1))
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestNewWatcher_InvalidInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"2\"\n"), 0o644))

	_, err := NewWatcher(path, "", func(*Config, error) {})
	assert.Error(t, err)
}
