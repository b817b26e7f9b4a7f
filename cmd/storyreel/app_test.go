package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/pipeline"
)

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(_ context.Context, text string, _ pipeline.Voice) (*pipeline.Speech, error) {
	return &pipeline.Speech{Data: []byte(text), Format: "wav", Duration: time.Second}, nil
}

type fakeEncoder struct {
	segments int
}

func (f *fakeEncoder) Encode(_ context.Context, job *pipeline.EncodeJob) ([]byte, error) {
	f.segments = len(job.Segments)
	return []byte("artifact"), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.ScratchDir = t.TempDir()
	cfg.Pipeline.Render.Width = 64
	cfg.Pipeline.Render.Height = 36
	cfg.Pipeline.Render.FontSize = 8
	cfg.Pipeline.Render.Margin = 2
	cfg.Pipeline.Concurrency = 2
	return cfg
}

func TestUsedProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Models = map[string]config.ModelConfig{
		"piper-a": {Type: "tts", Backend: "piper"},
		"piper-b": {Type: "tts", Backend: "piper"},
		"whisper": {Type: "stt", Backend: "whisper.cpp"},
		"qwen":    {Type: "llm", Backend: "llama.cpp"},
		"unused":  {Type: "tts", Backend: "openai"},
	}
	cfg.Services.TTS.Models = []string{"piper-a", "piper-b", "missing"}
	cfg.Services.STT.Models = []string{"whisper"}
	cfg.Services.LLM.Models = []string{"qwen"}

	assert.Equal(t, []backend.BackendProvider{
		backend.BackendProviderPiper,
		backend.BackendProviderWhisperCPP,
		backend.BackendProviderLlamaCPP,
	}, usedProviders(cfg))
}

func TestBuildBackends_SkipsUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Models = map[string]config.ModelConfig{
		"voice":   {Type: "tts", Backend: "piper"},
		"whisper": {Type: "stt", Backend: "whisper.cpp"},
	}
	cfg.Services.TTS.Models = []string{"voice"}
	cfg.Services.STT.Models = []string{"whisper"}
	cfg.Backends.Piper.BinPath = "/nonexistent/piper"
	cfg.Backends.Whisper.URL = "http://127.0.0.1:1"

	servers := backend.NewServerManager()
	defer servers.StopAll()

	registry, err := buildBackends(cfg, servers)
	require.NoError(t, err)
	defer registry.Close()

	_, ok := registry.Get(backend.BackendProviderPiper)
	assert.False(t, ok)
	_, ok = registry.Get(backend.BackendProviderWhisperCPP)
	assert.True(t, ok)
}

func TestBuildPipeline_Narrates(t *testing.T) {
	enc := &fakeEncoder{}
	p, err := buildPipeline(testConfig(t), fakeSpeech{}, nil, enc)
	require.NoError(t, err)

	artifact, err := p.Run(context.Background(), pipeline.Request{Text: "Hello\nWorld"})
	require.NoError(t, err)

	assert.Equal(t, 2, enc.segments)
	assert.Equal(t, 2*time.Second, artifact.Duration)
	assert.Equal(t, "mp4", artifact.Format)
	require.Len(t, artifact.Timeline, 2)
	assert.Equal(t, "World", artifact.Timeline[1].Text)
}

func TestBuildPipeline_InvalidRender(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Render.Foreground = "white"

	_, err := buildPipeline(cfg, fakeSpeech{}, nil, &fakeEncoder{})
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfiguration)
}

func TestBuildPipeline_InvalidEncoder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Encoder.FPS = -1

	_, err := buildPipeline(cfg, fakeSpeech{}, nil, &fakeEncoder{})
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfiguration)
}

func TestBuildPipeline_OddFrameSize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Render.Width = 65

	_, err := buildPipeline(cfg, fakeSpeech{}, nil, &fakeEncoder{})
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfiguration)
}

func TestNarrator_NotLoaded(t *testing.T) {
	var n narrator
	_, err := n.Run(context.Background(), pipeline.Request{Text: "Hello"})
	assert.Error(t, err)
}

func TestPrintTimeline(t *testing.T) {
	var buf bytes.Buffer
	err := printTimeline(&buf, &pipeline.Artifact{
		Timeline: []pipeline.Cue{
			{Index: 0, Text: "Hello", Start: 0, End: 1500 * time.Millisecond},
			{Index: 2, Text: "World", Start: 1500 * time.Millisecond, End: 61 * time.Second},
		},
		Warnings: []pipeline.Warning{{Index: 1, Text: "Broken", Cause: "speech failed"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "00:00.000")
	assert.Contains(t, out, "01:01.000")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "speech failed")
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:00.000", clock(0))
	assert.Equal(t, "00:02.250", clock(2250*time.Millisecond))
	assert.Equal(t, "10:00.001", clock(10*time.Minute+time.Millisecond))
}
