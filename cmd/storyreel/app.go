package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/backend/llama"
	"github.com/ju4n97/storyreel/internal/backend/openai"
	"github.com/ju4n97/storyreel/internal/backend/piper"
	"github.com/ju4n97/storyreel/internal/backend/whisper"
	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/media"
	"github.com/ju4n97/storyreel/internal/model"
	"github.com/ju4n97/storyreel/internal/pipeline"
	"github.com/ju4n97/storyreel/internal/render"
	"github.com/ju4n97/storyreel/internal/service"
)

const ffprobeTimeout = 30 * time.Second

// app holds everything one process shares across requests.
type app struct {
	manager  *model.Manager
	backends *backend.Registry
	servers  *backend.ServerManager
	encoder  pipeline.Encoder
	tts      *service.TTS
	stt      *service.STT
	llm      *service.LLM

	narrator narrator
}

// newApp builds the backends and services described by cfg. Backends whose
// executable is missing are skipped with a warning; requests for their
// models fail with backend.ErrBackendNotFound.
func newApp(ctx context.Context, cfg *config.Config, manager *model.Manager) (*app, error) {
	encoder, err := media.NewFFmpeg(cfg.Backends.FFmpeg.BinPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg is required: %w", err)
	}

	ffprobe, err := backend.NewExecutor(cfg.Backends.FFmpeg.FFprobePath, ffprobeTimeout)
	if err != nil {
		slog.Warn("ffprobe not found, only WAV durations can be measured", "error", err)
	}

	servers := backend.NewServerManager()
	backends, err := buildBackends(cfg, servers)
	if err != nil {
		servers.StopAll()
		return nil, err
	}

	a := &app{
		manager:  manager,
		backends: backends,
		servers:  servers,
		encoder:  encoder,
		tts:      service.NewTTS(backends, manager, media.NewProber(ffprobe)),
		stt:      service.NewSTT(backends, manager, firstModel(cfg.Services.STT)),
		llm:      service.NewLLM(backends, manager, cfg.Pipeline.TranslationModelID),
	}

	if err := a.reload(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// reload rebuilds the pipeline from cfg and swaps it in. Backend executables
// and ports are fixed for the life of the process.
func (a *app) reload(_ context.Context, cfg *config.Config) error {
	p, err := buildPipeline(cfg, a.tts, a.llm, a.encoder)
	if err != nil {
		return err
	}
	a.narrator.p.Store(p)

	return nil
}

// Close releases the model cache, backends and spawned servers.
func (a *app) Close() error {
	var errs []error
	if err := a.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.backends.Close(); err != nil {
		errs = append(errs, err)
	}
	a.servers.StopAll()

	return errors.Join(errs...)
}

// buildBackends registers one backend per provider referenced by a model in
// cfg.
func buildBackends(cfg *config.Config, servers *backend.ServerManager) (*backend.Registry, error) {
	registry := backend.NewRegistry()

	for _, provider := range usedProviders(cfg) {
		var (
			b   backend.Backend
			err error
		)

		switch provider {
		case backend.BackendProviderPiper:
			b, err = piper.NewBackend(cfg.Backends.Piper.BinPath)
		case backend.BackendProviderOpenAI:
			b, err = openai.NewBackend(cfg.Backends.OpenAI.APIKey, cfg.Backends.OpenAI.BaseURL)
		case backend.BackendProviderWhisperCPP:
			w := cfg.Backends.Whisper
			b = whisper.NewBackend(w.BinPath, servers, whisper.WithPort(w.Port), whisper.WithBaseURL(w.URL))
		case backend.BackendProviderLlamaCPP:
			l := cfg.Backends.Llama
			b = llama.NewBackend(l.BinPath, servers, llama.WithPort(l.Port), llama.WithBaseURL(l.URL))
		default:
			slog.Warn("Unknown backend provider", "backend", provider)
			continue
		}
		if err != nil {
			slog.Warn("Backend unavailable", "backend", provider, "error", err)
			continue
		}

		if err := registry.Register(b); err != nil {
			registry.Close()
			return nil, err
		}
		slog.Info("Backend registered", "backend", provider)
	}

	return registry, nil
}

// usedProviders lists the backend providers referenced by configured models,
// in first-seen order of the service assignments.
func usedProviders(cfg *config.Config) []backend.BackendProvider {
	var (
		seen      = make(map[backend.BackendProvider]bool)
		providers []backend.BackendProvider
	)

	for _, assignment := range []config.ServicesConfigAssignment{cfg.Services.TTS, cfg.Services.STT, cfg.Services.LLM} {
		for _, id := range assignment.Models {
			m, ok := cfg.Models[id]
			if !ok || m.Backend == "" {
				continue
			}
			p := backend.BackendProvider(m.Backend)
			if !seen[p] {
				seen[p] = true
				providers = append(providers, p)
			}
		}
	}

	return providers
}

// buildPipeline maps the pipeline section of cfg onto a runnable Pipeline.
func buildPipeline(cfg *config.Config, speech pipeline.SpeechSynthesizer, translator pipeline.Translator, encoder pipeline.Encoder) (*pipeline.Pipeline, error) {
	pc := cfg.Pipeline

	style, err := render.NewStyle(pc.Render.Foreground, pc.Render.Background, pc.Render.FontSize, pc.Render.Margin)
	if err != nil {
		return nil, &pipeline.InvalidConfigurationError{Field: "render", Reason: err.Error()}
	}

	renderer, err := render.NewTextRenderer(style)
	if err != nil {
		return nil, err
	}

	mode := pipeline.Mode(pc.Mode)
	synth := pipeline.NewSynthesizer(speech, renderer, pipeline.SynthesizerConfig{
		Voice: pipeline.Voice{
			Parameters: pc.Voice.Parameters,
			Provider:   pc.Voice.Provider,
			ModelID:    pc.Voice.ModelID,
			Language:   pc.Voice.Language,
		},
		Style:           style,
		Mode:            mode,
		Width:           pc.Render.Width,
		Height:          pc.Render.Height,
		DefaultDuration: time.Duration(pc.DefaultUnitSeconds * float64(time.Second)),
	})

	var opts []pipeline.Option
	if pc.TranslationModelID != "" && translator != nil {
		opts = append(opts, pipeline.WithTranslator(translator))
	}

	return pipeline.New(synth, encoder, pipeline.Config{
		Policy:      pipeline.FailurePolicy(pc.FailurePolicy),
		TranslateTo: pc.TranslateTo,
		ScratchDir:  cfg.Storage.ScratchDir,
		Concurrency: pc.Concurrency,
		Encoder: pipeline.EncoderConfig{
			Mode:          mode,
			VideoCodec:    pc.Encoder.VideoCodec,
			AudioCodec:    pc.Encoder.AudioCodec,
			AudioFormat:   pc.Encoder.AudioFormat,
			FPS:           pc.Encoder.FPS,
			SampleRate:    pc.Encoder.SampleRate,
			AudioChannels: pc.Encoder.AudioChannels,
		},
	}, opts...)
}

func firstModel(a config.ServicesConfigAssignment) string {
	if len(a.Models) == 0 {
		return ""
	}
	return a.Models[0]
}

// narrator forwards to the most recently loaded pipeline.
type narrator struct {
	p atomic.Pointer[pipeline.Pipeline]
}

func (n *narrator) Run(ctx context.Context, req pipeline.Request) (*pipeline.Artifact, error) {
	p := n.p.Load()
	if p == nil {
		return nil, errors.New("pipeline not loaded")
	}
	return p.Run(ctx, req)
}
