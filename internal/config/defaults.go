package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ju4n97/storyreel/internal/envvar"
)

// Pipeline defaults. The frame and timing values match the classic story
// narrator: a 1280x720 dark frame, white 48pt text, 24 frames per second.
const (
	DefaultWidth              = 1280
	DefaultHeight             = 720
	DefaultFontSize           = 48
	DefaultMargin             = 64
	DefaultForeground         = "#ffffff"
	DefaultBackground         = "#0a0a0a"
	DefaultFPS                = 24
	DefaultVideoCodec         = "libx264"
	DefaultAudioCodec         = "aac"
	DefaultAudioFormat        = "wav"
	DefaultSampleRate         = 44100
	DefaultAudioChannels      = 2
	DefaultUnitSeconds        = 3.0
	DefaultVoiceProvider      = "piper"
	defaultHTTPPort           = 8080
	defaultGRPCPort           = 9090
	defaultWhisperServerPort  = 8082
	defaultLlamaServerPort    = 8081
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultPiperBinary        = "piper"
	defaultWhisperBinary      = "whisper-server"
	defaultLlamaServerBinary  = "llama-server"
	defaultConcurrencyPerCore = 1
)

// DefaultConfigPath returns the default path for the storyreel config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "storyreel", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "storyreel")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "storyreel")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "storyreel")
		}
		return filepath.Join(home, ".config", "storyreel")
	}
}

// DefaultModelsPath returns the default path for the storyreel models directory.
func DefaultModelsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "storyreel", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "storyreel", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "storyreel", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "storyreel", "models")
		}
		return filepath.Join(home, ".cache", "storyreel", "models")
	}
}

// DefaultHTTPPort returns the HTTP port from STORYREEL_SERVER_HTTP_PORT or the default.
func DefaultHTTPPort() int {
	return portFromEnv(envvar.StoryreelServerHTTPPort, defaultHTTPPort)
}

// DefaultGRPCPort returns the gRPC port from STORYREEL_SERVER_GRPC_PORT or the default.
func DefaultGRPCPort() int {
	return portFromEnv(envvar.StoryreelServerGRPCPort, defaultGRPCPort)
}

func portFromEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	port, err := strconv.Atoi(v)
	if err != nil || port <= 0 || port > 65535 {
		return fallback
	}

	return port
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	b := &c.Backends
	if b.Piper.BinPath == "" {
		b.Piper.BinPath = defaultPiperBinary
	}
	if b.Whisper.BinPath == "" {
		b.Whisper.BinPath = defaultWhisperBinary
	}
	if b.Whisper.Port == 0 {
		b.Whisper.Port = defaultWhisperServerPort
	}
	if b.Llama.BinPath == "" {
		b.Llama.BinPath = defaultLlamaServerBinary
	}
	if b.Llama.Port == 0 {
		b.Llama.Port = defaultLlamaServerPort
	}
	if b.FFmpeg.BinPath == "" {
		b.FFmpeg.BinPath = defaultFFmpegBinary
	}
	if b.FFmpeg.FFprobePath == "" {
		b.FFmpeg.FFprobePath = defaultFFprobeBinary
	}
	if b.OpenAI.APIKey == "" {
		b.OpenAI.APIKey = os.Getenv(envvar.OpenAIAPIKey)
	}

	p := &c.Pipeline
	if p.Mode == "" {
		p.Mode = ModeVideo
	}
	if p.FailurePolicy == "" {
		p.FailurePolicy = PolicyFailFast
	}
	if p.DefaultUnitSeconds <= 0 {
		p.DefaultUnitSeconds = DefaultUnitSeconds
	}
	if p.Concurrency <= 0 {
		p.Concurrency = runtime.NumCPU() * defaultConcurrencyPerCore
	}
	if p.Voice.Provider == "" {
		p.Voice.Provider = DefaultVoiceProvider
	}
	if p.Voice.ModelID == "" && len(c.Services.TTS.Models) > 0 {
		p.Voice.ModelID = c.Services.TTS.Models[0]
	}
	if p.TranslationModelID == "" && len(c.Services.LLM.Models) > 0 {
		p.TranslationModelID = c.Services.LLM.Models[0]
	}

	r := &p.Render
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	if r.FontSize == 0 {
		r.FontSize = DefaultFontSize
	}
	if r.Margin == 0 {
		r.Margin = DefaultMargin
	}
	if r.Foreground == "" {
		r.Foreground = DefaultForeground
	}
	if r.Background == "" {
		r.Background = DefaultBackground
	}

	e := &p.Encoder
	if e.FPS == 0 {
		e.FPS = DefaultFPS
	}
	if e.VideoCodec == "" {
		e.VideoCodec = DefaultVideoCodec
	}
	if e.AudioCodec == "" {
		e.AudioCodec = DefaultAudioCodec
	}
	if e.AudioFormat == "" {
		e.AudioFormat = DefaultAudioFormat
	}
	if e.SampleRate == 0 {
		e.SampleRate = DefaultSampleRate
	}
	if e.AudioChannels == 0 {
		e.AudioChannels = DefaultAudioChannels
	}
}

// Default returns a config with no models and every default applied.
func Default() *Config {
	cfg := &Config{
		Version: "1",
		Models:  map[string]ModelConfig{},
	}
	cfg.ApplyDefaults()
	return cfg
}
