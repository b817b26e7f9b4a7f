package config

import (
	"errors"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"

	// SourceTypeLocal represents a model already present on disk.
	SourceTypeLocal SourceType = "local"
)

// Delivery modes.
const (
	ModeVideo     = "video"
	ModeAudio     = "audio"
	ModeSlideshow = "slideshow"
)

// Failure policies.
const (
	PolicyFailFast = "fail_fast"
	PolicySkip     = "skip"
)

// Config holds the main configuration for the application.
type Config struct {
	Models   map[string]ModelConfig `json:"models"             yaml:"models"`
	Version  string                 `json:"version"            yaml:"version"`
	Storage  StorageConfig          `json:"storage,omitempty"  yaml:"storage,omitempty"`
	Services ServicesConfig         `json:"services"           yaml:"services"`
	Backends BackendsConfig         `json:"backends,omitempty" yaml:"backends,omitempty"`
	Pipeline PipelineConfig         `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

// StorageConfig holds configuration for caching and auto-download.
type StorageConfig struct {
	ModelsDir  string `json:"models_dir,omitempty"  yaml:"models_dir,omitempty"`
	ScratchDir string `json:"scratch_dir,omitempty" yaml:"scratch_dir,omitempty"`
}

// ModelConfig holds configuration for a specific model.
type ModelConfig struct {
	Source  SourceConfig `json:"source"  yaml:"source"`
	Type    string       `json:"type"    yaml:"type"`
	Backend string       `json:"backend" yaml:"backend"`
	Tags    []string     `json:"tags"    yaml:"tags"`
	Order   int          `json:"order"   yaml:"order"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
	Local       *LocalSource       `json:"local,omitempty"       yaml:"local,omitempty"`
}

// ServicesConfig holds configuration for all services.
type ServicesConfig struct {
	LLM ServicesConfigAssignment `json:"llm" yaml:"llm"`
	STT ServicesConfigAssignment `json:"stt" yaml:"stt"`
	TTS ServicesConfigAssignment `json:"tts" yaml:"tts"`
}

// ServicesConfigAssignment holds model assignments for a service.
type ServicesConfigAssignment struct {
	Models []string `json:"models" yaml:"models"` // List of model IDs
}

// BackendsConfig holds the executables and endpoints used by each backend.
type BackendsConfig struct {
	Piper   BinaryConfig `json:"piper,omitempty"   yaml:"piper,omitempty"`
	Whisper ServerConfig `json:"whisper,omitempty" yaml:"whisper,omitempty"`
	Llama   ServerConfig `json:"llama,omitempty"   yaml:"llama,omitempty"`
	OpenAI  OpenAIConfig `json:"openai,omitempty"  yaml:"openai,omitempty"`
	FFmpeg  FFmpegConfig `json:"ffmpeg,omitempty"  yaml:"ffmpeg,omitempty"`
}

// BinaryConfig points at a CLI backend.
type BinaryConfig struct {
	BinPath string `json:"bin_path,omitempty" yaml:"bin_path,omitempty"`
}

// ServerConfig points at a backend that runs as a local HTTP server.
// When URL is set the server is expected to be running already and is
// never spawned.
type ServerConfig struct {
	BinPath string `json:"bin_path,omitempty" yaml:"bin_path,omitempty"`
	URL     string `json:"url,omitempty"      yaml:"url,omitempty"`
	Port    int    `json:"port,omitempty"     yaml:"port,omitempty"`
}

// OpenAIConfig configures the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty"  yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// FFmpegConfig locates the ffmpeg and ffprobe executables.
type FFmpegConfig struct {
	BinPath     string `json:"bin_path,omitempty"     yaml:"bin_path,omitempty"`
	FFprobePath string `json:"ffprobe_path,omitempty" yaml:"ffprobe_path,omitempty"`
}

// PipelineConfig configures the narration pipeline.
type PipelineConfig struct {
	Voice              VoiceConfig   `json:"voice,omitempty"                yaml:"voice,omitempty"`
	Mode               string        `json:"mode,omitempty"                 yaml:"mode,omitempty"`
	FailurePolicy      string        `json:"failure_policy,omitempty"       yaml:"failure_policy,omitempty"`
	TranslateTo        string        `json:"translate_to,omitempty"         yaml:"translate_to,omitempty"`
	TranslationModelID string        `json:"translation_model_id,omitempty" yaml:"translation_model_id,omitempty"`
	Render             RenderConfig  `json:"render,omitempty"               yaml:"render,omitempty"`
	Encoder            EncoderConfig `json:"encoder,omitempty"              yaml:"encoder,omitempty"`
	DefaultUnitSeconds float64       `json:"default_unit_seconds,omitempty" yaml:"default_unit_seconds,omitempty"`
	Concurrency        int           `json:"concurrency,omitempty"          yaml:"concurrency,omitempty"`
}

// VoiceConfig selects the speech backend and model.
type VoiceConfig struct {
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Provider   string         `json:"provider,omitempty"   yaml:"provider,omitempty"`
	ModelID    string         `json:"model_id,omitempty"   yaml:"model_id,omitempty"`
	Language   string         `json:"language,omitempty"   yaml:"language,omitempty"`
}

// RenderConfig controls the text frames.
type RenderConfig struct {
	Foreground string  `json:"foreground,omitempty" yaml:"foreground,omitempty"`
	Background string  `json:"background,omitempty" yaml:"background,omitempty"`
	Width      int     `json:"width,omitempty"      yaml:"width,omitempty"`
	Height     int     `json:"height,omitempty"     yaml:"height,omitempty"`
	FontSize   float64 `json:"font_size,omitempty"  yaml:"font_size,omitempty"`
	Margin     int     `json:"margin,omitempty"     yaml:"margin,omitempty"`
}

// EncoderConfig controls the output encoding.
type EncoderConfig struct {
	VideoCodec    string `json:"video_codec,omitempty"    yaml:"video_codec,omitempty"`
	AudioCodec    string `json:"audio_codec,omitempty"    yaml:"audio_codec,omitempty"`
	AudioFormat   string `json:"audio_format,omitempty"   yaml:"audio_format,omitempty"`
	FPS           int    `json:"fps,omitempty"            yaml:"fps,omitempty"`
	SampleRate    int    `json:"sample_rate,omitempty"    yaml:"sample_rate,omitempty"`
	AudioChannels int    `json:"audio_channels,omitempty" yaml:"audio_channels,omitempty"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model.
type ModelSource interface {
	Type() SourceType
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	RepoType      string   `json:"repo_type,omitempty"      yaml:"repo_type,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"        yaml:"exclude,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// LocalSource represents a model file or directory that is already on disk.
type LocalSource struct {
	Path string `json:"path" yaml:"path"`
}

// Type returns the local source type.
func (l LocalSource) Type() SourceType {
	return SourceTypeLocal
}

// GetSource returns the active source for the model.
func (m *ModelConfig) GetSource() (ModelSource, error) {
	if m.Source.HuggingFace != nil {
		return *m.Source.HuggingFace, nil
	}
	if m.Source.Local != nil {
		return *m.Source.Local, nil
	}

	return nil, errors.New("no source configured for model")
}

// SetHuggingFaceSource sets the Hugging Face source.
func (m *ModelConfig) SetHuggingFaceSource(source HuggingFaceSource) {
	m.Source.HuggingFace = &source
	m.Source.Local = nil
}

// SetLocalSource sets the local source.
func (m *ModelConfig) SetLocalSource(source LocalSource) {
	m.Source.Local = &source
	m.Source.HuggingFace = nil
}

// AssignedModels returns the IDs of every model assigned to a service.
func (c *Config) AssignedModels() map[string]bool {
	assigned := make(map[string]bool)
	for _, group := range [][]string{c.Services.LLM.Models, c.Services.STT.Models, c.Services.TTS.Models} {
		for _, id := range group {
			assigned[id] = true
		}
	}
	return assigned
}
