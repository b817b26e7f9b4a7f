package pipeline

import (
	"fmt"
	"slices"
	"time"
)

// Mode selects what the artifact contains.
type Mode string

const (
	ModeVideo     Mode = "video"     // Frames with narration
	ModeAudio     Mode = "audio"     // Narration only
	ModeSlideshow Mode = "slideshow" // Silent frames
)

// FailurePolicy decides what a per-unit synthesis failure does.
type FailurePolicy string

const (
	PolicyFailFast FailurePolicy = "fail_fast"
	PolicySkip     FailurePolicy = "skip"
)

var (
	videoCodecs  = []string{"libx264", "libx265", "libvpx-vp9", "mpeg4"}
	audioCodecs  = []string{"aac", "libmp3lame", "libopus", "pcm_s16le"}
	audioFormats = []string{"wav", "mp3"}
)

// EncoderConfig holds the encoding parameters of an artifact.
type EncoderConfig struct {
	Mode          Mode
	VideoCodec    string
	AudioCodec    string
	AudioFormat   string
	FPS           int
	SampleRate    int
	AudioChannels int
}

// Validate returns an *InvalidConfigurationError for unusable parameters.
func (c EncoderConfig) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	switch c.Mode {
	case ModeVideo, ModeAudio, ModeSlideshow:
	default:
		return invalid("mode", "%q is not one of video, audio, slideshow", c.Mode)
	}

	if c.FPS < 1 {
		return invalid("fps", "must be at least 1, got %d", c.FPS)
	}
	if c.AudioChannels < 1 {
		return invalid("audio_channels", "must be at least 1, got %d", c.AudioChannels)
	}
	if c.SampleRate <= 0 {
		return invalid("sample_rate", "must be positive, got %d", c.SampleRate)
	}
	if !slices.Contains(videoCodecs, c.VideoCodec) {
		return invalid("video_codec", "%q is not supported", c.VideoCodec)
	}
	if !slices.Contains(audioCodecs, c.AudioCodec) {
		return invalid("audio_codec", "%q is not supported", c.AudioCodec)
	}
	if !slices.Contains(audioFormats, c.AudioFormat) {
		return invalid("audio_format", "%q is not supported", c.AudioFormat)
	}

	return nil
}

// FrameDuration rounds d up to a whole number of frames, the length a
// looped still actually occupies in the video stream. Audio artifacts have
// no frames and keep d.
func (c EncoderConfig) FrameDuration(d time.Duration) time.Duration {
	if c.Mode == ModeAudio || c.FPS < 1 || d <= 0 {
		return d
	}

	fps := int64(c.FPS)
	frames := (int64(d)*fps + int64(time.Second) - 1) / int64(time.Second)
	return time.Duration(frames * int64(time.Second) / fps)
}

// Format returns the container the config produces.
func (c EncoderConfig) Format() string {
	if c.Mode == ModeAudio {
		return c.AudioFormat
	}
	return "mp4"
}

// MIMEType maps an artifact format to its media type.
func MIMEType(format string) string {
	switch format {
	case "mp4":
		return "video/mp4"
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
