package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/ju4n97/storyreel/internal/render"
	"github.com/ju4n97/storyreel/internal/xfs"
)

// Speech is synthesized audio with its measured playback length.
type Speech struct {
	Data     []byte
	Format   string
	Duration time.Duration
}

// Voice selects the speech backend, model and voice parameters.
type Voice struct {
	Parameters map[string]any
	Provider   string
	ModelID    string
	Language   string
}

// SpeechSynthesizer turns text into speech.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) (*Speech, error)
}

// FrameRenderer draws text onto a still frame. It must be deterministic
// for the same text, size and style.
type FrameRenderer interface {
	Render(text string, width, height int, style render.Style) (image.Image, error)
}

// Translator rewrites text into another language.
type Translator interface {
	Translate(ctx context.Context, text, language string) (string, error)
}

// EncodeJob is the input of one encode.
type EncodeJob struct {
	Scratch  *xfs.Scratch
	Segments []*Segment
	Config   EncoderConfig
}

// Encoder produces the final media bytes from ordered segments.
type Encoder interface {
	Encode(ctx context.Context, job *EncodeJob) ([]byte, error)
}
