package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ju4n97/storyreel/internal/render"
)

// SynthesizerConfig configures a Synthesizer.
type SynthesizerConfig struct {
	Voice           Voice
	Style           render.Style
	Mode            Mode
	Width           int
	Height          int
	DefaultDuration time.Duration
}

// Synthesizer turns one Unit into one Segment.
type Synthesizer struct {
	speech SpeechSynthesizer
	frames FrameRenderer
	cfg    SynthesizerConfig
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(speech SpeechSynthesizer, frames FrameRenderer, cfg SynthesizerConfig) *Synthesizer {
	return &Synthesizer{
		speech: speech,
		frames: frames,
		cfg:    cfg,
	}
}

// withMode returns a copy of s producing segments for mode.
func (s *Synthesizer) withMode(mode Mode) *Synthesizer {
	c := *s
	c.cfg.Mode = mode
	return &c
}

// Render produces the segment of u. Speech and frame are rendered
// concurrently. The segment lasts as long as its speech; in slideshow mode
// a speech failure falls back to the default duration.
func (s *Synthesizer) Render(ctx context.Context, u Unit) (*Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	style := u.Style
	if style.IsZero() {
		style = s.cfg.Style
	}

	var (
		wg        sync.WaitGroup
		speech    *Speech
		speechErr error
		frame     image.Image
		frameErr  error
	)

	wg.Go(func() {
		speech, speechErr = s.speech.Synthesize(ctx, u.Text, s.cfg.Voice)
		if speechErr == nil && (speech == nil || speech.Duration <= 0) {
			speechErr = fmt.Errorf("speech has no measurable duration")
		}
	})

	if s.cfg.Mode != ModeAudio {
		wg.Go(func() {
			frame, frameErr = s.frames.Render(u.Text, s.cfg.Width, s.cfg.Height, style)
		})
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fail := func(err error) error {
		return &SynthesisError{Index: u.Index, Line: u.Line, Text: u.Text, Err: err}
	}

	if frameErr != nil {
		return nil, fail(fmt.Errorf("render frame: %w", frameErr))
	}

	seg := &Segment{
		Index: u.Index,
		Line:  u.Line,
		Text:  u.Text,
		Frame: frame,
	}

	switch {
	case speechErr == nil:
		seg.Duration = speech.Duration
		if s.cfg.Mode != ModeSlideshow {
			seg.Audio = speech
		}
	case s.cfg.Mode == ModeSlideshow && s.cfg.DefaultDuration > 0:
		slog.Warn("Speech failed, using default unit duration",
			"unit", u.Index, "line", u.Line, "duration", s.cfg.DefaultDuration, "error", speechErr)
		seg.Duration = s.cfg.DefaultDuration
	default:
		return nil, fail(speechErr)
	}

	return seg, nil
}
