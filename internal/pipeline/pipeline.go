package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ju4n97/storyreel/internal/xfs"
)

// Config configures a Pipeline.
type Config struct {
	Policy      FailurePolicy
	TranslateTo string
	ScratchDir  string
	Encoder     EncoderConfig
	Concurrency int
}

// Request is one narration request. Empty fields use the pipeline config.
type Request struct {
	Text        string
	Mode        Mode
	TranslateTo string
}

// Pipeline runs Split, Render and Assemble for one request at a time.
type Pipeline struct {
	synth      *Synthesizer
	encoder    Encoder
	translator Translator
	cfg        Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTranslator enables per-unit translation.
func WithTranslator(t Translator) Option {
	return func(p *Pipeline) {
		p.translator = t
	}
}

// New creates a Pipeline. The encoder configuration is validated up front.
func New(synth *Synthesizer, encoder Encoder, cfg Config, opts ...Option) (*Pipeline, error) {
	if synth == nil {
		return nil, errors.New("synthesizer is required")
	}
	if err := cfg.Encoder.Validate(); err != nil {
		return nil, err
	}
	// yuv420p halves both chroma planes; the video encoders reject odd sizes.
	// A request may switch to video mode, so this holds in audio mode too.
	if synth.cfg.Width%2 != 0 {
		return nil, &InvalidConfigurationError{Field: "width", Reason: fmt.Sprintf("%d is odd", synth.cfg.Width)}
	}
	if synth.cfg.Height%2 != 0 {
		return nil, &InvalidConfigurationError{Field: "height", Reason: fmt.Sprintf("%d is odd", synth.cfg.Height)}
	}

	switch cfg.Policy {
	case PolicyFailFast, PolicySkip:
	case "":
		cfg.Policy = PolicyFailFast
	default:
		return nil, fmt.Errorf("unknown failure policy %q", cfg.Policy)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	p := &Pipeline{
		synth:   synth,
		encoder: encoder,
		cfg:     cfg,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run narrates req.Text into one Artifact.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Artifact, error) {
	units, err := Split(req.Text)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	start := time.Now()
	log := slog.With("request_id", id)

	encCfg := p.cfg.Encoder
	synth := p.synth
	if req.Mode != "" && req.Mode != encCfg.Mode {
		encCfg.Mode = req.Mode
		synth = synth.withMode(req.Mode)
	}

	language := cmp.Or(req.TranslateTo, p.cfg.TranslateTo)
	if language != "" && p.translator == nil {
		return nil, fmt.Errorf("translation to %q requested but no translator is configured", language)
	}

	scratch, err := xfs.NewScratch(p.cfg.ScratchDir, "storyreel-"+id)
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	asm, err := NewAssembler(encCfg, p.encoder, WithScratch(scratch))
	if err != nil {
		return nil, err
	}

	total := Count(req.Text)
	log.Info("Narration started", "units", total, "mode", encCfg.Mode, "policy", p.cfg.Policy)

	segments := make([]*Segment, total)
	var (
		warnings []Warning
		mu       sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for u := range units {
		g.Go(func() error {
			seg, err := p.renderUnit(gctx, synth, u, language)
			if err == nil {
				segments[u.Index] = seg
				return nil
			}

			var se *SynthesisError
			if p.cfg.Policy == PolicySkip && errors.As(err, &se) {
				log.Warn("Skipping narration unit", "unit", u.Index, "line", u.Line, "error", se.Err)

				mu.Lock()
				warnings = append(warnings, Warning{
					Index: u.Index,
					Line:  u.Line,
					Text:  u.Text,
					Cause: se.Err.Error(),
				})
				mu.Unlock()
				return nil
			}

			return err
		})
	}

	release := func() {
		for _, s := range segments {
			s.Release()
		}
	}

	if err := g.Wait(); err != nil {
		release()
		log.Error("Narration failed", "error", err)
		return nil, err
	}

	for _, s := range segments {
		if s == nil {
			continue
		}
		if err := asm.Add(s); err != nil {
			release()
			return nil, err
		}
	}

	slices.SortFunc(warnings, func(a, b Warning) int {
		return a.Index - b.Index
	})

	if len(warnings) == total {
		return nil, &EmptyInputError{Reason: fmt.Sprintf("all %d units failed synthesis", total)}
	}

	artifact, err := asm.Assemble(ctx)
	if err != nil {
		log.Error("Narration failed", "error", err)
		return nil, err
	}

	artifact.ID = id
	artifact.Warnings = warnings
	artifact.Filename = fmt.Sprintf("storyreel-%s.%s", id[:8], artifact.Format)

	log.Info("Narration complete",
		"units", len(artifact.Timeline),
		"skipped", len(warnings),
		"format", artifact.Format,
		"duration", artifact.Duration,
		"elapsed", time.Since(start),
	)

	return artifact, nil
}

func (p *Pipeline) renderUnit(ctx context.Context, synth *Synthesizer, u Unit, language string) (*Segment, error) {
	if language != "" {
		translated, err := p.translator.Translate(ctx, u.Text, language)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &SynthesisError{Index: u.Index, Line: u.Line, Text: u.Text, Err: fmt.Errorf("translate: %w", err)}
		}
		if translated != "" {
			u.Text = translated
		}
	}

	return synth.Render(ctx, u)
}
