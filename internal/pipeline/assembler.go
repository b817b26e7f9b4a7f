package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ju4n97/storyreel/internal/xfs"
)

// State is the lifecycle state of an Assembler.
type State int

const (
	StateCollecting State = iota
	StateEncoding
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateEncoding:
		return "encoding"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Assembler concatenates segments in unit order and encodes one Artifact.
// It is single use: once Assemble has been called no segment can be added.
type Assembler struct {
	encoder  Encoder
	scratch  *xfs.Scratch
	segments []*Segment
	cfg      EncoderConfig
	state    State
	mu       sync.Mutex
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithScratch makes the encoder work inside s instead of a private
// temporary directory.
func WithScratch(s *xfs.Scratch) AssemblerOption {
	return func(a *Assembler) {
		a.scratch = s
	}
}

// NewAssembler validates cfg and returns an Assembler in StateCollecting.
func NewAssembler(cfg EncoderConfig, encoder Encoder, opts ...AssemblerOption) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if encoder == nil {
		return nil, &InvalidConfigurationError{Field: "encoder", Reason: "is required"}
	}

	a := &Assembler{
		cfg:     cfg,
		encoder: encoder,
		state:   StateCollecting,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// State returns the current state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Add queues a segment. It fails with ErrAssemblerSealed once encoding has begun.
func (a *Assembler) Add(seg *Segment) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateCollecting {
		return fmt.Errorf("%w: state is %s", ErrAssemblerSealed, a.state)
	}
	if seg == nil {
		return fmt.Errorf("segment is nil")
	}
	if seg.Duration <= 0 {
		return fmt.Errorf("segment %d has non-positive duration %v", seg.Index, seg.Duration)
	}
	for _, s := range a.segments {
		if s.Index == seg.Index {
			return fmt.Errorf("segment %d already added", seg.Index)
		}
	}

	a.segments = append(a.segments, seg)
	return nil
}

// Assemble orders the queued segments by unit index, rounds each duration
// to whole frames, builds the timeline and encodes the artifact. Segments
// are released on every exit path.
func (a *Assembler) Assemble(ctx context.Context) (*Artifact, error) {
	a.mu.Lock()
	if a.state != StateCollecting {
		state := a.state
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: state is %s", ErrAssemblerSealed, state)
	}
	a.state = StateEncoding
	segments := a.segments
	a.segments = nil
	a.mu.Unlock()

	defer func() {
		for _, s := range segments {
			s.Release()
		}
	}()

	if len(segments) == 0 {
		a.setState(StateFailed)
		return nil, &EmptyInputError{Reason: "no segments to assemble"}
	}

	slices.SortFunc(segments, func(x, y *Segment) int {
		return x.Index - y.Index
	})
	for _, s := range segments {
		s.Duration = a.cfg.FrameDuration(s.Duration)
	}

	timeline, total := Timeline(segments)
	format := a.cfg.Format()

	scratch := a.scratch
	if scratch == nil {
		var err error
		scratch, err = xfs.NewScratch("", "storyreel-assemble")
		if err != nil {
			a.setState(StateFailed)
			return nil, &EncodingError{Format: format, Err: err}
		}
		defer scratch.Close()
	}

	data, err := a.encoder.Encode(ctx, &EncodeJob{
		Scratch:  scratch,
		Segments: segments,
		Config:   a.cfg,
	})
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("encoder produced no output")
	}
	if err != nil {
		a.setState(StateFailed)
		return nil, &EncodingError{Format: format, Err: err}
	}

	a.setState(StateComplete)

	return &Artifact{
		Data:     data,
		Format:   format,
		MIMEType: MIMEType(format),
		Filename: "storyreel." + format,
		Timeline: timeline,
		Duration: total,
	}, nil
}

func (a *Assembler) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Timeline lays ordered segments end to end. Each cue starts where the
// previous one ends.
func Timeline(segments []*Segment) ([]Cue, time.Duration) {
	cues := make([]Cue, 0, len(segments))

	var at time.Duration
	for _, s := range segments {
		cues = append(cues, Cue{
			Index: s.Index,
			Text:  s.Text,
			Start: at,
			End:   at + s.Duration,
		})
		at += s.Duration
	}

	return cues, at
}
