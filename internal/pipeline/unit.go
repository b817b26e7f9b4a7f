package pipeline

import (
	"image"
	"time"

	"github.com/ju4n97/storyreel/internal/render"
)

// Unit is one narration unit: a single non-blank line of input.
type Unit struct {
	Text  string
	Style render.Style
	Index int // Zero-based position among units
	Line  int // One-based source line number
}

// Segment is the rendered form of a Unit. It is consumed once by an
// Assembler and released afterwards.
type Segment struct {
	Audio    *Speech
	Frame    image.Image
	Text     string
	Index    int
	Line     int
	Duration time.Duration
}

// Release drops the segment's buffers.
func (s *Segment) Release() {
	if s == nil {
		return
	}
	s.Audio = nil
	s.Frame = nil
}

// Cue places one unit on the artifact timeline.
type Cue struct {
	Text  string
	Index int
	Start time.Duration
	End   time.Duration
}

// Warning reports a unit omitted under the skip policy.
type Warning struct {
	Text  string
	Cause string
	Index int
	Line  int
}

// Artifact is the encoded deliverable of one request.
type Artifact struct {
	ID       string
	Data     []byte
	Format   string
	MIMEType string
	Filename string
	Timeline []Cue
	Warnings []Warning
	Duration time.Duration
}
