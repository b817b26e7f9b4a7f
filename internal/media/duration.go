package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/ju4n97/storyreel/internal/backend"
)

var ErrUnknownDuration = errors.New("cannot determine audio duration")

// Prober measures audio playback length. WAV is decoded in process; other
// formats go through ffprobe when one is configured.
type Prober struct {
	ffprobe *backend.Executor
}

// NewProber creates a Prober. ffprobe may be nil.
func NewProber(ffprobe *backend.Executor) *Prober {
	return &Prober{ffprobe: ffprobe}
}

// Duration returns the playback length of audio data.
func (p *Prober) Duration(ctx context.Context, data []byte, format string) (time.Duration, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: no audio data", ErrUnknownDuration)
	}

	if format == "wav" || bytes.HasPrefix(data, []byte("RIFF")) {
		d, err := WAVDuration(data)
		if err == nil {
			return d, nil
		}
		if p.ffprobe == nil {
			return 0, err
		}
	}

	if p.ffprobe == nil {
		return 0, fmt.Errorf("%w: %s needs ffprobe", ErrUnknownDuration, format)
	}

	return p.probe(ctx, data)
}

// WAVDuration returns the length of a WAV file from its fmt chunk and the
// PCM bytes actually present. Streamed WAVs carry 0xFFFFFFFF or stale size
// fields, so the data chunk size is only trusted when the payload holds it.
func WAVDuration(data []byte) (time.Duration, error) {
	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: invalid wav file", ErrUnknownDuration)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnknownDuration, err)
	}

	blockAlign := int64(dec.NumChans) * int64((dec.BitDepth+7)/8)
	byteRate := int64(dec.SampleRate) * blockAlign
	if byteRate <= 0 {
		return 0, fmt.Errorf("%w: wav header has no byte rate", ErrUnknownDuration)
	}

	// r sits at the first PCM byte.
	size := int64(dec.PCMSize)
	if remaining := int64(r.Len()); size <= 0 || size > remaining {
		size = remaining
	}
	size -= size % blockAlign

	d := time.Duration(float64(size) / float64(byteRate) * float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("%w: wav file has no samples", ErrUnknownDuration)
	}

	return d, nil
}

func (p *Prober) probe(ctx context.Context, data []byte) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		"-i", "pipe:0",
	}

	stdout, stderr, err := p.ffprobe.Execute(ctx, args, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nstderr: %s", err, stderr)
	}

	return ParseSeconds(string(stdout))
}

// ParseSeconds parses ffprobe's decimal seconds output.
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse %q: %w", ErrUnknownDuration, s, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration %q", ErrUnknownDuration, s)
	}

	return time.Duration(secs * float64(time.Second)), nil
}

// seconds formats d for ffmpeg's -t flag and concat durations. It truncates
// to microseconds so a frame-aligned d never admits one more frame.
func seconds(d time.Duration) string {
	us := d.Microseconds()
	return fmt.Sprintf("%d.%06d", us/1_000_000, us%1_000_000)
}
