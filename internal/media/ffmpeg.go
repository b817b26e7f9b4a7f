package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/bmp"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/pipeline"
	"github.com/ju4n97/storyreel/internal/xfs"
)

const (
	defaultTimeout = 5 * time.Minute
	pixelFormat    = "yuv420p"
	fastStartFlag  = "+faststart"
	concatList     = "segments.txt"
)

// FFmpeg encodes artifacts with the ffmpeg binary. Every segment is encoded
// to its own file, then the files are joined with the concat demuxer.
type FFmpeg struct {
	executor *backend.Executor
}

// NewFFmpeg resolves binPath and returns an encoder.
func NewFFmpeg(binPath string) (*FFmpeg, error) {
	executor, err := backend.NewExecutor(binPath, defaultTimeout)
	if err != nil {
		return nil, err
	}
	return NewFFmpegWithExecutor(executor), nil
}

// NewFFmpegWithExecutor returns an encoder around an existing executor.
func NewFFmpegWithExecutor(executor *backend.Executor) *FFmpeg {
	return &FFmpeg{executor: executor}
}

// Encode implements pipeline.Encoder.
func (f *FFmpeg) Encode(ctx context.Context, job *pipeline.EncodeJob) ([]byte, error) {
	if len(job.Segments) == 0 {
		return nil, fmt.Errorf("no segments to encode")
	}

	cfg := job.Config
	format := cfg.Format()
	parts := make([]part, 0, len(job.Segments))

	for i, seg := range job.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			path string
			err  error
		)
		d := cfg.FrameDuration(seg.Duration)
		if cfg.Mode == pipeline.ModeAudio {
			path, err = f.encodeAudioSegment(ctx, job.Scratch, i, seg, d, cfg)
		} else {
			path, err = f.encodeVideoSegment(ctx, job.Scratch, i, seg, d, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}

		parts = append(parts, part{path: path, duration: d})
		slog.Debug("Segment encoded", "unit", seg.Index, "duration", d, "path", path)
	}

	output := job.Scratch.Path("output." + format)
	if err := f.concat(ctx, job.Scratch, parts, output, cfg); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded output: %w", err)
	}

	return data, nil
}

// part is one encoded segment file and the length it occupies in the
// joined artifact.
type part struct {
	path     string
	duration time.Duration
}

// encodeVideoSegment loops the frame for d, a whole number of frames, over
// the segment's speech padded with silence, or over silence alone in
// slideshow mode. Both streams end at d.
func (f *FFmpeg) encodeVideoSegment(ctx context.Context, scratch *xfs.Scratch, i int, seg *pipeline.Segment, d time.Duration, cfg pipeline.EncoderConfig) (string, error) {
	if seg.Frame == nil {
		return "", fmt.Errorf("segment has no frame")
	}

	framePath := scratch.Path(fmt.Sprintf("frame_%04d.bmp", i))
	if err := writeFrame(framePath, seg); err != nil {
		return "", err
	}

	audioPath, err := f.segmentAudio(scratch, i, seg, d, cfg)
	if err != nil {
		return "", err
	}

	out := scratch.Path(fmt.Sprintf("segment_%04d.mp4", i))
	fps := strconv.Itoa(cfg.FPS)

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", fps,
		"-i", framePath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", cfg.VideoCodec,
		"-pix_fmt", pixelFormat,
		"-r", fps,
		"-af", "apad",
		"-c:a", cfg.AudioCodec,
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.AudioChannels),
		"-t", seconds(d),
		out,
	}

	if err := f.run(ctx, args, out); err != nil {
		return "", err
	}
	return out, nil
}

// encodeAudioSegment normalizes one speech track to PCM with the target
// sample rate and channel count.
func (f *FFmpeg) encodeAudioSegment(ctx context.Context, scratch *xfs.Scratch, i int, seg *pipeline.Segment, d time.Duration, cfg pipeline.EncoderConfig) (string, error) {
	in, err := f.segmentAudio(scratch, i, seg, d, cfg)
	if err != nil {
		return "", err
	}

	out := scratch.Path(fmt.Sprintf("segment_%04d.wav", i))
	args := []string{
		"-y",
		"-i", in,
		"-c:a", "pcm_s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.AudioChannels),
		"-t", seconds(d),
		out,
	}

	if err := f.run(ctx, args, out); err != nil {
		return "", err
	}
	return out, nil
}

// segmentAudio writes the segment's speech to scratch, or a silent track
// when the segment carries none.
func (f *FFmpeg) segmentAudio(scratch *xfs.Scratch, i int, seg *pipeline.Segment, d time.Duration, cfg pipeline.EncoderConfig) (string, error) {
	if seg.Audio == nil || len(seg.Audio.Data) == 0 {
		if cfg.Mode == pipeline.ModeAudio {
			return "", fmt.Errorf("segment has no audio")
		}
		path := scratch.Path(fmt.Sprintf("silence_%04d.wav", i))
		if err := WriteSilence(path, d, cfg.SampleRate, cfg.AudioChannels); err != nil {
			return "", err
		}
		return path, nil
	}

	ext := seg.Audio.Format
	if ext == "" {
		ext = "wav"
	}

	return scratch.WriteFile(fmt.Sprintf("speech_%04d.%s", i, ext), seg.Audio.Data)
}

// concat joins the parts with the concat demuxer. Each entry carries its
// duration so file offsets follow the timeline rather than the longer of a
// part's streams.
func (f *FFmpeg) concat(ctx context.Context, scratch *xfs.Scratch, parts []part, output string, cfg pipeline.EncoderConfig) error {
	var list strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&list, "file '%s'\nduration %s\n", strings.ReplaceAll(p.path, "'", `'\''`), seconds(p.duration))
	}

	listPath, err := scratch.WriteFile(concatList, []byte(list.String()))
	if err != nil {
		return err
	}

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}

	switch {
	case cfg.Mode != pipeline.ModeAudio:
		args = append(args, "-c", "copy", "-movflags", fastStartFlag)
	case cfg.AudioFormat == "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
	default:
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, output)

	return f.run(ctx, args, output)
}

// run executes ffmpeg and removes a partial output on failure.
func (f *FFmpeg) run(ctx context.Context, args []string, output string) error {
	_, stderr, err := f.executor.Execute(ctx, args, nil)
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, tail(stderr, 2048))
	}
	return nil
}

func writeFrame(path string, seg *pipeline.Segment) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer out.Close()

	if err := bmp.Encode(out, seg.Frame); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
