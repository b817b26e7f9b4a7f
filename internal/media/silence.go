package media

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	pcmFormat     = 1
	silenceDepth  = 16
	silenceFrames = 4096
)

// WriteSilence writes a 16-bit PCM WAV file of silence lasting d.
func WriteSilence(path string, d time.Duration, sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid silence format: %d Hz, %d channels", sampleRate, channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, silenceDepth, channels, pcmFormat)

	total := int(d.Seconds() * float64(sampleRate))
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: silenceDepth,
	}

	zeros := make([]int, silenceFrames*channels)
	for total > 0 {
		n := min(total, silenceFrames)
		buf.Data = zeros[:n*channels]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write silence: %w", err)
		}
		total -= n
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize silence: %w", err)
	}

	return nil
}
