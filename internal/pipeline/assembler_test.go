package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seg(index int, d time.Duration) *Segment {
	return &Segment{
		Index:    index,
		Text:     string(rune('a' + index)),
		Duration: d,
		Frame:    frame(),
		Audio:    &Speech{Data: []byte("RIFF"), Format: "wav", Duration: d},
	}
}

func TestNewAssembler_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EncoderConfig)
		field  string
	}{
		{"zero fps", func(c *EncoderConfig) { c.FPS = 0 }, "fps"},
		{"negative fps", func(c *EncoderConfig) { c.FPS = -1 }, "fps"},
		{"zero channels", func(c *EncoderConfig) { c.AudioChannels = 0 }, "audio_channels"},
		{"zero sample rate", func(c *EncoderConfig) { c.SampleRate = 0 }, "sample_rate"},
		{"unknown codec", func(c *EncoderConfig) { c.VideoCodec = "h266" }, "video_codec"},
		{"unknown audio format", func(c *EncoderConfig) { c.AudioFormat = "flac" }, "audio_format"},
		{"unknown mode", func(c *EncoderConfig) { c.Mode = "gif" }, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validEncoderConfig()
			tt.mutate(&cfg)

			_, err := NewAssembler(cfg, new(MockEncoder))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var ice *InvalidConfigurationError
			require.True(t, errors.As(err, &ice))
			assert.Equal(t, tt.field, ice.Field)
		})
	}
}

func TestNewAssembler_RequiresEncoder(t *testing.T) {
	_, err := NewAssembler(validEncoderConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestAssembler_Assemble(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.MatchedBy(func(job *EncodeJob) bool {
		return len(job.Segments) == 3 &&
			job.Segments[0].Index == 0 &&
			job.Segments[1].Index == 1 &&
			job.Segments[2].Index == 2 &&
			job.Scratch != nil
	})).Return([]byte("mp4"), nil).Once()

	a, err := NewAssembler(validEncoderConfig(), enc)
	require.NoError(t, err)
	assert.Equal(t, StateCollecting, a.State())

	// Added out of order.
	s2, s0, s1 := seg(2, 3*time.Second), seg(0, time.Second), seg(1, 2*time.Second)
	require.NoError(t, a.Add(s2))
	require.NoError(t, a.Add(s0))
	require.NoError(t, a.Add(s1))

	art, err := a.Assemble(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, a.State())
	assert.Equal(t, []byte("mp4"), art.Data)
	assert.Equal(t, "mp4", art.Format)
	assert.Equal(t, "video/mp4", art.MIMEType)
	assert.Equal(t, 6*time.Second, art.Duration)

	require.Len(t, art.Timeline, 3)
	for k, cue := range art.Timeline {
		assert.Equal(t, k, cue.Index)
		if k > 0 {
			assert.Equal(t, art.Timeline[k-1].End, cue.Start)
		}
	}
	assert.Equal(t, time.Duration(0), art.Timeline[0].Start)
	assert.Equal(t, art.Duration, art.Timeline[2].End)

	assert.Nil(t, s0.Audio)
	assert.Nil(t, s2.Frame)

	enc.AssertExpectations(t)
}

func TestAssembler_SealedAfterAssemble(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return([]byte("x"), nil)

	a, err := NewAssembler(validEncoderConfig(), enc)
	require.NoError(t, err)
	require.NoError(t, a.Add(seg(0, time.Second)))

	_, err = a.Assemble(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, a.Add(seg(1, time.Second)), ErrAssemblerSealed)

	_, err = a.Assemble(context.Background())
	assert.ErrorIs(t, err, ErrAssemblerSealed)
}

func TestAssembler_EncodingFailure(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return(nil, errors.New("Unknown encoder 'libx264'"))

	a, err := NewAssembler(validEncoderConfig(), enc)
	require.NoError(t, err)
	s := seg(0, time.Second)
	require.NoError(t, a.Add(s))

	art, err := a.Assemble(context.Background())
	assert.Nil(t, art)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "Unknown encoder")
	assert.Equal(t, StateFailed, a.State())
	assert.Nil(t, s.Audio)

	assert.ErrorIs(t, a.Add(seg(1, time.Second)), ErrAssemblerSealed)
}

func TestAssembler_EmptyOutputIsEncodingError(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return([]byte{}, nil)

	a, err := NewAssembler(validEncoderConfig(), enc)
	require.NoError(t, err)
	require.NoError(t, a.Add(seg(0, time.Second)))

	_, err = a.Assemble(context.Background())
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestAssembler_NoSegments(t *testing.T) {
	a, err := NewAssembler(validEncoderConfig(), new(MockEncoder))
	require.NoError(t, err)

	_, err = a.Assemble(context.Background())
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, StateFailed, a.State())
}

func TestAssembler_AddRejectsInvalidSegments(t *testing.T) {
	a, err := NewAssembler(validEncoderConfig(), new(MockEncoder))
	require.NoError(t, err)

	assert.Error(t, a.Add(nil))
	assert.Error(t, a.Add(seg(0, 0)))
	require.NoError(t, a.Add(seg(0, time.Second)))
	assert.Error(t, a.Add(seg(0, time.Second)))
}

func TestAssembler_AudioFormat(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return([]byte("ID3"), nil)

	cfg := validEncoderConfig()
	cfg.Mode = ModeAudio
	cfg.AudioFormat = "mp3"

	a, err := NewAssembler(cfg, enc)
	require.NoError(t, err)
	require.NoError(t, a.Add(seg(0, time.Second)))

	art, err := a.Assemble(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mp3", art.Format)
	assert.Equal(t, "audio/mpeg", art.MIMEType)
}

func TestAssembler_Idempotent(t *testing.T) {
	run := func() *Artifact {
		enc := new(MockEncoder)
		enc.On("Encode", mock.Anything, mock.Anything).Return([]byte("x"), nil)

		a, err := NewAssembler(validEncoderConfig(), enc)
		require.NoError(t, err)
		for i, d := range []time.Duration{1500 * time.Millisecond, 700 * time.Millisecond, 2 * time.Second} {
			require.NoError(t, a.Add(seg(i, d)))
		}

		art, err := a.Assemble(context.Background())
		require.NoError(t, err)
		return art
	}

	a, b := run(), run()
	assert.Equal(t, a.Duration, b.Duration)
	assert.Equal(t, a.Timeline, b.Timeline)
}

func TestAssembler_TimelineFollowsWholeFrames(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return([]byte("mp4"), nil)

	a, err := NewAssembler(validEncoderConfig(), enc)
	require.NoError(t, err)

	// 100 units of 1.010s each. Unrounded, the video would run 100/24 s
	// past the cues.
	for i := range 100 {
		require.NoError(t, a.Add(seg(i, 1010*time.Millisecond)))
	}

	art, err := a.Assemble(context.Background())
	require.NoError(t, err)

	perUnit := 1041666666 * time.Nanosecond // 25 frames
	assert.Equal(t, 100*perUnit, art.Duration)
	assert.Equal(t, 99*perUnit, art.Timeline[99].Start)
}

func TestAssembler_AudioKeepsExactDurations(t *testing.T) {
	enc := new(MockEncoder)
	enc.On("Encode", mock.Anything, mock.Anything).Return([]byte("wav"), nil)

	cfg := validEncoderConfig()
	cfg.Mode = ModeAudio
	a, err := NewAssembler(cfg, enc)
	require.NoError(t, err)
	require.NoError(t, a.Add(seg(0, 1010*time.Millisecond)))

	art, err := a.Assemble(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1010*time.Millisecond, art.Duration)
}

func TestEncoderConfig_FrameDuration(t *testing.T) {
	cfg := validEncoderConfig()

	assert.Equal(t, time.Second, cfg.FrameDuration(time.Second))
	assert.Equal(t, 750*time.Millisecond, cfg.FrameDuration(750*time.Millisecond))
	assert.Equal(t, 1041666666*time.Nanosecond, cfg.FrameDuration(1010*time.Millisecond))
	assert.Equal(t, 41666666*time.Nanosecond, cfg.FrameDuration(time.Millisecond))
	assert.Equal(t, time.Duration(0), cfg.FrameDuration(0))

	aligned := cfg.FrameDuration(1010 * time.Millisecond)
	assert.Equal(t, aligned, cfg.FrameDuration(aligned), "rounding is stable")

	cfg.FPS = 25
	assert.Equal(t, 1040*time.Millisecond, cfg.FrameDuration(1010*time.Millisecond))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "collecting", StateCollecting.String())
	assert.Equal(t, "encoding", StateEncoding.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "failed", StateFailed.String())
}
