package pipeline

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/ju4n97/storyreel/internal/render"
)

type MockSpeech struct {
	mock.Mock
}

func (m *MockSpeech) Synthesize(ctx context.Context, text string, voice Voice) (*Speech, error) {
	args := m.Called(ctx, text, voice)
	s, _ := args.Get(0).(*Speech)
	return s, args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(text string, width, height int, style render.Style) (image.Image, error) {
	args := m.Called(text, width, height, style)
	img, _ := args.Get(0).(image.Image)
	return img, args.Error(1)
}

type MockEncoder struct {
	mock.Mock
}

func (m *MockEncoder) Encode(ctx context.Context, job *EncodeJob) ([]byte, error) {
	args := m.Called(ctx, job)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text, language string) (string, error) {
	args := m.Called(ctx, text, language)
	return args.String(0), args.Error(1)
}

func frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func validEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Mode:          ModeVideo,
		VideoCodec:    "libx264",
		AudioCodec:    "aac",
		AudioFormat:   "wav",
		FPS:           24,
		SampleRate:    44100,
		AudioChannels: 2,
	}
}
