package backend

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	out, _ := a.Get(0).([]byte)
	errOut, _ := a.Get(1).([]byte)
	return out, errOut, a.Error(2)
}

func TestExecutor_ExecuteAppliesTimeout(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run",
		mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}),
		"/usr/bin/piper",
		[]string{"--model", "voice.onnx"},
		mock.Anything,
	).Return([]byte("ok"), []byte(""), nil).Once()

	e := NewExecutorWithRunner("/usr/bin/piper", time.Second, runner)
	stdout, _, err := e.Execute(context.Background(), []string{"--model", "voice.onnx"}, strings.NewReader("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(stdout))
	assert.Equal(t, "/usr/bin/piper", e.BinaryPath())

	runner.AssertExpectations(t)
}

func TestExecutor_ExecutePropagatesError(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "ffmpeg", mock.Anything, mock.Anything).
		Return([]byte(nil), []byte("Unknown encoder"), errors.New("exit status 1")).Once()

	e := NewExecutorWithRunner("ffmpeg", 0, runner)
	_, stderr, err := e.Execute(context.Background(), nil, nil)
	assert.EqualError(t, err, "exit status 1")
	assert.Equal(t, "Unknown encoder", string(stderr))
}

func TestNewExecutor_MissingBinary(t *testing.T) {
	_, err := NewExecutor("/definitely/not/here/piper", time.Second)
	assert.Error(t, err)
}
