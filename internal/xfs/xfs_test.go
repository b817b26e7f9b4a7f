package xfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "models"), ExpandTilde("~/models"))
	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, "/var/lib/models", ExpandTilde("/var/lib/models"))
	assert.Equal(t, "~user/x", ExpandTilde("~user/x"))
}

func TestScratch_Lifecycle(t *testing.T) {
	s, err := NewScratch(t.TempDir(), "storyreel")
	require.NoError(t, err)

	path, err := s.WriteFile("frame-0000.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, s.Path("frame-0000.png"), path)
	assert.FileExists(t, path)

	require.NoError(t, s.Close())
	assert.NoDirExists(t, s.Dir())

	// second close is a no-op
	require.NoError(t, s.Close())

	_, err = s.WriteFile("late.wav", []byte("x"))
	assert.Error(t, err)
}

func TestScratch_CreatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "scratch")
	s, err := NewScratch(base, "req")
	require.NoError(t, err)
	defer s.Close()

	assert.DirExists(t, base)
	assert.Equal(t, base, filepath.Dir(s.Dir()))
}
