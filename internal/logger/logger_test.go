package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju4n97/storyreel/internal/env"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithOutput(&buf))

	log.Info("Artifact encoded", "format", "mp4")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Artifact encoded", record["msg"])
	assert.Equal(t, "mp4", record["format"])
}

func TestNew_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithOutput(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_DevelopmentUsesTint(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Development, WithOutput(&buf))

	log.Debug("Unit rendered", "index", 2)
	out := buf.String()
	assert.Contains(t, out, "Unit rendered")
	assert.Contains(t, out, "index")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestNew_FileFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "storyreel.log")
	log := New(env.Production, WithOutput(&buf), WithLogToFile(true), WithLogFile(path))

	log.With("request_id", "abc").Warn("Unit skipped", "index", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Unit skipped")
	assert.Contains(t, string(data), "request_id")
	assert.Contains(t, buf.String(), "Unit skipped")
}
