package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ju4n97/storyreel/internal/envvar"
)

func TestParse(t *testing.T) {
	cases := map[string]Environment{
		"":            Development,
		"dev":         Development,
		"production":  Production,
		" PROD ":      Production,
		"staging":     Development,
		"Production":  Production,
		"development": Development,
	}

	for raw, want := range cases {
		assert.Equal(t, want, Parse(raw), "raw=%q", raw)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envvar.StoryreelEnv, "production")
	assert.True(t, FromEnv().IsProduction())

	t.Setenv(envvar.StoryreelEnv, "")
	assert.False(t, FromEnv().IsProduction())
}
